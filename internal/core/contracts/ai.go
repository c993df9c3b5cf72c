package contracts

import "context"

// Completer is the external AI text-completion call. Chat returns the
// full reply; ChatStream invokes onToken per incremental token and
// returns the concatenated reply.
type Completer interface {
	Chat(ctx context.Context, message string) (string, error)
	ChatStream(ctx context.Context, message string, onToken func(token string) error) (string, error)
}

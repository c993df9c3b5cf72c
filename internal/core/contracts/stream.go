package contracts

import "context"

// StreamServer is the per-user SSE emitter registry. One open session
// per user; a second Open replaces the first. Append to an absent
// session is a logged no-op. Finish and Fail send a terminal event and
// retire the session; removal is idempotent.
type StreamServer interface {
	Append(ctx context.Context, userID, chunk string)
	Finish(ctx context.Context, userID, finalPayload string)
	Fail(ctx context.Context, userID, errorPayload string)
	Size() int
}

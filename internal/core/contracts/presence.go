package contracts

import (
	"context"
	"time"
)

// PresenceStore is the fast online/offline mirror (Redis). The durable
// flag lives in the user repository; this store answers "is X online
// right now" for friend-list decoration.
type PresenceStore interface {
	SetOnline(ctx context.Context, userID string, ttl time.Duration) error
	SetOffline(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
	// OnlineOf filters userIDs down to the currently-online subset.
	OnlineOf(ctx context.Context, userIDs []string) (map[string]bool, error)
}

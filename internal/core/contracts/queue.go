package contracts

import "context"

// FanoutQueue decouples push creation from delivery. Jobs are durable in
// the queue only until processed; delivery itself stays best-effort.
type FanoutQueue interface {
	PublishJob(ctx context.Context, payload []byte) error
	// SubscribeJobs starts a consumer-group read loop that invokes
	// handler for every job until ctx is cancelled.
	SubscribeJobs(ctx context.Context, group string, handler func(ctx context.Context, jobID string, data []byte) error) error
	AcknowledgeJob(ctx context.Context, group, jobID string) error
	DeleteJob(ctx context.Context, jobID string) error
}

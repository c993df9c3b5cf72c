package contracts

import "context"

type AsyncWorker interface {
	// Run starts the consumer loop and blocks until ctx is cancelled.
	Run(ctx context.Context) error
	// ProcessJob handles one dequeued fan-out job, then acknowledges and
	// deletes it from the queue.
	ProcessJob(ctx context.Context, jobID string, rawData []byte) error
}

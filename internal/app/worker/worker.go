package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ZhanWeiKai/eatwhat/internal/core/contracts"
	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
	"github.com/ZhanWeiKai/eatwhat/internal/core/services"
)

// PushDeliveryWorker drains the fan-out queue and performs the
// per-recipient publishes. Delivery failures stay inside the fan-out
// batch; a job is acknowledged once processed either way, since the
// channel is at-most-once by design.
type PushDeliveryWorker struct {
	log    *slog.Logger
	queue  contracts.FanoutQueue
	pushes *services.PushService
	group  string
}

func NewPushDeliveryWorker(
	log *slog.Logger,
	queue contracts.FanoutQueue,
	pushes *services.PushService,
	group string,
) contracts.AsyncWorker {
	return &PushDeliveryWorker{
		log:    log,
		queue:  queue,
		pushes: pushes,
		group:  group,
	}
}

func (w *PushDeliveryWorker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "worker - run - consuming fan-out jobs", "group", w.group)
	return w.queue.SubscribeJobs(ctx, w.group, w.ProcessJob)
}

func (w *PushDeliveryWorker) ProcessJob(ctx context.Context, jobID string, raw []byte) error {
	var job domain.FanoutJob
	if err := json.Unmarshal(raw, &job); err != nil {
		w.log.Error("worker - process job - wrong payload", "job_id", jobID, "err", err)
		// Unparseable jobs are acknowledged too; redelivery cannot fix them.
		_ = w.queue.AcknowledgeJob(ctx, w.group, jobID)
		_ = w.queue.DeleteJob(ctx, jobID)
		return err
	}
	succeeded := w.pushes.Fanout(ctx, job)
	w.log.InfoContext(ctx, "worker - process job - fan-out done",
		"job_id", jobID, "push_id", job.Push.PushID, "succeeded", succeeded, "recipients", len(job.Recipients))
	if err := w.queue.AcknowledgeJob(ctx, w.group, jobID); err != nil {
		w.log.ErrorContext(ctx, "worker - process job - acknowledge failed", "job_id", jobID, "err", err)
		return err
	}
	if err := w.queue.DeleteJob(ctx, jobID); err != nil {
		// Already acknowledged; the stream trim will catch it.
		w.log.WarnContext(ctx, "worker - process job - delete failed", "job_id", jobID, "err", err)
	}
	return nil
}

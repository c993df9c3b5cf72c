package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const fanoutStream = "stream:push-fanout"

// RedisFanoutQueue carries push delivery jobs on a Redis Stream so push
// creation returns as soon as the record is durable; the delivery worker
// drains the stream and does the per-recipient publishes.
type RedisFanoutQueue struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisFanoutQueue(log *slog.Logger, rdb *redis.Client) *RedisFanoutQueue {
	return &RedisFanoutQueue{rdb: rdb, log: log}
}

func (q *RedisFanoutQueue) PublishJob(ctx context.Context, payload []byte) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: fanoutStream,
		MaxLen: 1000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Err()
}

func (q *RedisFanoutQueue) SubscribeJobs(
	ctx context.Context,
	group string,
	handler func(ctx context.Context, jobID string, data []byte) error,
) error {
	err := q.rdb.XGroupCreateMkStream(ctx, fanoutStream, group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	consumerName := uuid.NewString()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    group,
				Consumer: consumerName,
				Streams:  []string{fanoutStream, ">"},
				Count:    1,
				Block:    2 * time.Second,
			}).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					q.log.Error("fanout queue - stream read error", "err", err)
				}
				continue
			}
			for _, stream := range res {
				for _, msg := range stream.Messages {
					raw, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					if err := handler(ctx, msg.ID, []byte(raw)); err != nil {
						q.log.Error("fanout queue - handler error", "job_id", msg.ID, "err", err)
					}
				}
			}
		}
	}
}

func (q *RedisFanoutQueue) AcknowledgeJob(ctx context.Context, group, jobID string) error {
	return q.rdb.XAck(ctx, fanoutStream, group, jobID).Err()
}

func (q *RedisFanoutQueue) DeleteJob(ctx context.Context, jobID string) error {
	return q.rdb.XDel(ctx, fanoutStream, jobID).Err()
}

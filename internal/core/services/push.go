package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZhanWeiKai/eatwhat/internal/core/contracts"
	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

var tracer = otel.Tracer("push-service")

// PushService persists pushes and fans them out to friends. Creation
// succeeds once the record is durable; delivery is best-effort and its
// outcome never reaches the pusher as an error.
type PushService struct {
	log       *slog.Logger
	repo      domain.PushRepository
	users     domain.UserRepository
	friends   *FriendService
	queue     contracts.FanoutQueue
	broker    contracts.Broker
	txManager TxRunner
}

func NewPushService(
	log *slog.Logger,
	repo domain.PushRepository,
	users domain.UserRepository,
	friends *FriendService,
	queue contracts.FanoutQueue,
	broker contracts.Broker,
	txManager TxRunner,
) *PushService {
	return &PushService{
		log:       log,
		repo:      repo,
		users:     users,
		friends:   friends,
		queue:     queue,
		broker:    broker,
		txManager: txManager,
	}
}

// CreatePush stores the push, then hands delivery to the fan-out queue.
// The total is always recomputed server-side.
func (s *PushService) CreatePush(ctx context.Context, pusherID string, dishes []domain.DishItem) (*domain.Push, error) {
	ctx, span := tracer.Start(ctx, "PushService.CreatePush", trace.WithAttributes(
		attribute.String("pusher_id", pusherID),
		attribute.Int("dish_count", len(dishes)),
	))
	defer span.End()

	if len(dishes) == 0 {
		span.RecordError(domain.ErrEmptyPush)
		return nil, domain.ErrEmptyPush
	}
	pusher, err := s.users.GetUserByID(ctx, pusherID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	push := &domain.Push{
		PushID:       uuid.NewString(),
		PusherID:     pusherID,
		PusherName:   pusher.Nickname,
		PusherAvatar: pusher.Avatar,
		Dishes:       dishes,
		TotalAmount:  domain.TotalOf(dishes),
		CreatedAt:    time.Now(),
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.SavePush(txCtx, push)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save push failed")
		s.log.ErrorContext(ctx, "push - create - save failed", "pusher_id", pusherID, "err", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "push - create - push stored", "push_id", push.PushID, "pusher_id", pusherID, "total", push.TotalAmount)

	recipients, err := s.friends.ResolveFriendIDs(ctx, pusherID)
	if err != nil {
		// The push is durable; recipients will see it on their next
		// listing even if live delivery is skipped entirely.
		span.RecordError(err)
		s.log.ErrorContext(ctx, "push - create - friend resolution failed, delivery skipped", "push_id", push.PushID, "err", err)
		return push, nil
	}
	job := domain.FanoutJob{Push: *push, Recipients: recipients}
	raw, _ := json.Marshal(job)
	if err := s.queue.PublishJob(ctx, raw); err != nil {
		s.log.WarnContext(ctx, "push - create - enqueue failed, falling back to inline fan-out", "push_id", push.PushID, "err", err)
		s.Fanout(ctx, job)
	}
	return push, nil
}

// Fanout publishes the push to each recipient's private topic. Every
// publish is independent: one failure never aborts the batch. Returns
// the success count; the failure count is the remainder.
func (s *PushService) Fanout(ctx context.Context, job domain.FanoutJob) int {
	ctx, span := tracer.Start(ctx, "PushService.Fanout", trace.WithAttributes(
		attribute.String("push_id", job.Push.PushID),
		attribute.Int("recipient_count", len(job.Recipients)),
	))
	defer span.End()

	payload, err := json.Marshal(job.Push)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "push - fanout - marshal failed", "push_id", job.Push.PushID, "err", err)
		return 0
	}
	succeeded := 0
	for _, friendID := range job.Recipients {
		if friendID == job.Push.PusherID {
			// Never push back to the pusher, even if the resolved set
			// still contains them.
			continue
		}
		if err := s.broker.Publish(ctx, domain.UserTopic(friendID), payload); err != nil {
			s.log.WarnContext(ctx, "push - fanout - publish failed", "push_id", job.Push.PushID, "friend_id", friendID, "err", err)
			continue
		}
		succeeded++
	}
	span.SetAttributes(attribute.Int("succeeded", succeeded))
	s.log.InfoContext(ctx, "push - fanout - batch done",
		"push_id", job.Push.PushID, "succeeded", succeeded, "total", len(job.Recipients))
	return succeeded
}

// ListPushesFor returns the pushes visible to userID: their own plus
// their friends', newest first.
func (s *PushService) ListPushesFor(ctx context.Context, userID string) ([]domain.Push, error) {
	ids, err := s.friends.ResolveFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPushesByPushers(ctx, append(ids, userID))
}

// DeletePush removes a push; only the pusher may delete it.
func (s *PushService) DeletePush(ctx context.Context, pushID, userID string) error {
	push, err := s.repo.GetPushByID(ctx, pushID)
	if err != nil {
		return err
	}
	if push.PusherID != userID {
		return domain.ErrNotPushOwner
	}
	return s.repo.DeletePush(ctx, pushID)
}

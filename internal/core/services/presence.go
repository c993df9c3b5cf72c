package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ZhanWeiKai/eatwhat/internal/core/contracts"
	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

// onlineTTL bounds how long a crashed client still reads as online in
// the fast mirror.
const onlineTTL = 10 * time.Minute

// PresenceService propagates online/offline transitions: flip the
// durable flag, refresh the fast mirror, then relay the event to every
// live connection on the shared topic. The relay is fire-and-forget; a
// publish failure never blocks the login/logout response.
type PresenceService struct {
	log      *slog.Logger
	users    domain.UserRepository
	presence contracts.PresenceStore
	broker   contracts.Broker
}

func NewPresenceService(
	log *slog.Logger,
	users domain.UserRepository,
	presence contracts.PresenceStore,
	broker contracts.Broker,
) *PresenceService {
	return &PresenceService{
		log:      log,
		users:    users,
		presence: presence,
		broker:   broker,
	}
}

func (s *PresenceService) MarkOnline(ctx context.Context, user *domain.User) {
	if err := s.users.SetOnlineStatus(ctx, user.UserID, true); err != nil {
		s.log.ErrorContext(ctx, "presence - mark online - durable update failed", "user_id", user.UserID, "err", err)
	}
	if err := s.presence.SetOnline(ctx, user.UserID, onlineTTL); err != nil {
		s.log.WarnContext(ctx, "presence - mark online - mirror update failed", "user_id", user.UserID, "err", err)
	}
	s.relay(ctx, user, domain.StatusOnline)
}

func (s *PresenceService) MarkOffline(ctx context.Context, user *domain.User) {
	if err := s.users.SetOnlineStatus(ctx, user.UserID, false); err != nil {
		s.log.ErrorContext(ctx, "presence - mark offline - durable update failed", "user_id", user.UserID, "err", err)
	}
	if err := s.presence.SetOffline(ctx, user.UserID); err != nil {
		s.log.WarnContext(ctx, "presence - mark offline - mirror update failed", "user_id", user.UserID, "err", err)
	}
	s.relay(ctx, user, domain.StatusOffline)
}

// Refresh extends the mirror TTL while a connection stays alive.
func (s *PresenceService) Refresh(ctx context.Context, userID string) {
	if err := s.presence.SetOnline(ctx, userID, onlineTTL); err != nil {
		s.log.WarnContext(ctx, "presence - refresh failed", "user_id", userID, "err", err)
	}
}

func (s *PresenceService) relay(ctx context.Context, user *domain.User, status domain.PresenceStatus) {
	event := domain.PresenceEvent{
		UserID:   user.UserID,
		Nickname: user.Nickname,
		Status:   status,
	}
	payload, _ := json.Marshal(event)
	if err := s.broker.Publish(ctx, domain.TopicPresence, payload); err != nil {
		// Not retried: every subscriber also sees the durable flag on
		// their next friend-list read.
		s.log.WarnContext(ctx, "presence - relay failed", "user_id", user.UserID, "status", string(status), "err", err)
		return
	}
	s.log.InfoContext(ctx, "presence - relay - status broadcast", "user_id", user.UserID, "status", string(status))
}

package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ZhanWeiKai/eatwhat/internal/core/contracts"
	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

// FriendService owns friend-set resolution. Friendship is symmetric:
// one stored edge in either direction makes two users friends, so
// resolution always unions "I follow" and "follows me" and drops the
// user themselves.
type FriendService struct {
	log      *slog.Logger
	repo     domain.FriendshipRepository
	users    domain.UserRepository
	presence contracts.PresenceStore
}

func NewFriendService(
	log *slog.Logger,
	repo domain.FriendshipRepository,
	users domain.UserRepository,
	presence contracts.PresenceStore,
) *FriendService {
	return &FriendService{
		log:      log,
		repo:     repo,
		users:    users,
		presence: presence,
	}
}

// ResolveFriendIDs returns the de-duplicated symmetric friend set of
// userID, excluding userID itself. The result order is stable.
func (s *FriendService) ResolveFriendIDs(ctx context.Context, userID string) ([]string, error) {
	followed, err := s.repo.FollowedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	followers, err := s.repo.Followers(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(followed)+len(followers))
	for _, id := range followed {
		set[id] = struct{}{}
	}
	for _, id := range followers {
		set[id] = struct{}{}
	}
	delete(set, userID)
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListFriends decorates the resolved set with profile data and the live
// online flag from the presence mirror.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]domain.FriendInfo, error) {
	ids, err := s.ResolveFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	online, err := s.presence.OnlineOf(ctx, ids)
	if err != nil {
		// Presence is decoration; fall back to all-offline.
		s.log.WarnContext(ctx, "friends - list - presence lookup failed", "user_id", userID, "err", err)
		online = map[string]bool{}
	}
	friends := make([]domain.FriendInfo, 0, len(ids))
	for _, id := range ids {
		u, err := s.users.GetUserByID(ctx, id)
		if err != nil {
			s.log.WarnContext(ctx, "friends - list - user lookup failed", "friend_id", id, "err", err)
			continue
		}
		friends = append(friends, domain.FriendInfo{
			UserID:   u.UserID,
			Nickname: u.Nickname,
			Avatar:   u.Avatar,
			Online:   online[id],
		})
	}
	return friends, nil
}

func (s *FriendService) AddFriend(ctx context.Context, userID, friendID string) error {
	if _, err := s.users.GetUserByID(ctx, friendID); err != nil {
		return err
	}
	f := &domain.Friendship{
		ID:        uuid.NewString(),
		UserID:    userID,
		FriendID:  friendID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateFriendship(ctx, f); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "friends - add - friendship created", "user_id", userID, "friend_id", friendID)
	return nil
}

func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return s.repo.DeleteFriendship(ctx, userID, friendID)
}

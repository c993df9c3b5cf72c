package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

type UserService struct {
	log      *slog.Logger
	repo     domain.UserRepository
	presence *PresenceService
}

func NewUserService(log *slog.Logger, repo domain.UserRepository, presence *PresenceService) *UserService {
	return &UserService{
		log:      log,
		repo:     repo,
		presence: presence,
	}
}

func (s *UserService) Register(ctx context.Context, username, password, nickname string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &domain.User{
		UserID:       uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Nickname:     nickname,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.log.ErrorContext(ctx, "user - register - create user failed", "username", username, "err", err)
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and marks the user online; the presence
// broadcast is best-effort and never fails the login.
func (s *UserService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrBadCredentials
	}
	user.OnlineStatus = true
	s.presence.MarkOnline(ctx, user)
	return user, nil
}

// Logout is best-effort: an invalid token or a failed status update
// still yields a successful logout from the client's point of view.
func (s *UserService) Logout(ctx context.Context, userID string) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		s.log.WarnContext(ctx, "user - logout - lookup failed", "user_id", userID, "err", err)
		return
	}
	user.OnlineStatus = false
	s.presence.MarkOffline(ctx, user)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

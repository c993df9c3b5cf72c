package postgres

import (
	"context"
	"database/sql"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	u := &domain.User{UserID: userID}
	query := `
		SELECT username, password_hash, nickname, avatar, online_status, created_at
		FROM users WHERE user_id = $1`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, userID).Scan(
		&u.Username, &u.PasswordHash, &u.Nickname, &u.Avatar, &u.OnlineStatus, &u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u := &domain.User{Username: username}
	query := `
		SELECT user_id, password_hash, nickname, avatar, online_status, created_at
		FROM users WHERE username = $1`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, username).Scan(
		&u.UserID, &u.PasswordHash, &u.Nickname, &u.Avatar, &u.OnlineStatus, &u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (user_id, username, password_hash, nickname, avatar)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO NOTHING
		RETURNING created_at`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query,
		u.UserID, u.Username, u.PasswordHash, u.Nickname, u.Avatar,
	).Scan(&u.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.ErrUsernameTaken
	}
	return err
}

func (r *UserRepo) SetOnlineStatus(ctx context.Context, userID string, online bool) error {
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	query := `UPDATE users SET online_status = $2, updated_at = now() WHERE user_id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, userID, online)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

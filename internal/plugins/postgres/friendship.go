package postgres

import (
	"context"
	"database/sql"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

type FriendshipRepo struct {
	db *sql.DB
}

func NewFriendshipRepo(db *sql.DB) *FriendshipRepo {
	return &FriendshipRepo{db: db}
}

func (r *FriendshipRepo) CreateFriendship(ctx context.Context, f *domain.Friendship) error {
	query := `
		INSERT INTO friendships (id, user_id, friend_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, friend_id) DO NOTHING`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, f.ID, f.UserID, f.FriendID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrFriendshipExists
	}
	return nil
}

func (r *FriendshipRepo) DeleteFriendship(ctx context.Context, userID, friendID string) error {
	// The edge may exist in either direction; remove both.
	query := `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, userID, friendID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrFriendshipNotFound
	}
	return nil
}

func (r *FriendshipRepo) FollowedBy(ctx context.Context, userID string) ([]string, error) {
	return r.scanIDs(ctx, `SELECT friend_id FROM friendships WHERE user_id = $1`, userID)
}

func (r *FriendshipRepo) Followers(ctx context.Context, userID string) ([]string, error) {
	return r.scanIDs(ctx, `SELECT user_id FROM friendships WHERE friend_id = $1`, userID)
}

func (r *FriendshipRepo) scanIDs(ctx context.Context, query, arg string) ([]string, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ domain.FriendshipRepository = (*FriendshipRepo)(nil)

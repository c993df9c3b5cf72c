package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

type PushRepo struct {
	db *sql.DB
}

func NewPushRepo(db *sql.DB) *PushRepo {
	return &PushRepo{db: db}
}

// Dish lines are stored as a JSONB column; the delivery subsystem treats
// the whole push as an opaque JSON blob anyway.
func (r *PushRepo) SavePush(ctx context.Context, p *domain.Push) error {
	dishes, err := json.Marshal(p.Dishes)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO pushes (push_id, pusher_id, dishes, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	exec := GetExecutor(ctx, r.db)
	return exec.QueryRowContext(ctx, query,
		p.PushID, p.PusherID, dishes, p.TotalAmount,
	).Scan(&p.CreatedAt)
}

func (r *PushRepo) GetPushByID(ctx context.Context, pushID string) (*domain.Push, error) {
	query := `
		SELECT p.push_id, p.pusher_id, u.nickname, u.avatar, p.dishes, p.total_amount, p.created_at
		FROM pushes p JOIN users u ON u.user_id = p.pusher_id
		WHERE p.push_id = $1`
	exec := GetExecutor(ctx, r.db)
	p, err := scanPush(exec.QueryRowContext(ctx, query, pushID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrPushNotFound
	}
	return p, err
}

func (r *PushRepo) ListPushesByPushers(ctx context.Context, pusherIDs []string) ([]domain.Push, error) {
	if len(pusherIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT p.push_id, p.pusher_id, u.nickname, u.avatar, p.dishes, p.total_amount, p.created_at
		FROM pushes p JOIN users u ON u.user_id = p.pusher_id
		WHERE p.pusher_id = ANY($1)
		ORDER BY p.created_at DESC`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, pusherIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pushes []domain.Push
	for rows.Next() {
		p, err := scanPush(rows)
		if err != nil {
			return nil, err
		}
		pushes = append(pushes, *p)
	}
	return pushes, rows.Err()
}

func (r *PushRepo) DeletePush(ctx context.Context, pushID string) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM pushes WHERE push_id = $1`, pushID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrPushNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPush(row rowScanner) (*domain.Push, error) {
	var p domain.Push
	var dishes []byte
	if err := row.Scan(
		&p.PushID, &p.PusherID, &p.PusherName, &p.PusherAvatar, &dishes, &p.TotalAmount, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dishes, &p.Dishes); err != nil {
		return nil, err
	}
	return &p, nil
}

var _ domain.PushRepository = (*PushRepo)(nil)

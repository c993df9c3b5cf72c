package postgres

import (
	"context"
	"database/sql"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

type DishRepo struct {
	db *sql.DB
}

func NewDishRepo(db *sql.DB) *DishRepo {
	return &DishRepo{db: db}
}

func (r *DishRepo) ListDishes(ctx context.Context, categoryID string) ([]domain.Dish, error) {
	query := `
		SELECT dish_id, category_id, name, price, image_url, created_at
		FROM dishes`
	args := []any{}
	if categoryID != "" {
		query += ` WHERE category_id = $1`
		args = append(args, categoryID)
	}
	query += ` ORDER BY created_at`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dishes []domain.Dish
	for rows.Next() {
		var d domain.Dish
		if err := rows.Scan(&d.DishID, &d.CategoryID, &d.Name, &d.Price, &d.ImageURL, &d.CreatedAt); err != nil {
			return nil, err
		}
		dishes = append(dishes, d)
	}
	return dishes, rows.Err()
}

func (r *DishRepo) CreateDish(ctx context.Context, d *domain.Dish) error {
	query := `
		INSERT INTO dishes (dish_id, category_id, name, price, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	exec := GetExecutor(ctx, r.db)
	return exec.QueryRowContext(ctx, query,
		d.DishID, d.CategoryID, d.Name, d.Price, d.ImageURL,
	).Scan(&d.CreatedAt)
}

func (r *DishRepo) UpdateDish(ctx context.Context, d *domain.Dish) error {
	query := `
		UPDATE dishes SET category_id = $2, name = $3, price = $4, image_url = $5
		WHERE dish_id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, d.DishID, d.CategoryID, d.Name, d.Price, d.ImageURL)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrDishNotFound
	}
	return nil
}

func (r *DishRepo) DeleteDish(ctx context.Context, dishID string) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM dishes WHERE dish_id = $1`, dishID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrDishNotFound
	}
	return nil
}

func (r *DishRepo) ListCategories(ctx context.Context) ([]domain.DishCategory, error) {
	query := `
		SELECT category_id, name, sort_order, created_at
		FROM dish_categories ORDER BY sort_order`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cats []domain.DishCategory
	for rows.Next() {
		var c domain.DishCategory
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *DishRepo) CreateCategory(ctx context.Context, c *domain.DishCategory) error {
	query := `
		INSERT INTO dish_categories (category_id, name, sort_order)
		VALUES ($1, $2, $3)
		RETURNING created_at`
	exec := GetExecutor(ctx, r.db)
	return exec.QueryRowContext(ctx, query, c.CategoryID, c.Name, c.SortOrder).Scan(&c.CreatedAt)
}

func (r *DishRepo) DeleteCategory(ctx context.Context, categoryID string) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM dish_categories WHERE category_id = $1`, categoryID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

var _ domain.DishRepository = (*DishRepo)(nil)

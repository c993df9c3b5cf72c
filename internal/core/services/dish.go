package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

// DishService is the shared catalog. Plain CRUD; ids and timestamps are
// assigned here so the repository stores records as-is.
type DishService struct {
	log  *slog.Logger
	repo domain.DishRepository
}

func NewDishService(log *slog.Logger, repo domain.DishRepository) *DishService {
	return &DishService{log: log, repo: repo}
}

func (s *DishService) ListDishes(ctx context.Context, categoryID string) ([]domain.Dish, error) {
	return s.repo.ListDishes(ctx, categoryID)
}

func (s *DishService) CreateDish(ctx context.Context, d *domain.Dish) error {
	if d.Name == "" {
		return errors.New("dish name is required")
	}
	d.DishID = uuid.NewString()
	d.CreatedAt = time.Now()
	if err := s.repo.CreateDish(ctx, d); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "dish - create - dish stored", "dish_id", d.DishID, "name", d.Name)
	return nil
}

func (s *DishService) UpdateDish(ctx context.Context, d *domain.Dish) error {
	return s.repo.UpdateDish(ctx, d)
}

func (s *DishService) DeleteDish(ctx context.Context, dishID string) error {
	return s.repo.DeleteDish(ctx, dishID)
}

func (s *DishService) ListCategories(ctx context.Context) ([]domain.DishCategory, error) {
	return s.repo.ListCategories(ctx)
}

func (s *DishService) CreateCategory(ctx context.Context, c *domain.DishCategory) error {
	if c.Name == "" {
		return errors.New("category name is required")
	}
	c.CategoryID = uuid.NewString()
	c.CreatedAt = time.Now()
	return s.repo.CreateCategory(ctx, c)
}

func (s *DishService) DeleteCategory(ctx context.Context, categoryID string) error {
	return s.repo.DeleteCategory(ctx, categoryID)
}

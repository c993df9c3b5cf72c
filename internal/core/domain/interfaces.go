package domain

import (
	"context"
)

// UserRepository handles durable accounts.
type UserRepository interface {
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, u *User) error
	// SetOnlineStatus flips the persisted online flag; the live presence
	// mirror is updated separately.
	SetOnlineStatus(ctx context.Context, userID string, online bool) error
}

// FriendshipRepository handles the one-directional follow edges.
type FriendshipRepository interface {
	CreateFriendship(ctx context.Context, f *Friendship) error
	DeleteFriendship(ctx context.Context, userID, friendID string) error
	// FollowedBy returns friend ids of edges userID -> *.
	FollowedBy(ctx context.Context, userID string) ([]string, error)
	// Followers returns user ids of edges * -> userID.
	Followers(ctx context.Context, userID string) ([]string, error)
}

// PushRepository persists pushes before any delivery is attempted.
type PushRepository interface {
	SavePush(ctx context.Context, p *Push) error
	GetPushByID(ctx context.Context, pushID string) (*Push, error)
	// ListPushesByPushers returns pushes from any of the given pushers,
	// newest first.
	ListPushesByPushers(ctx context.Context, pusherIDs []string) ([]Push, error)
	DeletePush(ctx context.Context, pushID string) error
}

// DishRepository is the thin catalog CRUD.
type DishRepository interface {
	ListDishes(ctx context.Context, categoryID string) ([]Dish, error)
	CreateDish(ctx context.Context, d *Dish) error
	UpdateDish(ctx context.Context, d *Dish) error
	DeleteDish(ctx context.Context, dishID string) error
	ListCategories(ctx context.Context) ([]DishCategory, error)
	CreateCategory(ctx context.Context, c *DishCategory) error
	DeleteCategory(ctx context.Context, categoryID string) error
}

package domain

import (
	"time"
)

// User is the durable account record. OnlineStatus is the persisted
// online flag; the live view comes from the presence store.
type User struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Nickname     string    `json:"nickname"`
	Avatar       string    `json:"avatar"`
	OnlineStatus bool      `json:"onlineStatus"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Friendship is a one-directional edge: UserID follows FriendID.
// Friend resolution always unions both directions, so a single edge is
// enough to make two users friends.
type Friendship struct {
	ID        string
	UserID    string
	FriendID  string
	CreatedAt time.Time
}

// FriendInfo decorates a resolved friend with profile and live presence.
type FriendInfo struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Online   bool   `json:"online"`
}

// DishCategory groups dishes in the shared catalog.
type DishCategory struct {
	CategoryID string    `json:"categoryId"`
	Name       string    `json:"name"`
	SortOrder  int       `json:"sortOrder"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Dish is a catalog entry.
type Dish struct {
	DishID     string    `json:"dishId"`
	CategoryID string    `json:"categoryId"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	ImageURL   string    `json:"imageUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DishItem is one line of a pushed order.
type DishItem struct {
	DishID   string  `json:"dishId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	ImageURL string  `json:"imageUrl"`
}

// Push is a proposed order broadcast to the pusher's friends. It is
// persisted by the CRUD layer and relayed verbatim (as JSON) by the
// delivery subsystem.
type Push struct {
	PushID       string     `json:"pushId"`
	PusherID     string     `json:"pusherId"`
	PusherName   string     `json:"pusherName"`
	PusherAvatar string     `json:"pusherAvatar"`
	Dishes       []DishItem `json:"dishes"`
	TotalAmount  float64    `json:"totalAmount"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// TotalOf computes the order total as Σ price×quantity.
func TotalOf(items []DishItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

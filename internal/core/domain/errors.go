package domain

import "errors"

var (
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrBadCredentials     = errors.New("wrong username or password")
	ErrFriendshipExists   = errors.New("friendship already exists")
	ErrFriendshipNotFound = errors.New("friendship not found")
	ErrDishNotFound       = errors.New("dish not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrPushNotFound       = errors.New("push not found")
	ErrNotPushOwner       = errors.New("only the pusher can delete a push")
	ErrEmptyPush          = errors.New("push has no dishes")
)

package domain

import "time"

// User is a registered principal. Email is the subject carried in tokens.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserFilter drives paged user listing.
type UserFilter struct {
	Page        int
	Size        int
	SortBy      string
	Descending  bool
	EmailFilter string
}

// UserPage is one page of users plus the total row count.
type UserPage struct {
	Items      []User
	Page       int
	Size       int
	TotalItems int64
}

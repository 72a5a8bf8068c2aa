package domain

import "context"

// User is a registered account. Accounts are managed elsewhere; this service only reads them.
// swagger:model User
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserRepository defines the read access this service needs to users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
}

// Category groups events. Categories are managed elsewhere.
// swagger:model Category
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoryRepository defines the read access this service needs to categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*Category, error)
}

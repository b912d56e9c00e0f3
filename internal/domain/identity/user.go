package identity

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/stocklink/pos/internal/domain/shared"
)

// Role controls what a user may do at the till
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

// User is a till operator
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Identity errors
var (
	ErrInvalidCredentials = shared.NewDomainError("UNAUTHORIZED", "Invalid credentials")
	ErrUserExists         = shared.NewDomainError("ALREADY_EXISTS", "User with this email or username already exists")
	ErrUserNotFound       = shared.NewDomainError("NOT_FOUND", "User not found")
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// NewUser validates and creates a user with an already hashed password
func NewUser(username, email, passwordHash string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 50 {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Username is required and must not exceed 50 characters")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Email address is invalid")
	}
	if passwordHash == "" {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Password is required")
	}
	if role == "" {
		role = RoleCashier
	}
	if role != RoleAdmin && role != RoleCashier {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Role must be admin or cashier")
	}
	return &User{
		Username:     username,
		Email:        strings.ToLower(addr.Address),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}, nil
}

// UserRepository persists users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	UpdatePasswordHash(ctx context.Context, email, hash string) error
}

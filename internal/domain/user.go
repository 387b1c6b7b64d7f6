package domain

import "time"

// UserStatus represents lifecycle states for a user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// AbilityReadProfile lets a token load its own user through GET /user.
const AbilityReadProfile = "users:read"

// User is the tokenable entity. Its numeric ID is embedded in access tokens.
type User struct {
	ID           int64
	FullName     string
	Email        string
	PasswordHash string
	Status       UserStatus
	Abilities    []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the user may sign in.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}

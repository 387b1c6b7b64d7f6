package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/access-token-service/internal/auth/token"
	"github.com/spec-kit/access-token-service/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the registration payload.
func (r UserRegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
	)
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login payload.
func (r UserLoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// UserResponse is the public view of a user; the password hash is never included.
type UserResponse struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// AuthResponse carries an issued access token. This is the only place the raw value is serialized.
type AuthResponse struct {
	Type      string    `json:"type"`
	Token     string    `json:"token"`
	Abilities []string  `json:"abilities"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewAuthResponse releases the token value for the response body.
func NewAuthResponse(tok *token.Token) AuthResponse {
	return AuthResponse{
		Type:      "bearer",
		Token:     tok.Value().Release(),
		Abilities: tok.Abilities(),
		ExpiresAt: tok.ExpiresAt(),
	}
}

// ValidationDetails flattens ozzo validation errors into a field map.
func ValidationDetails(err error) map[string]any {
	errs, ok := err.(validation.Errors)
	if !ok {
		return nil
	}
	details := make(map[string]any, len(errs))
	for field, fieldErr := range errs {
		details[field] = fieldErr.Error()
	}
	return details
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles understood by the authorization middleware
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account that can keep calculation history
type User struct {
	ID              string     `json:"id" db:"id"`
	FirstName       string     `json:"firstName" db:"first_name"`
	LastName        string     `json:"lastName" db:"last_name"`
	Email           string     `json:"email" db:"email"`
	PasswordHash    string     `json:"-" db:"password_hash"`
	Role            string     `json:"role" db:"role"`
	EmailVerified   bool       `json:"emailVerified" db:"email_verified"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty" db:"email_verified_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// NewUser creates a user with a fresh id. The password hash is set by the caller.
func NewUser(firstName, lastName, email string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New().String(),
		FirstName: SanitizeString(firstName),
		LastName:  SanitizeString(lastName),
		Email:     NormalizeEmail(email),
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate validates the user data
func (u *User) Validate() error {
	if err := ValidateStringLength(u.FirstName, "firstName", 1, 100); err != nil {
		return err
	}
	if err := ValidateStringLength(u.LastName, "lastName", 1, 100); err != nil {
		return err
	}
	if err := ValidateEmail(u.Email, "email"); err != nil {
		return err
	}
	return ValidateRequired(u.PasswordHash, "passwordHash")
}

// FullName returns the display name of the user
func (u *User) FullName() string {
	return SanitizeString(u.FirstName + " " + u.LastName)
}

// SignUpRequest is the payload of POST /api/auth/signup
type SignUpRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
}

// SignInRequest is the payload of POST /api/auth/signin
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResult is returned by sign up and sign in
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

package dto

import "time"

// RegisterRequest payload.
type RegisterRequest struct {
	Name       string  `json:"name" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=6"`
	RoomNumber *string `json:"room_number"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleLoginRequest carries the ID token issued by Google sign-in.
type GoogleLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// ForgotPasswordRequest payload.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest payload. The token travels in the URL.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// AuthResponse carries an issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

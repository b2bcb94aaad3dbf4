package dto

import "time"

// TokenRequest asks the mock login for a token for a directory user.
type TokenRequest struct {
	BorrowerID string `json:"borrowerID" binding:"required"`
}

// LoginResponse represents the response for a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

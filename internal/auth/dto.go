package auth

import (
	"github.com/harvestlink/harvestlink-backend/internal/users"
)

// RegisterRequest is accepted as JSON or as a url-encoded form.
type RegisterRequest struct {
	Username        string   `json:"username" form:"username" validate:"required,min=4,max=25"`
	Email           string   `json:"email" form:"email" validate:"required,email"`
	Password        string   `json:"password" form:"password" validate:"required,min=6"`
	ConfirmPassword string   `json:"confirm_password" form:"confirm_password" validate:"required"`
	Role            string   `json:"role" form:"role" validate:"required,oneof=farmer distributor retailer"`
	Location        string   `json:"location" form:"location" validate:"required,max=200"`
	FarmSize        *float64 `json:"farm_size,omitempty" form:"farm_size" validate:"omitempty,gt=0"`
}

// LoginRequest accepts either a username or an email as login.
type LoginRequest struct {
	Login    string `json:"login" form:"login" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// RefreshRequest carries the refresh token paired with the expired access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// TokenPair is returned by refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

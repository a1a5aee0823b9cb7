package transport

import "github.com/Skotchmaster/sweetshop/internal/models"

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token    string      `json:"token"`
	Type     string      `json:"type"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	IsAdmin  bool        `json:"isAdmin"`
}

type MeResponse struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	IsAdmin  bool        `json:"isAdmin"`
}

// SweetRequest is the body of create and update; price and quantity are
// pointers so that an omitted field can be told apart from zero.
type SweetRequest struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	Description string   `json:"description"`
}

type QuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type FullTextResponse struct {
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Size   int            `json:"size"`
	Sweets []models.Sweet `json:"sweets"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Error    string `json:"error,omitempty"`
}

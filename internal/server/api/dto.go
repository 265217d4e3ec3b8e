package api

import "github.com/dmitrijs2005/rechub/internal/server/models"

type RegisterRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AttachmentRequest struct {
	Filename string `json:"filename"`
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
}

func listOf[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items}
}

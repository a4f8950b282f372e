package repository

import "github.com/varejosoft/retaguarda/internal/domain/entity"

// UserRepository puerto de persistencia de operadores.
type UserRepository interface {
	Create(user *entity.User) error
	GetByEmail(email string) (*entity.User, error)
	ListActive() ([]*entity.User, error)
}

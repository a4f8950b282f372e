package repository

import "github.com/varejosoft/retaguarda/internal/domain/entity"

// ReconciliationRepository puerto de persistencia de líneas de conferencia.
type ReconciliationRepository interface {
	Create(line *entity.ReconciliationLine) error
	GetByID(id string) (*entity.ReconciliationLine, error)
	ListByMovement(movementID string) ([]*entity.ReconciliationLine, error)
	Update(line *entity.ReconciliationLine) error
	Delete(id string) error
}

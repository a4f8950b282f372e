package entity

import "time"

// Roles de usuario.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operador"
	RoleStockist = "estoquista"
)

// User es un operador del sistema. PasswordHash (bcrypt) viaja a los
// terminales en la carga inicial para permitir login offline.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

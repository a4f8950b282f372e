// seed crea datos mínimos para un entorno nuevo: un operador admin y
// algunos productos de ejemplo.
//
// Uso: go run ./cmd/seed
// La contraseña del admin sale de SEED_ADMIN_PASSWORD (default "admin123").
package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/infrastructure/postgres"
	"github.com/varejosoft/retaguarda/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash de contraseña: %v\n", err)
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepository(pool)
	admin := &entity.User{
		Name:         "Administrador",
		Email:        "admin@retaguarda.local",
		PasswordHash: string(hash),
		Role:         entity.RoleAdmin,
		Active:       true,
	}
	switch err := userRepo.Create(admin); err {
	case nil:
		fmt.Printf("operador admin creado: %s\n", admin.Email)
	case domain.ErrDuplicate:
		fmt.Printf("operador admin ya existe: %s\n", admin.Email)
	default:
		fmt.Fprintf(os.Stderr, "crear admin: %v\n", err)
		os.Exit(1)
	}

	products := []struct {
		code, barcode, description, unit string
		cost, sale                       int64
	}{
		{"P001", "7891000100103", "Arroz Tipo 1 5kg", "UN", 1890, 2590},
		{"P002", "7891000053508", "Feijão Preto 1kg", "UN", 650, 899},
		{"P003", "7891910000197", "Açúcar Refinado 1kg", "UN", 380, 549},
		{"P004", "7894900011517", "Refrigerante 2L", "UN", 550, 899},
		{"P005", "7891025100102", "Leite Integral 1L", "UN", 420, 649},
	}
	var inserted int64
	for _, p := range products {
		tag, err := pool.Exec(ctx,
			`INSERT INTO products (id, code, barcode, description, unit, cost_price, sale_price, terminal_price, active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $7, true)
			 ON CONFLICT (code) DO NOTHING`,
			uuid.New().String(), p.code, p.barcode, p.description, p.unit, p.cost, p.sale)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insertar producto %s: %v\n", p.code, err)
			os.Exit(1)
		}
		inserted += tag.RowsAffected()
	}
	fmt.Printf("%d de %d productos de ejemplo insertados\n", inserted, len(products))
}

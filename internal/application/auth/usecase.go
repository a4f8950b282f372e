package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
	"github.com/varejosoft/retaguarda/pkg/jwt"
)

// AuthUseCase autentica operadores del back-office y emite el token.
type AuthUseCase struct {
	userRepo   repository.UserRepository
	jwtSecret  string
	jwtIssuer  string
	expMinutes int
}

// NewAuthUseCase construye el caso de uso.
func NewAuthUseCase(userRepo repository.UserRepository, jwtSecret, jwtIssuer string, expMinutes int) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, jwtSecret: jwtSecret, jwtIssuer: jwtIssuer, expMinutes: expMinutes}
}

// Login verifica credenciales contra el hash bcrypt y devuelve el token
// JWT con id y rol. Credenciales inválidas e inexistentes responden lo
// mismo (ErrUnauthorized) para no filtrar qué emails existen.
func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (string, *entity.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidInput
	}
	user, err := uc.userRepo.GetByEmail(email)
	if err != nil {
		return "", nil, err
	}
	if user == nil || !user.Active {
		return "", nil, domain.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtSecret, user.ID, user.Role, uc.jwtIssuer, uc.expMinutes)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

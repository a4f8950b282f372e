package dto

// LoginRequest credenciales de un operador del back-office.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginUser datos públicos del operador autenticado.
type LoginUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResponse token emitido más los datos del operador.
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

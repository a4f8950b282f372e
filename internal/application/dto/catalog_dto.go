package dto

// CatalogProduct producto tal como lo ve un terminal.
type CatalogProduct struct {
	ID           string `json:"id"`
	Codigo       string `json:"codigo"`
	CodigoBarras string `json:"codigoBarras"`
	Descricao    string `json:"descricao"`
	PrecoVenda   int64  `json:"precoVenda"` // centavos
	Unidade      string `json:"unidade"`
	Estoque      int64  `json:"estoque"`
}

// CatalogOperator credenciales de operador para login offline en el
// terminal. PasswordHash ya viene hasheado (bcrypt) de la base.
type CatalogOperator struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	Role         string `json:"role"`
}

// PaymentMethod forma de pago estática.
type PaymentMethod struct {
	ID   int    `json:"id"`
	Nome string `json:"nome"`
	Tipo string `json:"tipo"`
}

// CatalogSnapshot payload de carga inicial; es también el payload que se
// difunde a los terminales tras cada sincronización (snapshot completo,
// no delta: un terminal que pierde un broadcast se recupera en el
// siguiente).
type CatalogSnapshot struct {
	Produtos        []CatalogProduct  `json:"produtos"`
	Usuarios        []CatalogOperator `json:"usuarios"`
	FormasPagamento []PaymentMethod   `json:"formasPagamento"`
}

// EmptyCatalogSnapshot snapshot vacío para degradar cuando la base no
// está disponible: el terminal conserva su catálogo local y reintenta.
func EmptyCatalogSnapshot() *CatalogSnapshot {
	return &CatalogSnapshot{
		Produtos:        []CatalogProduct{},
		Usuarios:        []CatalogOperator{},
		FormasPagamento: DefaultPaymentMethods(),
	}
}

// DefaultPaymentMethods lista estática de formas de pago.
func DefaultPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		{ID: 1, Nome: "Dinheiro", Tipo: "DINHEIRO"},
		{ID: 2, Nome: "Débito", Tipo: "DEBITO"},
		{ID: 3, Nome: "Crédito", Tipo: "CREDITO"},
		{ID: 4, Nome: "PIX", Tipo: "PIX"},
	}
}

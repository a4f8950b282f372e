package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
)

// Los nombres de campo del protocolo de sincronización vienen de los
// terminales y se mantienen tal cual en el wire (JSON en portugués).

// SaleItemReport renglón de una venta reportada por un terminal.
// Valores monetarios en centavos.
type SaleItemReport struct {
	ProdutoID     string `json:"produtoId"`
	Quantidade    int64  `json:"quantidade"`
	PrecoUnitario int64  `json:"precoUnitario"`
	ValorTotal    int64  `json:"valorTotal"`
	ValorDesconto int64  `json:"valorDesconto"`
}

// SaleReport venta completa reportada por un terminal. NumeroVenda es la
// clave de idempotencia generada por el terminal.
type SaleReport struct {
	UUID           string           `json:"uuid"`
	NumeroVenda    string           `json:"numeroVenda"`
	CCF            string           `json:"ccf,omitempty"`
	COO            string           `json:"coo,omitempty"`
	PdvID          string           `json:"pdvId,omitempty"`
	DataVenda      time.Time        `json:"dataVenda"`
	ValorTotal     int64            `json:"valorTotal"`
	ValorDesconto  int64            `json:"valorDesconto"`
	ValorLiquido   int64            `json:"valorLiquido"`
	FormaPagamento string           `json:"formaPagamento"`
	OperadorID     string           `json:"operadorId"`
	OperadorNome   string           `json:"operadorNome,omitempty"`
	NfceNumero     string           `json:"nfceNumero,omitempty"`
	NfceChave      string           `json:"nfceChave,omitempty"`
	Observacao     string           `json:"observacao,omitempty"`
	Itens          []SaleItemReport `json:"itens"`
}

// CashMovementReport movimiento de caja reportado por un terminal.
type CashMovementReport struct {
	UUID          string    `json:"uuid"`
	Tipo          string    `json:"tipo"`
	Valor         int64     `json:"valor"`
	Observacao    string    `json:"observacao,omitempty"`
	OperadorID    string    `json:"operadorId"`
	PdvID         string    `json:"pdvId,omitempty"`
	DataMovimento time.Time `json:"dataMovimento"`
}

// SyncRequest lote de sincronización de un terminal.
type SyncRequest struct {
	Vendas          []SaleReport         `json:"vendas"`
	MovimentosCaixa []CashMovementReport `json:"movimentosCaixa"`
}

// SyncResult resultado de la ingesta de un lote.
type SyncResult struct {
	VendasProcessadas     int      `json:"vendasProcessadas"`
	VendasDuplicadas      int      `json:"vendasDuplicadas"`
	MovimentosProcessados int      `json:"movimentosProcessados"`
	Erros                 []string `json:"erros"`
}

// Validate valida el lote completo antes de procesar cualquier ítem: un
// lote malformado se rechaza entero, sin procesamiento parcial.
func (r *SyncRequest) Validate() error {
	for i, v := range r.Vendas {
		if err := v.validate(); err != nil {
			return fmt.Errorf("%w: vendas[%d]: %v", domain.ErrInvalidInput, i, err)
		}
	}
	for i, m := range r.MovimentosCaixa {
		if err := m.validate(); err != nil {
			return fmt.Errorf("%w: movimentosCaixa[%d]: %v", domain.ErrInvalidInput, i, err)
		}
	}
	return nil
}

func (v *SaleReport) validate() error {
	if _, err := uuid.Parse(v.UUID); err != nil {
		return fmt.Errorf("uuid inválido")
	}
	if v.NumeroVenda == "" || len(v.NumeroVenda) > 50 {
		return fmt.Errorf("numeroVenda obligatorio (máx. 50)")
	}
	if v.DataVenda.IsZero() {
		return fmt.Errorf("dataVenda obligatoria")
	}
	if v.ValorTotal < 0 || v.ValorDesconto < 0 || v.ValorLiquido < 0 {
		return fmt.Errorf("valores negativos")
	}
	if v.FormaPagamento == "" {
		return fmt.Errorf("formaPagamento obligatoria")
	}
	if v.OperadorID == "" {
		return fmt.Errorf("operadorId obligatorio")
	}
	if len(v.Itens) == 0 {
		return fmt.Errorf("al menos un ítem")
	}
	for j, it := range v.Itens {
		if it.ProdutoID == "" {
			return fmt.Errorf("itens[%d]: produtoId obligatorio", j)
		}
		if it.Quantidade <= 0 {
			return fmt.Errorf("itens[%d]: quantidade debe ser positiva", j)
		}
		if it.PrecoUnitario < 0 || it.ValorTotal < 0 || it.ValorDesconto < 0 {
			return fmt.Errorf("itens[%d]: valores negativos", j)
		}
	}
	return nil
}

func (m *CashMovementReport) validate() error {
	// uuid opcional: terminales viejos no lo envían y caen en la
	// deduplicación aproximada.
	if m.UUID != "" {
		if _, err := uuid.Parse(m.UUID); err != nil {
			return fmt.Errorf("uuid inválido")
		}
	}
	if !entity.ValidCashMovementType(m.Tipo) {
		return fmt.Errorf("tipo inválido: %s", m.Tipo)
	}
	if m.Valor < 0 {
		return fmt.Errorf("valor negativo")
	}
	if m.OperadorID == "" {
		return fmt.Errorf("operadorId obligatorio")
	}
	if m.DataMovimento.IsZero() {
		return fmt.Errorf("dataMovimento obligatoria")
	}
	return nil
}

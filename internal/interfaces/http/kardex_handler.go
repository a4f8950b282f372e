package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/varejosoft/retaguarda/internal/application/dto"
	"github.com/varejosoft/retaguarda/internal/application/ledger"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
)

// KardexHandler maneja el Kardex: listado, historial por producto,
// movimiento manual y reversa administrativa por documento.
type KardexHandler struct {
	uc *ledger.LedgerUseCase
}

func NewKardexHandler(uc *ledger.LedgerUseCase) *KardexHandler {
	return &KardexHandler{uc: uc}
}

func movementJSON(m *entity.StockMovement) fiber.Map {
	out := fiber.Map{
		"id":            m.ID,
		"produtoId":     m.ProductID,
		"tipo":          m.Type,
		"quantidade":    m.Quantity,
		"saldoAnterior": m.BalanceBefore,
		"saldoAtual":    m.BalanceAfter,
		"custoUnitario": m.UnitCost,
		"documento":     m.ReferenceDocument,
		"fornecedor":    m.Supplier,
		"observacao":    m.Note,
		"usuarioId":     m.UserID,
		"criadoEm":      m.CreatedAt,
	}
	if m.Apply.Deferred {
		out["pendenteConferencia"] = true
		out["statusConferencia"] = m.Apply.ReconciliationStatus
	}
	return out
}

// List lista el Kardex completo paginado.
func (h *KardexHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	movs, err := h.uc.ListAll(c.Context(), limit, offset)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return c.JSON(dto.SuccessResponse{Success: true, Data: []interface{}{}})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]fiber.Map, 0, len(movs))
	for _, m := range movs {
		out = append(out, movementJSON(m))
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: out})
}

// ListByProduct historial de movimientos de un producto.
func (h *KardexHandler) ListByProduct(c *fiber.Ctx) error {
	movs, err := h.uc.ListByProduct(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return c.JSON(dto.SuccessResponse{Success: true, Data: []interface{}{}})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]fiber.Map, 0, len(movs))
	for _, m := range movs {
		out = append(out, movementJSON(m))
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: out})
}

type createMovementRequest struct {
	ProdutoID     string `json:"produtoId"`
	Tipo          string `json:"tipo"`
	Quantidade    int64  `json:"quantidade"`
	CustoUnitario int64  `json:"custoUnitario"`
	Documento     string `json:"documento"`
	Fornecedor    string `json:"fornecedor"`
	Observacao    string `json:"observacao"`
	// Diferir deja la entrada registrada pendiente de conferencia en vez
	// de aplicarla de inmediato (recepción de mercadería).
	Diferir bool `json:"diferir"`
}

// Create registra un movimiento manual del Kardex.
func (h *KardexHandler) Create(c *fiber.Ctx) error {
	var in createMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	mov, err := h.uc.RecordMovement(c.Context(), ledger.RecordMovementInput{
		ProductID:         in.ProdutoID,
		Type:              in.Tipo,
		Quantity:          in.Quantidade,
		UnitCost:          in.CustoUnitario,
		ReferenceDocument: in.Documento,
		Supplier:          in.Fornecedor,
		Note:              in.Observacao,
		UserID:            GetUserID(c),
		DeferApply:        in.Diferir,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos de movimiento inválidos"})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto no encontrado"})
		case errors.Is(err, domain.ErrConflict):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "conflicto de concurrencia, reintentar"})
		case errors.Is(err, domain.ErrStorageUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "base de datos no disponible"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{Success: true, Data: movementJSON(mov)})
}

// ReverseByDocument reversa administrativa: elimina los movimientos del
// documento y restaura la cadena de saldos.
func (h *KardexHandler) ReverseByDocument(c *fiber.Ctx) error {
	reversed, err := h.uc.ReverseByReference(c.Context(), c.Params("doc"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "documento obligatorio"})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento sin movimientos"})
		case errors.Is(err, domain.ErrStorageUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "base de datos no disponible"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{"movimentosRevertidos": reversed}, Message: "documento revertido"})
}

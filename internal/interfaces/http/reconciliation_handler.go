package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/varejosoft/retaguarda/internal/application/dto"
	"github.com/varejosoft/retaguarda/internal/application/reconciliation"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
)

// ConferenceHandler maneja la conferencia de mercadería recibida:
// listado de lotes pendientes, conteo línea a línea y finalización.
type ConferenceHandler struct {
	uc *reconciliation.ConferenceUseCase
}

func NewConferenceHandler(uc *reconciliation.ConferenceUseCase) *ConferenceHandler {
	return &ConferenceHandler{uc: uc}
}

// divergenceNote arma el texto legible de una línea. Los campos
// estructurados (divergence, divergenceType) viven en la entidad; el
// texto es solo presentación.
func divergenceNote(l *entity.ReconciliationLine) string {
	if l.CountedQty == nil {
		return ""
	}
	switch l.DivergenceType {
	case entity.DivergenceShort:
		return fmt.Sprintf("Faltando %d unidade(s). Esperado: %d, Conferido: %d", -l.Divergence, l.ExpectedQty, *l.CountedQty)
	case entity.DivergenceOver:
		return fmt.Sprintf("Sobrando %d unidade(s). Esperado: %d, Conferido: %d", l.Divergence, l.ExpectedQty, *l.CountedQty)
	default:
		return "Quantidade conferida sem divergência"
	}
}

func lineJSON(l *entity.ReconciliationLine) fiber.Map {
	return fiber.Map{
		"id":              l.ID,
		"movimentacaoId":  l.MovementID,
		"produtoId":       l.ProductID,
		"qtdEsperada":     l.ExpectedQty,
		"qtdConferida":    l.CountedQty,
		"divergencia":     l.Divergence,
		"tipoDivergencia": l.DivergenceType,
		"status":          l.Status,
		"codigoBarras":    l.ScannedBarcode,
		"dataChegada":     l.ArrivalDate,
		"dataValidade":    l.ExpiryDate,
		"observacao":      divergenceNote(l),
		"atualizadoEm":    l.UpdatedAt,
	}
}

func conferenceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrBatchFinalized):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "BATCH_FINALIZED", Message: "la conferencia ya fue finalizada"})
	case errors.Is(err, domain.ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "base de datos no disponible"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

// ListPending lista las recepciones pendientes agrupadas por documento.
func (h *ConferenceHandler) ListPending(c *fiber.Ctx) error {
	batches, err := h.uc.ListPending(c.Context())
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return c.JSON(dto.SuccessResponse{Success: true, Data: []interface{}{}})
		}
		return conferenceError(c, err)
	}
	out := make([]fiber.Map, 0, len(batches))
	for _, b := range batches {
		out = append(out, fiber.Map{
			"movimentacaoId": b.MovementID,
			"documento":      b.ReferenceDocument,
			"fornecedor":     b.Supplier,
			"status":         b.Status,
			"totalItens":     b.TotalItems,
			"criadoEm":       b.CreatedAt,
		})
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: out})
}

// ListByMovement lista las líneas de conferencia de un movimiento.
func (h *ConferenceHandler) ListByMovement(c *fiber.Ctx) error {
	lines, err := h.uc.ListByMovement(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return c.JSON(dto.SuccessResponse{Success: true, Data: []interface{}{}})
		}
		return conferenceError(c, err)
	}
	out := make([]fiber.Map, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineJSON(l))
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: out})
}

// Start inicia la conferencia de un lote.
func (h *ConferenceHandler) Start(c *fiber.Ctx) error {
	if err := h.uc.Start(c.Context(), c.Params("id")); err != nil {
		return conferenceError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "conferência iniciada"})
}

type lineRequest struct {
	MovimentacaoID string     `json:"movimentacaoId"`
	ProdutoID      string     `json:"produtoId"`
	QtdEsperada    int64      `json:"qtdEsperada"`
	QtdConferida   *int64     `json:"qtdConferida"`
	CodigoBarras   string     `json:"codigoBarras"`
	DataChegada    *time.Time `json:"dataChegada"`
	DataValidade   *time.Time `json:"dataValidade"`
}

// CreateLine registra el conteo de un producto.
func (h *ConferenceHandler) CreateLine(c *fiber.Ctx) error {
	var in lineRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	line, err := h.uc.CreateLine(c.Context(), reconciliation.CreateLineInput{
		MovementID:     in.MovimentacaoID,
		ProductID:      in.ProdutoID,
		ExpectedQty:    in.QtdEsperada,
		CountedQty:     in.QtdConferida,
		ScannedBarcode: in.CodigoBarras,
		ArrivalDate:    in.DataChegada,
		ExpiryDate:     in.DataValidade,
		UserID:         GetUserID(c),
	})
	if err != nil {
		return conferenceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{Success: true, Data: lineJSON(line)})
}

// UpdateLine reconta una línea existente.
func (h *ConferenceHandler) UpdateLine(c *fiber.Ctx) error {
	var in lineRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	line, err := h.uc.UpdateLine(c.Context(), c.Params("id"), reconciliation.UpdateLineInput{
		CountedQty:     in.QtdConferida,
		ScannedBarcode: in.CodigoBarras,
		ArrivalDate:    in.DataChegada,
		ExpiryDate:     in.DataValidade,
	})
	if err != nil {
		return conferenceError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: lineJSON(line)})
}

// ResetLine limpia el conteo para recontar.
func (h *ConferenceHandler) ResetLine(c *fiber.Ctx) error {
	if err := h.uc.ResetLine(c.Context(), c.Params("id")); err != nil {
		return conferenceError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "linha reiniciada"})
}

// DeleteLine elimina una línea antes de finalizar.
func (h *ConferenceHandler) DeleteLine(c *fiber.Ctx) error {
	if err := h.uc.DeleteLine(c.Context(), c.Params("id")); err != nil {
		return conferenceError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "linha removida"})
}

// FindByBarcode busca un producto por código de barras dentro del lote.
func (h *ConferenceHandler) FindByBarcode(c *fiber.Ctx) error {
	movementID := c.Query("movimentacaoId")
	product, mov, err := h.uc.FindByBarcode(c.Context(), c.Params("codigo"), movementID)
	if err != nil {
		return conferenceError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{
		"produto": fiber.Map{
			"id":           product.ID,
			"codigo":       product.Code,
			"codigoBarras": product.Barcode,
			"descricao":    product.Description,
			"unidade":      product.Unit,
		},
		"movimentacaoId": mov.ID,
		"qtdEsperada":    mov.Quantity,
	}})
}

// Finalize cierra la conferencia y aplica al Kardex las cantidades
// contadas.
func (h *ConferenceHandler) Finalize(c *fiber.Ctx) error {
	summary, err := h.uc.Finalize(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return conferenceError(c, err)
	}
	divergences := make([]fiber.Map, 0, len(summary.Divergences))
	for i := range summary.Divergences {
		divergences = append(divergences, lineJSON(&summary.Divergences[i]))
	}
	return c.JSON(dto.SuccessResponse{
		Success: true,
		Data: fiber.Map{
			"totalItens":       summary.TotalLines,
			"itensConferidos":  summary.ReconciledLines,
			"itensDivergentes": summary.DivergentLines,
			"divergencias":     divergences,
		},
		Message: "conferência finalizada",
	})
}

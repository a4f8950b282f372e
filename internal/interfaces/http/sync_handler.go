package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/varejosoft/retaguarda/internal/application/dto"
	appsync "github.com/varejosoft/retaguarda/internal/application/sync"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

// SyncHandler maneja la sincronización con los terminales PDV: ingest de
// lotes, carga inicial de catálogo y listado de movimientos de caja.
type SyncHandler struct {
	uc *appsync.SyncUseCase
}

func NewSyncHandler(uc *appsync.SyncUseCase) *SyncHandler {
	return &SyncHandler{uc: uc}
}

// Sync recibe el lote de ventas y movimientos de caja de un terminal.
// La validación es por mayor: cualquier ítem malformado rechaza el lote
// completo con 400 antes de procesar nada.
func (h *SyncHandler) Sync(c *fiber.Ctx) error {
	var req dto.SyncRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}

	res, err := h.uc.Ingest(c.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "base de datos no disponible, reintentar"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{
		Success: true,
		Data:    res,
		Message: fmt.Sprintf("%d vendas e %d movimentos processados", res.VendasProcessadas, res.MovimentosProcessados),
	})
}

// InitialLoad devuelve el snapshot completo de catálogo para que un
// terminal arranque (o se recupere) desde cero. Público: los terminales
// hacen la carga inicial antes de tener credenciales.
func (h *SyncHandler) InitialLoad(c *fiber.Ctx) error {
	snap, err := h.uc.InitialLoad(c.Context())
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			// Catálogo vacío en vez de error: el terminal reintenta solo.
			return c.JSON(dto.SuccessResponse{Success: true, Data: dto.EmptyCatalogSnapshot()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: snap})
}

// ListCashMovements lista los movimientos de caja con filtros opcionales
// (terminal, operador, tipo, período).
func (h *SyncHandler) ListCashMovements(c *fiber.Ctx) error {
	filter := repository.CashMovementFilter{
		TerminalID: c.Query("pdvId"),
		OperatorID: c.Query("operadorId"),
		Type:       c.Query("tipo"),
	}
	if filter.Type != "" && !entity.ValidCashMovementType(filter.Type) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "tipo de movimento inválido"})
	}
	if v := c.Query("dataInicio"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "dataInicio inválida (RFC3339)"})
		}
		filter.From = &t
	}
	if v := c.Query("dataFim"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "dataFim inválida (RFC3339)"})
		}
		filter.To = &t
	}

	movs, err := h.uc.ListCashMovements(c.Context(), filter)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return c.JSON(dto.SuccessResponse{Success: true, Data: []interface{}{}})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	out := make([]fiber.Map, 0, len(movs))
	for _, m := range movs {
		out = append(out, fiber.Map{
			"id":            m.ID,
			"uuid":          m.UUID,
			"tipo":          m.Type,
			"valor":         m.Amount,
			"operadorId":    m.OperatorID,
			"pdvId":         m.TerminalID,
			"dataMovimento": m.MovedAt,
			"observacao":    m.Note,
		})
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: out})
}

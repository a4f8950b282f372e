package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/varejosoft/retaguarda/internal/application/dto"
	appsync "github.com/varejosoft/retaguarda/internal/application/sync"
	"github.com/varejosoft/retaguarda/internal/application/terminal"
	"github.com/varejosoft/retaguarda/internal/domain"
)

// TerminalHandler maneja el registro de terminales: listado de activos y
// difusión manual del catálogo ("push now").
type TerminalHandler struct {
	registry *terminal.Registry
	syncUC   *appsync.SyncUseCase
}

func NewTerminalHandler(registry *terminal.Registry, syncUC *appsync.SyncUseCase) *TerminalHandler {
	return &TerminalHandler{registry: registry, syncUC: syncUC}
}

// ListActive lista los terminales registrados con su última señal de vida.
func (h *TerminalHandler) ListActive(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{Success: true, Data: h.registry.Active()})
}

type broadcastRequest struct {
	TerminalID string `json:"terminalId"`
}

// Broadcast reconstruye el snapshot de catálogo y lo empuja ya: a todos
// los terminales, o solo a uno si viene terminalId.
func (h *TerminalHandler) Broadcast(c *fiber.Ctx) error {
	var in broadcastRequest
	// Body opcional: sin body es broadcast a todos.
	_ = c.BodyParser(&in)

	if in.TerminalID != "" {
		snap, err := h.syncUC.InitialLoad(c.Context())
		if err != nil {
			if errors.Is(err, domain.ErrStorageUnavailable) {
				return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "base de datos no disponible"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
		if !h.registry.SendToTerminal(in.TerminalID, snap) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "terminal no registrado"})
		}
		return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{"terminais": 1}, Message: "catálogo enviado"})
	}

	sent, err := h.syncUC.BroadcastCatalog(c.Context())
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "base de datos no disponible"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{"terminais": sent}, Message: "catálogo difundido"})
}

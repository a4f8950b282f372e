package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/varejosoft/retaguarda/internal/application/auth"
	"github.com/varejosoft/retaguarda/internal/application/ledger"
	"github.com/varejosoft/retaguarda/internal/application/reconciliation"
	appsync "github.com/varejosoft/retaguarda/internal/application/sync"
	"github.com/varejosoft/retaguarda/internal/application/terminal"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC       *auth.AuthUseCase
	LedgerUC     *ledger.LedgerUseCase
	ConferenceUC *reconciliation.ConferenceUseCase
	SyncUC       *appsync.SyncUseCase
	Registry     *terminal.Registry
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// PDV: carga inicial pública, el terminal aún no tiene credenciales
	syncHandler := NewSyncHandler(deps.SyncUC)
	api.Get("/pdv/carga-inicial", syncHandler.InitialLoad)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// PDV (protegido)
	pdv := protected.Group("/pdv")
	terminalHandler := NewTerminalHandler(deps.Registry, deps.SyncUC)
	pdv.Post("/sincronizar", syncHandler.Sync)
	pdv.Get("/movimentos-caixa", syncHandler.ListCashMovements)
	pdv.Get("/ativos", terminalHandler.ListActive)
	pdv.Post("/broadcast", RequireRole(entity.RoleAdmin), terminalHandler.Broadcast)

	// Conferencia de mercadería (protegido)
	conf := protected.Group("/conferencias")
	conferenceHandler := NewConferenceHandler(deps.ConferenceUC)
	conf.Get("/pendentes", conferenceHandler.ListPending)
	conf.Get("/movimentacao/:id", conferenceHandler.ListByMovement)
	conf.Post("/movimentacao/:id/iniciar", conferenceHandler.Start)
	conf.Post("/movimentacao/:id/finalizar", conferenceHandler.Finalize)
	conf.Get("/codigo-barras/:codigo", conferenceHandler.FindByBarcode)
	conf.Post("/", conferenceHandler.CreateLine)
	conf.Put("/:id", conferenceHandler.UpdateLine)
	conf.Post("/:id/reset", conferenceHandler.ResetLine)
	conf.Delete("/:id", conferenceHandler.DeleteLine)

	// Kardex (protegido)
	kardex := protected.Group("/kardex")
	kardexHandler := NewKardexHandler(deps.LedgerUC)
	kardex.Get("/", kardexHandler.List)
	kardex.Get("/produto/:id", kardexHandler.ListByProduct)
	kardex.Post("/", RequireRole(entity.RoleAdmin, entity.RoleStockist), kardexHandler.Create)
	kardex.Delete("/documento/:doc", RequireRole(entity.RoleAdmin), kardexHandler.ReverseByDocument)
}

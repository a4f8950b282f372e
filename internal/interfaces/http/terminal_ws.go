package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/varejosoft/retaguarda/internal/application/terminal"
	"github.com/varejosoft/retaguarda/pkg/logger"
)

// wsFrame frame del protocolo terminal -> servidor.
type wsFrame struct {
	Type       string `json:"type"`
	TerminalID string `json:"terminalId"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	Status     string `json:"status"`
}

// WSUpgrade deja pasar solo peticiones de upgrade websocket.
func WSUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// TerminalWS devuelve el handler websocket de los terminales PDV.
// Ciclo de vida de la conexión: abierta (sin registrar) -> registrada ->
// heartbeats -> cerrada por desconexión o por el barrido de vivacidad.
func TerminalWS(registry *terminal.Registry, log *logger.Logger) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer func() {
			registry.Disconnect(conn)
			_ = conn.Close()
		}()

		if err := conn.WriteJSON(terminal.Frame{Type: "connected"}); err != nil {
			return
		}

		for {
			var frame wsFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			switch frame.Type {
			case "register":
				if frame.TerminalID == "" {
					continue
				}
				registry.Register(frame.TerminalID, frame.Name, frame.Location, conn)
			case "heartbeat":
				registry.Heartbeat(frame.TerminalID)
			case "status":
				registry.UpdateStatus(frame.TerminalID, frame.Status)
			default:
				log.Debug().Str("type", frame.Type).Msg("frame de terminal desconocido")
			}
		}
	})
}

package terminal

import (
	"context"
	"sync"
	"time"

	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/pkg/logger"
)

// Conn abstrae la conexión full-duplex con un terminal (websocket en
// producción, fake en tests).
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Frame mensaje del protocolo servidor -> terminal.
type Frame struct {
	Type       string      `json:"type"`
	TerminalID string      `json:"terminalId,omitempty"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

type session struct {
	id            string
	name          string
	location      string
	lastHeartbeat time.Time

	// wmu serializa las escrituras sobre conn: el websocket subyacente
	// no admite escritores concurrentes.
	wmu  sync.Mutex
	conn Conn
}

// Registry registra las sesiones de terminales vivas y empuja snapshots
// de catálogo. Se construye una vez al arrancar el servicio y se inyecta
// donde haga falta; no hay estado a nivel de módulo. La vivacidad se
// deriva del último heartbeat y nunca se persiste.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	timeout  time.Duration
	log      *logger.Logger
}

// NewRegistry construye el registro. timeout es la edad máxima del
// último heartbeat antes de purgar una sesión.
func NewRegistry(timeout time.Duration, log *logger.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		timeout:  timeout,
		log:      log,
	}
}

// Register da de alta (o reemplaza) la sesión de un terminal y responde
// con el frame "registered". Si había una conexión previa con el mismo
// id, se cierra.
func (r *Registry) Register(terminalID, name, location string, conn Conn) {
	if name == "" {
		name = "PDV " + terminalID
	}
	if location == "" {
		location = "Não especificado"
	}
	sess := &session{
		id:            terminalID,
		name:          name,
		location:      location,
		lastHeartbeat: time.Now(),
		conn:          conn,
	}
	r.mu.Lock()
	if prev, ok := r.sessions[terminalID]; ok && prev.conn != conn {
		_ = prev.conn.Close()
	}
	r.sessions[terminalID] = sess
	r.mu.Unlock()

	r.log.Info().Str("terminal", terminalID).Str("nombre", name).Str("ubicacion", location).Msg("terminal registrado")
	_ = sess.write(Frame{Type: "registered", TerminalID: terminalID, Message: "Successfully registered"}, r.log)
}

// Heartbeat refresca el último latido; no-op si el terminal no existe.
func (r *Registry) Heartbeat(terminalID string) {
	r.mu.Lock()
	if s, ok := r.sessions[terminalID]; ok {
		s.lastHeartbeat = time.Now()
	}
	r.mu.Unlock()
}

// UpdateStatus recibe el frame de estado de un terminal. Solo se loguea;
// el estado no se persiste.
func (r *Registry) UpdateStatus(terminalID, status string) {
	r.log.Debug().Str("terminal", terminalID).Str("status", status).Msg("estado de terminal")
}

// Disconnect purga la sesión dueña de la conexión (cierre del socket).
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.conn == conn {
			delete(r.sessions, id)
			r.log.Info().Str("terminal", id).Msg("terminal desconectado")
			break
		}
	}
	r.mu.Unlock()
}

// SendToTerminal envía el snapshot a un terminal puntual. Retorna si se
// pudo entregar.
func (r *Registry) SendToTerminal(terminalID string, data interface{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[terminalID]
	if !ok {
		return false
	}
	return s.write(Frame{Type: "catalog", Data: data}, r.log) == nil
}

// BroadcastCatalog difunde el snapshot a todos los terminales
// registrados. Fire-and-forget: los fallos por terminal se loguean y el
// resto sigue. Retorna cuántos terminales lo recibieron.
func (r *Registry) BroadcastCatalog(data interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	sent := 0
	for _, s := range r.sessions {
		if s.write(Frame{Type: "catalog", Data: data}, r.log) == nil {
			sent++
		}
	}
	return sent
}

// Active devuelve los terminales registrados con su última señal de vida.
func (r *Registry) Active() []entity.TerminalInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	out := make([]entity.TerminalInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, entity.TerminalInfo{
			ID:            s.id,
			Name:          s.name,
			Location:      s.location,
			LastHeartbeat: s.lastHeartbeat,
			Online:        now.Sub(s.lastHeartbeat) < r.timeout,
		})
	}
	return out
}

// Sweep una pasada del barrido de vivacidad: cierra y purga toda sesión
// cuyo último heartbeat superó el timeout.
func (r *Registry) Sweep() {
	now := time.Now()
	r.mu.Lock()
	for id, s := range r.sessions {
		if now.Sub(s.lastHeartbeat) > r.timeout {
			_ = s.conn.Close()
			delete(r.sessions, id)
			r.log.Warn().Str("terminal", id).Msg("terminal sin heartbeat, purgado")
		}
	}
	r.mu.Unlock()
}

// StartSweeper corre el barrido periódico en background hasta que el
// contexto se cancele. Nunca bloquea la atención de requests: solo toca
// el mapa de sesiones.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

func (s *session) write(f Frame, log *logger.Logger) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.conn.WriteJSON(f); err != nil {
		log.Warn().Err(err).Str("terminal", s.id).Msg("fallo al escribir al terminal")
		return err
	}
	return nil
}

package entity

import "time"

// TerminalInfo describe un terminal registrado, para el listado de
// terminales activos. La vivacidad se deriva del último heartbeat; nunca
// se persiste.
type TerminalInfo struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	LastHeartbeat time.Time `json:"lastSeen"`
	Online        bool      `json:"online"`
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

var _ repository.CashMovementRepository = (*CashMovementRepo)(nil)

// CashMovementRepo persistencia de movimientos de caja sobre PostgreSQL.
type CashMovementRepo struct {
	q Querier
}

func NewCashMovementRepository(q Querier) *CashMovementRepo {
	return &CashMovementRepo{q: q}
}

func (r *CashMovementRepo) Create(m *entity.CashMovement) error {
	var movUUID *string
	if m.UUID != "" {
		movUUID = &m.UUID
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(context.Background(),
		`INSERT INTO cash_movements (id, uuid, movement_type, amount, operator_id, terminal_id, moved_at, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, movUUID, m.Type, m.Amount, m.OperatorID, m.TerminalID, m.MovedAt, m.Note, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return wrapErr("create cash movement", err)
	}
	return nil
}

func (r *CashMovementRepo) ExistsByUUID(uuid string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM cash_movements WHERE uuid = $1)`, uuid).Scan(&exists)
	if err != nil {
		return false, wrapErr("exists cash movement by uuid", err)
	}
	return exists, nil
}

// ExistsApprox deduplicación aproximada para terminales sin uuid:
// mismo tipo, valor, operador y fecha-hora exacta del movimiento.
func (r *CashMovementRepo) ExistsApprox(movType string, amount int64, operatorID string, movedAt time.Time) (bool, error) {
	var exists bool
	err := r.q.QueryRow(context.Background(),
		`SELECT EXISTS(
			SELECT 1 FROM cash_movements
			WHERE movement_type = $1 AND amount = $2 AND operator_id = $3
			  AND moved_at = $4
		 )`, movType, amount, operatorID, movedAt).Scan(&exists)
	if err != nil {
		return false, wrapErr("exists cash movement approx", err)
	}
	return exists, nil
}

func (r *CashMovementRepo) List(filter repository.CashMovementFilter) ([]*entity.CashMovement, error) {
	query := `SELECT id, COALESCE(uuid, ''), movement_type, amount, operator_id, terminal_id,
		moved_at, note, created_at FROM cash_movements WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.TerminalID != "" {
		query += ` AND terminal_id = ` + arg(filter.TerminalID)
	}
	if filter.OperatorID != "" {
		query += ` AND operator_id = ` + arg(filter.OperatorID)
	}
	if filter.Type != "" {
		query += ` AND movement_type = ` + arg(filter.Type)
	}
	if filter.From != nil {
		query += ` AND moved_at >= ` + arg(*filter.From)
	}
	if filter.To != nil {
		query += ` AND moved_at <= ` + arg(*filter.To)
	}
	query += ` ORDER BY moved_at DESC, id DESC`

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, wrapErr("list cash movements", err)
	}
	defer rows.Close()

	var out []*entity.CashMovement
	for rows.Next() {
		var m entity.CashMovement
		if err := rows.Scan(&m.ID, &m.UUID, &m.Type, &m.Amount, &m.OperatorID, &m.TerminalID,
			&m.MovedAt, &m.Note, &m.CreatedAt); err != nil {
			return nil, wrapErr("scan cash movement", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

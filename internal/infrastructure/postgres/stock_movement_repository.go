package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, movement_type, quantity, balance_before, balance_after,
		unit_cost, reference_document, supplier, note, deferred, reconciliation_status, user_id, created_at`

// StockMovementRepo persistencia del Kardex sobre PostgreSQL.
// El estado de aplicación se persiste como deferred + reconciliation_status
// (nullable); en memoria se reconstruye como ApplyState.
type StockMovementRepo struct {
	q Querier
}

func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var reconStatus *string
	err := row.Scan(
		&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.BalanceBefore, &m.BalanceAfter,
		&m.UnitCost, &m.ReferenceDocument, &m.Supplier, &m.Note,
		&m.Apply.Deferred, &reconStatus, &m.UserID, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("scan stock movement", err)
	}
	if reconStatus != nil {
		m.Apply.ReconciliationStatus = *reconStatus
	}
	return &m, nil
}

func (r *StockMovementRepo) collect(rows pgx.Rows) ([]*entity.StockMovement, error) {
	defer rows.Close()
	var out []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create inserta la entrada con el ID generado por el caso de uso.
func (r *StockMovementRepo) Create(m *entity.StockMovement) error {
	var reconStatus *string
	if m.Apply.ReconciliationStatus != "" {
		reconStatus = &m.Apply.ReconciliationStatus
	}
	_, err := r.q.Exec(context.Background(),
		`INSERT INTO stock_movements
			(id, product_id, movement_type, quantity, balance_before, balance_after,
			 unit_cost, reference_document, supplier, note, deferred, reconciliation_status, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		m.ID, m.ProductID, m.Type, m.Quantity, m.BalanceBefore, m.BalanceAfter,
		m.UnitCost, m.ReferenceDocument, m.Supplier, m.Note,
		m.Apply.Deferred, reconStatus, m.UserID, m.CreatedAt,
	)
	if err != nil {
		return wrapErr("create stock movement", err)
	}
	return nil
}

func (r *StockMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	return scanMovement(r.q.QueryRow(context.Background(),
		`SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id))
}

// ListByProduct historial completo de un producto, del más reciente al
// más antiguo.
func (r *StockMovementRepo) ListByProduct(productID string) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(context.Background(),
		`SELECT `+movementColumns+` FROM stock_movements
		 WHERE product_id = $1 ORDER BY created_at DESC, id DESC`, productID)
	if err != nil {
		return nil, wrapErr("list movements by product", err)
	}
	return r.collect(rows)
}

// ListAll listado paginado global del Kardex.
func (r *StockMovementRepo) ListAll(limit, offset int) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(context.Background(),
		`SELECT `+movementColumns+` FROM stock_movements
		 ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, wrapErr("list movements", err)
	}
	return r.collect(rows)
}

// ListByReference movimientos de un mismo documento (lote de recepción).
func (r *StockMovementRepo) ListByReference(referenceDocument string) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(context.Background(),
		`SELECT `+movementColumns+` FROM stock_movements
		 WHERE reference_document = $1 ORDER BY created_at ASC, id ASC`, referenceDocument)
	if err != nil {
		return nil, wrapErr("list movements by reference", err)
	}
	return r.collect(rows)
}

// ListPendingConference movimientos diferidos aún no conferidos, o
// conferidos con divergencia (quedan visibles para revisión).
func (r *StockMovementRepo) ListPendingConference() ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(context.Background(),
		`SELECT `+movementColumns+` FROM stock_movements
		 WHERE deferred AND reconciliation_status IN ($1, $2, $3)
		 ORDER BY created_at DESC, id DESC`,
		entity.ReconPendingConference, entity.ReconInConference, entity.ReconConferredWithDivergence)
	if err != nil {
		return nil, wrapErr("list pending conference", err)
	}
	return r.collect(rows)
}

func (r *StockMovementRepo) UpdateReconciliationStatus(id, status string) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE stock_movements SET reconciliation_status = $2 WHERE id = $1 AND deferred`,
		id, status)
	if err != nil {
		return wrapErr("update reconciliation status", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateReconciliationStatusByReference avanza todo el lote de una vez.
func (r *StockMovementRepo) UpdateReconciliationStatusByReference(referenceDocument, status string) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE stock_movements SET reconciliation_status = $2
		 WHERE reference_document = $1 AND deferred`,
		referenceDocument, status)
	if err != nil {
		return wrapErr("update reconciliation status by reference", err)
	}
	return nil
}

// Delete elimina la entrada. Solo la reversa administrativa lo usa; el
// Kardex es append-only para el resto del sistema.
func (r *StockMovementRepo) Delete(id string) error {
	cmd, err := r.q.Exec(context.Background(),
		`DELETE FROM stock_movements WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete stock movement", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *StockMovementRepo) CountByProduct(productID string) (int, error) {
	var n int
	err := r.q.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM stock_movements WHERE product_id = $1`, productID).Scan(&n)
	if err != nil {
		return 0, wrapErr("count movements by product", err)
	}
	return n, nil
}

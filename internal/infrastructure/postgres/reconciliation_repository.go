package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

var _ repository.ReconciliationRepository = (*ReconciliationRepo)(nil)

const reconColumns = `id, movement_id, product_id, expected_qty, counted_qty, divergence,
		divergence_type, status, scanned_barcode, arrival_date, expiry_date, counted_at,
		user_id, created_at, updated_at`

// ReconciliationRepo persistencia de líneas de conferencia sobre PostgreSQL.
type ReconciliationRepo struct {
	q Querier
}

func NewReconciliationRepository(q Querier) *ReconciliationRepo {
	return &ReconciliationRepo{q: q}
}

func scanReconLine(row pgx.Row) (*entity.ReconciliationLine, error) {
	var l entity.ReconciliationLine
	err := row.Scan(
		&l.ID, &l.MovementID, &l.ProductID, &l.ExpectedQty, &l.CountedQty, &l.Divergence,
		&l.DivergenceType, &l.Status, &l.ScannedBarcode, &l.ArrivalDate, &l.ExpiryDate, &l.CountedAt,
		&l.UserID, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("scan reconciliation line", err)
	}
	return &l, nil
}

func (r *ReconciliationRepo) Create(line *entity.ReconciliationLine) error {
	_, err := r.q.Exec(context.Background(),
		`INSERT INTO reconciliation_lines
			(id, movement_id, product_id, expected_qty, counted_qty, divergence, divergence_type,
			 status, scanned_barcode, arrival_date, expiry_date, counted_at, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		line.ID, line.MovementID, line.ProductID, line.ExpectedQty, line.CountedQty, line.Divergence,
		line.DivergenceType, line.Status, line.ScannedBarcode, line.ArrivalDate, line.ExpiryDate,
		line.CountedAt, line.UserID, line.CreatedAt, line.UpdatedAt,
	)
	if err != nil {
		return wrapErr("create reconciliation line", err)
	}
	return nil
}

func (r *ReconciliationRepo) GetByID(id string) (*entity.ReconciliationLine, error) {
	return scanReconLine(r.q.QueryRow(context.Background(),
		`SELECT `+reconColumns+` FROM reconciliation_lines WHERE id = $1`, id))
}

func (r *ReconciliationRepo) ListByMovement(movementID string) ([]*entity.ReconciliationLine, error) {
	rows, err := r.q.Query(context.Background(),
		`SELECT `+reconColumns+` FROM reconciliation_lines
		 WHERE movement_id = $1 ORDER BY created_at ASC, id ASC`, movementID)
	if err != nil {
		return nil, wrapErr("list reconciliation lines", err)
	}
	defer rows.Close()

	var out []*entity.ReconciliationLine
	for rows.Next() {
		l, err := scanReconLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *ReconciliationRepo) Update(line *entity.ReconciliationLine) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE reconciliation_lines SET
			counted_qty = $2, divergence = $3, divergence_type = $4, status = $5,
			scanned_barcode = $6, arrival_date = $7, expiry_date = $8, counted_at = $9,
			user_id = $10, updated_at = now()
		 WHERE id = $1`,
		line.ID, line.CountedQty, line.Divergence, line.DivergenceType, line.Status,
		line.ScannedBarcode, line.ArrivalDate, line.ExpiryDate, line.CountedAt, line.UserID,
	)
	if err != nil {
		return wrapErr("update reconciliation line", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReconciliationRepo) Delete(id string) error {
	cmd, err := r.q.Exec(context.Background(),
		`DELETE FROM reconciliation_lines WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete reconciliation line", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

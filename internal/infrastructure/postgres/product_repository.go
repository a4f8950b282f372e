package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, code, barcode, description, unit, cost_price, sale_price, terminal_price,
		average_cost, profit_margin, min_stock, current_stock, last_purchase_date, last_purchase_qty,
		active, created_at, updated_at`

// ProductRepo implementación de ProductRepository sobre PostgreSQL
// (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(
		&p.ID, &p.Code, &p.Barcode, &p.Description, &p.Unit, &p.CostPrice, &p.SalePrice, &p.TerminalPrice,
		&p.AverageCost, &p.ProfitMargin, &p.MinStock, &p.CurrentStock, &p.LastPurchaseDate, &p.LastPurchaseQty,
		&p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("scan product", err)
	}
	return &p, nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(id string) (*entity.Product, error) {
	return scanProduct(r.q.QueryRow(context.Background(),
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// GetByBarcode obtiene un producto por código de barras.
func (r *ProductRepo) GetByBarcode(barcode string) (*entity.Product, error) {
	return scanProduct(r.q.QueryRow(context.Background(),
		`SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode))
}

// GetForUpdate obtiene el producto y bloquea su fila (SELECT FOR UPDATE):
// la frontera de serialización por producto del ledger.
func (r *ProductRepo) GetForUpdate(id string) (*entity.Product, error) {
	return scanProduct(r.q.QueryRow(context.Background(),
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
}

// ListActive lista los productos activos para el snapshot de catálogo.
func (r *ProductRepo) ListActive() ([]*entity.Product, error) {
	rows, err := r.q.Query(context.Background(),
		`SELECT `+productColumns+` FROM products WHERE active ORDER BY description`)
	if err != nil {
		return nil, wrapErr("list active products", err)
	}
	defer rows.Close()

	var out []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStock actualiza el stock con guarda optimista sobre el valor
// esperado. Con FOR UPDATE previo la guarda no debería fallar; si falla,
// otro writer invalidó el saldo y el caller puede reintentar.
func (r *ProductRepo) UpdateStock(id string, expectedStock, newStock int64) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE products SET current_stock = $3, updated_at = now()
		 WHERE id = $1 AND current_stock = $2`,
		id, expectedStock, newStock,
	)
	if err != nil {
		return wrapErr("update stock", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// UpdateAverageCost actualiza solo el costo promedio (motor del ledger).
func (r *ProductRepo) UpdateAverageCost(id string, cost decimal.Decimal) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE products SET average_cost = $2, updated_at = now() WHERE id = $1`,
		id, cost,
	)
	if err != nil {
		return wrapErr("update average cost", err)
	}
	return nil
}

// UpdatePurchaseMetadata registra fecha y cantidad de la última compra.
func (r *ProductRepo) UpdatePurchaseMetadata(id string, date time.Time, qty int64) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE products SET last_purchase_date = $2, last_purchase_qty = $3, updated_at = now() WHERE id = $1`,
		id, date, qty,
	)
	if err != nil {
		return wrapErr("update purchase metadata", err)
	}
	return nil
}

// RefreshTerminalPrices iguala el precio visible en terminales al precio
// de venta de todos los productos activos.
func (r *ProductRepo) RefreshTerminalPrices() error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE products SET terminal_price = sale_price WHERE active`)
	if err != nil {
		return wrapErr("refresh terminal prices", err)
	}
	return nil
}

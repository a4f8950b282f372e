package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo persistencia de ventas consolidadas sobre PostgreSQL.
type SaleRepo struct {
	q Querier
}

func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create inserta la venta. La constraint única sobre sale_number es el
// árbitro final de idempotencia: la violación se traduce a ErrDuplicate.
func (r *SaleRepo) Create(sale *entity.Sale) error {
	_, err := r.q.Exec(context.Background(),
		`INSERT INTO sales
			(id, uuid, sale_number, ccf, coo, terminal_id, sold_at, total_amount, discount_amount,
			 net_amount, payment_method, status, receipt_number, receipt_key, operator_id,
			 operator_name, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		sale.ID, sale.UUID, sale.SaleNumber, sale.CCF, sale.COO, sale.TerminalID, sale.SoldAt,
		sale.TotalAmount, sale.DiscountAmount, sale.NetAmount, sale.PaymentMethod, sale.Status,
		sale.ReceiptNumber, sale.ReceiptKey, sale.OperatorID, sale.OperatorName, sale.Note,
		sale.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return wrapErr("create sale", err)
	}
	return nil
}

func (r *SaleRepo) CreateItem(item *entity.SaleItem) error {
	_, err := r.q.Exec(context.Background(),
		`INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, line_total, line_discount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal,
		item.LineDiscount, item.CreatedAt,
	)
	if err != nil {
		return wrapErr("create sale item", err)
	}
	return nil
}

func (r *SaleRepo) ExistsByNumber(saleNumber string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM sales WHERE sale_number = $1)`, saleNumber).Scan(&exists)
	if err != nil {
		return false, wrapErr("exists sale by number", err)
	}
	return exists, nil
}

func (r *SaleRepo) GetByNumber(saleNumber string) (*entity.Sale, error) {
	var s entity.Sale
	err := r.q.QueryRow(context.Background(),
		`SELECT id, uuid, sale_number, ccf, coo, terminal_id, sold_at, total_amount,
			discount_amount, net_amount, payment_method, status, receipt_number, receipt_key,
			operator_id, operator_name, note, created_at
		 FROM sales WHERE sale_number = $1`, saleNumber,
	).Scan(
		&s.ID, &s.UUID, &s.SaleNumber, &s.CCF, &s.COO, &s.TerminalID, &s.SoldAt, &s.TotalAmount,
		&s.DiscountAmount, &s.NetAmount, &s.PaymentMethod, &s.Status, &s.ReceiptNumber, &s.ReceiptKey,
		&s.OperatorID, &s.OperatorName, &s.Note, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get sale by number", err)
	}
	return &s, nil
}

package reconciliation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varejosoft/retaguarda/internal/application/ledger"
	"github.com/varejosoft/retaguarda/internal/application/reconciliation"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
// ──────────────────────────────────────────────────────────────────────────────

type fakeProductRepo struct {
	products map[string]*entity.Product
}

func (r *fakeProductRepo) GetByID(id string) (*entity.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) GetByBarcode(barcode string) (*entity.Product, error) {
	for _, p := range r.products {
		if p.Barcode == barcode {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeProductRepo) GetForUpdate(id string) (*entity.Product, error) { return r.GetByID(id) }

func (r *fakeProductRepo) ListActive() ([]*entity.Product, error) { return nil, nil }

func (r *fakeProductRepo) UpdateStock(id string, expectedStock, newStock int64) error {
	p, ok := r.products[id]
	if !ok || p.CurrentStock != expectedStock {
		return domain.ErrConflict
	}
	p.CurrentStock = newStock
	return nil
}

func (r *fakeProductRepo) UpdateAverageCost(id string, cost decimal.Decimal) error {
	if p, ok := r.products[id]; ok {
		p.AverageCost = cost
	}
	return nil
}

func (r *fakeProductRepo) UpdatePurchaseMetadata(id string, date time.Time, qty int64) error {
	if p, ok := r.products[id]; ok {
		p.LastPurchaseDate = &date
		p.LastPurchaseQty = qty
	}
	return nil
}

func (r *fakeProductRepo) RefreshTerminalPrices() error { return nil }

type fakeMovementRepo struct {
	movements []*entity.StockMovement
}

func (r *fakeMovementRepo) Create(m *entity.StockMovement) error {
	cp := *m
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *fakeMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	for _, m := range r.movements {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMovementRepo) ListByProduct(string) ([]*entity.StockMovement, error) { return nil, nil }

func (r *fakeMovementRepo) ListAll(int, int) ([]*entity.StockMovement, error) { return nil, nil }

func (r *fakeMovementRepo) ListByReference(doc string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.movements {
		if m.ReferenceDocument == doc {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) ListPendingConference() ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.movements {
		if m.Apply.Deferred {
			switch m.Apply.ReconciliationStatus {
			case entity.ReconPendingConference, entity.ReconInConference, entity.ReconConferredWithDivergence:
				cp := *m
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) UpdateReconciliationStatus(id, status string) error {
	for _, m := range r.movements {
		if m.ID == id && m.Apply.Deferred {
			m.Apply.ReconciliationStatus = status
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeMovementRepo) UpdateReconciliationStatusByReference(doc, status string) error {
	for _, m := range r.movements {
		if m.ReferenceDocument == doc && m.Apply.Deferred {
			m.Apply.ReconciliationStatus = status
		}
	}
	return nil
}

func (r *fakeMovementRepo) Delete(id string) error {
	for i, m := range r.movements {
		if m.ID == id {
			r.movements = append(r.movements[:i], r.movements[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeMovementRepo) CountByProduct(string) (int, error) { return 0, nil }

type fakeReconRepo struct {
	lines map[string]*entity.ReconciliationLine
}

func (r *fakeReconRepo) Create(line *entity.ReconciliationLine) error {
	cp := *line
	r.lines[line.ID] = &cp
	return nil
}

func (r *fakeReconRepo) GetByID(id string) (*entity.ReconciliationLine, error) {
	l, ok := r.lines[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *fakeReconRepo) ListByMovement(movementID string) ([]*entity.ReconciliationLine, error) {
	var out []*entity.ReconciliationLine
	for _, l := range r.lines {
		if l.MovementID == movementID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeReconRepo) Update(line *entity.ReconciliationLine) error {
	if _, ok := r.lines[line.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *line
	r.lines[line.ID] = &cp
	return nil
}

func (r *fakeReconRepo) Delete(id string) error {
	if _, ok := r.lines[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.lines, id)
	return nil
}

type fakeTxRunner struct {
	movRepo     repository.StockMovementRepository
	productRepo repository.ProductRepository
	reconRepo   repository.ReconciliationRepository
}

func (r *fakeTxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	return fn(r.movRepo, r.productRepo)
}

func (r *fakeTxRunner) RunConference(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	reconRepo repository.ReconciliationRepository,
) error) error {
	return fn(r.movRepo, r.productRepo, r.reconRepo)
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado del escenario: un producto y una recepción diferida
// ──────────────────────────────────────────────────────────────────────────────

type harness struct {
	uc          *reconciliation.ConferenceUseCase
	ledgerUC    *ledger.LedgerUseCase
	movRepo     *fakeMovementRepo
	productRepo *fakeProductRepo
	reconRepo   *fakeReconRepo
}

func newHarness(products ...*entity.Product) *harness {
	productRepo := &fakeProductRepo{products: make(map[string]*entity.Product)}
	for _, p := range products {
		productRepo.products[p.ID] = p
	}
	movRepo := &fakeMovementRepo{}
	reconRepo := &fakeReconRepo{lines: make(map[string]*entity.ReconciliationLine)}
	tx := &fakeTxRunner{movRepo: movRepo, productRepo: productRepo, reconRepo: reconRepo}
	ledgerUC := ledger.NewLedgerUseCase(tx, movRepo, productRepo)
	uc := reconciliation.NewConferenceUseCase(tx, ledgerUC, movRepo, productRepo, reconRepo)
	return &harness{uc: uc, ledgerUC: ledgerUC, movRepo: movRepo, productRepo: productRepo, reconRepo: reconRepo}
}

func (h *harness) deferredReceipt(t *testing.T, productID string, qty, unitCost int64, doc string) *entity.StockMovement {
	t.Helper()
	mov, err := h.ledgerUC.RecordMovement(context.Background(), ledger.RecordMovementInput{
		ProductID: productID, Type: entity.MovementGoodsReceipt, Quantity: qty, UnitCost: unitCost,
		ReferenceDocument: doc, Supplier: "Distribuidora Sul", DeferApply: true,
	})
	require.NoError(t, err)
	return mov
}

func product(id, barcode string, stock int64) *entity.Product {
	return &entity.Product{
		ID: id, Code: "P-" + id, Barcode: barcode,
		Description: "Producto " + id, Unit: "UN",
		CurrentStock: stock, Active: true,
	}
}

func intp(v int64) *int64 { return &v }

// ──────────────────────────────────────────────────────────────────────────────
// Clasificación de líneas
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateLine_Clasificacion(t *testing.T) {
	cases := []struct {
		name        string
		expected    int64
		counted     *int64
		divergence  int64
		divType     string
		lineStatus  string
	}{
		{"faltante", 10, intp(8), -2, entity.DivergenceShort, entity.LineDivergent},
		{"sobrante", 10, intp(12), 2, entity.DivergenceOver, entity.LineDivergent},
		{"exacto", 10, intp(10), 0, entity.DivergenceOK, entity.LineReconciled},
		{"sin contar", 10, nil, 0, "", entity.LinePending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(product("p1", "789100", 0))
			mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")

			line, err := h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
				MovementID: mov.ID, ProductID: "p1",
				ExpectedQty: tc.expected, CountedQty: tc.counted,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.divergence, line.Divergence)
			assert.Equal(t, tc.divType, line.DivergenceType)
			assert.Equal(t, tc.lineStatus, line.Status)
		})
	}
}

func TestUpdateLine_RecalculaContraElEsperadoOriginal(t *testing.T) {
	h := newHarness(product("p1", "789100", 0))
	mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")

	line, err := h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p1", ExpectedQty: 10, CountedQty: intp(8),
	})
	require.NoError(t, err)

	// Recontar: la divergencia siempre es contra el esperado original,
	// nunca contra el conteo previo.
	updated, err := h.uc.UpdateLine(context.Background(), line.ID, reconciliation.UpdateLineInput{
		CountedQty: intp(10),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, updated.Divergence)
	assert.Equal(t, entity.LineReconciled, updated.Status)

	// Repetir la misma llamada es idempotente.
	again, err := h.uc.UpdateLine(context.Background(), line.ID, reconciliation.UpdateLineInput{
		CountedQty: intp(10),
	})
	require.NoError(t, err)
	assert.Equal(t, updated.Divergence, again.Divergence)
	assert.Equal(t, updated.Status, again.Status)
}

func TestResetLine_VuelveAPending(t *testing.T) {
	h := newHarness(product("p1", "789100", 0))
	mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")

	line, err := h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p1", ExpectedQty: 10, CountedQty: intp(7),
	})
	require.NoError(t, err)

	require.NoError(t, h.uc.ResetLine(context.Background(), line.ID))

	got, err := h.reconRepo.GetByID(line.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CountedQty)
	assert.Equal(t, entity.LinePending, got.Status)
	assert.EqualValues(t, 0, got.Divergence)
}

// ──────────────────────────────────────────────────────────────────────────────
// Máquina de estados del lote
// ──────────────────────────────────────────────────────────────────────────────

func TestStart_PasaAInConference(t *testing.T) {
	h := newHarness(product("p1", "789100", 0))
	mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")

	require.NoError(t, h.uc.Start(context.Background(), mov.ID))

	got, _ := h.movRepo.GetByID(mov.ID)
	assert.Equal(t, entity.ReconInConference, got.Apply.ReconciliationStatus)
}

func TestListPending_AgrupaPorDocumento(t *testing.T) {
	h := newHarness(product("p1", "789100", 0), product("p2", "789200", 0))
	h.deferredReceipt(t, "p1", 10, 100, "NFE-1")
	h.deferredReceipt(t, "p2", 5, 200, "NFE-1")
	h.deferredReceipt(t, "p1", 3, 100, "NFE-2")

	batches, err := h.uc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 2)

	byDoc := make(map[string]int)
	for _, b := range batches {
		byDoc[b.ReferenceDocument] = b.TotalItems
	}
	assert.Equal(t, 2, byDoc["NFE-1"])
	assert.Equal(t, 1, byDoc["NFE-2"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Finalizar: lo contado manda
// ──────────────────────────────────────────────────────────────────────────────

// Escenario: recepción de 10 esperados, conferencia cuenta 8. El Kardex
// recibe un movimiento aplicado por 8 y el stock sube 8, no 10.
func TestFinalize_AplicaLoContadoNoLoEsperado(t *testing.T) {
	h := newHarness(product("p1", "789100", 0))
	mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")

	_, err := h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p1", ExpectedQty: 10, CountedQty: intp(8),
	})
	require.NoError(t, err)

	summary, err := h.uc.Finalize(context.Background(), mov.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalLines)
	assert.Equal(t, 1, summary.DivergentLines)
	assert.Equal(t, 0, summary.ReconciledLines)
	require.Len(t, summary.Divergences, 1)

	p, _ := h.productRepo.GetByID("p1")
	assert.EqualValues(t, 8, p.CurrentStock, "entra la cantidad contada")

	got, _ := h.movRepo.GetByID(mov.ID)
	assert.Equal(t, entity.ReconConferredWithDivergence, got.Apply.ReconciliationStatus)
}

func TestFinalize_SinDivergencias(t *testing.T) {
	h := newHarness(product("p1", "789100", 0), product("p2", "789200", 0))
	mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")
	h.deferredReceipt(t, "p2", 5, 200, "NFE-1")

	_, err := h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p1", ExpectedQty: 10, CountedQty: intp(10),
	})
	require.NoError(t, err)
	_, err = h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p2", ExpectedQty: 5, CountedQty: intp(5),
	})
	require.NoError(t, err)

	summary, err := h.uc.Finalize(context.Background(), mov.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalLines)
	assert.Equal(t, 2, summary.ReconciledLines)
	assert.Equal(t, 0, summary.DivergentLines)

	got, _ := h.movRepo.GetByID(mov.ID)
	assert.Equal(t, entity.ReconConferred, got.Apply.ReconciliationStatus)

	p1, _ := h.productRepo.GetByID("p1")
	p2, _ := h.productRepo.GetByID("p2")
	assert.EqualValues(t, 10, p1.CurrentStock)
	assert.EqualValues(t, 5, p2.CurrentStock)
}

func TestFinalize_SinLineasEsNoOp(t *testing.T) {
	h := newHarness(product("p1", "789100", 0))
	mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")

	summary, err := h.uc.Finalize(context.Background(), mov.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalLines)

	p, _ := h.productRepo.GetByID("p1")
	assert.EqualValues(t, 0, p.CurrentStock)

	got, _ := h.movRepo.GetByID(mov.ID)
	assert.Equal(t, entity.ReconPendingConference, got.Apply.ReconciliationStatus,
		"un lote sin líneas sigue pendiente")
}

func TestFinalize_NoRecalculaCostoPromedio(t *testing.T) {
	// El costo promedio ya se aplicó al registrar la recepción diferida;
	// finalizar no debe aplicarlo de nuevo.
	h := newHarness(product("p1", "789100", 0))
	mov := h.deferredReceipt(t, "p1", 10, 300, "NFE-1")

	p, _ := h.productRepo.GetByID("p1")
	costAfterReceipt := p.AverageCost

	_, err := h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p1", ExpectedQty: 10, CountedQty: intp(10),
	})
	require.NoError(t, err)
	_, err = h.uc.Finalize(context.Background(), mov.ID, "user-1")
	require.NoError(t, err)

	p, _ = h.productRepo.GetByID("p1")
	assert.True(t, p.AverageCost.Equal(costAfterReceipt),
		"costo tras finalizar: %s, esperado: %s", p.AverageCost, costAfterReceipt)
}

// Escenario C: aparece mercadería que no estaba en la recepción
// (esperado 0, contado N). Finalizar la ingresa igual: lo contado manda.
func TestFinalize_ContadoSinEsperado(t *testing.T) {
	h := newHarness(product("p1", "789100", 0), product("p2", "789200", 0))
	mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")

	_, err := h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p1", ExpectedQty: 10, CountedQty: intp(10),
	})
	require.NoError(t, err)
	line2, err := h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p2", ExpectedQty: 0, CountedQty: intp(4),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DivergenceOver, line2.DivergenceType)

	summary, err := h.uc.Finalize(context.Background(), mov.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DivergentLines)

	p2, _ := h.productRepo.GetByID("p2")
	assert.EqualValues(t, 4, p2.CurrentStock)
}

// Un lote multi-producto tiene un movimiento diferido por producto, cada
// uno con su costo unitario. Al finalizar, el Kardex de cada producto
// registra el costo de su propio movimiento, no el del ancla.
func TestFinalize_CadaProductoConSuCostoUnitario(t *testing.T) {
	h := newHarness(product("p1", "789100", 0), product("p2", "789200", 0))
	mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")
	h.deferredReceipt(t, "p2", 5, 350, "NFE-1")

	_, err := h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p1", ExpectedQty: 10, CountedQty: intp(10),
	})
	require.NoError(t, err)
	_, err = h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p2", ExpectedQty: 5, CountedQty: intp(5),
	})
	require.NoError(t, err)

	_, err = h.uc.Finalize(context.Background(), mov.ID, "user-1")
	require.NoError(t, err)

	applied := make(map[string]int64)
	for _, m := range h.movRepo.movements {
		if !m.Apply.Deferred && m.Type == entity.MovementGoodsReceipt {
			applied[m.ProductID] = m.UnitCost
		}
	}
	assert.EqualValues(t, 100, applied["p1"])
	assert.EqualValues(t, 350, applied["p2"], "p2 lleva el costo de su propio movimiento diferido")
}

// ──────────────────────────────────────────────────────────────────────────────
// Inmutabilidad tras finalizar
// ──────────────────────────────────────────────────────────────────────────────

func TestLineasInmutablesTrasFinalizar(t *testing.T) {
	h := newHarness(product("p1", "789100", 0))
	mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")

	line, err := h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p1", ExpectedQty: 10, CountedQty: intp(10),
	})
	require.NoError(t, err)
	_, err = h.uc.Finalize(context.Background(), mov.ID, "user-1")
	require.NoError(t, err)

	_, err = h.uc.UpdateLine(context.Background(), line.ID, reconciliation.UpdateLineInput{CountedQty: intp(5)})
	assert.ErrorIs(t, err, domain.ErrBatchFinalized)

	assert.ErrorIs(t, h.uc.ResetLine(context.Background(), line.ID), domain.ErrBatchFinalized)
	assert.ErrorIs(t, h.uc.DeleteLine(context.Background(), line.ID), domain.ErrBatchFinalized)

	_, err = h.uc.CreateLine(context.Background(), reconciliation.CreateLineInput{
		MovementID: mov.ID, ProductID: "p1", ExpectedQty: 1, CountedQty: intp(1),
	})
	assert.ErrorIs(t, err, domain.ErrBatchFinalized)
}

// ──────────────────────────────────────────────────────────────────────────────
// Búsqueda por código de barras
// ──────────────────────────────────────────────────────────────────────────────

func TestFindByBarcode(t *testing.T) {
	h := newHarness(product("p1", "789100", 0), product("p2", "789200", 0))
	mov := h.deferredReceipt(t, "p1", 10, 100, "NFE-1")

	p, m, err := h.uc.FindByBarcode(context.Background(), "789100", mov.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, mov.ID, m.ID)

	// p2 existe pero no pertenece al lote NFE-1.
	_, _, err = h.uc.FindByBarcode(context.Background(), "789200", mov.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = h.uc.FindByBarcode(context.Background(), "000000", mov.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ancla del lote
// ──────────────────────────────────────────────────────────────────────────────

func TestStart_MovimientoNoDiferido(t *testing.T) {
	h := newHarness(product("p1", "789100", 5))
	mov, err := h.ledgerUC.RecordMovement(context.Background(), ledger.RecordMovementInput{
		ProductID: "p1", Type: entity.MovementPOSSale, Quantity: -1,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, h.uc.Start(context.Background(), mov.ID), domain.ErrNotFound,
		"un movimiento aplicado no es conferible")
	assert.ErrorIs(t, h.uc.Start(context.Background(), uuid.New().String()), domain.ErrNotFound)
}

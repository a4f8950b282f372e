package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varejosoft/retaguarda/internal/application/dto"
	"github.com/varejosoft/retaguarda/internal/application/ledger"
	appsync "github.com/varejosoft/retaguarda/internal/application/sync"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
	"github.com/varejosoft/retaguarda/pkg/logger"
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

func (r *fakeProductRepo) GetByBarcode(string) (*entity.Product, error) { return nil, nil }

func (r *fakeProductRepo) GetForUpdate(id string) (*entity.Product, error) { return r.GetByID(id) }

func (r *fakeProductRepo) ListActive() ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range r.products {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) UpdateStock(id string, expectedStock, newStock int64) error {
	p, ok := r.products[id]
	if !ok || p.CurrentStock != expectedStock {
		return domain.ErrConflict
	}
	p.CurrentStock = newStock
	return nil
}

func (r *fakeProductRepo) UpdateAverageCost(id string, cost decimal.Decimal) error { return nil }

func (r *fakeProductRepo) UpdatePurchaseMetadata(string, time.Time, int64) error { return nil }

func (r *fakeProductRepo) RefreshTerminalPrices() error {
	for _, p := range r.products {
		if p.Active {
			p.TerminalPrice = p.SalePrice
		}
	}
	return nil
}

type fakeMovementRepo struct {
	movements []*entity.StockMovement
}

func (r *fakeMovementRepo) Create(m *entity.StockMovement) error {
	cp := *m
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *fakeMovementRepo) GetByID(string) (*entity.StockMovement, error)         { return nil, nil }
func (r *fakeMovementRepo) ListByProduct(string) ([]*entity.StockMovement, error) { return nil, nil }
func (r *fakeMovementRepo) ListAll(int, int) ([]*entity.StockMovement, error)     { return nil, nil }
func (r *fakeMovementRepo) ListByReference(string) ([]*entity.StockMovement, error) {
	return nil, nil
}
func (r *fakeMovementRepo) ListPendingConference() ([]*entity.StockMovement, error) {
	return nil, nil
}
func (r *fakeMovementRepo) UpdateReconciliationStatus(string, string) error            { return nil }
func (r *fakeMovementRepo) UpdateReconciliationStatusByReference(string, string) error { return nil }
func (r *fakeMovementRepo) Delete(string) error                                        { return nil }
func (r *fakeMovementRepo) CountByProduct(string) (int, error)                         { return 0, nil }

// fakeSaleRepo simula la constraint única sobre numeroVenda. Con
// raceOnCreate, ExistsByNumber miente (false) y Create detecta el
// duplicado, como una carrera entre dos ingest concurrentes.
type fakeSaleRepo struct {
	byNumber     map[string]*entity.Sale
	items        []*entity.SaleItem
	raceOnCreate bool
	unavailable  bool
}

func (r *fakeSaleRepo) Create(sale *entity.Sale) error {
	if r.unavailable {
		return domain.ErrStorageUnavailable
	}
	if _, ok := r.byNumber[sale.SaleNumber]; ok {
		return domain.ErrDuplicate
	}
	cp := *sale
	r.byNumber[sale.SaleNumber] = &cp
	return nil
}

func (r *fakeSaleRepo) CreateItem(item *entity.SaleItem) error {
	cp := *item
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeSaleRepo) ExistsByNumber(saleNumber string) (bool, error) {
	if r.unavailable {
		return false, domain.ErrStorageUnavailable
	}
	if r.raceOnCreate {
		return false, nil
	}
	_, ok := r.byNumber[saleNumber]
	return ok, nil
}

func (r *fakeSaleRepo) GetByNumber(saleNumber string) (*entity.Sale, error) {
	s, ok := r.byNumber[saleNumber]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

type fakeCashRepo struct {
	movements []*entity.CashMovement
}

func (r *fakeCashRepo) Create(m *entity.CashMovement) error {
	cp := *m
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *fakeCashRepo) ExistsByUUID(id string) (bool, error) {
	for _, m := range r.movements {
		if m.UUID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCashRepo) ExistsApprox(movType string, amount int64, operatorID string, movedAt time.Time) (bool, error) {
	for _, m := range r.movements {
		if m.Type == movType && m.Amount == amount && m.OperatorID == operatorID &&
			m.MovedAt.Equal(movedAt) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCashRepo) List(repository.CashMovementFilter) ([]*entity.CashMovement, error) {
	return r.movements, nil
}

type fakeUserRepo struct {
	users []*entity.User
}

func (r *fakeUserRepo) Create(*entity.User) error { return nil }

func (r *fakeUserRepo) GetByEmail(string) (*entity.User, error) { return nil, nil }

func (r *fakeUserRepo) ListActive() ([]*entity.User, error) { return r.users, nil }

type fakeBroadcaster struct {
	calls    int
	lastData interface{}
}

func (b *fakeBroadcaster) BroadcastCatalog(data interface{}) int {
	b.calls++
	b.lastData = data
	return 2
}

type fakeTxRunner struct {
	saleRepo    repository.SaleRepository
	cashRepo    repository.CashMovementRepository
	movRepo     repository.StockMovementRepository
	productRepo repository.ProductRepository
}

func (r *fakeTxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	return fn(r.movRepo, r.productRepo)
}

func (r *fakeTxRunner) RunSync(ctx context.Context, fn func(
	saleRepo repository.SaleRepository,
	cashRepo repository.CashMovementRepository,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	return fn(r.saleRepo, r.cashRepo, r.movRepo, r.productRepo)
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado
// ──────────────────────────────────────────────────────────────────────────────

type harness struct {
	uc          *appsync.SyncUseCase
	saleRepo    *fakeSaleRepo
	cashRepo    *fakeCashRepo
	movRepo     *fakeMovementRepo
	productRepo *fakeProductRepo
	broadcaster *fakeBroadcaster
}

func newHarness(products ...*entity.Product) *harness {
	return newHarnessWithCache(appsync.NoopSnapshotCache{}, products...)
}

func newHarnessWithCache(cache appsync.SnapshotCache, products ...*entity.Product) *harness {
	productRepo := &fakeProductRepo{products: make(map[string]*entity.Product)}
	for _, p := range products {
		productRepo.products[p.ID] = p
	}
	saleRepo := &fakeSaleRepo{byNumber: make(map[string]*entity.Sale)}
	cashRepo := &fakeCashRepo{}
	movRepo := &fakeMovementRepo{}
	userRepo := &fakeUserRepo{users: []*entity.User{
		{ID: "u1", Name: "Operador", Email: "op@test", PasswordHash: "$2a$10$hash", Role: entity.RoleOperator, Active: true},
	}}
	broadcaster := &fakeBroadcaster{}
	tx := &fakeTxRunner{saleRepo: saleRepo, cashRepo: cashRepo, movRepo: movRepo, productRepo: productRepo}
	ledgerUC := ledger.NewLedgerUseCase(tx, movRepo, productRepo)
	uc := appsync.NewSyncUseCase(tx, ledgerUC, saleRepo, cashRepo, productRepo, userRepo,
		cache, broadcaster, logger.Nop())
	return &harness{uc: uc, saleRepo: saleRepo, cashRepo: cashRepo, movRepo: movRepo,
		productRepo: productRepo, broadcaster: broadcaster}
}

// hitCache siempre devuelve el mismo snapshot cacheado.
type hitCache struct {
	snap *dto.CatalogSnapshot
}

func (c *hitCache) Get(context.Context) (*dto.CatalogSnapshot, bool, error) {
	return c.snap, true, nil
}

func (c *hitCache) Set(context.Context, *dto.CatalogSnapshot) error { return nil }

func (c *hitCache) Invalidate(context.Context) error { return nil }

func product(id string, stock int64) *entity.Product {
	return &entity.Product{
		ID: id, Code: "P-" + id, Description: "Producto " + id, Unit: "UN",
		SalePrice: 500, CurrentStock: stock, Active: true,
	}
}

func saleReport(number, productID string, qty int64) dto.SaleReport {
	return dto.SaleReport{
		UUID:           uuid.New().String(),
		NumeroVenda:    number,
		DataVenda:      time.Now(),
		ValorTotal:     qty * 500,
		ValorLiquido:   qty * 500,
		FormaPagamento: "DINHEIRO",
		OperadorID:     "u1",
		Itens: []dto.SaleItemReport{
			{ProdutoID: productID, Quantidade: qty, PrecoUnitario: 500, ValorTotal: qty * 500},
		},
	}
}

func cashReport(movType string, amount int64) dto.CashMovementReport {
	return dto.CashMovementReport{
		UUID:          uuid.New().String(),
		Tipo:          movType,
		Valor:         amount,
		OperadorID:    "u1",
		DataMovimento: time.Now(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Ingesta de ventas
// ──────────────────────────────────────────────────────────────────────────────

func TestIngest_VentaDecrementaStock(t *testing.T) {
	h := newHarness(product("p1", 10))

	res, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		Vendas: []dto.SaleReport{saleReport("V-001", "p1", 3)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.VendasProcessadas)
	assert.Equal(t, 0, res.VendasDuplicadas)
	assert.Empty(t, res.Erros)

	p, _ := h.productRepo.GetByID("p1")
	assert.EqualValues(t, 7, p.CurrentStock)

	require.Len(t, h.movRepo.movements, 1)
	m := h.movRepo.movements[0]
	assert.Equal(t, entity.MovementPOSSale, m.Type)
	assert.EqualValues(t, -3, m.Quantity)
	assert.Equal(t, "V-001", m.ReferenceDocument)
	assert.False(t, m.Apply.Deferred)
}

// Escenario A: el terminal reintenta el mismo lote entero. La segunda
// pasada marca todo como duplicado y el stock no se toca de nuevo.
func TestIngest_ReintentoDeLoteEsIdempotente(t *testing.T) {
	h := newHarness(product("p1", 10))
	batch := dto.SyncRequest{Vendas: []dto.SaleReport{
		saleReport("V-001", "p1", 3),
		saleReport("V-002", "p1", 2),
	}}

	res1, err := h.uc.Ingest(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, res1.VendasProcessadas)

	res2, err := h.uc.Ingest(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, res2.VendasProcessadas)
	assert.Equal(t, 2, res2.VendasDuplicadas)
	assert.Empty(t, res2.Erros, "un duplicado no es un error")

	p, _ := h.productRepo.GetByID("p1")
	assert.EqualValues(t, 5, p.CurrentStock, "el stock solo baja una vez")
	assert.Len(t, h.movRepo.movements, 2)
}

// Escenario B: dos ingest concurrentes con la misma venta. La constraint
// única decide al perdedor, que la cuenta como duplicada, no como error.
func TestIngest_CarreraDeConstraintCuentaComoDuplicado(t *testing.T) {
	h := newHarness(product("p1", 10))

	res, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		Vendas: []dto.SaleReport{saleReport("V-001", "p1", 3)},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.VendasProcessadas)

	// El pre-chequeo miente: simula la ventana entre Exists y Create.
	h.saleRepo.raceOnCreate = true
	res2, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		Vendas: []dto.SaleReport{saleReport("V-001", "p1", 3)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res2.VendasProcessadas)
	assert.Equal(t, 1, res2.VendasDuplicadas)
	assert.Empty(t, res2.Erros)
}

func TestIngest_ErrorPorItemNoAbortaElLote(t *testing.T) {
	h := newHarness(product("p1", 10))

	res, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		Vendas: []dto.SaleReport{
			saleReport("V-001", "ghost", 1), // producto inexistente
			saleReport("V-002", "p1", 2),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.VendasProcessadas)
	assert.Len(t, res.Erros, 1)
	assert.Contains(t, res.Erros[0], "V-001")

	p, _ := h.productRepo.GetByID("p1")
	assert.EqualValues(t, 8, p.CurrentStock, "la venta buena sí se aplica")
}

func TestIngest_AlmacenamientoCaidoAbortaTodo(t *testing.T) {
	h := newHarness(product("p1", 10))
	h.saleRepo.unavailable = true

	_, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		Vendas: []dto.SaleReport{saleReport("V-001", "p1", 1)},
	})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, 0, h.broadcaster.calls)
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos de caja
// ──────────────────────────────────────────────────────────────────────────────

func TestIngest_CajaConDedupPorUUID(t *testing.T) {
	h := newHarness()
	mov := cashReport(entity.CashOpening, 10000)

	res, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		MovimentosCaixa: []dto.CashMovementReport{mov},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MovimentosProcessados)

	// Mismo uuid otra vez: se omite en silencio.
	res2, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		MovimentosCaixa: []dto.CashMovementReport{mov},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res2.MovimentosProcessados)
	assert.Empty(t, res2.Erros)
	assert.Len(t, h.cashRepo.movements, 1)
}

func TestIngest_CajaConDedupAproximada(t *testing.T) {
	h := newHarness()
	now := time.Now()
	// Terminal viejo sin uuid: dedup por tipo, valor, operador y fecha-hora.
	mov := dto.CashMovementReport{
		Tipo: entity.CashWithdrawal, Valor: 5000, OperadorID: "u1", DataMovimento: now,
	}

	res, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		MovimentosCaixa: []dto.CashMovementReport{mov},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MovimentosProcessados)

	res2, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		MovimentosCaixa: []dto.CashMovementReport{mov},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res2.MovimentosProcessados)
	assert.Len(t, h.cashRepo.movements, 1)
}

func TestIngest_CajaConUUIDNuevoNoCaeEnDedupAproximada(t *testing.T) {
	h := newHarness()
	day := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	// Dos sangrias legítimas del mismo operador por el mismo valor, una a
	// las 09:00 y otra a las 17:00. Cada una trae su propio uuid, que es
	// el árbitro: ninguna debe descartarse por parecerse a la otra.
	primera := cashReport(entity.CashWithdrawal, 5000)
	primera.DataMovimento = day
	segunda := cashReport(entity.CashWithdrawal, 5000)
	segunda.DataMovimento = day.Add(8 * time.Hour)

	res, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		MovimentosCaixa: []dto.CashMovementReport{primera, segunda},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.MovimentosProcessados)
	assert.Len(t, h.cashRepo.movements, 2)
}

func TestIngest_CajaSinUUIDMismoDiaDistintaHoraNoEsDuplicado(t *testing.T) {
	h := newHarness()
	day := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	primera := dto.CashMovementReport{
		Tipo: entity.CashWithdrawal, Valor: 5000, OperadorID: "u1", DataMovimento: day,
	}
	segunda := primera
	segunda.DataMovimento = day.Add(8 * time.Hour)

	res, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		MovimentosCaixa: []dto.CashMovementReport{primera, segunda},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.MovimentosProcessados,
		"la coincidencia aproximada exige la fecha-hora exacta, no el día")
}

// ──────────────────────────────────────────────────────────────────────────────
// Difusión tras la sincronización
// ──────────────────────────────────────────────────────────────────────────────

func TestIngest_DifundeSoloSiHuboCambios(t *testing.T) {
	h := newHarness(product("p1", 10))

	// Lote con cambios: difunde.
	_, err := h.uc.Ingest(context.Background(), dto.SyncRequest{
		Vendas: []dto.SaleReport{saleReport("V-001", "p1", 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.broadcaster.calls)

	snap, ok := h.broadcaster.lastData.(*dto.CatalogSnapshot)
	require.True(t, ok, "el payload difundido es el snapshot completo")
	require.Len(t, snap.Produtos, 1)
	assert.EqualValues(t, 9, snap.Produtos[0].Estoque, "el snapshot lleva el stock ya actualizado")

	// Lote 100% duplicado: no difunde de nuevo.
	_, err = h.uc.Ingest(context.Background(), dto.SyncRequest{
		Vendas: []dto.SaleReport{saleReport("V-001", "p1", 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.broadcaster.calls)
}

func TestInitialLoad_RefrescaPreciosDeTerminal(t *testing.T) {
	p := product("p1", 10)
	p.TerminalPrice = 0 // desactualizado respecto a SalePrice
	h := newHarness(p)

	snap, err := h.uc.InitialLoad(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Produtos, 1)
	assert.EqualValues(t, 500, snap.Produtos[0].PrecoVenda)
	assert.Len(t, snap.Usuarios, 1)
	assert.NotEmpty(t, snap.Usuarios[0].PasswordHash, "los hashes viajan para login offline")
	assert.Len(t, snap.FormasPagamento, 4)

	got, _ := h.productRepo.GetByID("p1")
	assert.EqualValues(t, 500, got.TerminalPrice, "la carga inicial iguala el precio de terminal")
}

func TestInitialLoad_RefrescaPreciosAunConCacheHit(t *testing.T) {
	cached := &dto.CatalogSnapshot{FormasPagamento: dto.DefaultPaymentMethods()}
	p := product("p1", 10)
	p.TerminalPrice = 0
	h := newHarnessWithCache(&hitCache{snap: cached}, p)

	snap, err := h.uc.InitialLoad(context.Background())
	require.NoError(t, err)
	assert.Same(t, cached, snap, "con cache fresco se sirve el snapshot cacheado")

	got, _ := h.productRepo.GetByID("p1")
	assert.EqualValues(t, 500, got.TerminalPrice,
		"el refresco de precios corre aunque el snapshot salga del cache")
}

func TestBroadcastCatalog_PushManual(t *testing.T) {
	h := newHarness(product("p1", 10))

	sent, err := h.uc.BroadcastCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, h.broadcaster.calls)
}

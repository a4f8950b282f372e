package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/varejosoft/retaguarda/internal/domain/ledger"
)

func TestWeightedAverageCost(t *testing.T) {
	cases := []struct {
		name         string
		currentStock int64
		currentCost  int64
		inQty        int64
		inUnitCost   int64
		want         string
	}{
		{"primera compra", 0, 0, 10, 500, "500"},
		{"promedio simple", 10, 100, 10, 200, "150"},
		{"entrada domina", 1, 100, 99, 200, "199"},
		{"mismo costo no cambia", 50, 300, 25, 300, "300"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ledger.WeightedAverageCost(
				tc.currentStock, decimal.NewFromInt(tc.currentCost), tc.inQty, tc.inUnitCost)
			want, _ := decimal.NewFromString(tc.want)
			assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		})
	}
}

// Con stock negativo previo (ventas offline antes de la reposición) el
// denominador puede quedar en cero o negativo; el costo se resetea.
func TestWeightedAverageCost_StockNegativo(t *testing.T) {
	got := ledger.WeightedAverageCost(-5, decimal.NewFromInt(100), 5, 200)
	assert.True(t, got.IsZero(), "got %s", got)

	got = ledger.WeightedAverageCost(-10, decimal.NewFromInt(100), 5, 200)
	assert.True(t, got.IsZero(), "got %s", got)
}

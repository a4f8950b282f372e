package ledger

import "github.com/shopspring/decimal"

// WeightedAverageCost recalcula el costo promedio ponderado tras una
// recepción de mercadería (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Cantidades en unidades, costos en centavos.
func WeightedAverageCost(currentStock int64, currentCost decimal.Decimal, inQty, inUnitCost int64) decimal.Decimal {
	stock := decimal.NewFromInt(currentStock)
	qty := decimal.NewFromInt(inQty)
	sum := stock.Add(qty)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stock.Mul(currentCost).Add(qty.Mul(decimal.NewFromInt(inUnitCost)))
	return num.Div(sum)
}

package engine

import (
	"github.com/samber/lo"
	"github.com/vcscsvcscs/medwatch/pkg/model"
)

// DefaultLowStockThreshold applies to medicines without their own threshold
const DefaultLowStockThreshold = 7

// StockPolicy configures the Stock Monitor
type StockPolicy struct {
	DefaultThreshold int
}

// ThresholdFor returns the medicine's own threshold, falling back to the policy default
func (p StockPolicy) ThresholdFor(m model.Medicine) int {
	if m.LowStockThreshold != nil {
		return *m.LowStockThreshold
	}
	return p.DefaultThreshold
}

// FlagLowStock returns the active medicines whose stock is at or below their threshold
func FlagLowStock(medicines []model.Medicine, policy StockPolicy) []model.Medicine {
	return lo.Filter(medicines, func(m model.Medicine, _ int) bool {
		return m.Active && m.Stock <= policy.ThresholdFor(m)
	})
}

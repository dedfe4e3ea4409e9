package allocation

import "github.com/shopspring/decimal"

// StockPool is the running balance of available quantity per material code
// during one reconciliation run. Balances only ever go down and never below
// zero. A pool belongs to exactly one run; sharing one across runs would let
// unrelated requests steal each other's stock.
type StockPool struct {
	remaining    map[string]decimal.Decimal
	descriptions map[string]string
}

// NewStockPool builds a pool from the stock table. Duplicate material codes
// are summed into a single balance; the first description seen for a code
// wins. Negative on-hand quantities are clamped to zero.
func NewStockPool(stock []StockEntry) *StockPool {
	p := &StockPool{
		remaining:    make(map[string]decimal.Decimal, len(stock)),
		descriptions: make(map[string]string, len(stock)),
	}
	for _, entry := range stock {
		qty := entry.AvailableQty
		if qty.IsNegative() {
			qty = decimal.Zero
		}
		p.remaining[entry.MaterialCode] = p.remaining[entry.MaterialCode].Add(qty)
		if _, seen := p.descriptions[entry.MaterialCode]; !seen {
			p.descriptions[entry.MaterialCode] = entry.StockDescription
		}
	}
	return p
}

// Remaining returns the current balance for a material code. Codes that never
// appeared in the stock table report zero.
func (p *StockPool) Remaining(code string) decimal.Decimal {
	return p.remaining[code]
}

// Description returns the stock description recorded for a code, empty when
// the code has no stock entry.
func (p *StockPool) Description(code string) string {
	return p.descriptions[code]
}

// Codes returns every material code known to the pool, in no particular
// order.
func (p *StockPool) Codes() []string {
	codes := make([]string, 0, len(p.remaining))
	for code := range p.remaining {
		codes = append(codes, code)
	}
	return codes
}

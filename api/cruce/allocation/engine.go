// Package allocation reconciles requested material quantities against SAP
// on-hand stock. Requests consume a per-run StockPool strictly in input
// order: first come, first served per material code. A request that the pool
// can only partly cover is split into a dispatchable portion and a terminal
// unmet remainder, so shortfall stays visible in the output instead of being
// dropped.
package allocation

import "github.com/shopspring/decimal"

// Reconcile builds a fresh pool from the stock table, consumes it across the
// request sequence in input order, and returns the dispatch plan with its
// metrics. Zero-row inputs are valid and yield an empty plan with zero
// metrics. The pool is local to the call.
func Reconcile(requests []RequestLine, stock []StockEntry) ([]OutputLine, Metrics) {
	pool := NewStockPool(stock)
	out := make([]OutputLine, 0, len(requests))
	for _, req := range requests {
		out = append(out, pool.Allocate(req)...)
	}
	return out, Summarize(out)
}

// Allocate consumes pool balance for one request line, mutating the pool in
// place. It emits one line when the request is fully served or fully unmet,
// and two when the balance runs out mid-request: the served portion labeled
// "Si" followed by the remainder labeled "No". Each emitted line carries the
// quantity portion it accounts for, so allocated + unmet = requested holds
// line by line. The remainder is terminal; it is never retried against other
// codes. Unmatched codes behave as zero balance with an empty description.
func (p *StockPool) Allocate(req RequestLine) []OutputLine {
	line := OutputLine{
		ItemID:              req.ItemID,
		MaterialCode:        req.MaterialCode,
		MaterialDescription: req.MaterialDescription,
		SiteCode:            req.SiteCode,
		PlanName:            req.PlanName,
		StockDescription:    p.Description(req.MaterialCode),
		AllocatedQty:        decimal.Zero,
		UnmetQty:            decimal.Zero,
		Dispatchable:        DispatchableNo,
	}

	requested := req.RequestedQty
	if requested.IsNegative() {
		requested = decimal.Zero
	}
	line.RequestedQty = requested

	if requested.IsZero() {
		// Nothing asked for: record the row, leave the pool alone.
		return []OutputLine{line}
	}

	balance := p.remaining[req.MaterialCode]
	switch {
	case balance.GreaterThanOrEqual(requested):
		line.AllocatedQty = requested
		line.Dispatchable = DispatchableYes
		p.remaining[req.MaterialCode] = balance.Sub(requested)
		return []OutputLine{line}

	case balance.GreaterThan(decimal.Zero):
		served := line
		served.RequestedQty = balance
		served.AllocatedQty = balance
		served.Dispatchable = DispatchableYes

		shortfall := requested.Sub(balance)
		remainder := line
		remainder.RequestedQty = shortfall
		remainder.UnmetQty = shortfall

		p.remaining[req.MaterialCode] = decimal.Zero
		return []OutputLine{served, remainder}

	default:
		line.UnmetQty = requested
		return []OutputLine{line}
	}
}

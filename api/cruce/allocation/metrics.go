package allocation

import "github.com/shopspring/decimal"

// Summarize aggregates a dispatch plan: total rows, total unmet quantity, and
// how many rows are dispatchable. Pure over its input, so re-running it on
// the same plan always yields identical metrics; an empty plan yields zero
// metrics.
func Summarize(lines []OutputLine) Metrics {
	m := Metrics{
		RowCount:   len(lines),
		TotalUnmet: decimal.Zero,
	}
	for _, line := range lines {
		m.TotalUnmet = m.TotalUnmet.Add(line.UnmetQty)
		if line.Dispatchable == DispatchableYes {
			m.DispatchableCount++
		}
	}
	return m
}

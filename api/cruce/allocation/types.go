package allocation

import "github.com/shopspring/decimal"

// Dispatchability labels stamped on every output line.
const (
	DispatchableYes = "Si"
	DispatchableNo  = "No"
)

// RequestLine is one row of the materials-to-dispatch table after column
// mapping. Quantities arrive coerced; dirty cells have already been defaulted
// to zero upstream.
type RequestLine struct {
	ItemID              string          `json:"item_id"`
	MaterialCode        string          `json:"material_code"`
	MaterialDescription string          `json:"material_description"`
	SiteCode            string          `json:"site_code"`
	PlanName            string          `json:"plan_name"`
	RequestedQty        decimal.Decimal `json:"requested_qty"`
}

// StockEntry is one row of the SAP on-hand table. ItemID is informational
// only; requests join against stock by MaterialCode.
type StockEntry struct {
	ItemID           string          `json:"item_id"`
	StockDescription string          `json:"stock_description"`
	MaterialCode     string          `json:"material_code"`
	AvailableQty     decimal.Decimal `json:"available_qty"`
}

// OutputLine is one row of the dispatch plan. A request line spawns one
// OutputLine when fully served or fully unmet, and two when stock ran out
// mid-request. On every line AllocatedQty + UnmetQty equals RequestedQty.
type OutputLine struct {
	ItemID              string          `json:"item_id"`
	MaterialCode        string          `json:"material_code"`
	MaterialDescription string          `json:"material_description"`
	SiteCode            string          `json:"site_code"`
	PlanName            string          `json:"plan_name"`
	RequestedQty        decimal.Decimal `json:"requested_qty"`
	StockDescription    string          `json:"stock_description"`
	AllocatedQty        decimal.Decimal `json:"allocated_qty"`
	UnmetQty            decimal.Decimal `json:"unmet_qty"`
	Dispatchable        string          `json:"dispatchable"`
}

// Metrics summarizes one reconciliation run.
type Metrics struct {
	RowCount          int             `json:"row_count"`
	TotalUnmet        decimal.Decimal `json:"total_unmet"`
	DispatchableCount int             `json:"dispatchable_count"`
}

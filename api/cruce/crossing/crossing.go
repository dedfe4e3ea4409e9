// Package crossing reconciles a master table of pending work-order material
// against a processed dispatch plan. Each dispatch row consumes the master
// record matching its (site code, item) key exactly once; dispatched
// quantity draws the record's balance down, going negative on deficit so the
// shortfall stays visible. Consumed records are stamped with the observation
// and the new work-order reference; master records nothing consumed are
// appended untouched at the end.
package crossing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"CruceMaterialSap/api/constants"
)

// Crossed labels. The crossing vocabulary is uppercase, unlike the dispatch
// plan's "Si"/"No".
const (
	CrossedYes = "SI"
	CrossedNo  = "NO"
)

// MasterRecord is one row of the pending-dispatch master table, keyed by
// (SiteCode, ItemID).
type MasterRecord struct {
	SiteCode     string          `json:"site_code"`
	ItemID       string          `json:"item_id"`
	Description  string          `json:"description"`
	Balance      decimal.Decimal `json:"balance"`
	DispatchDate time.Time       `json:"dispatch_date"`
}

// DispatchRow is one row of the processed dispatch plan being crossed back
// against the master.
type DispatchRow struct {
	SiteCode     string          `json:"site_code"`
	ItemID       string          `json:"item_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Dispatchable string          `json:"dispatchable"`
}

// CrossedRow is one output row. Untouched master rows carry an empty Crossed
// label and no stamps.
type CrossedRow struct {
	SiteCode     string          `json:"site_code"`
	ItemID       string          `json:"item_id"`
	Description  string          `json:"description"`
	ConsumedQty  decimal.Decimal `json:"consumed_qty"`
	Balance      decimal.Decimal `json:"balance"`
	Crossed      string          `json:"crossed"`
	Observation  string          `json:"observation"`
	NewWorkOrder string          `json:"new_work_order"`
	NewJobNumber string          `json:"new_job_number"`
	CompositeRef string          `json:"composite_ref"`
	DispatchDate string          `json:"dispatch_date"`
}

// Summary aggregates one crossing run.
type Summary struct {
	RowCount       int `json:"row_count"`
	CrossedCount   int `json:"crossed_count"`
	DeficitCount   int `json:"deficit_count"`
	UntouchedCount int `json:"untouched_count"`
}

// Params are the operator inputs stamped onto every consumed row.
type Params struct {
	Observation  string `json:"observation"`
	NewWorkOrder string `json:"new_work_order"`
	NewJobNumber string `json:"new_job_number"`
}

// Cross runs the reconciliation. Dispatch rows with no master match are
// skipped: the master side drives the output. A dispatch row whose label is
// not dispatchable still consumes its master record but passes it through
// unstamped. Exact duplicate output rows are dropped, as are rows without a
// site code.
func Cross(master []MasterRecord, dispatch []DispatchRow, p Params) ([]CrossedRow, Summary) {
	p.NewJobNumber = PadJobNumber(p.NewJobNumber)

	index := newMasterIndex(master)
	rows := make([]CrossedRow, 0, len(master)+len(dispatch))

	for _, d := range dispatch {
		rec, ok := index.pop(d.SiteCode, d.ItemID)
		if !ok {
			continue
		}
		if !isDispatched(d.Dispatchable) {
			rows = append(rows, untouched(rec))
			continue
		}

		qty := d.Quantity
		balance := rec.Balance
		if balance.GreaterThanOrEqual(qty) {
			after := balance.Sub(qty)
			// Fully crossed only when the balance lands exactly on zero;
			// leftover balance means the record is still open.
			label := CrossedNo
			if after.IsZero() {
				label = CrossedYes
			}
			rows = append(rows, stamp(rec, qty, after, label, p))
		} else {
			used := balance
			if used.IsNegative() {
				used = decimal.Zero
			}
			deficit := qty.Sub(used)
			rows = append(rows, stamp(rec, used, decimal.Zero, CrossedYes, p))
			rows = append(rows, stamp(rec, deficit, deficit.Neg(), CrossedNo, p))
		}
	}

	for _, rec := range index.remainder() {
		rows = append(rows, untouched(rec))
	}

	rows = dedupe(rows)
	return rows, summarize(rows)
}

// PadJobNumber left-pads a job number with zeros to width two.
func PadJobNumber(s string) string {
	s = strings.TrimSpace(s)
	for len(s) < 2 {
		s = "0" + s
	}
	return s
}

func isDispatched(label string) bool {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "SI", "SÍ":
		return true
	}
	return false
}

func stamp(rec MasterRecord, consumed, balance decimal.Decimal, label string, p Params) CrossedRow {
	return CrossedRow{
		SiteCode:     rec.SiteCode,
		ItemID:       rec.ItemID,
		Description:  rec.Description,
		ConsumedQty:  consumed,
		Balance:      balance,
		Crossed:      label,
		Observation:  p.Observation,
		NewWorkOrder: p.NewWorkOrder,
		NewJobNumber: p.NewJobNumber,
		CompositeRef: p.NewWorkOrder + p.NewJobNumber + "-" + rec.ItemID,
		DispatchDate: formatDate(rec.DispatchDate),
	}
}

func untouched(rec MasterRecord) CrossedRow {
	return CrossedRow{
		SiteCode:     rec.SiteCode,
		ItemID:       rec.ItemID,
		Description:  rec.Description,
		ConsumedQty:  decimal.Zero,
		Balance:      rec.Balance,
		DispatchDate: formatDate(rec.DispatchDate),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(constants.DateFormatLatam)
}

type crossKey struct {
	site string
	item string
}

// masterIndex keys master records for pop-on-consume lookup while keeping
// the unconsumed remainder in original file order. Duplicate keys keep the
// last record, like the source table rebuilt row by row.
type masterIndex struct {
	keys    []crossKey
	records map[crossKey]MasterRecord
}

func newMasterIndex(master []MasterRecord) *masterIndex {
	idx := &masterIndex{records: make(map[crossKey]MasterRecord, len(master))}
	for _, rec := range master {
		if strings.TrimSpace(rec.SiteCode) == "" {
			continue
		}
		key := crossKey{site: rec.SiteCode, item: rec.ItemID}
		if _, seen := idx.records[key]; !seen {
			idx.keys = append(idx.keys, key)
		}
		idx.records[key] = rec
	}
	return idx
}

func (idx *masterIndex) pop(site, item string) (MasterRecord, bool) {
	key := crossKey{site: site, item: item}
	rec, ok := idx.records[key]
	if ok {
		delete(idx.records, key)
	}
	return rec, ok
}

func (idx *masterIndex) remainder() []MasterRecord {
	out := make([]MasterRecord, 0, len(idx.records))
	for _, key := range idx.keys {
		if rec, ok := idx.records[key]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func dedupe(rows []CrossedRow) []CrossedRow {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, row := range rows {
		if strings.TrimSpace(row.SiteCode) == "" {
			continue
		}
		fp := strings.Join([]string{
			row.SiteCode, row.ItemID, row.Description,
			row.ConsumedQty.String(), row.Balance.String(), row.Crossed,
			row.Observation, row.NewWorkOrder, row.NewJobNumber,
			row.CompositeRef, row.DispatchDate,
		}, "\x1f")
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, row)
	}
	return out
}

func summarize(rows []CrossedRow) Summary {
	s := Summary{RowCount: len(rows)}
	for _, row := range rows {
		switch row.Crossed {
		case CrossedYes:
			s.CrossedCount++
		case "":
			s.UntouchedCount++
		}
		if row.Balance.IsNegative() {
			s.DeficitCount++
		}
	}
	return s
}

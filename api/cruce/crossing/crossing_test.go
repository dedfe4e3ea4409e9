package crossing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func num(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func masterRec(site, item, balance string) MasterRecord {
	return MasterRecord{
		SiteCode:     site,
		ItemID:       item,
		Description:  "TUBO PVC 1/2",
		Balance:      num(balance),
		DispatchDate: time.Date(2025, 5, 27, 0, 0, 0, 0, time.UTC),
	}
}

func dispatchRow(site, item, qty, label string) DispatchRow {
	return DispatchRow{SiteCode: site, ItemID: item, Quantity: num(qty), Dispatchable: label}
}

var params = Params{
	Observation:  "PLANILLA DESCARGUE MATERIAL",
	NewWorkOrder: "206012025020002",
	NewJobNumber: "3",
}

func TestCrossFullConsumptionIsCrossedOnlyAtZeroBalance(t *testing.T) {
	master := []MasterRecord{masterRec("OB-1", "10", "5")}

	rows, s := Cross(master, []DispatchRow{dispatchRow("OB-1", "10", "5", "Si")}, params)
	require.Len(t, rows, 1)
	require.Equal(t, CrossedYes, rows[0].Crossed)
	require.True(t, rows[0].ConsumedQty.Equal(num("5")))
	require.True(t, rows[0].Balance.IsZero())
	require.Equal(t, 1, s.CrossedCount)

	// Partial draw leaves the record open.
	rows, _ = Cross([]MasterRecord{masterRec("OB-1", "10", "5")},
		[]DispatchRow{dispatchRow("OB-1", "10", "3", "si")}, params)
	require.Len(t, rows, 1)
	require.Equal(t, CrossedNo, rows[0].Crossed)
	require.True(t, rows[0].Balance.Equal(num("2")))
}

func TestCrossDeficitSplitsWithNegativeBalance(t *testing.T) {
	master := []MasterRecord{masterRec("OB-1", "10", "4")}

	rows, s := Cross(master, []DispatchRow{dispatchRow("OB-1", "10", "7", "SI")}, params)
	require.Len(t, rows, 2)

	require.Equal(t, CrossedYes, rows[0].Crossed)
	require.True(t, rows[0].ConsumedQty.Equal(num("4")))
	require.True(t, rows[0].Balance.IsZero())

	require.Equal(t, CrossedNo, rows[1].Crossed)
	require.True(t, rows[1].ConsumedQty.Equal(num("3")))
	require.True(t, rows[1].Balance.Equal(num("-3")))

	require.Equal(t, 1, s.DeficitCount)
}

func TestCrossNegativeStartingBalanceConsumesNothing(t *testing.T) {
	master := []MasterRecord{masterRec("OB-1", "10", "-2")}

	rows, _ := Cross(master, []DispatchRow{dispatchRow("OB-1", "10", "3", "SI")}, params)
	require.Len(t, rows, 2)
	require.True(t, rows[0].ConsumedQty.IsZero())
	require.True(t, rows[0].Balance.IsZero())
	require.True(t, rows[1].ConsumedQty.Equal(num("3")))
	require.True(t, rows[1].Balance.Equal(num("-3")))
}

func TestCrossStampsConsumedRows(t *testing.T) {
	master := []MasterRecord{masterRec("OB-1", "10", "5")}

	rows, _ := Cross(master, []DispatchRow{dispatchRow("OB-1", "10", "5", "SÍ")}, params)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "PLANILLA DESCARGUE MATERIAL", row.Observation)
	require.Equal(t, "206012025020002", row.NewWorkOrder)
	require.Equal(t, "03", row.NewJobNumber)
	require.Equal(t, "20601202502000203-10", row.CompositeRef)
	require.Equal(t, "27/05/2025", row.DispatchDate)
}

func TestCrossNonDispatchedRowConsumesRecordButLeavesItUnstamped(t *testing.T) {
	master := []MasterRecord{masterRec("OB-1", "10", "5")}

	rows, s := Cross(master, []DispatchRow{dispatchRow("OB-1", "10", "5", "No")}, params)
	require.Len(t, rows, 1)
	require.Empty(t, rows[0].Crossed)
	require.Empty(t, rows[0].Observation)
	require.True(t, rows[0].ConsumedQty.IsZero())
	require.True(t, rows[0].Balance.Equal(num("5")))
	require.Equal(t, 1, s.UntouchedCount)
}

func TestCrossSkipsDispatchRowsWithoutMasterMatch(t *testing.T) {
	master := []MasterRecord{masterRec("OB-1", "10", "5")}

	rows, _ := Cross(master, []DispatchRow{dispatchRow("OB-9", "99", "2", "SI")}, params)
	require.Len(t, rows, 1)
	require.Empty(t, rows[0].Crossed) // untouched master remainder only
}

func TestCrossAppendsUnconsumedMasterInFileOrder(t *testing.T) {
	master := []MasterRecord{
		masterRec("OB-1", "10", "5"),
		masterRec("OB-2", "20", "1"),
		masterRec("OB-3", "30", "2"),
	}

	rows, s := Cross(master, []DispatchRow{dispatchRow("OB-2", "20", "1", "SI")}, params)
	require.Len(t, rows, 3)
	require.Equal(t, "OB-2", rows[0].SiteCode)
	require.Equal(t, "OB-1", rows[1].SiteCode)
	require.Equal(t, "OB-3", rows[2].SiteCode)
	require.Equal(t, 2, s.UntouchedCount)
}

func TestCrossRecordConsumedOnlyOnce(t *testing.T) {
	master := []MasterRecord{masterRec("OB-1", "10", "10")}
	dispatch := []DispatchRow{
		dispatchRow("OB-1", "10", "4", "SI"),
		dispatchRow("OB-1", "10", "4", "SI"), // second draw finds nothing
	}

	rows, _ := Cross(master, dispatch, params)
	require.Len(t, rows, 1)
	require.True(t, rows[0].ConsumedQty.Equal(num("4")))
	require.True(t, rows[0].Balance.Equal(num("6")))
}

func TestCrossDuplicateMasterKeysKeepLastRecord(t *testing.T) {
	master := []MasterRecord{
		{SiteCode: "OB-1", ItemID: "10", Description: "PRIMERA", Balance: num("5")},
		{SiteCode: "OB-1", ItemID: "10", Description: "SEGUNDA", Balance: num("7")},
	}

	rows, _ := Cross(master, nil, params)
	require.Len(t, rows, 1)
	require.Equal(t, "SEGUNDA", rows[0].Description)
	require.True(t, rows[0].Balance.Equal(num("7")))
}

func TestPadJobNumber(t *testing.T) {
	require.Equal(t, "03", PadJobNumber("3"))
	require.Equal(t, "13", PadJobNumber("13"))
	require.Equal(t, "00", PadJobNumber(""))
	require.Equal(t, "123", PadJobNumber("123"))
}

func TestResolveAndBuildMasterRecords(t *testing.T) {
	headers := []string{"CODIGO OBRA SGT", "Item", "DESCRIPCION", "SALDO", "FECHA DESCAR SGT"}
	m, err := ResolveMasterColumns(headers, nil)
	require.NoError(t, err)

	recs := BuildMasterRecords([][]string{
		{"OB-1", "10", "TUBO PVC", "4.5", "27/05/2025"},
		{"", "20", "SIN OBRA", "1", ""}, // dropped, no site code
		{"OB-2", "30", "CABLE", "-2", "fecha mala"},
	}, m)

	require.Len(t, recs, 2)
	require.Equal(t, "OB-1", recs[0].SiteCode)
	require.True(t, recs[0].Balance.Equal(num("4.5")))
	require.Equal(t, time.Date(2025, 5, 27, 0, 0, 0, 0, time.UTC), recs[0].DispatchDate)
	require.True(t, recs[1].Balance.Equal(num("-2")))
	require.True(t, recs[1].DispatchDate.IsZero())
}

func TestResolveDispatchColumnsAcceptsCanonicalExportHeaders(t *testing.T) {
	headers := []string{"item_id", "site_code", "requested_qty", "dispatchable"}
	m, err := ResolveDispatchColumns(headers, nil)
	require.NoError(t, err)

	rows := BuildDispatchRows([][]string{{"10", "OB-1", "4", "Si"}}, m)
	require.Len(t, rows, 1)
	require.Equal(t, "OB-1", rows[0].SiteCode)
	require.Equal(t, "10", rows[0].ItemID)
	require.True(t, rows[0].Quantity.Equal(num("4")))
}

func TestResolveMasterColumnsMissingBalanceFails(t *testing.T) {
	_, err := ResolveMasterColumns([]string{"CODIGO OBRA SGT", "Item"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), FieldBalance)
}

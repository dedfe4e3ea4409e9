package config

const (
	DefaultTimeZone = "America/Lima"

	// Service ports. The gateway fronts everything else.
	GatewayPort = 8081
	CrucePort   = 7143

	// Workbook defaults when the caller names no sheet. Matching is a
	// case-insensitive substring test against each sheet name.
	RequestSheetKeyword = "material por descargar"
	StockSheetKeyword   = "existencia"

	// Rows returned by process/inspect previews unless the caller asks
	// for fewer.
	PreviewRowLimit = 15

	// Rows sampled per column when analyzing a sheet.
	InspectSampleRows = 10

	// Batch size for staging run lines through CopyFrom.
	CopyBatchSize = 1000

	// Recently processed upload hashes kept for repeat-upload warnings.
	UploadHistorySize = 128

	// Retention Configuration Constants
	DefaultRetentionSchedule = "0 3 * * *" // Purge expired runs nightly at 03:00
	RetentionDays            = 90
	RetentionBatchSize       = 500
)

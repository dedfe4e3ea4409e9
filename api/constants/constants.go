package constants

// Common error messages
const (
	ErrInvalidJSON           = "invalid json or missing fields"
	ErrMissingUploadFile     = "missing upload file"
	ErrUnsupportedFileType   = "unsupported file type"
	ErrSheetNotFound         = "sheet not found in workbook"
	ErrEmptySheet            = "sheet has no header row"
	ErrMissingRequiredColumn = "required column missing after mapping"
	ErrInvalidMappingJSON    = "invalid column mapping json"
	ErrDBConnection          = "database connection unavailable"
	ErrRunNotFound           = "run not found"
	ErrPresetNotFound        = "mapping preset not found"
	ErrInvalidPresetSide     = "preset side must be 'requests' or 'stock'"
	ErrQueryFailed           = "query failed: "
	ErrTxStartFailed         = "failed to start transaction: "
	ErrTxCommitFailed        = "failed to commit transaction: "
)

// Preset sides
const (
	PresetSideRequests = "requests"
	PresetSideStock    = "stock"
)

// Content types
const (
	ContentTypeJSON = "application/json"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Date formats
const (
	DateTimeFormat  = "2006-01-02 15:04:05"
	DateFormat      = "2006-01-02"
	DateFormatLatam = "02/01/2006"
	DateFormatStamp = "20060102_150405"
)

package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldBackend     = "backend"
	FieldUserID      = "user_id"
	FieldTxID        = "tx_id"
	FieldTxType      = "tx_type"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldDate        = "date"
	FieldPeriod      = "period"
	FieldCount       = "count"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentLedger   = "ledger"
	ComponentSnapshot = "snapshot"
	ComponentStorage  = "storage"
	ComponentSheets   = "sheets"
	ComponentTransfer = "transfer"
	ComponentSession  = "session"
	ComponentAuth     = "auth"
	ComponentAdvisory = "advisory"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentBackup   = "backup"
	ComponentBackend  = "backend"
)

// Operations defines standard operation names
const (
	OpLoad     = "load"
	OpInsert   = "insert"
	OpDelete   = "delete"
	OpImport   = "import"
	OpExport   = "export"
	OpAdvise   = "advise"
	OpBackup   = "backup"
	OpSignIn   = "sign_in"
	OpSignOut  = "sign_out"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypePersistence   = "persistence_error"
	ErrorTypeDecoding      = "decoding_error"
	ErrorTypeEncoding      = "encoding_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeAdvisory      = "advisory_error"
	ErrorTypeNetwork       = "network_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds the error text and its category.
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = errorType
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithTransaction adds the loggable parts of a transaction. Descriptions are
// left out on purpose: they are free text typed by the user.
func (f LogFields) WithTransaction(id, txType string, amountCents int64, category, date string) LogFields {
	f[FieldTxID] = id
	f[FieldTxType] = txType
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	f[FieldDate] = date
	return f
}

func (f LogFields) WithCount(n int) LogFields {
	f[FieldCount] = n
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}

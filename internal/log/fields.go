package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldBillID      = "bill_id"
	FieldExpenseID   = "expense_id"
	FieldBatchID     = "batch_id"
	FieldFileName    = "file_name"
	FieldFileCount   = "file_count"
	FieldRowCount    = "row_count"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldPage        = "page"
	FieldAmountCents = "amount_cents"
	FieldSupplier    = "supplier"
	FieldGroupKey    = "group_key"
	FieldDuration    = "duration_ms"
	FieldSheet       = "sheet"
	FieldVersion     = "version"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentCLI       = "cli"
	ComponentStatement = "statement"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentReport    = "report"
	ComponentSheets    = "sheets"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpImport   = "import"
	OpExport   = "export"
	OpSummary  = "summary"
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSync     = "sync"
	OpValidate = "validate"
	OpParse    = "parse"
	OpRender   = "render"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithBill(billID int64, year int) LogFields {
	f[FieldBillID] = billID
	if year != 0 {
		f[FieldYear] = year
	}
	return f
}

func (f LogFields) WithBatch(batchID string, files int) LogFields {
	f[FieldBatchID] = batchID
	f[FieldFileCount] = files
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

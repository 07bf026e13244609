package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldCollection   = "collection"
	FieldDocumentID   = "document_id"
	FieldUserID       = "user_id"
	FieldAction       = "action"
	FieldExpenseName  = "expense_name"
	FieldAmount       = "amount"
	FieldCategory     = "category"
	FieldCount        = "count"
	FieldYear         = "year"
	FieldMonth        = "month"
	FieldBackend      = "backend"
	FieldSubscription = "subscription_id"
	FieldExchange     = "exchange"
	FieldQueue        = "queue"
	FieldChannel      = "channel"
	FieldPath         = "path"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentGateway = "gateway"
	ComponentHistory = "history"
	ComponentStorage = "storage"
	ComponentWatch   = "watch"
	ComponentAMQP    = "amqp"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpMerge     = "merge"
	OpDelete    = "delete"
	OpQuery     = "query"
	OpWatch     = "watch"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpMigrate   = "migrate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
	OpCascade   = "cascade"
	OpRecord    = "record"
	OpAggregate = "aggregate"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithDocument adds the collection path and, when set, the document id.
func (f LogFields) WithDocument(collection, id string) LogFields {
	f[FieldCollection] = collection
	if id != "" {
		f[FieldDocumentID] = id
	}
	return f
}

// WithUser adds the acting user id.
func (f LogFields) WithUser(userID string) LogFields {
	if userID != "" {
		f[FieldUserID] = userID
	}
	return f
}

// WithExpense adds the fields a history entry is built from.
func (f LogFields) WithExpense(name string, amount float64, category string) LogFields {
	f[FieldExpenseName] = name
	f[FieldAmount] = amount
	f[FieldCategory] = category
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

package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldAccountID     = "account_id"
	FieldCategoryID    = "category_id"
	FieldTransactionID = "transaction_id"
	FieldTxType        = "transaction_type"
	FieldAmountCents   = "amount_cents"
	FieldBalanceCents  = "balance_cents"
	FieldCurrency      = "currency"
	FieldYear          = "year"
	FieldMonth         = "month"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentAccounts  = "accounts"
	ComponentCategory  = "categories"
	ComponentUsers     = "users"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpReverse  = "reverse"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldAccount   = "account"
	FieldMonth     = "month"
	FieldCategory  = "category"
	FieldAmount    = "amount"
	FieldCount     = "count"
	FieldPath      = "path"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentRules     = "rules"
	ComponentAnalytics = "analytics"
	ComponentSavings   = "savings"
	ComponentStorage   = "storage"
	ComponentBank      = "bank"
	ComponentAMQP      = "amqp"
)

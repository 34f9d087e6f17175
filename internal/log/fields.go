package log

// Field names for structured logging.
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatusCode     = "status"
	FieldDuration       = "duration_ms"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldCategoryID     = "category_id"
	FieldCategoryName   = "category_name"
	FieldCategoryType   = "category_type"
	FieldNotificationID = "notification_id"
	FieldStoreKey       = "key"
	FieldSource         = "source"
	FieldCount          = "count"
	FieldDelay          = "delay"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentSource    = "source"
	ComponentNotify    = "notify"
	ComponentScheduler = "scheduler"
	ComponentAMQP      = "amqp"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
)

// Operation names.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpArchive = "archive"
	OpRestore = "restore"
	OpReload  = "reload"
	OpRefresh = "refresh"
	OpPersist = "persist"
	OpParse   = "parse"
	OpPublish = "publish"
)

// Fields builds a list of structured log attributes.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

// WithCategory adds the identifying fields of a category.
func (f Fields) WithCategory(id int64, name, typ string) Fields {
	if id != 0 {
		f[FieldCategoryID] = id
	}
	f[FieldCategoryName] = name
	f[FieldCategoryType] = typ
	return f
}

func (f Fields) WithRequest(method, path, clientIP string) Fields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldClientIP] = clientIP
	return f
}

func (f Fields) WithResponse(status int, durationMs int64) Fields {
	f[FieldStatusCode] = status
	f[FieldDuration] = durationMs
	return f
}

// Args flattens the fields into slog key/value arguments.
func (f Fields) Args() []any {
	args := make([]any, 0, len(f)*2)
	for k, v := range f {
		args = append(args, k, v)
	}
	return args
}

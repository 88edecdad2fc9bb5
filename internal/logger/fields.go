package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain on the context logger.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldListDate is the calendar day a document list query is scoped to
	FieldListDate = "list_date"

	// FieldDocumentKey is the stable identity of a document record
	FieldDocumentKey = "document_key"

	// FieldSubmissionID is the local journal ID of a submit attempt
	FieldSubmissionID = "submission_id"

	// FieldNotificationID is the ID of a queued user notification
	FieldNotificationID = "notification_id"
)

// Metric fields, attached to single entries for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)

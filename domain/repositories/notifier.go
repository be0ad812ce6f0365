package repositories

// Severity classifies a notification for the shell's presentation layer.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notification is a transient, dismissable user-facing notice.
type Notification struct {
	Title       string
	Description string
	Severity    Severity
}

// Notifier is implemented by the shell to surface notifications. Every
// transport or device failure produces exactly one notification through this
// interface.
type Notifier interface {
	Notify(n Notification)
}

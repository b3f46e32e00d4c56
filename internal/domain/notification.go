package domain

// NotificationLevel mirrors the severity of an operator notification.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a short operator-facing message about something the
// back office did, e.g. the outcome of an income sync.
type Notification struct {
	Event   string            `json:"event"` // income.synced, income.retracted, expense.recorded
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
	Ref     string            `json:"ref,omitempty"`
	Count   int               `json:"count,omitempty"`
	At      string            `json:"at"`
}

const (
	EventIncomeSynced    = "income.synced"
	EventIncomeRetracted = "income.retracted"
	EventExpenseRecorded = "expense.recorded"
)

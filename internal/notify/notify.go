package notify

import "strings"

type Severity string

const (
	SeverityDefault     Severity = "default"
	SeveritySuccess     Severity = "success"
	SeverityDestructive Severity = "destructive"
)

// Notification is the feedback triple produced for every command outcome.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Sink accepts notifications for presentation.
type Sink interface {
	Notify(n Notification)
}

func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(SeveritySuccess):
		return SeveritySuccess
	case string(SeverityDestructive), "error":
		return SeverityDestructive
	default:
		return SeverityDefault
	}
}

func (n Notification) String() string {
	if n.Description == "" {
		return n.Title
	}
	if n.Title == "" {
		return n.Description
	}
	return n.Title + ": " + n.Description
}

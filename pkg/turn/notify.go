package turn

import "go.uber.org/zap"

type Level string

const (
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-visible message raised during a turn.
type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type notifier struct {
	log   *zap.SugaredLogger
	items []Notification
}

func (n *notifier) warn(title, msg string) {
	n.log.Warnw(msg, "title", title)
	n.items = append(n.items, Notification{Level: LevelWarning, Title: title, Message: msg})
}

func (n *notifier) fail(title, msg string) {
	n.log.Errorw(msg, "title", title)
	n.items = append(n.items, Notification{Level: LevelError, Title: title, Message: msg})
}

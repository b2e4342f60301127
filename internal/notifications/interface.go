package notifications

// Notifier defines the interface for sending alerts
type Notifier interface {
	SendAlert(level, message string) error
}

// NoopNotifier discards all alerts. Used when no channel is configured.
type NoopNotifier struct{}

// SendAlert discards the alert.
func (NoopNotifier) SendAlert(level, message string) error {
	return nil
}

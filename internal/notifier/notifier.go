package notifier

import (
	"fmt"
	"log"
)

// Notifier abstracts the delivery channel (LINE/Email/Slack); the worker
// only formats.
type Notifier interface {
	Notify(subject, message string) error
}

// ConsoleNotifier logs to stdout; the default until a real channel is wired.
type ConsoleNotifier struct{}

func NewConsole() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (c *ConsoleNotifier) Notify(subject, message string) error {
	log.Printf("[notify] %s :: %s\n", subject, message)
	return nil
}

// SessionLine renders the day/time/date block shared by most messages.
func SessionLine(day, timeRange, date string) string {
	return fmt.Sprintf("%s %s (%s)", day, timeRange, date)
}

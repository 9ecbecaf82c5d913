package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jordanella.com/mtg-scanner-go/internal/events"
)

// EventLogger subscribes to the event bus and writes every event to a file
type EventLogger struct {
	logger   *Logger
	eventBus events.EventBus
	subIDs   []events.SubscriptionID
	logFile  *os.File
	path     string
}

// NewEventLogger creates an events_<timestamp>.log file under logDir and
// subscribes to every event type
func NewEventLogger(eventBus events.EventBus, logDir string) (*EventLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("events_%s.log", timestamp))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	el := &EventLogger{
		logger:   NewLogger("EventLogger").SetOutputs(logFile),
		eventBus: eventBus,
		logFile:  logFile,
		path:     logPath,
	}

	for _, eventType := range events.AllEventTypes {
		el.subIDs = append(el.subIDs, eventBus.Subscribe(eventType, el.handleEvent))
	}

	return el, nil
}

// Path returns the log file location
func (el *EventLogger) Path() string {
	return el.path
}

func (el *EventLogger) handleEvent(event events.Event) {
	fields := Fields{
		"event_type": string(event.Type),
		"source":     event.Source,
	}
	for k, v := range event.Data {
		fields[k] = v
	}

	el.logger.InfoWithContext(fmt.Sprintf("Event: %s", event.Type), fields)
}

// Close unsubscribes and closes the log file
func (el *EventLogger) Close() error {
	for _, id := range el.subIDs {
		el.eventBus.Unsubscribe(id)
	}
	el.subIDs = nil

	if el.logFile != nil {
		err := el.logFile.Close()
		el.logFile = nil
		return err
	}
	return nil
}

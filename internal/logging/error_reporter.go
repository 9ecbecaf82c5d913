package logging

import (
	"fmt"
	"sync"
	"time"
)

// ErrorCategory represents the pipeline stage an error came from
type ErrorCategory string

const (
	ErrorCategoryCamera      ErrorCategory = "camera"
	ErrorCategoryTracking    ErrorCategory = "tracking"
	ErrorCategoryCapture     ErrorCategory = "capture"
	ErrorCategoryCatalog     ErrorCategory = "catalog"
	ErrorCategoryRecognition ErrorCategory = "recognition"
	ErrorCategoryStorage     ErrorCategory = "storage"
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity string

const (
	ErrorSeverityLow    ErrorSeverity = "low"
	ErrorSeverityMedium ErrorSeverity = "medium"
	ErrorSeverityHigh   ErrorSeverity = "high"
)

// ErrorReport is one recorded failure
type ErrorReport struct {
	Timestamp time.Time              `json:"timestamp"`
	Category  ErrorCategory          `json:"category"`
	Severity  ErrorSeverity          `json:"severity"`
	Component string                 `json:"component"`
	Message   string                 `json:"message"`
	Error     string                 `json:"error,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// ErrorReporter keeps a bounded history of failures and logs each one
type ErrorReporter struct {
	logger     *Logger
	history    []*ErrorReport
	historyMu  sync.RWMutex
	maxHistory int
	sink       func(*ErrorReport)
}

// NewErrorReporter creates an error reporter retaining at most maxHistory reports
func NewErrorReporter(logger *Logger, maxHistory int) *ErrorReporter {
	if logger == nil {
		logger = NewLogger("ErrorReporter")
	}
	if maxHistory <= 0 {
		maxHistory = 200
	}
	return &ErrorReporter{
		logger:     logger,
		history:    make([]*ErrorReport, 0),
		maxHistory: maxHistory,
	}
}

// SetSink registers a function that receives every report after it is recorded,
// e.g. to persist it. Passing nil removes the sink.
func (er *ErrorReporter) SetSink(sink func(*ErrorReport)) {
	er.historyMu.Lock()
	defer er.historyMu.Unlock()
	er.sink = sink
}

// Report records and logs an error
func (er *ErrorReporter) Report(category ErrorCategory, severity ErrorSeverity, component, message string, err error, context map[string]interface{}) {
	report := &ErrorReport{
		Timestamp: time.Now(),
		Category:  category,
		Severity:  severity,
		Component: component,
		Message:   message,
		Context:   context,
	}
	if err != nil {
		report.Error = err.Error()
	}

	fields := Fields{
		"category":  string(category),
		"severity":  string(severity),
		"component": component,
	}
	for k, v := range context {
		fields[k] = v
	}

	switch severity {
	case ErrorSeverityHigh:
		er.logger.ErrorWithContext(message, err, fields)
	case ErrorSeverityMedium:
		if err != nil {
			fields["error"] = err
		}
		er.logger.WarnWithContext(message, fields)
	default:
		er.logger.DebugWithContext(message, fields)
	}

	er.historyMu.Lock()
	er.history = append(er.history, report)
	if len(er.history) > er.maxHistory {
		er.history = er.history[len(er.history)-er.maxHistory:]
	}
	sink := er.sink
	er.historyMu.Unlock()

	if sink != nil {
		sink(report)
	}
}

// Recent returns up to n most recent reports, oldest first
func (er *ErrorReporter) Recent(n int) []*ErrorReport {
	er.historyMu.RLock()
	defer er.historyMu.RUnlock()

	if n > len(er.history) || n < 0 {
		n = len(er.history)
	}

	result := make([]*ErrorReport, n)
	copy(result, er.history[len(er.history)-n:])
	return result
}

// Stats counts reports by severity and category
func (er *ErrorReporter) Stats() map[string]int {
	er.historyMu.RLock()
	defer er.historyMu.RUnlock()

	stats := map[string]int{"total": len(er.history)}
	for _, report := range er.history {
		stats[fmt.Sprintf("severity_%s", report.Severity)]++
		stats[fmt.Sprintf("category_%s", report.Category)]++
	}
	return stats
}

// Clear clears the error history
func (er *ErrorReporter) Clear() {
	er.historyMu.Lock()
	defer er.historyMu.Unlock()

	er.history = make([]*ErrorReport, 0)
}

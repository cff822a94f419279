package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger defines the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *Event) error

	// LogAlert logs alert lifecycle events
	LogAlertReceived(ctx context.Context, alertID, alertType string) error
	LogAlertCompleted(ctx context.Context, alertID string, tier int, duration time.Duration) error
	LogAlertFailed(ctx context.Context, alertID string, err error) error

	// LogWorkflow logs workflow progress events
	LogPlanCreated(ctx context.Context, alertID string, stepCount int) error
	LogStepCompleted(ctx context.Context, alertID string, stepID int, capability string, duration time.Duration) error
	LogStepFailed(ctx context.Context, alertID string, stepID int, err error) error
	LogEarlyTermination(ctx context.Context, alertID string, stepID int) error

	// LogDegradation logs degradation tier activations
	LogDegradation(ctx context.Context, alertID string, tier int, cause error) error

	// Sync flushes buffered log entries
	Sync() error

	// Close closes the audit logger
	Close() error
}

// Config represents audit logger configuration
type Config struct {
	// AuditLogPath is the path to the audit log file
	AuditLogPath string

	// AppLogPath is the path to the application log file
	AppLogPath string

	// MaxSize is the maximum size in megabytes before rotation
	MaxSize int

	// MaxBackups is the maximum number of old log files to retain
	MaxBackups int

	// MaxAge is the maximum number of days to retain old log files
	MaxAge int

	// Compress determines if rotated files should be compressed
	Compress bool

	// LogLevel is the minimum log level (debug, info, warn, error)
	LogLevel string
}

// DefaultConfig returns default audit logger configuration
func DefaultConfig() *Config {
	return &Config{
		AuditLogPath: "logs/audit.log",
		AppLogPath:   "logs/app.log",
		MaxSize:      100, // megabytes
		MaxBackups:   10,
		MaxAge:       30, // days
		Compress:     true,
		LogLevel:     "info",
	}
}

// auditLogger implements the Logger interface
type auditLogger struct {
	appLogger   *zap.Logger
	auditLogger *zap.Logger
	config      *Config
	mu          sync.Mutex
	buffer      []*Event
	flushTicker *time.Ticker
	stopCh      chan struct{}
}

// NewLogger creates a new audit logger
func NewLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	// Parse log level
	level, err := zapcore.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.LogLevel, err)
	}

	// Create encoder config
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// Create application logger with rotation
	appRotator := &lumberjack.Logger{
		Filename:   config.AppLogPath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	appCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(appRotator),
		level,
	)

	appLogger := zap.New(appCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	// Create audit logger with rotation (always INFO level, append-only)
	auditRotator := &lumberjack.Logger{
		Filename:   config.AuditLogPath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	auditCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(auditRotator),
		zapcore.InfoLevel, // Audit logs are always INFO level
	)

	auditZapLogger := zap.New(auditCore)

	// Create the logger instance
	logger := &auditLogger{
		appLogger:   appLogger,
		auditLogger: auditZapLogger,
		config:      config,
		buffer:      make([]*Event, 0, 100),
		flushTicker: time.NewTicker(1 * time.Second),
		stopCh:      make(chan struct{}),
	}

	// Start auto-flush goroutine
	go logger.autoFlush()

	return logger, nil
}

// Log logs an audit event
func (l *auditLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Add to buffer
	l.buffer = append(l.buffer, event)

	// Flush if buffer is full
	if len(l.buffer) >= 100 {
		return l.flushLocked()
	}

	return nil
}

// flushLocked flushes the buffer (caller must hold lock)
func (l *auditLogger) flushLocked() error {
	if len(l.buffer) == 0 {
		return nil
	}

	// Write all buffered events
	for _, event := range l.buffer {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			l.appLogger.Error("failed to marshal audit event",
				zap.Error(err),
				zap.String("event_type", string(event.EventType)),
			)
			continue
		}

		l.auditLogger.Info(string(eventJSON),
			zap.String("correlation_id", event.CorrelationID),
			zap.String("event_type", string(event.EventType)),
			zap.String("result", string(event.Result)),
		)
	}

	// Clear buffer
	l.buffer = l.buffer[:0]

	return nil
}

// autoFlush periodically flushes the buffer
func (l *auditLogger) autoFlush() {
	for {
		select {
		case <-l.flushTicker.C:
			l.mu.Lock()
			_ = l.flushLocked()
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}

// LogAlertReceived logs when an alert is accepted for processing
func (l *auditLogger) LogAlertReceived(ctx context.Context, alertID, alertType string) error {
	event := NewEvent(EventAlertReceived).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAlert(alertID, alertType).
		WithResult(ResultSuccess).
		WithDescription(fmt.Sprintf("Alert %s received", alertID))

	return l.Log(ctx, event)
}

// LogAlertCompleted logs when alert processing produces a recommendation
func (l *auditLogger) LogAlertCompleted(ctx context.Context, alertID string, tier int, duration time.Duration) error {
	event := NewEvent(EventAlertCompleted).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAlert(alertID, "").
		WithResult(ResultSuccess).
		WithDuration(duration).
		WithMetadata("tier", tier).
		WithDescription(fmt.Sprintf("Alert %s processing completed", alertID))

	return l.Log(ctx, event)
}

// LogAlertFailed logs when alert processing fails entirely
func (l *auditLogger) LogAlertFailed(ctx context.Context, alertID string, err error) error {
	event := NewEvent(EventAlertFailed).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAlert(alertID, "").
		WithError(err, "alert_processing_error").
		WithDescription(fmt.Sprintf("Alert %s processing failed", alertID))

	return l.Log(ctx, event)
}

// LogPlanCreated logs when an investigation plan is built
func (l *auditLogger) LogPlanCreated(ctx context.Context, alertID string, stepCount int) error {
	event := NewEvent(EventPlanCreated).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAlert(alertID, "").
		WithResult(ResultSuccess).
		WithMetadata("step_count", stepCount).
		WithDescription(fmt.Sprintf("Plan with %d steps created for alert %s", stepCount, alertID))

	return l.Log(ctx, event)
}

// LogStepCompleted logs when a plan step completes
func (l *auditLogger) LogStepCompleted(ctx context.Context, alertID string, stepID int, capability string, duration time.Duration) error {
	event := NewEvent(EventStepCompleted).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAlert(alertID, "").
		WithStep(stepID, capability).
		WithResult(ResultSuccess).
		WithDuration(duration).
		WithDescription(fmt.Sprintf("Step %d completed via %s", stepID, capability))

	return l.Log(ctx, event)
}

// LogStepFailed logs when a plan step fails
func (l *auditLogger) LogStepFailed(ctx context.Context, alertID string, stepID int, err error) error {
	event := NewEvent(EventStepFailed).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAlert(alertID, "").
		WithStep(stepID, "").
		WithError(err, "step_execution_error").
		WithDescription(fmt.Sprintf("Step %d failed", stepID))

	return l.Log(ctx, event)
}

// LogEarlyTermination logs when a final-answer decision skips remaining steps
func (l *auditLogger) LogEarlyTermination(ctx context.Context, alertID string, stepID int) error {
	event := NewEvent(EventEarlyTermination).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAlert(alertID, "").
		WithStep(stepID, "final-answer").
		WithResult(ResultSuccess).
		WithDescription(fmt.Sprintf("Plan terminated early at step %d", stepID))

	return l.Log(ctx, event)
}

// LogDegradation logs activation of a degradation tier
func (l *auditLogger) LogDegradation(ctx context.Context, alertID string, tier int, cause error) error {
	event := NewEvent(EventDegradationActivated).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAlert(alertID, "").
		WithResult(ResultSuccess).
		WithMetadata("tier", tier).
		WithDescription(fmt.Sprintf("Degradation tier %d activated for alert %s", tier, alertID))

	if cause != nil {
		event.Error = cause.Error()
		event.ErrorCode = "degradation_cause"
	}

	return l.Log(ctx, event)
}

// Sync flushes buffered log entries
func (l *auditLogger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.flushLocked(); err != nil {
		return err
	}

	if err := l.auditLogger.Sync(); err != nil {
		return err
	}

	return l.appLogger.Sync()
}

// Close closes the audit logger
func (l *auditLogger) Close() error {
	close(l.stopCh)
	l.flushTicker.Stop()

	if err := l.Sync(); err != nil {
		return err
	}

	return nil
}

type correlationIDKey struct{}

// GetCorrelationID extracts correlation ID from context
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID adds correlation ID to context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// GenerateCorrelationID generates a new correlation ID
func GenerateCorrelationID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
}

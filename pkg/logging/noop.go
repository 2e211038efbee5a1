package logging

// NoOpLogger discards everything. Intended for tests and for components that
// are constructed before the service logger is initialized.
type NoOpLogger struct{}

func NewNoOpLogger() Logger { return &NoOpLogger{} }

func (l *NoOpLogger) Debug(msg string, tags ...any) {}
func (l *NoOpLogger) Info(msg string, tags ...any)  {}
func (l *NoOpLogger) Warn(msg string, tags ...any)  {}
func (l *NoOpLogger) Error(msg string, tags ...any) {}
func (l *NoOpLogger) Fatal(msg string, tags ...any) {}

func (l *NoOpLogger) Debugf(template string, args ...interface{}) {}
func (l *NoOpLogger) Infof(template string, args ...interface{})  {}
func (l *NoOpLogger) Warnf(template string, args ...interface{})  {}
func (l *NoOpLogger) Errorf(template string, args ...interface{}) {}
func (l *NoOpLogger) Fatalf(template string, args ...interface{}) {}

func (l *NoOpLogger) With(tags ...any) Logger { return l }

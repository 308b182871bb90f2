// Package logger is the logging seam shared by the library packages.
// Nothing is logged until a logger is installed with Set; the CLI installs logrus.
package logger

// Logger is satisfied by *logrus.Logger and *logrus.Entry.
type Logger interface {
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})
}

type nullLogger struct{}

func (nullLogger) Debugf(format string, args ...interface{}) {}
func (nullLogger) Infof(format string, args ...interface{})  {}
func (nullLogger) Warnf(format string, args ...interface{})  {}
func (nullLogger) Errorf(format string, args ...interface{}) {}

// The package logger
var pkgLog Logger = nullLogger{}

// Set sets the logger used by the library packages. A nil logger silences them.
func Set(l Logger) {
	if l == nil {
		l = nullLogger{}
	}
	pkgLog = l
}

// Get returns the installed logger.
func Get() Logger {
	return pkgLog
}

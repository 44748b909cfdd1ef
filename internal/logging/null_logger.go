package logging

import "github.com/pgseed/pgseed/pkg/pgseed"

var _ pgseed.Logger = (*NullLogger)(nil)

// NullLogger discards every message. Useful where a Logger is required
// but output is not wanted, such as in tests.
type NullLogger struct{}

// NewNullLogger creates a NullLogger.
func NewNullLogger() *NullLogger { return &NullLogger{} }

func (*NullLogger) Verbose(format string, args ...interface{}) {}
func (*NullLogger) Info(format string, args ...interface{})    {}
func (*NullLogger) Warn(format string, args ...interface{})    {}
func (*NullLogger) Error(format string, args ...interface{})   {}

package trim

// Logger receives the diagnostic messages of Client and Server. The standard
// *log.Logger satisfies it.
type Logger interface {
	Printf(string, ...any)
}

// LoggerFunc adapts a printf-style function to Logger, for example
// events.Log from github.com/segmentio/events/v2:
//
//	srv := &trim.Server{
//		Deleter:     d,
//		Logger:      trim.LoggerFunc(events.Debug),
//		ErrorLogger: trim.LoggerFunc(events.Log),
//	}
type LoggerFunc func(string, ...any)

func (f LoggerFunc) Printf(format string, args ...any) { f(format, args...) }

// logf drops the message when l is nil.
func logf(l Logger, format string, args ...any) {
	if l != nil {
		l.Printf(format, args...)
	}
}

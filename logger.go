package alpr

import "log"

// Logf is the logger used by the pipeline for per frame anomalies that do
// not stop processing
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger.  Passing nil disables logging
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}

	Logf = f
}

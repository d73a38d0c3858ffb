package tracker

import "log"

// Logf is the logger used by the tracker package.  It defaults to log.Printf
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger.  Passing nil disables logging
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}

	Logf = f
}

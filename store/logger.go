package store

import "log"

// Logf is the logger used for migration progress
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger, nil disables logging
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}

	Logf = f
}

// Package logging provides leveled logging helpers for vspcd.
package logging

import "log"

// DebugEnabled controls whether Debug() produces output.
// Set via the -debug flag.
var DebugEnabled bool

// Debug logs a message only when DebugEnabled is true.
func Debug(format string, args ...any) {
	if DebugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}

// Info logs an informational message.
func Info(format string, args ...any) {
	log.Printf("INFO: "+format, args...)
}

// Warn logs a recoverable-condition message.
func Warn(format string, args ...any) {
	log.Printf("WARN: "+format, args...)
}

// Error logs a failure that does not take down the process.
func Error(format string, args ...any) {
	log.Printf("ERROR: "+format, args...)
}

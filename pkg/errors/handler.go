package errors

import (
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	// defaultHandler is the global error handler.
	// It defaults to LogHandler with Verbose=false.
	defaultHandler Handler = &LogHandler{}

	handlerMu sync.RWMutex
)

// SetHandler configures the global error handler.
// Pass nil to restore the default LogHandler.
func SetHandler(h Handler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	if h == nil {
		defaultHandler = &LogHandler{}
	} else {
		defaultHandler = h
	}
}

func getHandler() Handler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return defaultHandler
}

// ReportPhase sends a phase error to the global handler.
// If err.Timestamp is zero, it is set to the current time.
func ReportPhase(err *PhaseError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	if h := getHandler(); h != nil {
		h.HandlePhaseError(err)
	}
}

// CaptureStack returns the current goroutine's stack trace, trimmed of
// the capture frames themselves.
func CaptureStack() string {
	buf := make([]byte, 16*1024)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	lines := strings.Split(stack, "\n")
	if len(lines) > 3 {
		// Drop the "goroutine N" header's immediate CaptureStack frames.
		return lines[0] + "\n" + strings.Join(lines[3:], "\n")
	}
	return stack
}

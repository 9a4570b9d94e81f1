package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// GoRecoverable runs f in a new goroutine, see RunRecoverable.
func GoRecoverable(maxPanics int, id string, f func()) {
	go RunRecoverable(maxPanics, id, f)
}

// RunRecoverable runs f in the current goroutine and restarts it after a panic.
// A negative maxPanics never gives up; otherwise the job stops once the limit is spent.
func RunRecoverable(maxPanics int, id string, f func()) {
	for {
		if !runCatching(id, f) {
			return
		}
		if maxPanics == 0 {
			log.Errorf(`Panics limit exceeded for job "%s", stopping`, id)
			return
		}
		if maxPanics > 0 {
			maxPanics--
		}
		log.Debugf(`Recovering job "%s" with max panics left: %d`, id, maxPanics)
	}
}

func runCatching(id string, f func()) (panicked bool) {
	defer func() {
		if err := recover(); err != nil {
			log.Errorf(`Job "%s" panics with message: %s, %s`, id, err, IdentifyPanic())
			panicked = true
		}
	}()
	f()
	return false
}

// IdentifyPanic names the first non-runtime frame of a panicking stack. Call it
// from the deferred recover.
func IdentifyPanic() string {
	var name, file string
	var line int
	var pc [16]uintptr

	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("pc:%x", pc)
}

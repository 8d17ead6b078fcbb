// Package logwriter implements the daemon's background-drained logger: a
// level-filtered active writer backed by two rotating-less append files
// (the main log and the upload-error sidecar), or a passive no-op writer
// when logging is disabled in configuration.
package logwriter

import (
	"fmt"
	"sync"
	"time"

	"github.com/RackSec/srslog"

	"github.com/ProjectRunspace/xlatnagiosdata/internal/outputfile"
)

// Level is a log severity, ordered from least to most severe.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

// ParseLevel maps a configuration string to a Level. The bool result is
// false for an unrecognised name.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "fatal":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// Writer is the common contract both the active and passive log writers
// satisfy.
type Writer interface {
	// ShouldWrite reports whether a message at Severity would actually be
	// recorded; callers use this to skip building expensive messages.
	ShouldWrite(severity Level) bool
	// WriteEntry records message at the given severity.
	WriteEntry(severity Level, message string)
	// WriteUploadError records a source line the backend rejected.
	WriteUploadError(line string)
	// Close stops any background goroutines and flushes pending entries.
	Close()
}

// Debug, Info, Warn, Error, and Fatal write a plain entry, skipping the
// ShouldWrite check's caller-side win only when formatting is nontrivial;
// for a bare string there is nothing to save, so they just forward.
func Debug(w Writer, message string) { w.WriteEntry(LevelDebug, message) }
func Info(w Writer, message string)  { w.WriteEntry(LevelInfo, message) }
func Warn(w Writer, message string)  { w.WriteEntry(LevelWarn, message) }
func Error(w Writer, message string) { w.WriteEntry(LevelError, message) }
func Fatal(w Writer, message string) { w.WriteEntry(LevelFatal, message) }

// annotate builds "process (item): errMessage", omitting the trailing
// ": errMessage" when errMessage is empty.
func annotate(process, item, errMessage string) string {
	msg := process + " (" + item + ")"
	if errMessage != "" {
		msg += ": " + errMessage
	}
	return msg
}

// DebugAnnotated, InfoAnnotated, WarnAnnotated, and ErrorAnnotated format
// "process (item): err" (omitting the error clause when err is nil) and
// write it at the named severity, skipping the formatting work entirely
// when the writer wouldn't record it.
func DebugAnnotated(w Writer, process, item string, err error) {
	writeAnnotated(w, LevelDebug, process, item, err)
}

func InfoAnnotated(w Writer, process, item string, err error) {
	writeAnnotated(w, LevelInfo, process, item, err)
}

func WarnAnnotated(w Writer, process, item string, err error) {
	writeAnnotated(w, LevelWarn, process, item, err)
}

func ErrorAnnotated(w Writer, process, item string, err error) {
	writeAnnotated(w, LevelError, process, item, err)
}

func writeAnnotated(w Writer, severity Level, process, item string, err error) {
	if !w.ShouldWrite(severity) {
		return
	}
	errMessage := ""
	if err != nil {
		errMessage = err.Error()
	}
	w.WriteEntry(severity, annotate(process, item, errMessage))
}

// passiveWriter discards everything and always reports it should not write.
type passiveWriter struct{}

// NewPassive returns a Writer that discards all entries.
func NewPassive() Writer { return passiveWriter{} }

func (passiveWriter) ShouldWrite(Level) bool        { return false }
func (passiveWriter) WriteEntry(Level, string)       {}
func (passiveWriter) WriteUploadError(string)        {}
func (passiveWriter) Close()                         {}

type logEntry struct {
	severity Level
	message  string
}

// ActiveWriter is a level-filtered logger whose writes are queued and
// drained by a dedicated background goroutine, falling back to syslog if
// the main log file becomes unwritable.
type ActiveWriter struct {
	minSeverity      Level
	logFile          *outputfile.File
	uploadFile       *outputfile.File
	fallbackToSyslog bool
	syslog           *srslog.Writer

	mu          sync.Mutex
	queue       []logEntry
	uploadQueue []string

	wakeCh   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// owned by the drain goroutine; once the main log file fails a write,
	// the remainder of the process lifetime logs via syslog
	useSyslog bool
}

const drainIdleInterval = 200 * time.Millisecond

// NewActive constructs an ActiveWriter writing logFileName and
// uploadFileName (when non-empty) under logDir, and starts its background
// drain goroutine. If fallbackToSyslog is true, a local syslog connection
// is attempted; its absence is not fatal, it just disables the fallback.
func NewActive(minSeverity Level, logDir, logFileName, uploadFileName string, fallbackToSyslog bool) *ActiveWriter {
	w := &ActiveWriter{
		minSeverity:      minSeverity,
		logFile:          outputfile.New(logDir, logFileName, 5*time.Second),
		fallbackToSyslog: fallbackToSyslog,
		wakeCh:           make(chan struct{}, 1),
		stopCh:           make(chan struct{}),
		done:             make(chan struct{}),
	}
	if uploadFileName != "" {
		w.uploadFile = outputfile.New(logDir, uploadFileName, 5*time.Second)
	}
	if fallbackToSyslog {
		if sw, err := srslog.New(srslog.LOG_INFO|srslog.LOG_DAEMON, "xlatnagiosdatad"); err == nil {
			w.syslog = sw
		}
	}
	go w.run()
	return w
}

func (w *ActiveWriter) ShouldWrite(severity Level) bool {
	return severity >= w.minSeverity
}

func (w *ActiveWriter) WriteEntry(severity Level, message string) {
	if !w.ShouldWrite(severity) {
		return
	}
	formatted := fmt.Sprintf("[%s] %s", severity, message)
	w.mu.Lock()
	w.queue = append(w.queue, logEntry{severity: severity, message: formatted})
	w.mu.Unlock()
	w.wake()
}

func (w *ActiveWriter) WriteUploadError(line string) {
	if w.uploadFile == nil {
		return
	}
	w.mu.Lock()
	w.uploadQueue = append(w.uploadQueue, line)
	w.mu.Unlock()
	w.wake()
}

func (w *ActiveWriter) wake() {
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// Close stops the drain goroutine after a final drain pass and closes the
// underlying output files.
func (w *ActiveWriter) Close() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
	w.logFile.Close()
	if w.uploadFile != nil {
		w.uploadFile.Close()
	}
	if w.syslog != nil {
		w.syslog.Close()
	}
}

func (w *ActiveWriter) run() {
	defer close(w.done)
	ticker := time.NewTicker(drainIdleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			w.drainUpload()
			w.drainLog()
			return
		case <-w.wakeCh:
			w.drainUpload()
			w.drainLog()
		case <-ticker.C:
			w.drainUpload()
			w.drainLog()
		}
	}
}

func (w *ActiveWriter) drainUpload() {
	if w.uploadFile == nil {
		return
	}
	w.mu.Lock()
	local := w.uploadQueue
	w.uploadQueue = nil
	w.mu.Unlock()

	for _, line := range local {
		if err := w.uploadFile.Write(line, false); err != nil && w.fallbackToSyslog && w.syslog != nil {
			w.syslog.Err("Failed to upload line: " + line)
		}
	}
}

func (w *ActiveWriter) drainLog() {
	w.mu.Lock()
	local := w.queue
	w.queue = nil
	w.mu.Unlock()

	for i := 0; i < len(local); {
		entry := local[i]
		if w.useSyslog {
			w.writeSyslog(entry)
			i++
			continue
		}
		if err := w.logFile.Write(entry.message, true); err != nil {
			w.WriteEntry(LevelError, annotate("Failed to write file", w.logFile.Path(), err.Error()))
			w.useSyslog = true
			continue
		}
		i++
	}
}

func (w *ActiveWriter) writeSyslog(entry logEntry) {
	if w.syslog == nil {
		return
	}
	switch entry.severity {
	case LevelDebug:
		w.syslog.Debug(entry.message)
	case LevelInfo:
		w.syslog.Info(entry.message)
	case LevelWarn:
		w.syslog.Warning(entry.message)
	case LevelError:
		w.syslog.Err(entry.message)
	case LevelFatal:
		w.syslog.Crit(entry.message)
	default:
		w.syslog.Info(entry.message)
	}
}

package core

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Severity of a message forwarded to log listeners.
type Severity uint8

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	}
	return "unknown"
}

// LogListener receives every message that passes the current level.
type LogListener func(severity Severity, message string)

var once sync.Once

type logger struct {
	*log.Logger

	// guards listeners and nextListenerID only
	mutex          sync.Mutex
	listeners      map[int]LogListener
	listenerOrder  []int
	nextListenerID int
}

var singleton *logger

func getLogger() *logger {
	if singleton == nil {
		once.Do(
			func() {
				l := log.NewWithOptions(os.Stderr, log.Options{
					ReportCaller:    true,
					ReportTimestamp: true,
					TimeFormat:      time.RFC3339,
					Prefix:          "Prism 🔺 ",
					CallerOffset:    2,
				})
				l.SetLevel(log.DebugLevel)
				singleton = &logger{
					Logger:    l,
					listeners: make(map[int]LogListener),
				}
			})
	}
	return singleton
}

// SetLogLevel accepts debug, info, warn, error or fatal.
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level `%s`: %w", level, err)
	}
	getLogger().SetLevel(lvl)
	return nil
}

// AddLogListener registers fn and returns an id for RemoveLogListener.
// Safe to call from any goroutine.
func AddLogListener(fn LogListener) int {
	l := getLogger()
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.nextListenerID++
	id := l.nextListenerID
	l.listeners[id] = fn
	l.listenerOrder = append(l.listenerOrder, id)
	return id
}

func RemoveLogListener(id int) {
	l := getLogger()
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if _, ok := l.listeners[id]; !ok {
		return
	}
	delete(l.listeners, id)
	for i, lid := range l.listenerOrder {
		if lid == id {
			l.listenerOrder = append(l.listenerOrder[:i], l.listenerOrder[i+1:]...)
			break
		}
	}
}

func (l *logger) notify(severity Severity, level log.Level, msg string, args ...interface{}) {
	if l.GetLevel() > level {
		return
	}
	l.mutex.Lock()
	if len(l.listenerOrder) == 0 {
		l.mutex.Unlock()
		return
	}
	fns := make([]LogListener, 0, len(l.listenerOrder))
	for _, id := range l.listenerOrder {
		fns = append(fns, l.listeners[id])
	}
	l.mutex.Unlock()

	text := msg
	if len(args) > 0 {
		text = fmt.Sprintf(msg, args...)
	}
	for _, fn := range fns {
		fn(severity, text)
	}
}

func LogDebug(msg string, args ...interface{}) {
	l := getLogger()
	l.Debugf(msg, args...)
	l.notify(SeverityDebug, log.DebugLevel, msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	l := getLogger()
	l.Infof(msg, args...)
	l.notify(SeverityInfo, log.InfoLevel, msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	l := getLogger()
	l.Warnf(msg, args...)
	l.notify(SeverityWarn, log.WarnLevel, msg, args...)
}

func LogError(msg string, args ...interface{}) {
	l := getLogger()
	l.Errorf(msg, args...)
	l.notify(SeverityError, log.ErrorLevel, msg, args...)
}

// LogFatal logs and panics. Used for programmer errors that leave the
// renderer in an unrecoverable state.
func LogFatal(msg string, args ...interface{}) {
	l := getLogger()
	text := fmt.Sprintf(msg, args...)
	l.Error(text)
	l.notify(SeverityFatal, log.FatalLevel, "%s", text)
	panic(text)
}

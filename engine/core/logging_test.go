package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	severity Severity
	message  string
}

func TestLogListenerReceivesFormattedMessages(t *testing.T) {
	var got []logEntry
	id := AddLogListener(func(severity Severity, message string) {
		got = append(got, logEntry{severity, message})
	})

	LogWarn("x %d", 1)
	require.Len(t, got, 1)
	assert.Equal(t, SeverityWarn, got[0].severity)
	assert.Equal(t, "x 1", got[0].message)

	RemoveLogListener(id)
	LogWarn("x %d", 2)
	assert.Len(t, got, 1)
	RemoveLogListener(id)
}

func TestLogListenerHonorsLevel(t *testing.T) {
	var got []logEntry
	id := AddLogListener(func(severity Severity, message string) {
		got = append(got, logEntry{severity, message})
	})
	defer RemoveLogListener(id)

	require.NoError(t, SetLogLevel("error"))
	defer SetLogLevel("debug")
	LogInfo("dropped")
	LogError("kept")
	require.Len(t, got, 1)
	assert.Equal(t, logEntry{SeverityError, "kept"}, got[0])

	assert.Error(t, SetLogLevel("loud"))
}

func TestLogErrorKeepsPercentVerbatim(t *testing.T) {
	var got []string
	id := AddLogListener(func(_ Severity, message string) {
		got = append(got, message)
	})
	defer RemoveLogListener(id)

	err := fmt.Errorf("shader `100%%s` failed: %w", errors.New("bad"))
	LogError("%s", err)
	require.Len(t, got, 1)
	assert.Equal(t, "shader `100%s` failed: bad", got[0])
}

package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

func TestJsonLinesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	session := NewJsonLinesLogRecorder(&buf).NewSession()

	require.NoError(t, session.Record(&RunCommand{Line: "ls", Status: 0}))
	require.NoError(t, session.Record(&RunCommand{Line: "false", Status: 1}))
	require.NoError(t, session.Record(&RunCommand{Line: "!!", Status: 1, Replayed: true}))
	require.NoError(t, session.Record(&JobNotice{Pid: 42, Status: 3}))
	require.NoError(t, session.Record(&JobNotice{Pid: 43, Stopped: true}))
	require.NoError(t, session.Record(&HistoryChange{Action: "clear"}))
	require.NoError(t, session.Record(&Fatal{Message: "empty command", Status: 127}))

	assert.Equal(t, 7, strings.Count(buf.String(), "\n"))

	var report Report
	require.NoError(t, ReadJSONLinesLog(&buf, report.Update))

	assert.Equal(t, 7, report.LogEntries)
	assert.Equal(t, 0, report.InvalidEntries)
	assert.Equal(t, 3, report.RunCommand.Count)
	assert.Equal(t, 2, report.RunCommand.Failed)
	assert.Equal(t, 1, report.RunCommand.Replayed)
	assert.Equal(t, 1, report.JobNotice.Stopped)
	assert.Equal(t, []string{"empty command"}, report.Fatal.Messages)

	out, err := yaml.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(out), "line: ls")
}

func TestReadJSONLinesLogInvalid(t *testing.T) {
	err := ReadJSONLinesLog(strings.NewReader("{not json"), func(*LogEntry) {})
	assert.Error(t, err)
}

func TestUnknownEntry(t *testing.T) {
	var report Report
	require.NoError(t, ReadJSONLinesLog(strings.NewReader(`{"timestamp_micros": 1}`), report.Update))
	assert.Equal(t, 1, report.InvalidEntries)
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard().Sessionless().Record(&Fatal{}))
}

package logger

// LogEntry is one line of the event log. Exactly one event field is set.
type LogEntry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`

	RunCommand *RunCommand    `json:"run_command,omitempty"`
	JobNotice  *JobNotice     `json:"job_notice,omitempty"`
	History    *HistoryChange `json:"history,omitempty"`
	Fatal      *Fatal         `json:"fatal,omitempty"`
}

// LogType is implemented by every event that can be recorded.
type LogType interface {
	setOn(le *LogEntry)
}

// RunCommand is logged after a line finished executing.
type RunCommand struct {
	Line     string `json:"line"`
	Status   int    `json:"status"`
	Replayed bool   `json:"replayed,omitempty"`
}

// JobNotice is logged when a child outside the awaited pipeline changes state.
type JobNotice struct {
	Pid     int  `json:"pid"`
	Status  int  `json:"status"`
	Stopped bool `json:"stopped,omitempty"`
}

// HistoryChange records attach, detach, clear and persistence of the store.
type HistoryChange struct {
	Action  string `json:"action"`
	Entries int    `json:"entries"`
}

// Fatal is logged right before the shell terminates on an internal error.
type Fatal struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *RunCommand) setOn(le *LogEntry)    { le.RunCommand = e }
func (e *JobNotice) setOn(le *LogEntry)     { le.JobNotice = e }
func (e *HistoryChange) setOn(le *LogEntry) { le.History = e }
func (e *Fatal) setOn(le *LogEntry)         { le.Fatal = e }

// Event returns the event held by the entry, or nil.
func (le *LogEntry) Event() LogType {
	switch {
	case le.RunCommand != nil:
		return le.RunCommand
	case le.JobNotice != nil:
		return le.JobNotice
	case le.History != nil:
		return le.History
	case le.Fatal != nil:
		return le.Fatal
	default:
		return nil
	}
}

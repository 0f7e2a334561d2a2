package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Sessions       StrCounter `json:"sessions"`
	InvalidEntries int        `json:"invalid_entries,omitempty"`

	RunCommand RunCommandReport `json:"run_command_report"`
	JobNotice  JobNoticeReport  `json:"job_notice_report"`
	History    StrCounter       `json:"history_actions"`
	Fatal      FatalReport      `json:"fatal_report"`
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++
	if le.SessionID != "" {
		r.Sessions.Increment(le.SessionID)
	}

	switch event := le.Event().(type) {
	case *RunCommand:
		r.RunCommand.update(event)
	case *JobNotice:
		r.JobNotice.update(event)
	case *HistoryChange:
		r.History.Increment(event.Action)
	case *Fatal:
		r.Fatal.update(event)
	default:
		r.InvalidEntries++
	}
}

type RunCommandReport struct {
	Count    int `json:"count"`
	Failed   int `json:"failed"`
	Replayed int `json:"replayed"`
	// Lines and the status they finished with.
	Lines *PathCounter `json:"lines"`
}

func (r *RunCommandReport) update(rc *RunCommand) {
	if r.Lines == nil {
		r.Lines = NewPathCounter("line", "status")
	}
	r.Count++
	if rc.Status != 0 {
		r.Failed++
	}
	if rc.Replayed {
		r.Replayed++
	}
	r.Lines.Increment(rc.Line, fmt.Sprintf("%d", rc.Status))
}

type JobNoticeReport struct {
	Stopped  int        `json:"stopped"`
	Statuses StrCounter `json:"statuses"`
}

func (r *JobNoticeReport) update(jn *JobNotice) {
	if jn.Stopped {
		r.Stopped++
		return
	}
	r.Statuses.Increment(fmt.Sprintf("%d", jn.Status))
}

type FatalReport struct {
	Messages []string `json:"messages"`
}

func (r *FatalReport) update(f *Fatal) {
	r.Messages = append(r.Messages, f.Message)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// MarshalJSON implements a custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implements a custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}

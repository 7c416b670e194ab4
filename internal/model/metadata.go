package model

import (
	"encoding/json"
	"time"
)

// RunMetadata describes a single pipeline run. It is built fresh per search.
type RunMetadata struct {
	Mode         string         `json:"mode"`
	SourceCounts map[string]int `json:"source_counts"`
	Fetched      int            `json:"fetched"`
	Unique       int            `json:"unique"`
	Total        int            `json:"total"`
	Elapsed      time.Duration  `json:"-"`
	Faults       []Fault        `json:"faults"`
	Error        *Fault         `json:"error,omitempty"`
	Cached       bool           `json:"cached"`
	Fallback     bool           `json:"fallback"`
}

// Failed reports whether the run ended with a caller-visible error.
func (m RunMetadata) Failed() bool {
	return m.Error != nil
}

// AddFaults appends faults to the run's fault list.
func (m *RunMetadata) AddFaults(faults ...Fault) {
	m.Faults = append(m.Faults, faults...)
}

// FaultMessages returns the fault list as plain strings.
func (m RunMetadata) FaultMessages() []string {
	out := make([]string, 0, len(m.Faults))
	for _, f := range m.Faults {
		out = append(out, f.Error())
	}
	return out
}

type runMetadataJSON struct {
	Elapsed string `json:"elapsed"`
}

// MarshalJSON adds elapsed as a duration string.
func (m RunMetadata) MarshalJSON() ([]byte, error) {
	type plain RunMetadata
	if m.Faults == nil {
		m.Faults = []Fault{}
	}
	return json.Marshal(struct {
		plain
		runMetadataJSON
	}{plain(m), runMetadataJSON{Elapsed: m.Elapsed.String()}})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (m *RunMetadata) UnmarshalJSON(b []byte) error {
	type plain RunMetadata
	aux := struct {
		*plain
		runMetadataJSON
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.runMetadataJSON.Elapsed != "" {
		d, err := time.ParseDuration(aux.runMetadataJSON.Elapsed)
		if err != nil {
			return err
		}
		m.Elapsed = d
	}
	return nil
}

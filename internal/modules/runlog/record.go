// Package runlog records the per-episode metrics of one training run and
// persists them as a named record.
package runlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// isoLayouts are accepted when reading timestamps. Older logs were written
// without a zone offset.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Timestamp is an ISO-8601 instant. It reads both zoned and naive forms and
// always writes RFC 3339.
type Timestamp struct {
	time.Time
}

// NewTimestamp strips the monotonic reading so persisted and in-memory
// values compare equal.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Round(0)}
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid ISO-8601 timestamp %q", s)
}

// Record is the persisted form of one run. The six main series are parallel
// and always share one length. The test log pairs are parallel with each
// other but independent of the main series.
type Record struct {
	RunID            string     `json:"run_id,omitempty"`
	Algorithm        string     `json:"algorithm"`
	StartTime        Timestamp  `json:"start_time"`
	EndTime          *Timestamp `json:"end_time,omitempty"`
	Episodes         []int      `json:"episodes"`
	Rewards          []float64  `json:"rewards"`
	AvgRewards       []float64  `json:"avg_rewards"`
	BestRewards      []float64  `json:"best_rewards"`
	Losses           []float64  `json:"losses"`
	Epsilons         []float64  `json:"epsilons"`
	TestEpisodes     []int      `json:"test_episodes"`
	TestRewards      []float64  `json:"test_rewards"`
	FinalTestRewards []float64  `json:"final_test_rewards"`
}

// NewRecord returns an empty record with non-nil series so it encodes as
// empty arrays rather than null.
func NewRecord(algorithm string, start time.Time) *Record {
	return &Record{
		Algorithm:        algorithm,
		StartTime:        NewTimestamp(start),
		Episodes:         []int{},
		Rewards:          []float64{},
		AvgRewards:       []float64{},
		BestRewards:      []float64{},
		Losses:           []float64{},
		Epsilons:         []float64{},
		TestEpisodes:     []int{},
		TestRewards:      []float64{},
		FinalTestRewards: []float64{},
	}
}

// Key returns the canonical key derived from the algorithm name.
func (r *Record) Key() Key {
	return Canonicalize(r.Algorithm)
}

// Len returns the number of logged episodes.
func (r *Record) Len() int {
	return len(r.Episodes)
}

// Saved reports whether the record has been finalized.
func (r *Record) Saved() bool {
	return r.EndTime != nil
}

// Validate checks the length-equality invariants.
func (r *Record) Validate() error {
	n := len(r.Episodes)
	lengths := map[string]int{
		"rewards":      len(r.Rewards),
		"avg_rewards":  len(r.AvgRewards),
		"best_rewards": len(r.BestRewards),
		"losses":       len(r.Losses),
		"epsilons":     len(r.Epsilons),
	}
	for _, field := range []string{"rewards", "avg_rewards", "best_rewards", "losses", "epsilons"} {
		if lengths[field] != n {
			return fmt.Errorf("%w: %s has %d values, episodes has %d", ErrMalformedRecord, field, lengths[field], n)
		}
	}
	if len(r.TestEpisodes) != len(r.TestRewards) {
		return fmt.Errorf("%w: test_episodes has %d values, test_rewards has %d",
			ErrMalformedRecord, len(r.TestEpisodes), len(r.TestRewards))
	}
	return nil
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := *r
	if r.EndTime != nil {
		end := *r.EndTime
		c.EndTime = &end
	}
	c.Episodes = append([]int{}, r.Episodes...)
	c.Rewards = append([]float64{}, r.Rewards...)
	c.AvgRewards = append([]float64{}, r.AvgRewards...)
	c.BestRewards = append([]float64{}, r.BestRewards...)
	c.Losses = append([]float64{}, r.Losses...)
	c.Epsilons = append([]float64{}, r.Epsilons...)
	c.TestEpisodes = append([]int{}, r.TestEpisodes...)
	c.TestRewards = append([]float64{}, r.TestRewards...)
	c.FinalTestRewards = append([]float64{}, r.FinalTestRewards...)
	return &c
}

// EncodeRecord serializes a record in the persisted JSON layout.
func EncodeRecord(r *Record) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run record: %w", err)
	}
	return data, nil
}

// DecodeRecord parses a persisted record and rejects one that violates the
// length invariants. Absent arrays decode as empty.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	r.fillEmpty()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Record) fillEmpty() {
	if r.Episodes == nil {
		r.Episodes = []int{}
	}
	if r.TestEpisodes == nil {
		r.TestEpisodes = []int{}
	}
	for _, s := range []*[]float64{
		&r.Rewards, &r.AvgRewards, &r.BestRewards, &r.Losses, &r.Epsilons,
		&r.TestRewards, &r.FinalTestRewards,
	} {
		if *s == nil {
			*s = []float64{}
		}
	}
}

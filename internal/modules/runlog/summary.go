package runlog

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary is a human-readable digest of a run.
type Summary struct {
	Algorithm      string   `json:"algorithm"`
	Key            Key      `json:"key"`
	Empty          bool     `json:"empty"`
	Episodes       int      `json:"episodes"`
	BestReward     float64  `json:"best_reward"`
	FinalAvgReward float64  `json:"final_avg_reward"`
	TestCount      int      `json:"test_count"`
	FinalTestMean  *float64 `json:"final_test_mean,omitempty"`
}

// Summarize builds the digest. A record without episodes yields an Empty
// summary instead of failing.
func (r *Record) Summarize() Summary {
	s := Summary{
		Algorithm: r.Algorithm,
		Key:       r.Key(),
		TestCount: len(r.TestRewards),
	}
	if len(r.Episodes) == 0 || len(r.BestRewards) == 0 || len(r.AvgRewards) == 0 {
		s.Empty = true
		return s
	}

	s.Episodes = len(r.Episodes)
	s.BestReward = floats.Max(r.BestRewards)
	s.FinalAvgReward = r.AvgRewards[len(r.AvgRewards)-1]
	if len(r.FinalTestRewards) > 0 {
		mean := stat.Mean(r.FinalTestRewards, nil)
		s.FinalTestMean = &mean
	}
	return s
}

// String renders the digest as a text block.
func (s Summary) String() string {
	if s.Empty {
		return "No data logged yet"
	}

	rule := strings.Repeat("=", 60)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Training summary - %s\n", s.Algorithm)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Episodes: %d\n", s.Episodes)
	fmt.Fprintf(&b, "Best reward: %.2f\n", s.BestReward)
	fmt.Fprintf(&b, "Final average: %.2f\n", s.FinalAvgReward)
	fmt.Fprintf(&b, "Test count: %d\n", s.TestCount)
	if s.FinalTestMean != nil {
		fmt.Fprintf(&b, "Final test average: %.2f\n", *s.FinalTestMean)
	}
	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}

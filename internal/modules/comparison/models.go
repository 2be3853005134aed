package comparison

import (
	"sort"
	"time"

	"github.com/aristath/trainlog/internal/modules/aggregate"
	"github.com/aristath/trainlog/internal/modules/runlog"
)

// Settings holds the window and threshold parameters of a comparison.
type Settings struct {
	RewardWindow     int     `json:"reward_window"`
	LossWindow       int     `json:"loss_window"`
	BucketSize       int     `json:"bucket_size"`
	SuccessThreshold float64 `json:"success_threshold"`
	ScaleMax         float64 `json:"scale_max"`
}

// DefaultSettings returns the standard comparison parameters.
func DefaultSettings() Settings {
	return Settings{
		RewardWindow:     50,
		LossWindow:       20,
		BucketSize:       100,
		SuccessThreshold: 200,
		ScaleMax:         100,
	}
}

// Status describes what happened to one requested key.
type Status string

const (
	StatusIncluded  Status = "included"
	StatusMissing   Status = "missing"
	StatusMalformed Status = "malformed"
	StatusFailed    Status = "failed"
)

// Outcome records, for one requested key, whether it made it into the
// comparison and why not.
type Outcome struct {
	Key    runlog.Key `json:"key"`
	Status Status     `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// Series is a curve ready to plot: values aligned with episode numbers.
type Series struct {
	Episodes []int     `json:"episodes"`
	Values   []float64 `json:"values"`
}

// Scores holds the normalized metrics and their composite.
type Scores struct {
	BestReward    float64 `json:"best_reward"`
	FinalAverage  float64 `json:"final_average"`
	FinalTestMean float64 `json:"final_test_mean"`
	Composite     float64 `json:"composite"`
}

// RunMetrics is everything a renderer needs for one run.
type RunMetrics struct {
	Key       runlog.Key `json:"key"`
	Label     string     `json:"label"`
	Algorithm string     `json:"algorithm"`
	Episodes  int        `json:"episodes"`

	AvgRewardCurve  Series                 `json:"avg_reward_curve"`
	RewardCurve     Series                 `json:"reward_curve"`
	LossCurve       Series                 `json:"loss_curve"`
	RawLossCurve    Series                 `json:"raw_loss_curve"`
	BestRewardCurve Series                 `json:"best_reward_curve"`
	EpsilonCurve    Series                 `json:"epsilon_curve"`
	TestCurve       Series                 `json:"test_curve"`
	SuccessRates    []aggregate.BucketRate `json:"success_rates"`

	BestReward    float64 `json:"best_reward"`
	FinalAverage  float64 `json:"final_average"`
	FinalTestMean float64 `json:"final_test_mean"`
	Normalized    Scores  `json:"normalized"`
}

// Comparison is the structured output of BuildComparison. Runs holds the
// included runs in request order; Outcomes holds one entry per requested key.
type Comparison struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Settings    Settings     `json:"settings"`
	Runs        []RunMetrics `json:"runs"`
	Outcomes    []Outcome    `json:"outcomes"`
}

// Keys returns the included run keys in order.
func (c *Comparison) Keys() []runlog.Key {
	keys := make([]runlog.Key, len(c.Runs))
	for i, run := range c.Runs {
		keys[i] = run.Key
	}
	return keys
}

// Run returns the metrics for key.
func (c *Comparison) Run(key runlog.Key) (RunMetrics, bool) {
	for _, run := range c.Runs {
		if run.Key == key {
			return run, true
		}
	}
	return RunMetrics{}, false
}

// Skipped returns the outcomes of keys left out of the comparison.
func (c *Comparison) Skipped() []Outcome {
	skipped := []Outcome{}
	for _, o := range c.Outcomes {
		if o.Status != StatusIncluded {
			skipped = append(skipped, o)
		}
	}
	return skipped
}

// Ranking returns the included keys ordered by composite score, best first.
// Ties keep request order.
func (c *Comparison) Ranking() []runlog.Key {
	runs := append([]RunMetrics{}, c.Runs...)
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Normalized.Composite > runs[j].Normalized.Composite
	})

	keys := make([]runlog.Key, len(runs))
	for i, run := range runs {
		keys[i] = run.Key
	}
	return keys
}

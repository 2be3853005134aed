// Package comparison loads saved runs and derives the cross-run summary that
// external renderers plot.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/trainlog/internal/modules/aggregate"
	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/rs/zerolog"
)

// Service builds comparisons from persisted runs. Loaded records are treated
// as read-only.
type Service struct {
	reader   runlog.RecordReader
	settings Settings
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a comparison service reading from reader.
func NewService(reader runlog.RecordReader, settings Settings, log zerolog.Logger) *Service {
	return &Service{
		reader:   reader,
		settings: settings,
		now:      time.Now,
		log:      log.With().Str("service", "comparison").Logger(),
	}
}

// Settings returns the parameters used for every comparison.
func (s *Service) Settings() Settings {
	return s.settings
}

// LoadRun reads a saved run. It returns runlog.ErrMissingRun when the key has
// no record and runlog.ErrMalformedRecord when the record is invalid.
func (s *Service) LoadRun(ctx context.Context, key runlog.Key) (*runlog.Record, error) {
	record, err := s.reader.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// AvailableKeys lists saved runs, known variants first in their conventional
// order, then custom keys.
func (s *Service) AvailableKeys(ctx context.Context) ([]runlog.Key, error) {
	stored, err := s.reader.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	present := make(map[runlog.Key]bool, len(stored))
	for _, key := range stored {
		present[key] = true
	}

	keys := make([]runlog.Key, 0, len(stored))
	for _, key := range runlog.KnownKeys {
		if present[key] {
			keys = append(keys, key)
		}
	}
	for _, key := range stored {
		if !key.IsKnown() {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// BuildComparison derives per-run metrics for each key and scores the runs
// against each other. Keys that are absent, malformed or unreadable are left
// out and reported in Outcomes; the remaining runs keep their request order.
// A failure for one key never aborts the report. Only context cancellation
// is returned as an error.
func (s *Service) BuildComparison(ctx context.Context, keys []runlog.Key) (*Comparison, error) {
	result := &Comparison{
		GeneratedAt: s.now().UTC(),
		Settings:    s.settings,
		Runs:        []RunMetrics{},
		Outcomes:    make([]Outcome, 0, len(keys)),
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := s.LoadRun(ctx, key)
		if err != nil {
			outcome := classify(key, err)
			result.Outcomes = append(result.Outcomes, outcome)
			s.log.Warn().
				Err(err).
				Str("key", string(key)).
				Str("status", string(outcome.Status)).
				Msg("Skipping run in comparison")
			continue
		}

		metrics, err := s.runMetrics(key, record)
		if err != nil {
			result.Outcomes = append(result.Outcomes, Outcome{Key: key, Status: StatusMalformed, Reason: err.Error()})
			s.log.Warn().Err(err).Str("key", string(key)).Msg("Skipping run in comparison")
			continue
		}

		result.Runs = append(result.Runs, metrics)
		result.Outcomes = append(result.Outcomes, Outcome{Key: key, Status: StatusIncluded})
	}

	if err := s.score(result.Runs); err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("requested", len(keys)).
		Int("included", len(result.Runs)).
		Msg("Comparison built")
	return result, nil
}

func classify(key runlog.Key, err error) Outcome {
	switch {
	case errors.Is(err, runlog.ErrMissingRun):
		return Outcome{Key: key, Status: StatusMissing, Reason: "no saved run for key"}
	case errors.Is(err, runlog.ErrMalformedRecord), errors.Is(err, runlog.ErrInvalidKey):
		return Outcome{Key: key, Status: StatusMalformed, Reason: err.Error()}
	default:
		return Outcome{Key: key, Status: StatusFailed, Reason: err.Error()}
	}
}

// runMetrics derives the per-run part of the comparison from one record.
func (s *Service) runMetrics(key runlog.Key, r *runlog.Record) (RunMetrics, error) {
	rewardEpisodes, rewardCurve, err := aggregate.MovingAverageWithEpisodes(r.Episodes, r.AvgRewards, s.settings.RewardWindow)
	if err != nil {
		return RunMetrics{}, fmt.Errorf("reward curve: %w", err)
	}
	lossEpisodes, lossCurve, err := aggregate.MovingAverageWithEpisodes(r.Episodes, r.Losses, s.settings.LossWindow)
	if err != nil {
		return RunMetrics{}, fmt.Errorf("loss curve: %w", err)
	}
	successRates, err := aggregate.SuccessRateByBucket(r.Episodes, r.AvgRewards, s.settings.BucketSize, s.settings.SuccessThreshold)
	if err != nil {
		return RunMetrics{}, fmt.Errorf("success rates: %w", err)
	}

	return RunMetrics{
		Key:       key,
		Label:     key.Label(),
		Algorithm: r.Algorithm,
		Episodes:  r.Len(),

		AvgRewardCurve:  newSeries(r.Episodes, r.AvgRewards),
		RewardCurve:     Series{Episodes: rewardEpisodes, Values: rewardCurve},
		LossCurve:       Series{Episodes: lossEpisodes, Values: lossCurve},
		RawLossCurve:    newSeries(r.Episodes, r.Losses),
		BestRewardCurve: newSeries(r.Episodes, r.BestRewards),
		EpsilonCurve:    newSeries(r.Episodes, r.Epsilons),
		TestCurve:       newSeries(r.TestEpisodes, r.TestRewards),
		SuccessRates:    successRates,

		BestReward:    aggregate.Max(r.BestRewards),
		FinalAverage:  aggregate.Last(r.AvgRewards),
		FinalTestMean: aggregate.Mean(r.FinalTestRewards),
	}, nil
}

func newSeries(episodes []int, values []float64) Series {
	return Series{
		Episodes: append([]int{}, episodes...),
		Values:   append([]float64{}, values...),
	}
}

// score normalizes the three headline metrics across runs and fills in the
// composite score of each run.
func (s *Service) score(runs []RunMetrics) error {
	best := make([]float64, len(runs))
	final := make([]float64, len(runs))
	tests := make([]float64, len(runs))
	for i, run := range runs {
		best[i] = run.BestReward
		final[i] = run.FinalAverage
		tests[i] = run.FinalTestMean
	}

	normBest := aggregate.NormalizeToScale(best, s.settings.ScaleMax)
	normFinal := aggregate.NormalizeToScale(final, s.settings.ScaleMax)
	normTests := aggregate.NormalizeToScale(tests, s.settings.ScaleMax)

	composite, err := aggregate.CompositeScore([][]float64{normBest, normFinal, normTests})
	if err != nil {
		return fmt.Errorf("failed to compute composite score: %w", err)
	}

	for i := range runs {
		runs[i].Normalized = Scores{
			BestReward:    normBest[i],
			FinalAverage:  normFinal[i],
			FinalTestMean: normTests[i],
			Composite:     composite[i],
		}
	}
	return nil
}

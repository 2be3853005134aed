package runlog

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder accumulates one run's metrics. It is owned by a single training
// loop and is not safe for concurrent use. After Save it rejects mutations.
type Recorder struct {
	key    Key
	record *Record
	writer RecordWriter
	saved  bool
	now    func() time.Time
	log    zerolog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source used for start and end stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder starts an empty run for the named algorithm. The record is
// persisted through writer on Save.
func NewRecorder(algorithmName string, writer RecordWriter, log zerolog.Logger, opts ...Option) *Recorder {
	key := Canonicalize(algorithmName)
	r := &Recorder{
		key:    key,
		writer: writer,
		now:    time.Now,
		log: log.With().
			Str("component", "recorder").
			Str("run", string(key)).
			Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.record = NewRecord(algorithmName, r.now().UTC())
	r.record.RunID = uuid.New().String()
	return r
}

// Key returns the canonical key the run is stored under.
func (r *Recorder) Key() Key {
	return r.key
}

// Record returns a copy of the current state.
func (r *Recorder) Record() *Record {
	return r.record.Clone()
}

// Saved reports whether Save has completed.
func (r *Recorder) Saved() bool {
	return r.saved
}

// LogEpisode appends one point to every main series. A nil loss is stored as
// 0. Episode numbers are not checked for order or duplicates. The stored best
// reward never decreases: it is the maximum of the previous best, the
// supplied best and the episode reward.
func (r *Recorder) LogEpisode(episode int, reward, avgReward, bestReward float64, loss *float64, epsilon float64) error {
	if r.saved {
		return ErrRecorderClosed
	}

	best := math.Max(bestReward, reward)
	if n := len(r.record.BestRewards); n > 0 {
		best = math.Max(best, r.record.BestRewards[n-1])
	}

	lossValue := 0.0
	if loss != nil {
		lossValue = *loss
	}

	r.record.Episodes = append(r.record.Episodes, episode)
	r.record.Rewards = append(r.record.Rewards, reward)
	r.record.AvgRewards = append(r.record.AvgRewards, avgReward)
	r.record.BestRewards = append(r.record.BestRewards, best)
	r.record.Losses = append(r.record.Losses, lossValue)
	r.record.Epsilons = append(r.record.Epsilons, epsilon)
	return nil
}

// LogTest appends an evaluation result to the sparse test log.
func (r *Recorder) LogTest(episode int, testReward float64) error {
	if r.saved {
		return ErrRecorderClosed
	}
	r.record.TestEpisodes = append(r.record.TestEpisodes, episode)
	r.record.TestRewards = append(r.record.TestRewards, testReward)
	return nil
}

// LogFinalTests replaces the final evaluation sample. The last call wins.
func (r *Recorder) LogFinalTests(rewards []float64) error {
	if r.saved {
		return ErrRecorderClosed
	}
	r.record.FinalTestRewards = append([]float64{}, rewards...)
	return nil
}

// Save stamps the end time and writes the record under the run key. A failed
// write leaves the recorder open so the caller may retry.
func (r *Recorder) Save(ctx context.Context) error {
	if r.saved {
		return ErrRecorderClosed
	}

	end := NewTimestamp(r.now().UTC())
	finalized := r.record.Clone()
	finalized.EndTime = &end

	if err := r.writer.Put(ctx, r.key, finalized); err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.key, err)
	}

	r.record = finalized
	r.saved = true

	r.log.Info().
		Int("episodes", finalized.Len()).
		Int("tests", len(finalized.TestRewards)).
		Msg("Run record saved")
	return nil
}

// Summarize digests the current state of the run.
func (r *Recorder) Summarize() Summary {
	return r.record.Summarize()
}

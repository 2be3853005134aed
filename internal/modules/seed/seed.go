// Package seed generates reference runs for the four DQN variants so the
// comparison tooling has data before any training happens.
package seed

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/rs/zerolog"
)

const (
	// Episodes is the length of every seeded run.
	Episodes = 1000

	testInterval = 100
	epsilonDecay = 0.995
	epsilonFloor = 0.01
)

// Algorithms returns the algorithm names of the seeded runs in order.
func Algorithms() []string {
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = v.algorithm
	}
	return names
}

// Records builds the reference records, keyed by canonical key. Individual
// rewards equal the running averages. Every record is stamped as saved at
// start.
func Records(start time.Time) map[runlog.Key]*runlog.Record {
	records := make(map[runlog.Key]*runlog.Record, len(variants))
	for _, v := range variants {
		r := v.record(start)
		records[r.Key()] = r
	}
	return records
}

// Seed writes the reference records and returns their keys in order.
func Seed(ctx context.Context, writer runlog.RecordWriter, start time.Time, log zerolog.Logger) ([]runlog.Key, error) {
	log = log.With().Str("component", "seed").Logger()

	keys := make([]runlog.Key, 0, len(variants))
	for _, v := range variants {
		r := v.record(start)
		key := r.Key()
		if err := writer.Put(ctx, key, r); err != nil {
			return keys, fmt.Errorf("failed to seed %s: %w", key, err)
		}
		log.Info().Str("key", string(key)).Int("episodes", r.Len()).Msg("Seeded run")
		keys = append(keys, key)
	}
	return keys, nil
}

func (v variant) record(start time.Time) *runlog.Record {
	r := runlog.NewRecord(v.algorithm, start)
	end := runlog.NewTimestamp(start)
	r.EndTime = &end

	best := v.bestStart
	next := 0
	for ep := 1; ep <= Episodes; ep++ {
		if next < len(v.milestones) && ep >= v.milestones[next].episode {
			best = v.milestones[next].best
			next++
		}

		avg := evaluate(v.avg, ep)
		r.Episodes = append(r.Episodes, ep)
		r.Rewards = append(r.Rewards, avg)
		r.AvgRewards = append(r.AvgRewards, avg)
		r.BestRewards = append(r.BestRewards, best)
		r.Losses = append(r.Losses, evaluate(v.loss, ep))
		r.Epsilons = append(r.Epsilons, math.Max(epsilonFloor, math.Pow(epsilonDecay, float64(ep-1))))
	}

	for i, reward := range v.tests {
		r.TestEpisodes = append(r.TestEpisodes, (i+1)*testInterval)
		r.TestRewards = append(r.TestRewards, reward)
	}
	r.FinalTestRewards = append([]float64{}, v.finalTests...)
	return r
}

// evaluate returns the value of the first segment covering episode. Episodes
// past the last segment take its value.
func evaluate(segments []segment, episode int) float64 {
	for _, s := range segments {
		if episode <= s.until {
			return s.start + float64(episode-s.from)*s.slope
		}
	}
	last := segments[len(segments)-1]
	return last.start + float64(last.until-last.from)*last.slope
}

package testing

import (
	"math"
	"time"

	"github.com/aristath/trainlog/internal/modules/runlog"
)

// FixtureStart is the start time stamped on fixture records.
var FixtureStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// NewRecordFixture builds a saved, valid record with n episodes. Average
// rewards ramp linearly from -100 by step per episode, so the final average
// is -100 + step*(n-1).
func NewRecordFixture(algorithm string, n int, step float64) *runlog.Record {
	r := runlog.NewRecord(algorithm, FixtureStart)
	best := math.Inf(-1)
	for i := 0; i < n; i++ {
		avg := -100 + step*float64(i)
		reward := avg + float64(i%3)
		best = math.Max(best, reward)
		r.Episodes = append(r.Episodes, i+1)
		r.Rewards = append(r.Rewards, reward)
		r.AvgRewards = append(r.AvgRewards, avg)
		r.BestRewards = append(r.BestRewards, best)
		r.Losses = append(r.Losses, 10+float64(i%5))
		r.Epsilons = append(r.Epsilons, math.Max(0.01, math.Pow(0.995, float64(i))))
	}
	for ep := 100; ep <= n; ep += 100 {
		r.TestEpisodes = append(r.TestEpisodes, ep)
		r.TestRewards = append(r.TestRewards, -100+step*float64(ep-1))
	}
	r.FinalTestRewards = []float64{200, 220, 240}

	end := runlog.NewTimestamp(FixtureStart.Add(time.Hour))
	r.EndTime = &end
	return r
}

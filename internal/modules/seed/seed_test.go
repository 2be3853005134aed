package seed

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/trainlog/internal/modules/runlog"
	testutil "github.com/aristath/trainlog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func TestRecords_AllVariantsValid(t *testing.T) {
	records := Records(start)
	require.Len(t, records, 4)

	for _, key := range runlog.KnownKeys {
		r, ok := records[key]
		require.True(t, ok, "missing %s", key)
		require.NoError(t, r.Validate())
		assert.Equal(t, Episodes, r.Len())
		assert.Len(t, r.TestEpisodes, 10)
		assert.Equal(t, 1000, r.TestEpisodes[9])
		assert.Len(t, r.FinalTestRewards, 3)
		assert.True(t, r.Saved())
		assert.Equal(t, r.AvgRewards, r.Rewards)
	}
}

func TestRecords_VanillaCurve(t *testing.T) {
	r := Records(start)[runlog.KeyVanilla]

	assert.InDelta(t, -129.48, r.AvgRewards[0], 1e-9)
	// Episode 11 starts the second ramp at -123.13.
	assert.InDelta(t, -123.13+43.37/40, r.AvgRewards[10], 1e-9)
	assert.InDelta(t, -79.76, r.AvgRewards[49], 1e-9)
	assert.InDelta(t, 144.49, r.AvgRewards[399], 1e-9)
	assert.InDelta(t, 249.50, r.AvgRewards[759], 1e-9)
	assert.InDelta(t, 38.77, r.AvgRewards[Episodes-1], 1e-9)
	assert.InDelta(t, 26.25, r.Losses[0], 1e-9)
	assert.InDelta(t, 16.35, r.Losses[99], 1e-9)
	assert.InDelta(t, 28.97, r.Losses[Episodes-1], 1e-9)
}

func TestRecords_BestRewardMilestones(t *testing.T) {
	r := Records(start)[runlog.KeyD3QN]

	assert.Equal(t, -341.07, r.BestRewards[0])
	assert.Equal(t, -341.07, r.BestRewards[97]) // episode 98
	assert.Equal(t, 1.25, r.BestRewards[98])    // episode 99
	assert.Equal(t, 316.88, r.BestRewards[Episodes-1])

	for i := 1; i < len(r.BestRewards); i++ {
		assert.GreaterOrEqual(t, r.BestRewards[i], r.BestRewards[i-1])
	}
}

func TestRecords_Epsilon(t *testing.T) {
	r := Records(start)[runlog.KeyDueling]

	assert.Equal(t, 1.0, r.Epsilons[0])
	assert.InDelta(t, 0.995, r.Epsilons[1], 1e-12)
	assert.Equal(t, 0.01, r.Epsilons[Episodes-1])
}

func TestSeed_WritesAllKeys(t *testing.T) {
	repo := testutil.NewMockRepository()

	keys, err := Seed(context.Background(), repo, start, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, runlog.KnownKeys, keys)
	assert.Equal(t, 4, repo.Puts)

	r, err := repo.Get(context.Background(), runlog.KeyDouble)
	require.NoError(t, err)
	assert.Equal(t, "Double DQN", r.Algorithm)
}

func TestSeed_StopsOnWriteFailure(t *testing.T) {
	repo := testutil.NewMockRepository()
	repo.SetPutError(assert.AnError)

	keys, err := Seed(context.Background(), repo, start, zerolog.Nop())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, keys)
}

func TestAlgorithms(t *testing.T) {
	assert.Equal(t, []string{"Vanilla DQN", "Double DQN", "Dueling DQN", "D3QN"}, Algorithms())
}

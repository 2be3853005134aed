package runlog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	testutil "github.com/aristath/trainlog/internal/testing"
	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func ptr(v float64) *float64 { return &v }

func TestRecorder_SeriesStayAligned(t *testing.T) {
	rec := runlog.NewRecorder("Double DQN", testutil.NewMockRepository(), zerolog.Nop())
	assert.Equal(t, runlog.KeyDouble, rec.Key())

	for k := 1; k <= 25; k++ {
		require.NoError(t, rec.LogEpisode(k, float64(k), float64(k)/2, float64(k), ptr(1.5), 0.9))

		r := rec.Record()
		assert.Len(t, r.Episodes, k)
		assert.Len(t, r.Rewards, k)
		assert.Len(t, r.AvgRewards, k)
		assert.Len(t, r.BestRewards, k)
		assert.Len(t, r.Losses, k)
		assert.Len(t, r.Epsilons, k)
	}
}

func TestRecorder_BestRewardNeverDecreases(t *testing.T) {
	rec := runlog.NewRecorder("Vanilla DQN", testutil.NewMockRepository(), zerolog.Nop())

	rewards := []float64{-120, 30, -50, 80, 10, 5, 200, -300}
	supplied := []float64{-120, 30, 10, 80, 40, 5, 200, 150}
	for i := range rewards {
		require.NoError(t, rec.LogEpisode(i+1, rewards[i], 0, supplied[i], nil, 1))
	}

	best := rec.Record().BestRewards
	for i := 1; i < len(best); i++ {
		assert.GreaterOrEqual(t, best[i], best[i-1], "best reward decreased at %d", i)
	}
	assert.Equal(t, []float64{-120, 30, 30, 80, 80, 80, 200, 200}, best)
}

func TestRecorder_BestRewardIncludesEpisodeReward(t *testing.T) {
	rec := runlog.NewRecorder("Vanilla DQN", testutil.NewMockRepository(), zerolog.Nop())

	require.NoError(t, rec.LogEpisode(1, 50, 50, 10, nil, 1))

	assert.Equal(t, []float64{50}, rec.Record().BestRewards)
}

func TestRecorder_NilLossStoredAsZero(t *testing.T) {
	rec := runlog.NewRecorder("Vanilla DQN", testutil.NewMockRepository(), zerolog.Nop())

	require.NoError(t, rec.LogEpisode(1, 1, 1, 1, nil, 1))
	require.NoError(t, rec.LogEpisode(2, 1, 1, 1, ptr(3.25), 0.99))

	assert.Equal(t, []float64{0, 3.25}, rec.Record().Losses)
}

func TestRecorder_AcceptsOutOfOrderEpisodes(t *testing.T) {
	rec := runlog.NewRecorder("Vanilla DQN", testutil.NewMockRepository(), zerolog.Nop())

	require.NoError(t, rec.LogEpisode(5, 1, 1, 1, nil, 1))
	require.NoError(t, rec.LogEpisode(5, 1, 1, 1, nil, 1))
	require.NoError(t, rec.LogEpisode(2, 1, 1, 1, nil, 1))

	assert.Equal(t, []int{5, 5, 2}, rec.Record().Episodes)
}

func TestRecorder_TestLogsAreIndependent(t *testing.T) {
	rec := runlog.NewRecorder("Dueling DQN", testutil.NewMockRepository(), zerolog.Nop())

	require.NoError(t, rec.LogEpisode(1, 1, 1, 1, nil, 1))
	require.NoError(t, rec.LogTest(100, 12.5))
	require.NoError(t, rec.LogTest(200, 99))

	r := rec.Record()
	assert.Equal(t, []int{100, 200}, r.TestEpisodes)
	assert.Equal(t, []float64{12.5, 99}, r.TestRewards)
	assert.Len(t, r.Episodes, 1)
}

func TestRecorder_FinalTestsLastCallWins(t *testing.T) {
	rec := runlog.NewRecorder("D3QN", testutil.NewMockRepository(), zerolog.Nop())

	input := []float64{1, 2, 3}
	require.NoError(t, rec.LogFinalTests(input))
	require.NoError(t, rec.LogFinalTests([]float64{276.87, 266.91, -92.94}))
	input[0] = 999

	assert.Equal(t, []float64{276.87, 266.91, -92.94}, rec.Record().FinalTestRewards)
}

func TestRecorder_SaveStampsEndTimeAndCloses(t *testing.T) {
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	repo := testutil.NewMockRepository()
	rec := runlog.NewRecorder("Dueling Double DQN", repo, zerolog.Nop(), runlog.WithClock(fixedClock(start, end)))

	require.NoError(t, rec.LogEpisode(1, 10, 10, 10, nil, 1))
	require.NoError(t, rec.Save(context.Background()))

	assert.True(t, rec.Saved())
	saved, err := repo.Get(context.Background(), runlog.KeyD3QN)
	require.NoError(t, err)
	require.NotNil(t, saved.EndTime)
	assert.True(t, saved.StartTime.Equal(start))
	assert.True(t, saved.EndTime.Equal(end))
	assert.NotEmpty(t, saved.RunID)

	assert.ErrorIs(t, rec.LogEpisode(2, 1, 1, 1, nil, 1), runlog.ErrRecorderClosed)
	assert.ErrorIs(t, rec.LogTest(2, 1), runlog.ErrRecorderClosed)
	assert.ErrorIs(t, rec.LogFinalTests([]float64{1}), runlog.ErrRecorderClosed)
	assert.ErrorIs(t, rec.Save(context.Background()), runlog.ErrRecorderClosed)
	assert.Equal(t, 1, repo.Puts)
}

func TestRecorder_SaveFailurePropagates(t *testing.T) {
	storageErr := errors.New("disk full")
	repo := testutil.NewMockRepository()
	repo.SetPutError(storageErr)
	rec := runlog.NewRecorder("Vanilla DQN", repo, zerolog.Nop())

	err := rec.Save(context.Background())

	assert.ErrorIs(t, err, storageErr)
	assert.False(t, rec.Saved())
	assert.Nil(t, rec.Record().EndTime)
	assert.NoError(t, rec.LogEpisode(1, 1, 1, 1, nil, 1))
}

func TestRecorder_SummarizeEmpty(t *testing.T) {
	rec := runlog.NewRecorder("Vanilla DQN", testutil.NewMockRepository(), zerolog.Nop())

	summary := rec.Summarize()

	assert.True(t, summary.Empty)
	assert.Equal(t, "No data logged yet", summary.String())
}

func TestRecorder_Summarize(t *testing.T) {
	rec := runlog.NewRecorder("Double DQN", testutil.NewMockRepository(), zerolog.Nop())
	require.NoError(t, rec.LogEpisode(1, -50, -50, -50, nil, 1))
	require.NoError(t, rec.LogEpisode(2, 120, 35, 120, ptr(2), 0.99))
	require.NoError(t, rec.LogEpisode(3, 90, 53.3, 120, ptr(2), 0.98))
	require.NoError(t, rec.LogTest(3, 80))

	summary := rec.Summarize()
	assert.False(t, summary.Empty)
	assert.Equal(t, 3, summary.Episodes)
	assert.Equal(t, 120.0, summary.BestReward)
	assert.Equal(t, 53.3, summary.FinalAvgReward)
	assert.Equal(t, 1, summary.TestCount)
	assert.Nil(t, summary.FinalTestMean)
	assert.NotContains(t, summary.String(), "Final test average")

	require.NoError(t, rec.LogFinalTests([]float64{219.52, 193.40, 192.39}))
	summary = rec.Summarize()
	require.NotNil(t, summary.FinalTestMean)
	assert.InDelta(t, 201.77, *summary.FinalTestMean, 0.001)

	text := summary.String()
	assert.Contains(t, text, "Episodes: 3")
	assert.Contains(t, text, "Best reward: 120.00")
	assert.Contains(t, text, "Final average: 53.30")
	assert.Contains(t, text, "Test count: 1")
	assert.Contains(t, text, "Final test average: 201.77")
}

func TestRecorder_SaveCustomNamesToFiles(t *testing.T) {
	repo := runlog.NewFileRepository(t.TempDir(), zerolog.Nop())
	names := []string{
		"Prioritized Experience Replay Noisy Distributional Multi Step Rainbow Agent Variant DQN v2",
		"레인보우 DQN",
		"Vanilla DQN",
	}

	for _, name := range names {
		rec := runlog.NewRecorder(name, repo, zerolog.Nop())
		require.NoError(t, rec.LogEpisode(1, 5, 5, 5, nil, 1))
		require.NoError(t, rec.Save(context.Background()), name)
	}

	keys, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, len(names))

	vanilla, err := repo.Get(context.Background(), runlog.KeyVanilla)
	require.NoError(t, err)
	assert.Equal(t, "Vanilla DQN", vanilla.Algorithm)
}

package comparison_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/trainlog/internal/modules/comparison"
	"github.com/aristath/trainlog/internal/modules/runlog"
	testutil "github.com/aristath/trainlog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*comparison.Service, *testutil.MockRepository) {
	t.Helper()
	repo := testutil.NewMockRepository()
	repo.SetRecord(runlog.KeyVanilla, testutil.NewRecordFixture("Vanilla DQN", 200, 0.5))
	repo.SetRecord(runlog.KeyDouble, testutil.NewRecordFixture("Double DQN", 200, 1.0))
	return comparison.NewService(repo, comparison.DefaultSettings(), zerolog.Nop()), repo
}

func TestBuildComparison_SkipsMissingKeepsOrder(t *testing.T) {
	svc, _ := newService(t)

	c, err := svc.BuildComparison(context.Background(), []runlog.Key{"vanilla", "missing_key", "double"})
	require.NoError(t, err)

	assert.Equal(t, []runlog.Key{runlog.KeyVanilla, runlog.KeyDouble}, c.Keys())
	require.Len(t, c.Outcomes, 3)
	assert.Equal(t, comparison.StatusIncluded, c.Outcomes[0].Status)
	assert.Equal(t, comparison.StatusMissing, c.Outcomes[1].Status)
	assert.Equal(t, runlog.Key("missing_key"), c.Outcomes[1].Key)
	assert.Equal(t, comparison.StatusIncluded, c.Outcomes[2].Status)

	skipped := c.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, runlog.Key("missing_key"), skipped[0].Key)
}

func TestBuildComparison_Curves(t *testing.T) {
	svc, _ := newService(t)

	c, err := svc.BuildComparison(context.Background(), []runlog.Key{runlog.KeyDouble})
	require.NoError(t, err)

	run, ok := c.Run(runlog.KeyDouble)
	require.True(t, ok)
	assert.Equal(t, "Double DQN", run.Label)
	assert.Equal(t, 200, run.Episodes)

	// 200 values smoothed over 50 leave 151 points starting at episode 50.
	require.Len(t, run.RewardCurve.Values, 151)
	assert.Equal(t, 50, run.RewardCurve.Episodes[0])
	assert.Equal(t, 200, run.RewardCurve.Episodes[150])
	assert.InDelta(t, -75.5, run.RewardCurve.Values[0], 1e-9)

	require.Len(t, run.LossCurve.Values, 181)
	assert.Equal(t, 20, run.LossCurve.Episodes[0])
	assert.Len(t, run.RawLossCurve.Values, 200)
	assert.Len(t, run.EpsilonCurve.Values, 200)
	assert.Equal(t, []int{100, 200}, run.TestCurve.Episodes)

	require.Len(t, run.SuccessRates, 2)
	assert.Equal(t, 100, run.SuccessRates[0].Episode)
	assert.Equal(t, 200, run.SuccessRates[1].Episode)
	assert.Equal(t, 0.0, run.SuccessRates[1].Rate)
}

func TestBuildComparison_SuccessThreshold(t *testing.T) {
	repo := testutil.NewMockRepository()
	repo.SetRecord(runlog.KeyDouble, testutil.NewRecordFixture("Double DQN", 200, 1.0))
	settings := comparison.DefaultSettings()
	settings.SuccessThreshold = 0
	svc := comparison.NewService(repo, settings, zerolog.Nop())

	c, err := svc.BuildComparison(context.Background(), []runlog.Key{runlog.KeyDouble})
	require.NoError(t, err)

	run, _ := c.Run(runlog.KeyDouble)
	require.Len(t, run.SuccessRates, 2)
	assert.InDelta(t, 0.0, run.SuccessRates[0].Rate, 1e-9)
	assert.InDelta(t, 100.0, run.SuccessRates[1].Rate, 1e-9)
}

func TestBuildComparison_Scores(t *testing.T) {
	svc, _ := newService(t)

	c, err := svc.BuildComparison(context.Background(), []runlog.Key{runlog.KeyVanilla, runlog.KeyDouble})
	require.NoError(t, err)

	vanilla, _ := c.Run(runlog.KeyVanilla)
	double, _ := c.Run(runlog.KeyDouble)

	assert.InDelta(t, 100.0, double.BestReward, 1e-9)
	assert.InDelta(t, 99.0, double.FinalAverage, 1e-9)
	assert.InDelta(t, 220.0, double.FinalTestMean, 1e-9)
	assert.InDelta(t, 0.5, vanilla.BestReward, 1e-9)
	assert.InDelta(t, -0.5, vanilla.FinalAverage, 1e-9)

	assert.InDelta(t, 100.0, double.Normalized.BestReward, 1e-9)
	assert.InDelta(t, 100.0, double.Normalized.FinalAverage, 1e-9)
	assert.InDelta(t, 100.0, double.Normalized.FinalTestMean, 1e-9)
	assert.InDelta(t, 100.0, double.Normalized.Composite, 1e-9)

	assert.InDelta(t, 0.5, vanilla.Normalized.BestReward, 1e-9)
	assert.InDelta(t, 100.0, vanilla.Normalized.FinalTestMean, 1e-9)
	want := (0.5 + (-0.5/99.0)*100 + 100) / 3
	assert.InDelta(t, want, vanilla.Normalized.Composite, 1e-9)

	assert.Equal(t, []runlog.Key{runlog.KeyDouble, runlog.KeyVanilla}, c.Ranking())
}

func TestBuildComparison_SkipsMalformedAndFailed(t *testing.T) {
	svc, repo := newService(t)

	broken := testutil.NewRecordFixture("Dueling DQN", 10, 1.0)
	broken.Losses = broken.Losses[:5]
	repo.SetRecord(runlog.KeyDueling, broken)
	repo.SetGetError(runlog.KeyD3QN, errors.New("disk on fire"))

	c, err := svc.BuildComparison(context.Background(), []runlog.Key{
		runlog.KeyDueling, runlog.KeyD3QN, runlog.KeyDouble,
	})
	require.NoError(t, err)

	assert.Equal(t, []runlog.Key{runlog.KeyDouble}, c.Keys())
	assert.Equal(t, comparison.StatusMalformed, c.Outcomes[0].Status)
	assert.Equal(t, comparison.StatusFailed, c.Outcomes[1].Status)
	assert.Contains(t, c.Outcomes[1].Reason, "disk on fire")
}

func TestBuildComparison_EmptyRecordScoresZero(t *testing.T) {
	repo := testutil.NewMockRepository()
	repo.SetRecord("empty", runlog.NewRecord("empty", testutil.FixtureStart))
	svc := comparison.NewService(repo, comparison.DefaultSettings(), zerolog.Nop())

	c, err := svc.BuildComparison(context.Background(), []runlog.Key{"empty"})
	require.NoError(t, err)

	run, ok := c.Run("empty")
	require.True(t, ok)
	assert.Equal(t, 0.0, run.BestReward)
	assert.Equal(t, 0.0, run.FinalAverage)
	assert.Equal(t, 0.0, run.Normalized.Composite)
	assert.Empty(t, run.RewardCurve.Values)
}

func TestBuildComparison_NoKeys(t *testing.T) {
	svc, _ := newService(t)

	c, err := svc.BuildComparison(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, c.Runs)
	assert.Empty(t, c.Outcomes)
	assert.Empty(t, c.Ranking())
}

func TestBuildComparison_CancelledContext(t *testing.T) {
	svc, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.BuildComparison(ctx, []runlog.Key{runlog.KeyVanilla})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadRun(t *testing.T) {
	svc, _ := newService(t)

	record, err := svc.LoadRun(context.Background(), runlog.KeyVanilla)
	require.NoError(t, err)
	assert.Equal(t, "Vanilla DQN", record.Algorithm)

	_, err = svc.LoadRun(context.Background(), runlog.KeyD3QN)
	assert.ErrorIs(t, err, runlog.ErrMissingRun)
}

func TestAvailableKeys_KnownFirst(t *testing.T) {
	svc, repo := newService(t)
	repo.SetRecord("rainbow", testutil.NewRecordFixture("Rainbow", 5, 1.0))
	repo.SetRecord(runlog.KeyD3QN, testutil.NewRecordFixture("D3QN", 5, 1.0))

	keys, err := svc.AvailableKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []runlog.Key{runlog.KeyVanilla, runlog.KeyDouble, runlog.KeyD3QN, "rainbow"}, keys)
}

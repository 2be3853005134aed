package runlog_test

import (
	"strings"
	"testing"

	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		want runlog.Key
	}{
		{"Dueling Double DQN", runlog.KeyD3QN},
		{"double_dueling_dqn", runlog.KeyD3QN},
		{"D3QN", runlog.KeyD3QN},
		{"Double DQN", runlog.KeyDouble},
		{"double", runlog.KeyDouble},
		{"Dueling DQN", runlog.KeyDueling},
		{"Vanilla DQN", runlog.KeyVanilla},
		{"DQN", runlog.KeyVanilla},
		{"", runlog.KeyVanilla},
		{"Rainbow DQN", runlog.Key("rainbow")},
		{"PER-DQN v2", runlog.Key("perv2")},
		{"  Noisy  Net ", runlog.Key("noisynet")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runlog.Canonicalize(tt.name))
		})
	}
}

func TestCanonicalize_Deterministic(t *testing.T) {
	for _, name := range []string{"Dueling Double DQN", "Rainbow", "Vanilla DQN", "레인보우", strings.Repeat("x", 200)} {
		assert.Equal(t, runlog.Canonicalize(name), runlog.Canonicalize(name))
		assert.True(t, runlog.Canonicalize(name).Valid())
	}
}

func TestCanonicalize_NonASCIIName(t *testing.T) {
	hangul := runlog.Canonicalize("레인보우 DQN")
	assert.NotEqual(t, runlog.KeyVanilla, hangul)
	assert.NotEqual(t, runlog.Canonicalize("DQN"), hangul)
	assert.True(t, strings.HasPrefix(string(hangul), "run_"), hangul)
	assert.True(t, hangul.Valid())
	assert.Equal(t, hangul, runlog.Canonicalize("레인보우 DQN"))
	assert.NotEqual(t, hangul, runlog.Canonicalize("노이지넷 DQN"))

	mixed := runlog.Canonicalize("Rainbow 레인보우")
	assert.True(t, strings.HasPrefix(string(mixed), "rainbow_"), mixed)
	assert.NotEqual(t, runlog.Canonicalize("Rainbow"), mixed)
	assert.True(t, mixed.Valid())

	punct := runlog.Canonicalize("DQN (?)")
	assert.NotEqual(t, runlog.KeyVanilla, punct)
	assert.True(t, punct.Valid())
}

func TestCanonicalize_LongName(t *testing.T) {
	name := "Prioritized Experience Replay Noisy Distributional Multi Step Rainbow Agent Variant DQN v2"
	key := runlog.Canonicalize(name)

	assert.True(t, key.Valid(), key)
	assert.LessOrEqual(t, len(key), runlog.MaxKeyLength)
	assert.True(t, strings.HasPrefix(string(key), "prioritizedexperience"), key)
	assert.Equal(t, key, runlog.Canonicalize(name))

	other := runlog.Canonicalize(strings.TrimSuffix(name, "v2") + "v3")
	assert.True(t, other.Valid())
	assert.NotEqual(t, key, other)

	exact := strings.Repeat("a", runlog.MaxKeyLength)
	assert.Equal(t, runlog.Key(exact), runlog.Canonicalize(exact))
}

func TestKey_Label(t *testing.T) {
	assert.Equal(t, "Vanilla DQN", runlog.KeyVanilla.Label())
	assert.Equal(t, "D3QN", runlog.KeyD3QN.Label())
	assert.Equal(t, "rainbow", runlog.Key("rainbow").Label())
	assert.True(t, runlog.KeyDueling.IsKnown())
	assert.False(t, runlog.Key("rainbow").IsKnown())
}

func TestKey_Valid(t *testing.T) {
	assert.True(t, runlog.Key("missing_key").Valid())
	assert.False(t, runlog.Key("").Valid())
	assert.False(t, runlog.Key("../etc").Valid())
	assert.False(t, runlog.Key("Vanilla").Valid())
}

package runlog

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaxKeyLength bounds the length of a storage key.
const MaxKeyLength = 64

// hashSuffixLength is the number of hex digits appended to disambiguate
// custom keys that lost characters.
const hashSuffixLength = 8

// Key is the canonical identifier of a run. It names the persisted record.
type Key string

// Known algorithm variants
const (
	KeyVanilla Key = "vanilla"
	KeyDouble  Key = "double"
	KeyDueling Key = "dueling"
	KeyD3QN    Key = "d3qn"
)

// KnownKeys lists the known variants in their conventional comparison order.
var KnownKeys = []Key{KeyVanilla, KeyDouble, KeyDueling, KeyD3QN}

var keyLabels = map[Key]string{
	KeyVanilla: "Vanilla DQN",
	KeyDouble:  "Double DQN",
	KeyDueling: "Dueling DQN",
	KeyD3QN:    "D3QN",
}

// Canonicalize maps a free-form algorithm name to its canonical key.
//
// The name is lower-cased, separators are dropped and the "dqn" suffix is
// removed. Names carrying both dueling and double map to d3qn, then double,
// then dueling. A name that is empty after stripping, or says vanilla, maps to
// vanilla. Anything else becomes a custom key built from its remaining ASCII
// letters and digits, so "Rainbow DQN" yields "rainbow".
//
// When non-ASCII characters are dropped, nothing usable remains, or the key
// would exceed MaxKeyLength, a short hash of the stripped name is appended so
// distinct names keep distinct keys. The result always satisfies Valid.
func Canonicalize(name string) Key {
	s := strings.ToLower(name)
	s = strings.NewReplacer(" ", "", "_", "", "-", "", "\t", "").Replace(s)
	s = strings.ReplaceAll(s, "dqn", "")

	hasDueling := strings.Contains(s, "dueling")
	hasDouble := strings.Contains(s, "double")

	switch {
	case hasDueling && hasDouble, strings.Contains(s, "d3qn"):
		return KeyD3QN
	case hasDouble:
		return KeyDouble
	case hasDueling:
		return KeyDueling
	case strings.Contains(s, "vanilla"):
		return KeyVanilla
	}

	if s == "" {
		return KeyVanilla
	}

	lossy := false
	custom := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r > 0x7f {
			lossy = true
		}
		return -1
	}, s)

	if custom == "" {
		custom = "run"
		lossy = true
	}

	if !lossy && len(custom) <= MaxKeyLength {
		return Key(custom)
	}

	sum := sha256.Sum256([]byte(s))
	suffix := "_" + hex.EncodeToString(sum[:])[:hashSuffixLength]
	if limit := MaxKeyLength - len(suffix); len(custom) > limit {
		custom = custom[:limit]
	}
	return Key(custom + suffix)
}

// IsKnown reports whether k is one of the four built-in variants.
func (k Key) IsKnown() bool {
	_, ok := keyLabels[k]
	return ok
}

// Label returns the display name used by renderers.
func (k Key) Label() string {
	if label, ok := keyLabels[k]; ok {
		return label
	}
	return string(k)
}

// Valid reports whether k is safe to use as a storage identifier.
func (k Key) Valid() bool {
	if k == "" || len(k) > MaxKeyLength {
		return false
	}
	for _, r := range k {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_') {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return string(k)
}

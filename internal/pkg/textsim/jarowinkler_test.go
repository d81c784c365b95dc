package textsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaroWinklerIdenticalStrings(t *testing.T) {
	for _, s := range []string{"a", "laptop", "iphone 15 pro", "冰箱"} {
		assert.Equal(t, 1.0, JaroWinkler(s, s), "identical: %q", s)
	}
}

func TestJaroWinklerEmptyStrings(t *testing.T) {
	assert.Equal(t, 0.0, JaroWinkler("", "laptop"))
	assert.Equal(t, 0.0, JaroWinkler("laptop", ""))
	assert.Equal(t, 0.0, JaroWinkler("", ""))
}

func TestJaroWinklerNoMatchingCharacters(t *testing.T) {
	assert.Equal(t, 0.0, JaroWinkler("abc", "xyz"))
}

func TestJaroWinklerSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"laptop", "labtop"},
		{"martha", "marhta"},
		{"dixon", "dicksonx"},
		{"phone", "iphone"},
	}
	for _, p := range pairs {
		assert.InDelta(t, JaroWinkler(p[0], p[1]), JaroWinkler(p[1], p[0]), 1e-12,
			"symmetry: %q vs %q", p[0], p[1])
	}
}

func TestJaroWinklerKnownValues(t *testing.T) {
	// 经典参考值：MARTHA/MARHTA jaro=0.944..., winkler=0.961...
	assert.InDelta(t, 0.9611, JaroWinkler("martha", "marhta"), 0.0005)
	// DWAYNE/DUANE jaro=0.822..., winkler=0.84
	assert.InDelta(t, 0.8400, JaroWinkler("dwayne", "duane"), 0.0005)
}

func TestJaroWinklerPrefixBonus(t *testing.T) {
	// 公共前缀使得相似度高于无前缀的乱序变体。
	withPrefix := JaroWinkler("laptop", "laptpo")
	noPrefix := JaroWinkler("laptop", "aptopl")
	assert.Greater(t, withPrefix, noPrefix)
}

func TestJaroWinklerBounds(t *testing.T) {
	pairs := [][2]string{
		{"a", "b"}, {"ab", "ba"}, {"typo", "type"}, {"x", "xxxxxxx"},
	}
	for _, p := range pairs {
		v := JaroWinkler(p[0], p[1])
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

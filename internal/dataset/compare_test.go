package dataset

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1", 1, true},
		{" 1.5 ", 1.5, true},
		{"-3", -3, true},
		{"1e3", 1000, true},
		{"", 0, false},
		{"B1", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLooseEqual(t *testing.T) {
	assert.True(t, LooseEqual("1", "1"))
	assert.True(t, LooseEqual("1", " 1"))
	assert.True(t, LooseEqual("1", "1.0"))
	assert.True(t, LooseEqual("01", "1"))
	assert.True(t, LooseEqual("B1", " B1 "))
	assert.True(t, LooseEqual("", "  "))

	assert.False(t, LooseEqual("1", "2"))
	assert.False(t, LooseEqual("B1", "b1"))
	assert.False(t, LooseEqual("1", "B1"))
	assert.False(t, LooseEqual("", "0"))
}

func TestLooseKey(t *testing.T) {
	pairs := [][2]string{{"1", "01"}, {"1", "1.0"}, {" 2", "2"}, {"0", "-0"}, {"B1", " B1 "}}
	for _, p := range pairs {
		assert.Equal(t, LooseKey(p[0]), LooseKey(p[1]), p)
		assert.True(t, LooseEqual(p[0], p[1]), p)
	}
	assert.NotEqual(t, LooseKey("1"), LooseKey("2"))
	assert.NotEqual(t, LooseKey("1"), LooseKey("B1"))
	assert.NotEqual(t, LooseKey(""), LooseKey("0"))
}

func TestCompareLoose_SortsNumbersNumerically(t *testing.T) {
	values := []string{"10", "2", "B", "1", "A"}
	sort.SliceStable(values, func(i, j int) bool {
		return CompareLoose(values[i], values[j]) < 0
	})
	assert.Equal(t, []string{"1", "2", "10", "A", "B"}, values)
}

func TestCompareLoose_EqualNumbersFallBackToText(t *testing.T) {
	assert.Negative(t, CompareLoose("1", "1.0"))
	assert.Zero(t, CompareLoose("3", "3"))
}

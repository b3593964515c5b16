package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStemHash(t *testing.T) {
	assert.Equal(t, StemHash("What is  a tort?"), StemHash("  what is a\tTORT? "))
	assert.NotEqual(t, StemHash("What is a tort?"), StemHash("What is a crime?"))
	assert.Len(t, StemHash("x"), 64)
}

func TestParseSourceRefs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"Outline p. 4", []string{"Outline p. 4"}},
		{" A | B ||C ", []string{"A", "B", "C"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSourceRefs(tt.in))
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.234))
	assert.Equal(t, 3.76, Round2(3.756))
	assert.Equal(t, 0.0, Round2(0))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, 0, LabelIndex("A"))
	assert.Equal(t, 4, LabelIndex(" e "))
	assert.Equal(t, -1, LabelIndex("AB"))
	assert.Equal(t, -1, LabelIndex("1"))
	assert.Equal(t, "C", IndexLabel(2))
}

func TestPointerHelpers(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "x", *StringPtr("x"))
	assert.Nil(t, IntPtr(0))
	assert.Equal(t, 3, *IntPtr(3))
	assert.Equal(t, 5, MaxInt(-2, 5))
	assert.Equal(t, 0, MaxInt(0, -40))
}

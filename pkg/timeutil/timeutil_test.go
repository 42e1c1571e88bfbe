package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		input    string
		expected int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"09:30", 570},
		{"13:45", 825},
		{" 10:15 ", 615},
	}
	for _, tc := range cases {
		got, err := ToMinutes(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, got, tc.input)
	}
}

func TestToMinutesMalformed(t *testing.T) {
	for _, input := range []string{"", "9", "9:0:0", "ab:cd", "10:xx", "noon"} {
		_, err := ToMinutes(input)
		require.Error(t, err, input)
		assert.ErrorIs(t, err, ErrMalformedTime, input)
	}
}

func TestOverlapsSymmetric(t *testing.T) {
	cases := [][4]int{
		{540, 600, 570, 630},
		{540, 600, 600, 660},
		{540, 600, 480, 545},
		{540, 600, 540, 600},
		{540, 600, 700, 760},
	}
	for _, c := range cases {
		assert.Equal(t,
			Overlaps(c[0], c[1], c[2], c[3]),
			Overlaps(c[2], c[3], c[0], c[1]),
			"overlap must be symmetric for %v", c)
	}
}

func TestOverlapsTouchingBoundaries(t *testing.T) {
	// A slot ending at 10:00 and one starting at 10:00 share no time.
	assert.False(t, Overlaps(540, 600, 600, 660))
	assert.False(t, Overlaps(600, 660, 540, 600))
}

func TestOverlapsPartial(t *testing.T) {
	assert.True(t, Overlaps(540, 600, 570, 630))
	assert.True(t, Overlaps(540, 660, 570, 600), "containment counts as overlap")
	assert.False(t, Overlaps(540, 600, 660, 720))
}

func TestDurationHours(t *testing.T) {
	d, err := DurationHours("09:00", "10:30")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, d, 0.0001)

	_, err = DurationHours("bad", "10:00")
	assert.ErrorIs(t, err, ErrMalformedTime)
}

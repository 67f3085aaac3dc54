package rte

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "PT0H0M0S"},
		{59*time.Second + 900*time.Millisecond, "PT0H0M59S"},
		{61 * time.Minute, "PT1H1M0S"},
		{26*time.Hour + 5*time.Second, "PT26H0M5S"},
		{-time.Second, "PT0H0M0S"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT0H0M0S", 0},
		{"PT1H2M3S", time.Hour + 2*time.Minute + 3*time.Second},
		{"PT1.5S", 1500 * time.Millisecond},
		{"P1D", 24 * time.Hour},
		{"P1DT1H", 25 * time.Hour},
		{"PT90M", 90 * time.Minute},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "P", "PT", "1H", "PT-1S", "PTxS"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	d := 3*time.Hour + 14*time.Minute + 15*time.Second
	got, err := ParseDuration(FormatDuration(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

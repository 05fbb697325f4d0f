package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", input: "30s", want: 30 * time.Second},
		{name: "minutes", input: "1m", want: time.Minute},
		{name: "hours", input: "1h", want: time.Hour},
		{name: "days", input: "1d", want: 24 * time.Hour},
		{name: "multi digit", input: "90s", want: 90 * time.Second},
		{name: "surrounding spaces", input: " 15m ", want: 15 * time.Minute},
		{name: "unknown unit defaults", input: "10w", want: DefaultWindow, wantErr: true},
		{name: "missing unit defaults", input: "30", want: DefaultWindow, wantErr: true},
		{name: "empty defaults", input: "", want: DefaultWindow, wantErr: true},
		{name: "negative defaults", input: "-5s", want: DefaultWindow, wantErr: true},
		{name: "zero defaults", input: "0s", want: DefaultWindow, wantErr: true},
		{name: "garbage defaults", input: "abc", want: DefaultWindow, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindow(tt.input)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDuration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicyWindowFallsBackOnBadInput(t *testing.T) {
	pol := fixedWindowPolicy(10, "not-a-window")
	assert.Equal(t, DefaultWindow, pol.Window())
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, fixedWindowPolicy(3, "30s").Validate())
	require.NoError(t, slidingWindowPolicy(3, "10s").Validate())
	require.NoError(t, tokenBucketPolicy(4, "1m").Validate())

	bad := fixedWindowPolicy(3, "30s")
	bad.Algorithm = "leaky-bucket"
	assert.ErrorIs(t, bad.Validate(), ErrUnknownAlgorithm)

	bad = fixedWindowPolicy(0, "30s")
	assert.ErrorIs(t, bad.Validate(), ErrInvalidLimit)

	bad = fixedWindowPolicy(3, "30s")
	bad.ClientIDType = "session"
	assert.ErrorIs(t, bad.Validate(), ErrUnknownClientIDType)
}

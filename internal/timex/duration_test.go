package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{`"15m"`, 15 * time.Minute},
		{`"1h30m"`, 90 * time.Minute},
		{`1000000000`, time.Second},
		{`0`, 0},
	}
	for _, tt := range tests {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(tt.in), &d), tt.in)
		assert.Equal(t, tt.want, d.Duration, tt.in)
	}
}

func TestDuration_UnmarshalErrors(t *testing.T) {
	for _, in := range []string{`"soon"`, `true`, `{}`, `[1]`} {
		var d Duration
		assert.Error(t, json.Unmarshal([]byte(in), &d), in)
	}
}

func TestDuration_MarshalRoundTrip(t *testing.T) {
	b, err := json.Marshal(struct {
		TTL Duration `json:"ttl"`
	}{Duration{15 * time.Minute}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ttl":"15m0s"}`, string(b))
}

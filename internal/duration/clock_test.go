package duration

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		want   Duration
		wantOK bool
	}{
		{"0:00", 0, true},
		{"12:34", 12, true},
		{"1:02:03", 62, true},
		{"1-00:00:00", 1440, true},
		{"2-03:04:05", 2*1440 + 3*60 + 4, true},
		{"1-02:30", 1440 + 150, true},
		{"30", 30, true},
		{"UNLIMITED", 0, false},
		{"INVALID", 0, false},
		{"N/A", 0, false},
		{"", 0, false},
		{"1:2:3:4", 0, false},
		{"9999999999999999-00:00:00", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseClock(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDuration_FlagValue(t *testing.T) {
	var d Duration
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&d, "time", "walltime")

	require.NoError(t, fs.Parse([]string{"--time", "1d 6h 30m"}))
	assert.Equal(t, Duration(1830), d)
	assert.Equal(t, "duration", fs.Lookup("time").Value.Type())

	err := fs.Parse([]string{"--time", "soon"})
	require.Error(t, err)
}

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		level   string
		want    zap.AtomicLevel
		wantErr bool
	}{
		"empty":   {level: "", want: zap.NewAtomicLevelAt(zap.InfoLevel)},
		"debug":   {level: "DEBUG", want: zap.NewAtomicLevelAt(zap.DebugLevel)},
		"warning": {level: "warning", want: zap.NewAtomicLevelAt(zap.WarnLevel)},
		"error":   {level: " error ", want: zap.NewAtomicLevelAt(zap.ErrorLevel)},
		"unknown": {level: "loud", wantErr: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			lvl, err := ParseLevel(tc.level)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want.Level(), lvl)
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New("debug", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = New("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = New("nope", false)
	assert.Error(t, err)
}

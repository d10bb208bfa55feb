package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { Log.SetLevel(logrus.WarnLevel) })

	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			require.NoError(t, SetLevel(tc.in))
			assert.Equal(t, tc.want, Log.GetLevel())
		})
	}
}

func TestSetLevel_Unknown(t *testing.T) {
	assert.Error(t, SetLevel("verbose"))
}

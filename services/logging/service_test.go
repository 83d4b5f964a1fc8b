package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"json format", Config{Level: Info, Format: "json"}},
		{"console format", Config{Level: Debug, Format: "console"}},
		{"default output", Config{Level: Warn, Format: "json", OutputPath: "stdout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.config)
			require.NoError(t, err)
			assert.NotNil(t, svc.Logger())
			assert.NotNil(t, svc.Sugar())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel(Debug))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel(Info))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel(Warn))
	assert.Equal(t, zapcore.ErrorLevel, parseLogLevel(Error))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel(LogLevel("bogus")))
}

func TestNilServiceIsSafe(t *testing.T) {
	var svc *Service

	svc.Debug("ignored")
	svc.Info("ignored")
	svc.Warn("ignored")
	svc.Error("ignored")
	assert.Nil(t, svc.Logger())
	assert.Nil(t, svc.Sugar())
	assert.NoError(t, svc.Sync())
}

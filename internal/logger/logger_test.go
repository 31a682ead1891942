package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zap.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zap.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zap.InfoLevel, parseLevel(""))
	assert.Equal(t, zap.InfoLevel, parseLevel("verbose"))
}

func TestNewReturnsUsableLogger(t *testing.T) {
	lg := New("debug")
	assert.NotNil(t, lg)
	lg.Debugw("logger ready", "component", "test")
}

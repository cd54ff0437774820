package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	logger, err := New("debug", false)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = New("warn", true)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New("loud", false)
	assert.Error(t, err)
}

func TestSentry_DisabledIsNoop(t *testing.T) {
	s, err := SetupSentry("", "development", "")
	require.NoError(t, err)

	// must not panic without a client
	s.Capture(errors.New("boom"), "PETR4")
	s.Flush()

	var nilSentry *Sentry
	nilSentry.Capture(errors.New("boom"), "")
	nilSentry.Flush()
}

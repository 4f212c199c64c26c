package telemetry_test

import (
	"sync"
	"testing"

	"github.com/erp/bizdesk/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "bizdesk",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, profiler)

	assert.False(t, profiler.IsEnabled())
	assert.NoError(t, profiler.Stop())
}

func TestNewProfiler_NilLogger(t *testing.T) {
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, nil)
	require.NoError(t, err)
	assert.NoError(t, profiler.Stop())
}

func TestNewProfiler_EnabledRequiresSettings(t *testing.T) {
	tests := []struct {
		name    string
		cfg     telemetry.ProfilerConfig
		message string
	}{
		{
			name:    "server address",
			cfg:     telemetry.ProfilerConfig{Enabled: true, ApplicationName: "bizdesk"},
			message: "server address is required",
		},
		{
			name:    "application name",
			cfg:     telemetry.ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"},
			message: "application name is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiler, err := telemetry.NewProfiler(tt.cfg, zaptest.NewLogger(t))
			require.Error(t, err)
			assert.Nil(t, profiler)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestProfiler_StopIsIdempotentAndConcurrent(t *testing.T) {
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, profiler.Stop())
		}()
	}
	wg.Wait()
	assert.NoError(t, profiler.Stop())
}

func TestDefaultProfileTypes(t *testing.T) {
	assert.NotEmpty(t, telemetry.DefaultProfileTypes)
}

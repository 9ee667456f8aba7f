package a010

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesSensorDefaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 2, cfg.InitialUnit)
	assert.Equal(t, 80, cfg.AutoRange.Saturation)
	assert.Equal(t, 50, cfg.AutoRange.Percentile)
	assert.Equal(t, 150, cfg.AutoRange.RangeSpan)
	assert.Equal(t, 25, cfg.AutoRange.ROIOriginX)
	assert.Equal(t, 25, cfg.AutoRange.ROIOriginY)
	assert.Equal(t, 50, cfg.AutoRange.ROIWidth)
	assert.Equal(t, 50, cfg.AutoRange.ROIHeight)
	assert.InDelta(t, 0.1, cfg.Temporal.LearningWeight, 1e-9)
	assert.InDelta(t, 64.0, cfg.Temporal.NoiseFloor, 1e-9)
	assert.Equal(t, 32, cfg.Temporal.FlickerLimit)
}

func TestTuningConfigResolveOverridesOnlySetFields(t *testing.T) {
	t.Parallel()

	sat := 60
	tc := &TuningConfig{Saturation: &sat}
	cfg := tc.Resolve()

	assert.Equal(t, 60, cfg.AutoRange.Saturation)
	assert.Equal(t, 50, cfg.AutoRange.Percentile, "unset fields keep the default")
}

func TestTuningConfigResolveNilReceiverYieldsDefaults(t *testing.T) {
	t.Parallel()

	var tc *TuningConfig
	assert.Equal(t, DefaultConfig(), tc.Resolve())
}

func TestTuningConfigValidateRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	bad := 150
	tc := &TuningConfig{Saturation: &bad}
	require.Error(t, tc.Validate())
}

func TestLoadTuningConfigRoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"saturation": 70, "initial_unit": 4}`), 0o600))

	tc, err := LoadTuningConfig(path)
	require.NoError(t, err)
	cfg := tc.Resolve()
	assert.Equal(t, 70, cfg.AutoRange.Saturation)
	assert.Equal(t, 4, cfg.InitialUnit)
}

func TestLoadTuningConfigRejectsWrongExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	_, err := LoadTuningConfig(path)
	require.Error(t, err)
}

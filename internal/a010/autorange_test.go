package a010

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRangeCfg() AutoRangeConfig {
	return AutoRangeConfig{
		Saturation: 80,
		Percentile: 50,
		RangeSpan:  150,
		ROIOriginX: 25,
		ROIOriginY: 25,
		ROIWidth:   50,
		ROIHeight:  50,
	}
}

func TestAutoRangeNoChangeWhenStable(t *testing.T) {
	t.Parallel()

	ar := newAutoRanger(defaultRangeCfg(), 2)
	var raw [PixCount]byte
	for i := range raw {
		raw[i] = 150 // chosen so goal stays at unit 2 under the default span
	}
	cmd := ar.evaluate(&raw)
	assert.Empty(t, cmd)
	assert.Equal(t, 2, ar.unitCurrent)
	assert.Equal(t, 2, ar.unitPending)
}

func TestAutoRangeSaturationForcesCoarserUnit(t *testing.T) {
	t.Parallel()

	ar := newAutoRanger(defaultRangeCfg(), 3)
	var raw [PixCount]byte
	// Saturate 90% of the ROI; every other pixel is 10.
	for i := range raw {
		raw[i] = 10
	}
	x0, y0, w, h := 25, 25, 50, 50
	saturatedCount := 0
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			idx := (y0+dy)*Width + x0 + dx
			if saturatedCount < (w*h*9)/10 {
				raw[idx] = 255
				saturatedCount++
			}
		}
	}

	cmd := ar.evaluate(&raw)
	require.Equal(t, "AT+UNIT=4\r", cmd)
	assert.Equal(t, 3, ar.unitCurrent, "current unit must not change until acknowledge")
	assert.Equal(t, 4, ar.unitPending)
}

func TestAutoRangeNoSecondCommandWhileOnePending(t *testing.T) {
	t.Parallel()

	ar := newAutoRanger(defaultRangeCfg(), 3)
	ar.unitPending = 4 // simulate a command already outstanding

	var raw [PixCount]byte
	for i := range raw {
		raw[i] = 255
	}
	cmd := ar.evaluate(&raw)
	assert.Empty(t, cmd, "must not issue a second AT+UNIT while one is unacknowledged")
}

func TestAutoRangeAcknowledgeAppliesPendingUnit(t *testing.T) {
	t.Parallel()

	ar := newAutoRanger(defaultRangeCfg(), 2)
	ar.unitPending = 3

	old, newUnit := ar.acknowledge()
	assert.Equal(t, 2, old)
	assert.Equal(t, 3, newUnit)
	assert.Equal(t, 3, ar.unitCurrent)
	assert.Equal(t, 3, ar.unitPending)
}

func TestRescaleCoarseningScalesMeanByTwoThirds(t *testing.T) {
	t.Parallel()

	var mean, vari [PixCount]byte
	for i := range mean {
		mean[i] = 90
		vari[i] = 30
	}
	rescale(&mean, &vari, 2, 3)

	// fp = (2<<8)/3 = 170 (8.8 fixed point ~ 0.664)
	want := (170*90 + 128) >> 8
	assert.Equal(t, byte(want), mean[0])
}

func TestRescaleIdentityIsNoOp(t *testing.T) {
	t.Parallel()

	var mean, vari [PixCount]byte
	for i := range mean {
		mean[i] = 77
		vari[i] = 12
	}
	rescale(&mean, &vari, 4, 4)
	for i := range mean {
		assert.Equal(t, byte(77), mean[i])
		assert.Equal(t, byte(12), vari[i])
	}
}

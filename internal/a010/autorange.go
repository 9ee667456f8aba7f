package a010

import "fmt"

// autoRanger watches a central ROI of the raw image and decides whether the
// sensor's millimetres-per-step unit should change, issuing AT+UNIT
// commands and tracking the pending/current split so a command is never
// sent twice before the sensor has acknowledged the first one.
type autoRanger struct {
	cfg AutoRangeConfig

	unitCurrent int
	unitPending int
}

func newAutoRanger(cfg AutoRangeConfig, initialUnit int) *autoRanger {
	return &autoRanger{
		cfg:         cfg,
		unitCurrent: initialUnit,
		unitPending: initialUnit,
	}
}

// evaluate histograms the ROI of raw and returns a non-empty AT+UNIT
// command string if a unit change should be requested. It never issues a
// second command while one is still pending acknowledgement.
func (a *autoRanger) evaluate(raw *[PixCount]byte) string {
	var hist [256]int
	total := 0

	x0, y0 := a.cfg.ROIOriginX, a.cfg.ROIOriginY
	for dy := 0; dy < a.cfg.ROIHeight; dy++ {
		row := (y0 + dy) * Width
		for dx := 0; dx < a.cfg.ROIWidth; dx++ {
			hist[raw[row+x0+dx]]++
			total++
		}
	}
	if total == 0 {
		return ""
	}

	saturated := hist[255]
	miss := (saturated*100 + total/2) / total // round(100*saturated/total)

	nonSat := total - saturated
	target := (nonSat*a.cfg.Percentile + 50) / 100 // round(pct% of non-saturated)

	bulk := 0
	cum := 0
	for v := 0; v < 255; v++ {
		cum += hist[v]
		if cum >= target {
			bulk = v
			break
		}
	}

	goal := a.unitCurrent
	if a.cfg.RangeSpan != 0 {
		goal = (a.unitCurrent*bulk + a.cfg.RangeSpan/2) / a.cfg.RangeSpan
	}
	if goal < 1 {
		goal = 1
	}
	if goal > 9 {
		goal = 9
	}

	if miss > a.cfg.Saturation && goal <= a.unitCurrent && a.unitCurrent < 9 {
		goal = a.unitCurrent + 1
	}

	if goal == a.unitCurrent || a.unitPending != a.unitCurrent {
		return ""
	}
	a.unitPending = goal
	return fmt.Sprintf("AT+UNIT=%d\r", goal)
}

// acknowledge is called by the driver once the framer detects the sensor
// has switched units (stray bytes ahead of the next sentinel). It applies the
// pending unit and returns the (old, new) pair so the caller can rescale
// the running temporal-filter state.
func (a *autoRanger) acknowledge() (oldUnit, newUnit int) {
	oldUnit = a.unitCurrent
	newUnit = a.unitPending
	a.unitCurrent = a.unitPending
	return oldUnit, newUnit
}

// rescale re-expresses mean/variance state from oldUnit's quantization into
// newUnit's, preserving the estimator's physical-depth mean and scaling the
// variance by the square of the unit ratio.
func rescale(mean, vari *[PixCount]byte, oldUnit, newUnit int) {
	fp := (oldUnit << 8) / newUnit
	fv := (oldUnit * oldUnit << 8) / (newUnit * newUnit)

	for i := range mean {
		p := (fp*int(mean[i]) + 128) >> 8
		v := (fv*int(vari[i]) + 128) >> 8
		mean[i] = byte(saturateByte(p))
		vari[i] = byte(saturateByte(v))
	}
}

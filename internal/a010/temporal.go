package a010

// temporalFilter tracks a Kalman-like running mean and variance per pixel
// so that a single noisy median-filtered frame never whips the published
// depth around; confidence in a new sample is weighed against how much the
// running variance already explains it. Arithmetic is integer-only to
// match jhcTofCam's implementation exactly: the weights fi, cfi, mn and the
// gain k are fixed-point 8.8 integers, while mean, variance and the
// difference d stay in plain pixel units.
type temporalFilter struct {
	cfg TemporalConfig

	fi  int // round(256 * LearningWeight)
	cfi int // 256 - fi
	mn  int // round(256 * NoiseFloor)

	mean [PixCount]byte // p: running mean, same scale as the raw pixel
	vari [PixCount]byte // v: running variance estimate, saturates at 255

	primed bool // false until the first frame has seeded mean/vari
}

func newTemporalFilter(cfg TemporalConfig) *temporalFilter {
	return &temporalFilter{
		cfg: cfg,
		fi:  round256(cfg.LearningWeight),
		cfi: 256 - round256(cfg.LearningWeight),
		mn:  round256(cfg.NoiseFloor),
	}
}

func round256(x float64) int {
	return int(x*256 + 0.5)
}

// update folds med into the running mean/variance and writes the filtered
// result into out, masking a pixel as Invalid if the raw sample saturated,
// the running mean saturated, or the running variance exceeds FlickerLimit
// -- three independent checks, matching jhcTofCam::Reformat's `(*s >= 255)
// || (*p >= 255) || (*v > vlim)`. The first call after construction simply
// seeds the state from med with zero variance; a unit change does not
// re-seed it (the driver rescales the existing state instead).
func (t *temporalFilter) update(raw, med *[PixCount]byte, out *DepthFrame, lut depthLUT, unit int) {
	if !t.primed {
		for i, v := range med {
			t.mean[i] = v
			t.vari[i] = 0
		}
		t.primed = true
	} else {
		for i, m := range med {
			p := int(t.mean[i])
			v := int(t.vari[i])

			d := int(m) - p
			vm := t.cfi*v + t.fi*d*d

			denom := vm + t.mn
			k := 0
			if denom != 0 {
				k = (vm << 8) / denom
			}

			p = (p<<8 + k*d + 128) >> 8
			v = ((256-k)*(vm>>1) + 16384) >> 15

			t.mean[i] = byte(saturateByte(p))
			t.vari[i] = byte(saturateByte(v))
		}
	}

	for i := range med {
		if raw[i] == 255 || t.mean[i] == 255 || int(t.vari[i]) > t.cfg.FlickerLimit {
			out.Pix[i] = Invalid
			continue
		}
		out.Pix[i] = lut[unit-1][t.mean[i]]
	}
}

func saturateByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

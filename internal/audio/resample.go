package audio

// Resampler converts an arbitrary input rate to the canonical 16 kHz rate
// by linear interpolation. It keeps its phase and the last input sample
// across calls, so feeding it chunk by chunk produces the same output as
// one large conversion, with no clicks at chunk seams.
type Resampler struct {
	inRate  int
	outRate int
	step    float64
	pos     float64
	last    int16
	primed  bool
}

// NewResampler creates a resampler from inRate to the canonical rate.
// inRate equal to SampleRate yields a pass-through.
func NewResampler(inRate int) *Resampler {
	return &Resampler{
		inRate:  inRate,
		outRate: SampleRate,
		step:    float64(inRate) / float64(SampleRate),
	}
}

// Process converts one chunk of input samples. The returned slice is owned
// by the caller.
func (r *Resampler) Process(in []int16) []int16 {
	if len(in) == 0 {
		return nil
	}
	if r.inRate == r.outRate {
		out := make([]int16, len(in))
		copy(out, in)
		return out
	}

	// Interpolation runs over [last, in...]; last carries the final sample
	// of the previous chunk so the seam stays continuous.
	if !r.primed {
		r.last = in[0]
		r.primed = true
	}

	out := make([]int16, 0, int(float64(len(in))/r.step)+1)
	for {
		// pos is measured in input samples relative to r.last at index 0,
		// in[0] at index 1, and so on.
		idx := int(r.pos)
		if idx >= len(in) {
			break
		}
		frac := r.pos - float64(idx)
		var s0 int16
		if idx == 0 {
			s0 = r.last
		} else {
			s0 = in[idx-1]
		}
		s1 := in[idx]
		v := float64(s0) + (float64(s1)-float64(s0))*frac
		out = append(out, int16(v))
		r.pos += r.step
	}
	r.pos -= float64(len(in))
	r.last = in[len(in)-1]
	return out
}

// Rate returns the configured input rate.
func (r *Resampler) Rate() int {
	return r.inRate
}

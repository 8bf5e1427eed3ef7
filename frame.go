package jpegls

import "github.com/jpfielding/jpegls-codec/internal/colortransform"

// FrameInfo describes the image being encoded. Immutable once bound
// to an Encoder via SetFrameInfo.
type FrameInfo struct {
	Width           int
	Height          int
	BitsPerSample   int
	ComponentCount  int
}

func (f FrameInfo) validate() *Error {
	if f.Width < 1 || f.Width > 65535 {
		return invalidArgument(InvalidArgumentWidth, "width %d out of range [1,65535]", f.Width)
	}
	if f.Height < 1 || f.Height > 65535 {
		return invalidArgument(InvalidArgumentHeight, "height %d out of range [1,65535]", f.Height)
	}
	if f.BitsPerSample < 2 || f.BitsPerSample > 16 {
		return invalidArgument(InvalidArgumentBitsPerSample, "bits_per_sample %d out of range [2,16]", f.BitsPerSample)
	}
	if f.ComponentCount < 1 || f.ComponentCount > 255 {
		return invalidArgument(InvalidArgumentComponentCount, "component_count %d out of range [1,255]", f.ComponentCount)
	}
	return nil
}

func (f FrameInfo) bytesPerSample() int {
	if f.BitsPerSample <= 8 {
		return 1
	}
	return 2
}

func (f FrameInfo) maxSampleValue() int {
	return (1 << uint(f.BitsPerSample)) - 1
}

// InterleaveMode selects how components share a scan's rows.
type InterleaveMode int

const (
	// InterleaveNone: one scan per component, each a full plane.
	InterleaveNone InterleaveMode = iota
	// InterleaveLine: one scan, components interleaved row by row.
	InterleaveLine
	// InterleaveSample: one scan, components interleaved sample by
	// sample (RGBRGB...).
	InterleaveSample
)

func (m InterleaveMode) valid() bool {
	return m == InterleaveNone || m == InterleaveLine || m == InterleaveSample
}

// ColorTransformation selects an HP reversible RGB transform, a
// vendor extension to base T.87, applied before scan coding. Valid
// only for 3-component 8- or 16-bit frames.
type ColorTransformation int

const (
	ColorTransformationNone ColorTransformation = iota
	ColorTransformationHP1
	ColorTransformationHP2
	ColorTransformationHP3
)

func (c ColorTransformation) toInternal() colortransform.Kind {
	return colortransform.Kind(c)
}

func (c ColorTransformation) valid() bool {
	return c >= ColorTransformationNone && c <= ColorTransformationHP3
}

// PresetCodingParameters mirrors the LSE type-1 payload. A zero field
// means "use the default T.87 Annex C derives from BitsPerSample and
// NearLossless."
type PresetCodingParameters struct {
	MaximumSampleValue int
	Threshold1         int
	Threshold2         int
	Threshold3         int
	ResetValue         int
}

func (p PresetCodingParameters) isZero() bool {
	return p == PresetCodingParameters{}
}

// defaultPresetCodingParameters derives T1, T2, T3 and RESET from
// maxSampleValue and near per T.87 Annex C.2.3, generalizing the
// worked 8-bit-lossless example (T1=3, T2=7, T3=21, RESET=64) to
// arbitrary bit depths and near_lossless values.
func defaultPresetCodingParameters(maxSampleValue, near int) PresetCodingParameters {
	const basicT1, basicT2, basicT3, basicReset = 3, 7, 21, 64

	factor := 1
	for (1 << uint(factor*8)) <= maxSampleValue+1 {
		factor++
	}
	// factor now holds ceil(log2(maxval+1)/8); scale thresholds the
	// way Annex C.2.3 scales them for bit depths other than 8, and
	// widen them by NEAR as its near-lossless correction requires.
	scale := maxSampleValue
	if scale < 1 {
		scale = 1
	}
	clampT := func(t int) int {
		if t < near+1 {
			return near + 1
		}
		if t > maxSampleValue {
			return maxSampleValue
		}
		return t
	}
	if scale == 255 {
		return PresetCodingParameters{
			MaximumSampleValue: maxSampleValue,
			Threshold1:         clampT(basicT1 + near),
			Threshold2:         clampT(basicT2 + near),
			Threshold3:         clampT(basicT3 + near),
			ResetValue:         basicReset,
		}
	}
	t1 := clampT((basicT1*(maxSampleValue+1) + (1 << 7)) / 256)
	t2 := clampT((basicT2*(maxSampleValue+1) + (1 << 7)) / 256)
	t3 := clampT((basicT3*(maxSampleValue+1) + (1 << 7)) / 256)
	return PresetCodingParameters{
		MaximumSampleValue: maxSampleValue,
		Threshold1:         t1,
		Threshold2:         t2,
		Threshold3:         t3,
		ResetValue:         basicReset,
	}
}

func (p PresetCodingParameters) validate(maxAllowed int) *Error {
	if p.MaximumSampleValue < 1 || p.MaximumSampleValue > maxAllowed {
		return invalidArgument(InvalidArgumentPresetCodingParameters, "maximum_sample_value %d out of range", p.MaximumSampleValue)
	}
	if !(0 < p.Threshold1 && p.Threshold1 <= p.Threshold2 && p.Threshold2 <= p.Threshold3 && p.Threshold3 <= p.MaximumSampleValue) {
		return invalidArgument(InvalidArgumentPresetCodingParameters, "thresholds must satisfy 0<T1<=T2<=T3<=maxval, got %d<=%d<=%d<=%d", p.Threshold1, p.Threshold2, p.Threshold3, p.MaximumSampleValue)
	}
	if p.ResetValue < 1 || p.ResetValue > 255 {
		return invalidArgument(InvalidArgumentPresetCodingParameters, "reset_value %d out of range [1,255]", p.ResetValue)
	}
	return nil
}

func maxNearLossless(maxSampleValue int) int {
	limit := (maxSampleValue+1)/2 - 1
	if limit > 255 {
		limit = 255
	}
	if limit < 0 {
		limit = 0
	}
	return limit
}

// Package golomb implements the JPEG-LS Golomb-Rice residual coder:
// mapping a signed prediction error to a non-negative code word and
// emitting it with the escape mechanism T.87 defines for outliers.
package golomb

import "github.com/jpfielding/jpegls-codec/internal/bitio"

// Limits bundles the per-scan constants the escape mechanism needs.
// They depend only on MAXVAL and NEAR and are computed once per scan.
type Limits struct {
	Qbpp  int // ceil(log2((maxval+1)/(2*near+1)))
	Limit int // 2 * (bpp + max(8, bpp))
}

// NewLimits derives Qbpp and Limit from the scan's effective maximum
// sample value and near-lossless parameter, per T.87.
func NewLimits(maxVal, near int) Limits {
	bpp := bitsFor(maxVal + 1)
	if bpp < 2 {
		bpp = 2
	}
	rangeOver := (maxVal + 1) / (2*near + 1)
	qbpp := bitsFor(rangeOver)
	limit := 2 * (bpp + max(8, bpp))
	return Limits{Qbpp: qbpp, Limit: limit}
}

func bitsFor(v int) int {
	n := 0
	for (1 << uint(n)) < v {
		n++
	}
	return n
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Range returns the modular range used to fold a raw prediction error
// (see FoldError) and to reconstruct samples: RANGE =
// (maxval + 2*near + 1) / (2*near + 1), which reduces to maxval+1 in
// the lossless case.
func Range(maxVal, near int) int {
	return (maxVal + 2*near + 1) / (2*near + 1)
}

// FoldError reduces a raw prediction error modulo RANGE into the
// canonical range: [-(RANGE/2), RANGE/2-1] when RANGE is even,
// [-(RANGE-1)/2, (RANGE-1)/2] when it is odd, matching the reduction
// the standard applies before mapping.
func FoldError(errVal, rangeVal int) int {
	errVal %= rangeVal
	if errVal < 0 {
		errVal += rangeVal
	}
	if errVal >= (rangeVal+1)/2 {
		errVal -= rangeVal
	}
	return errVal
}

// Quantize applies the near-lossless error quantization: e becomes
// sign(e) * ((|e|+near)/(2*near+1)). For near == 0 this is the
// identity.
func Quantize(errVal, near int) int {
	if near == 0 {
		return errVal
	}
	if errVal >= 0 {
		return (errVal + near) / (2*near + 1)
	}
	return -((-errVal + near) / (2*near + 1))
}

// Map converts a signed, already-folded error into JPEG-LS's
// non-negative code value M: 2e for e>=0, -2e-1 for e<0.
func Map(errVal int) uint32 {
	if errVal >= 0 {
		return uint32(2 * errVal)
	}
	return uint32(-2*errVal - 1)
}

// Unmap is the inverse of Map, used by the test decoder's
// regular-sample decode path.
func Unmap(mapped uint32) int {
	if mapped&1 == 0 {
		return int(mapped / 2)
	}
	return -int((mapped + 1) / 2)
}

// Encode writes the Golomb-Rice code for mapped value m under
// parameter k, using lim's escape thresholds to bound the unary
// prefix's length.
func Encode(w *bitio.Writer, k int, m uint32, lim Limits) error {
	q := m >> uint(k)
	if int(q) < lim.Limit-lim.Qbpp-1 {
		if err := writeUnary(w, int(q)); err != nil {
			return err
		}
		if k > 0 {
			return w.AppendBits(m&((1<<uint(k))-1), k)
		}
		return nil
	}
	if err := writeUnary(w, lim.Limit-lim.Qbpp-1); err != nil {
		return err
	}
	return w.AppendBits(m-1, lim.Qbpp)
}

func writeUnary(w *bitio.Writer, zeros int) error {
	for zeros >= 24 {
		if err := w.AppendBits(0, 24); err != nil {
			return err
		}
		zeros -= 24
	}
	if zeros > 0 {
		if err := w.AppendBits(0, zeros); err != nil {
			return err
		}
	}
	return w.AppendBits(1, 1)
}

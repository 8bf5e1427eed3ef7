// Package scan implements the LOCO-I state machine (component F): the
// REGULAR/RUN loop that walks one scan row by row, delegating
// prediction to internal/predict, context modeling to
// internal/context, and residual coding to internal/golomb, writing
// its bits through an internal/bitio.Writer.
package scan

import (
	"github.com/jpfielding/jpegls-codec/internal/bitio"
	"github.com/jpfielding/jpegls-codec/internal/context"
	"github.com/jpfielding/jpegls-codec/internal/golomb"
	"github.com/jpfielding/jpegls-codec/internal/predict"
)

// J is the standard's run-length index table (T.87 Annex A), mapping a
// run index in [0,31] to the number of low bits of run length coded
// as a fixed-length suffix rather than the unary prefix.
var J = [32]int{
	0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 5, 5, 6, 6, 7, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

// Params bundles the per-scan constants the coder needs beyond the
// context model and Golomb limits: derived once from FrameInfo,
// NearLossless and the effective maximum sample value.
type Params struct {
	Near     int
	RangeVal int
	MaxVal   int
}

// Coder runs the regular/run state machine over successive rows of
// one scan. A fresh Coder (and a fresh context.Model) is created per
// scan; InterleaveNone allocates one per component, InterleaveLine
// and InterleaveSample share the row loop across components at the
// line-processor level (see internal/scan.LineSource).
type Coder struct {
	model    *context.Model
	runModel *context.RunModel
	limits   golomb.Limits
	p        Params
	runIndex int
}

// NewCoder builds a Coder bound to model and limits, both already
// sized for this scan's preset parameters. The two run-interruption
// contexts are held separately (context.RunModel), seeded from this
// scan's RangeVal and the regular model's RESET threshold.
func NewCoder(model *context.Model, limits golomb.Limits, p Params) *Coder {
	return &Coder{
		model:    model,
		runModel: context.NewRunModel(p.RangeVal, model.Reset()),
		limits:   limits,
		p:        p,
	}
}

// RunContextN reports the occurrence count of one of the two
// run-interruption contexts, used by tests to confirm the path was
// exercised.
func (c *Coder) RunContextN(idx int) int {
	return c.runModel.N(idx)
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// EncodeRow encodes one row of width samples against the previous
// row's reconstructed values, writing entropy-coded bits to w.
//
// cur and prev are guard buffers of length width+1: index 0 is the
// left guard column (representing the sample at x=-1), indices
// 1..width hold the real samples for x=0..width-1. On entry, cur[1:]
// must hold the row's source sample values and prev must be the
// previous row's buffer exactly as EncodeRow left it (or, for the
// first row of a scan, a buffer of width+1 zeros). On return, cur
// holds the row's reconstructed values (identical to the source for
// near_lossless=0) and is ready to serve as the next call's prev.
func (c *Coder) EncodeRow(w *bitio.Writer, cur, prev []int, width int) error {
	// The left guard for this row is the sample directly above it,
	// per the standard's left-column extension rule; the guard column
	// of prev already carries the correct above-left value by
	// induction from how the previous row was built.
	cur[0] = prev[1]

	x := 1
	for x <= width {
		a := cur[x-1]
		b := prev[x]
		cc := prev[x-1]
		var d int
		if x+1 <= width {
			d = prev[x+1]
		} else {
			d = prev[width]
		}

		idx, sign := c.model.Index(d-b, b-cc, cc-a)
		if context.IsZeroContext(idx) &&
			absDiff(a, b) <= c.p.Near &&
			absDiff(b, cc) <= c.p.Near &&
			absDiff(cc, a) <= c.p.Near {
			n, err := c.encodeRun(w, cur, prev, x, width, a)
			if err != nil {
				return err
			}
			x += n
			continue
		}

		if err := c.encodeRegular(w, cur, idx, sign, x, a, b, cc); err != nil {
			return err
		}
		x++
	}
	return nil
}

func (c *Coder) encodeRegular(w *bitio.Writer, cur []int, idx, sign, x, a, b, cc int) error {
	pred := predict.Clip(predict.MED(a, b, cc), 0, c.p.MaxVal)
	corr := sign * c.model.C(idx)
	pred = predict.Clip(pred+corr, 0, c.p.MaxVal)

	rawErr := cur[x] - pred
	if sign < 0 {
		rawErr = -rawErr
	}
	q := golomb.Quantize(rawErr, c.p.Near)
	folded := golomb.FoldError(q, c.p.RangeVal)
	mapped := golomb.Map(folded)

	k := c.model.K(idx)
	if err := golomb.Encode(w, k, mapped, c.limits); err != nil {
		return err
	}
	c.model.Update(idx, folded)

	cur[x] = c.reconstruct(pred, sign*folded)
	return nil
}

// reconstruct undoes the modular error reduction: pred plus the
// dequantized error, wrapped back by RANGE*(2*near+1) when it lands
// more than near outside [0, MaxVal], then clamped to [0, MaxVal].
func (c *Coder) reconstruct(pred, errVal int) int {
	step := 2*c.p.Near + 1
	v := pred + errVal*step
	if v < -c.p.Near {
		v += c.p.RangeVal * step
	} else if v > c.p.MaxVal+c.p.Near {
		v -= c.p.RangeVal * step
	}
	return predict.Clip(v, 0, c.p.MaxVal)
}

// encodeRun extends a run of samples equal to a (within near_lossless)
// from column x, encodes its run-length code, and if the run was
// interrupted by a mismatching sample (rather than the end of the
// row) encodes that sample too. It returns the number of columns
// consumed, including the interruption sample if any.
func (c *Coder) encodeRun(w *bitio.Writer, cur, prev []int, x, width, aVal int) (int, error) {
	start := x
	for x <= width && absDiff(cur[x], aVal) <= c.p.Near {
		cur[x] = aVal
		x++
	}
	runLen := x - start
	endOfLine := x > width

	if err := c.writeRunLength(w, runLen, endOfLine); err != nil {
		return 0, err
	}
	if !endOfLine {
		b := prev[x]
		if err := c.encodeRunInterruption(w, cur, x, aVal, b); err != nil {
			return 0, err
		}
		x++
		if c.runIndex > 0 {
			c.runIndex--
		}
	}
	return x - start, nil
}

func (c *Coder) writeRunLength(w *bitio.Writer, runLen int, endOfLine bool) error {
	remaining := runLen
	for remaining >= (1 << uint(J[c.runIndex])) {
		if err := w.AppendBits(1, 1); err != nil {
			return err
		}
		remaining -= 1 << uint(J[c.runIndex])
		if c.runIndex < 31 {
			c.runIndex++
		}
	}
	if endOfLine {
		return w.AppendBits(1, 1)
	}
	if err := w.AppendBits(0, 1); err != nil {
		return err
	}
	if bits := J[c.runIndex]; bits > 0 {
		return w.AppendBits(uint32(remaining), bits)
	}
	return nil
}

// encodeRunInterruption codes the sample that broke a run. Per T.87
// Annex A.7.2, the run-interruption sample uses one of two predictors
// depending on whether the run value equals the sample above the
// interruption point: when Ra=Rb the sample is predicted from Ra (Rb
// is equal so either works) with no sign adjustment; when Ra!=Rb the
// sample is predicted from Rb instead, with the error flipped by
// sign(Rb-Ra) before quantization, and reconstruction flips it back.
//
// Unlike a regular sample, the interruption sample has no predictor
// to bias-correct, so its Golomb parameter and error mapping come
// from context.RunModel (Annex A.9), not from the 365-entry regular
// model used by encodeRegular.
func (c *Coder) encodeRunInterruption(w *bitio.Writer, cur []int, x, aVal, bVal int) error {
	idx := context.RunInterruptionUnequal
	pred := bVal
	sign := 1
	if aVal == bVal {
		idx = context.RunInterruptionEqual
		pred = aVal
	} else if aVal > bVal {
		sign = -1
	}

	rawErr := sign * (cur[x] - pred)
	q := golomb.Quantize(rawErr, c.p.Near)
	folded := golomb.FoldError(q, c.p.RangeVal)

	k := c.runModel.K(idx)
	mapped := c.runModel.Map(idx, folded, k)
	if err := golomb.Encode(w, k, mapped, c.limits); err != nil {
		return err
	}
	c.runModel.Update(idx, folded, mapped)

	cur[x] = c.reconstruct(pred, sign*folded)
	return nil
}

// Package testdecoder implements a minimal JPEG-LS scan decoder,
// symmetric to internal/scan's encoder, used exclusively by this
// module's own round-trip tests. It is not part of the public API:
// the decoder is an out-of-scope, separate collaborator by design,
// and this package exists only so the encoder's testable properties
// (round-trip lossless, near-lossless error bound, determinism) can
// be checked without an external reference implementation.
package testdecoder

import (
	"errors"

	"github.com/jpfielding/jpegls-codec/internal/context"
	"github.com/jpfielding/jpegls-codec/internal/golomb"
	"github.com/jpfielding/jpegls-codec/internal/predict"
	"github.com/jpfielding/jpegls-codec/internal/scan"
)

// ErrTruncated is returned when the bit source runs out before a row
// finishes decoding.
var ErrTruncated = errors.New("testdecoder: truncated entropy stream")

// bitReader undoes T.87's bit-level stuffing: a byte of 0xFF always
// has its next byte's top bit forced to 0, so only the low 7 bits of
// whatever follows an 0xFF carry real data.
type bitReader struct {
	src       []byte
	pos       int
	reg       uint64
	nbit      int
	lastWasFF bool
}

func newBitReader(src []byte) *bitReader { return &bitReader{src: src} }

func (r *bitReader) fillByte() error {
	if r.pos >= len(r.src) {
		return ErrTruncated
	}
	raw := r.src[r.pos]
	r.pos++
	if r.lastWasFF {
		r.reg = (r.reg << 7) | uint64(raw&0x7f)
		r.nbit += 7
		r.lastWasFF = false
		return nil
	}
	r.reg = (r.reg << 8) | uint64(raw)
	r.nbit += 8
	r.lastWasFF = raw == 0xff
	return nil
}

func (r *bitReader) readBit() (int, error) {
	if r.nbit == 0 {
		if err := r.fillByte(); err != nil {
			return 0, err
		}
	}
	r.nbit--
	bit := int((r.reg >> uint(r.nbit)) & 1)
	return bit, nil
}

func (r *bitReader) readBits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		b, err := r.readBit()
		if err != nil {
			return 0, err
		}
		v = (v << 1) | uint32(b)
	}
	return v, nil
}

func (r *bitReader) readUnary() (int, error) {
	count := 0
	for {
		b, err := r.readBit()
		if err != nil {
			return 0, err
		}
		if b == 1 {
			return count, nil
		}
		count++
	}
}

func decodeGolomb(r *bitReader, k int, lim golomb.Limits) (uint32, error) {
	zeros, err := r.readUnary()
	if err != nil {
		return 0, err
	}
	if zeros < lim.Limit-lim.Qbpp-1 {
		if k == 0 {
			return uint32(zeros), nil
		}
		low, err := r.readBits(k)
		if err != nil {
			return 0, err
		}
		return uint32(zeros)<<uint(k) | low, nil
	}
	v, err := r.readBits(lim.Qbpp)
	if err != nil {
		return 0, err
	}
	return v + 1, nil
}

// RowDecoder mirrors scan.Coder: same state machine, same context
// model conventions, run in reverse to recover samples from bits.
type RowDecoder struct {
	model    *context.Model
	runModel *context.RunModel
	limits   golomb.Limits
	p        scan.Params
	runIndex int
}

func NewRowDecoder(model *context.Model, limits golomb.Limits, p scan.Params) *RowDecoder {
	return &RowDecoder{
		model:    model,
		runModel: context.NewRunModel(p.RangeVal, model.Reset()),
		limits:   limits,
		p:        p,
	}
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// DecodeRow decodes width samples from r into cur, given prev exactly
// as produced by the matching encode (or a width+1 zero buffer for
// the first row of a scan).
func (d *RowDecoder) DecodeRow(r *bitReader, cur, prev []int, width int) error {
	cur[0] = prev[1]

	x := 1
	for x <= width {
		a := cur[x-1]
		b := prev[x]
		cc := prev[x-1]
		var dd int
		if x+1 <= width {
			dd = prev[x+1]
		} else {
			dd = prev[width]
		}

		idx, sign := d.model.Index(dd-b, b-cc, cc-a)
		if context.IsZeroContext(idx) &&
			absDiff(a, b) <= d.p.Near &&
			absDiff(b, cc) <= d.p.Near &&
			absDiff(cc, a) <= d.p.Near {
			n, err := d.decodeRun(r, cur, prev, x, width, a)
			if err != nil {
				return err
			}
			x += n
			continue
		}

		if err := d.decodeRegular(r, cur, idx, sign, x, a, b, cc); err != nil {
			return err
		}
		x++
	}
	return nil
}

func (d *RowDecoder) decodeRegular(r *bitReader, cur []int, idx, sign, x, a, b, cc int) error {
	pred := predict.Clip(predict.MED(a, b, cc), 0, d.p.MaxVal)
	corr := sign * d.model.C(idx)
	pred = predict.Clip(pred+corr, 0, d.p.MaxVal)

	k := d.model.K(idx)
	mapped, err := decodeGolomb(r, k, d.limits)
	if err != nil {
		return err
	}
	folded := golomb.Unmap(mapped)
	d.model.Update(idx, folded)

	cur[x] = d.reconstruct(pred, sign*folded)
	return nil
}

// reconstruct inverts the modular error reduction: a value more than
// near outside [0, MaxVal] wraps by RANGE*(2*near+1) before clamping.
func (d *RowDecoder) reconstruct(pred, errVal int) int {
	step := 2*d.p.Near + 1
	v := pred + errVal*step
	if v < -d.p.Near {
		v += d.p.RangeVal * step
	} else if v > d.p.MaxVal+d.p.Near {
		v -= d.p.RangeVal * step
	}
	return predict.Clip(v, 0, d.p.MaxVal)
}

// readRunLength mirrors writeRunLength bit for bit: it consumes
// whole-chunk '1' bits while a chunk still fits within maxLen, then
// reads exactly one more bit to tell an end-of-line flag from an
// interior stop followed by a fixed-width remainder.
func (d *RowDecoder) readRunLength(r *bitReader, maxLen int) (runLen int, endOfLine bool, err error) {
	consumed := 0
	for {
		chunk := 1 << uint(scan.J[d.runIndex])
		if consumed+chunk > maxLen {
			break
		}
		bit, err := r.readBit()
		if err != nil {
			return 0, false, err
		}
		if bit == 0 {
			if bits := scan.J[d.runIndex]; bits > 0 {
				extra, err := r.readBits(bits)
				if err != nil {
					return 0, false, err
				}
				consumed += int(extra)
			}
			return consumed, false, nil
		}
		consumed += chunk
		if d.runIndex < 31 {
			d.runIndex++
		}
		if consumed == maxLen {
			break
		}
	}
	bit, err := r.readBit()
	if err != nil {
		return 0, false, err
	}
	if bit == 1 {
		return maxLen, true, nil
	}
	if bits := scan.J[d.runIndex]; bits > 0 {
		extra, err := r.readBits(bits)
		if err != nil {
			return 0, false, err
		}
		consumed += int(extra)
	}
	return consumed, false, nil
}

func (d *RowDecoder) decodeRun(r *bitReader, cur, prev []int, x, width, aVal int) (int, error) {
	start := x
	maxLen := width - start + 1

	runLen, endOfLine, err := d.readRunLength(r, maxLen)
	if err != nil {
		return 0, err
	}
	for i := 0; i < runLen; i++ {
		cur[start+i] = aVal
	}
	x = start + runLen
	if !endOfLine {
		b := prev[x]
		if err := d.decodeRunInterruption(r, cur, x, aVal, b); err != nil {
			return 0, err
		}
		x++
		if d.runIndex > 0 {
			d.runIndex--
		}
	}
	return x - start, nil
}

// decodeRunInterruption inverts the run-interruption sample coding of
// T.87 Annex A.7.2: the predictor is Ra when Ra=Rb, and otherwise Rb,
// with the decoded error's sign flipped by sign(Rb-Ra). The Golomb
// parameter and the error mapping come from the two run-interruption
// contexts (context.RunModel, Annex A.9), which carry their own
// accumulator and a negative-error count instead of the regular
// contexts' bias term.
func (d *RowDecoder) decodeRunInterruption(r *bitReader, cur []int, x, aVal, bVal int) error {
	idx := context.RunInterruptionUnequal
	pred := bVal
	sign := 1
	if aVal == bVal {
		idx = context.RunInterruptionEqual
		pred = aVal
	} else if aVal > bVal {
		sign = -1
	}
	k := d.runModel.K(idx)
	mapped, err := decodeGolomb(r, k, d.limits)
	if err != nil {
		return err
	}
	folded := d.runModel.Unmap(idx, mapped, k)
	d.runModel.Update(idx, folded, mapped)
	cur[x] = d.reconstruct(pred, sign*folded)
	return nil
}

// NewBitReader exposes bitReader construction to tests in other
// packages under this module without widening the public API.
func NewBitReader(src []byte) *bitReader { return newBitReader(src) }

// Package context implements the JPEG-LS regular and run-interruption
// context models: Model holds the 365 sign-folded regular contexts
// and their bias-correction statistics; RunModel holds the two
// run-interruption contexts and their distinct Golomb-parameter and
// error-mapping statistics (T.87 Annex A).
package context

// NumRegular is the number of regular (non-run) contexts, 9x9x9
// quantized gradient triples folded by sign symmetry down to 365.
const NumRegular = 365

// RunInterruptionEqual and RunInterruptionUnequal select one of the
// two run-interruption contexts held by RunModel, distinct from the
// NumRegular regular contexts held by Model: the run-interruption
// contexts carry no bias term and use their own Golomb parameter and
// error-mapping formulas (T.87 Annex A.9), so they live in their own
// array rather than being appended to Model's.
const (
	RunInterruptionEqual   = 0 // Ra == Rb
	RunInterruptionUnequal = 1 // Ra != Rb
)

// stat holds one context's running statistics. Fields are kept small
// (12 bytes a context) so the whole 365-entry table stays near 4 KiB.
type stat struct {
	a int32 // accumulated absolute prediction error, >= 1
	b int32 // bias accumulator, signed
	c int16 // correction applied to the prediction, in [-128, 127]
	n int16 // occurrence count, 1 <= n <= reset
}

// Model is the per-scan context table plus the quantization thresholds
// that select a context from the local gradients. A fresh Model is
// created at the start of every scan and discarded at its end.
type Model struct {
	t1, t2, t3 int
	reset      int32
	stats      [NumRegular]stat
}

// New builds a context model with the given quantization thresholds
// and reset value. Every context starts at a=4, n=1, b=0, c=0; a=4 is
// the standard's initial accumulator for RANGE=256 (8-bit lossless),
// and the same value is used for every bit depth.
func New(t1, t2, t3, reset int) *Model {
	m := &Model{t1: t1, t2: t2, t3: t3, reset: int32(reset)}
	for i := range m.stats {
		m.stats[i].a = 4
		m.stats[i].n = 1
	}
	return m
}

// Reset returns the RESET threshold this model was built with, so a
// RunModel sharing the same scan can halve its own statistics at the
// same occurrence count.
func (m *Model) Reset() int { return int(m.reset) }

// quantize buckets a gradient into one of nine regions around zero
// using the thresholds -T3,-T2,-T1,0,T1,T2,T3.
func (m *Model) quantize(d int) int {
	switch {
	case d <= -m.t3:
		return -4
	case d <= -m.t2:
		return -3
	case d <= -m.t1:
		return -2
	case d < 0:
		return -1
	case d == 0:
		return 0
	case d < m.t1:
		return 1
	case d < m.t2:
		return 2
	case d < m.t3:
		return 3
	default:
		return 4
	}
}

// Index computes the regular context for gradients d1=d-b, d2=b-c,
// d3=c-a. It returns the context slot (0..364) and the sign under
// which the context was folded: -1 means the prediction error and the
// bias correction must be negated relative to what this context's
// statistics record, because the first non-zero quantized gradient was
// negative before folding.
func (m *Model) Index(d1, d2, d3 int) (idx, sign int) {
	q1, q2, q3 := m.quantize(d1), m.quantize(d2), m.quantize(d3)
	sign = 1
	if q1 < 0 || (q1 == 0 && q2 < 0) || (q1 == 0 && q2 == 0 && q3 < 0) {
		q1, q2, q3 = -q1, -q2, -q3
		sign = -1
	}
	// Lexicographic non-negativity of (q1,q2,q3) after folding
	// guarantees this always lands in [0, 364]; each qi ranges over
	// [-4,4] but the fold rules out every combination that would push
	// the packed index negative.
	return q1*81 + q2*9 + q3, sign
}

// IsZeroContext reports whether idx is the all-zero-gradient context,
// the only regular context from which RUN mode may be entered.
func IsZeroContext(idx int) bool {
	return idx == 0
}

// K returns the Golomb-Rice parameter for context idx: the smallest k
// such that n<<k >= a.
func (m *Model) K(idx int) int {
	s := &m.stats[idx]
	k := 0
	for (int32(s.n) << uint(k)) < s.a {
		k++
	}
	return k
}

// C returns the bias correction value for context idx.
func (m *Model) C(idx int) int {
	return int(m.stats[idx].c)
}

// N returns the occurrence count for context idx, used by the run
// interruption Golomb parameter computation and by tests.
func (m *Model) N(idx int) int {
	return int(m.stats[idx].n)
}

// A returns the accumulated absolute error for context idx.
func (m *Model) A(idx int) int {
	return int(m.stats[idx].a)
}

// Update folds one more observed (unmapped, unsigned-relative) error
// into context idx: accumulates a and b, halves a, b and n at reset
// (c is left unchanged), and re-runs bias correction.
func (m *Model) Update(idx, errVal int) {
	s := &m.stats[idx]
	s.b += int32(errVal)
	if errVal < 0 {
		s.a += int32(-errVal)
	} else {
		s.a += int32(errVal)
	}
	if int32(s.n) == m.reset {
		s.a >>= 1
		s.n >>= 1
		// b halves rounding toward zero, unlike a and n which floor
		// (both are non-negative so the two rules coincide for them).
		if s.b >= 0 {
			s.b >>= 1
		} else {
			s.b = -((-s.b) >> 1)
		}
	}
	s.n++
	m.correctBias(idx)
}

// correctBias implements the standard's bias nudge: at most one
// decrement (or increment) of c per update, clamping b so it cannot
// walk arbitrarily far outside [-n, n].
func (m *Model) correctBias(idx int) {
	s := &m.stats[idx]
	n := int32(s.n)
	if s.b <= -n {
		s.c--
		if s.c < -128 {
			s.c = -128
		}
		s.b += n
		if s.b <= -n {
			s.b = -n + 1
		}
	} else if s.b > 0 {
		s.c++
		if s.c > 127 {
			s.c = 127
		}
		s.b -= n
		if s.b > 0 {
			s.b = 0
		}
	}
}

// The J run-length index table lives with the scan coder's run state,
// not here: it is per-scan state driven by the standard's run-mode
// table, not per-context statistics.

// runStat holds one run-interruption context's statistics: an
// accumulated-error sum, an occurrence count, and a count of negative
// errors seen. T.87 Annex A.9 gives run-interruption samples no
// predictor to bias-correct, so there is no b/c pair here, only the
// (a, n, nn) triple the standard's run-mode Golomb coder uses.
type runStat struct {
	a, n, nn int32
}

// RunModel holds the two run-interruption contexts (Ra==Rb and
// Ra!=Rb) for one scan. It is deliberately not part of Model: T.87
// Annex A.9 gives these two contexts a distinct Golomb parameter
// formula and an NN-adaptive error mapping instead of the regular
// contexts' bias-corrected machinery, so folding them into the same
// stats array and Update path (as the 365 regular contexts use) would
// silently apply the wrong update rule to run-interruption samples.
type RunModel struct {
	reset          int32
	equal, unequal runStat
}

// NewRunModel initializes both run-interruption contexts per T.87
// Annex A.2.1 step 1.d: a = max(2, (RANGE+32)/64), n = 1, nn = 0.
// rangeVal is golomb.Range(maxVal, near) for this scan; reset is the
// same RESET threshold the scan's regular Model was built with.
func NewRunModel(rangeVal, reset int) *RunModel {
	aInit := int32((rangeVal + 32) / 64)
	if aInit < 2 {
		aInit = 2
	}
	return &RunModel{
		reset:   int32(reset),
		equal:   runStat{a: aInit, n: 1},
		unequal: runStat{a: aInit, n: 1},
	}
}

func (m *RunModel) stat(idx int) *runStat {
	if idx == RunInterruptionEqual {
		return &m.equal
	}
	return &m.unequal
}

// runInterruptionType is T.87's RItype: 0 for the Ra==Rb context, 1
// for Ra!=Rb. It folds into both the Golomb parameter formula and the
// accumulator update below.
func runInterruptionType(idx int) int32 {
	if idx == RunInterruptionEqual {
		return 0
	}
	return 1
}

// K returns the Golomb-Rice parameter for run-interruption context
// idx: the smallest k such that n<<k >= a + (n>>1)*RItype, per T.87
// Annex A.9 (get_golomb_code).
func (m *RunModel) K(idx int) int {
	s := m.stat(idx)
	temp := s.a + (s.n>>1)*runInterruptionType(idx)
	n := s.n
	k := 0
	for n<<uint(k) < temp {
		k++
	}
	return k
}

// N returns the occurrence count for run-interruption context idx,
// used by tests to confirm the path was exercised.
func (m *RunModel) N(idx int) int {
	return int(m.stat(idx).n)
}

// mapBit decides, per T.87 Annex A.9's auxiliary map computation,
// whether errVal's Golomb code should take the odd (map=1) or even
// (map=0) code point at this k: the NN-adaptive sign convention that
// replaces the regular contexts' fixed 2|e|/2|e|-1 parity.
func mapBit(s *runStat, errVal, k int) bool {
	switch {
	case k == 0 && errVal > 0 && 2*s.nn < s.n:
		return true
	case errVal < 0 && 2*s.nn >= s.n:
		return true
	case errVal < 0 && k != 0:
		return true
	default:
		return false
	}
}

// Map folds a signed run-interruption error (already quantized and
// range-folded exactly as a regular sample's error is) into the
// non-negative value Golomb-coded under parameter k.
func (m *RunModel) Map(idx, errVal, k int) uint32 {
	abs := errVal
	if abs < 0 {
		abs = -abs
	}
	if mapBit(m.stat(idx), errVal, k) {
		return uint32(2*abs - 1)
	}
	return uint32(2 * abs)
}

// Unmap inverts Map: given the raw Golomb-decoded value and the k it
// was decoded under, recovers the signed run-interruption error.
func (m *RunModel) Unmap(idx int, mapped uint32, k int) int {
	s := m.stat(idx)
	bit := mapped & 1
	abs := (int32(mapped) + int32(bit)) / 2
	negative := (k != 0 || 2*s.nn >= s.n) == (bit != 0)
	if negative {
		return -int(abs)
	}
	return int(abs)
}

// Update folds one more observed run-interruption error into context
// idx, given the Golomb-coded value (mapped) that Map/the bitstream
// produced for it. Per T.87 Annex A.9's variable update: nn counts
// negative errors, a accumulates from the mapped value rather than
// from |errVal| directly, and all three fields halve at RESET.
func (m *RunModel) Update(idx, errVal int, mapped uint32) {
	s := m.stat(idx)
	t := runInterruptionType(idx)
	if errVal < 0 {
		s.nn++
	}
	s.a += (int32(mapped) + 1 - t) >> 1
	if s.n == m.reset {
		s.a >>= 1
		s.n >>= 1
		s.nn >>= 1
	}
	s.n++
}

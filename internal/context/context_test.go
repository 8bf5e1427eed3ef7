package context_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/jpegls-codec/internal/context"
)

func TestIndexIsAlwaysInRange(t *testing.T) {
	m := context.New(3, 7, 21, 64)
	for d1 := -300; d1 <= 300; d1 += 17 {
		for d2 := -300; d2 <= 300; d2 += 23 {
			for d3 := -300; d3 <= 300; d3 += 29 {
				idx, sign := m.Index(d1, d2, d3)
				require.GreaterOrEqual(t, idx, 0)
				require.Less(t, idx, context.NumRegular)
				assert.Contains(t, []int{-1, 1}, sign)
			}
		}
	}
}

func TestIndexZeroGradientIsZeroContext(t *testing.T) {
	m := context.New(3, 7, 21, 64)
	idx, sign := m.Index(0, 0, 0)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, sign)
	assert.True(t, context.IsZeroContext(idx))
}

func TestIndexFoldsOppositeSignsToSameContext(t *testing.T) {
	m := context.New(3, 7, 21, 64)
	idxPos, signPos := m.Index(5, 2, -1)
	idxNeg, signNeg := m.Index(-5, -2, 1)
	assert.Equal(t, idxPos, idxNeg)
	assert.Equal(t, signPos, -signNeg)
}

func TestKGrowsWithAccumulatedError(t *testing.T) {
	m := context.New(3, 7, 21, 64)
	idx, _ := m.Index(0, 0, 0)
	kBefore := m.K(idx)
	for i := 0; i < 20; i++ {
		m.Update(idx, 50)
	}
	kAfter := m.K(idx)
	assert.Greater(t, kAfter, kBefore)
}

func TestUpdateHalvesStatsAtReset(t *testing.T) {
	m := context.New(3, 7, 21, 4)
	idx, _ := m.Index(0, 0, 0)
	for i := 0; i < 4; i++ {
		m.Update(idx, 3)
	}
	// n wrapped from 4 (== reset) back down after halving, then +1.
	assert.Equal(t, 3, m.N(idx))
}

func TestBiasCorrectionStaysWithinBounds(t *testing.T) {
	m := context.New(3, 7, 21, 64)
	idx, _ := m.Index(1, 0, 0)
	for i := 0; i < 500; i++ {
		m.Update(idx, -40)
	}
	assert.GreaterOrEqual(t, m.C(idx), -128)
	assert.LessOrEqual(t, m.C(idx), 127)
}

func TestRunInterruptionContextsAreDistinctSlots(t *testing.T) {
	assert.NotEqual(t, context.RunInterruptionEqual, context.RunInterruptionUnequal)

	rm := context.NewRunModel(256, 64)
	k := rm.K(context.RunInterruptionEqual)
	mapped := rm.Map(context.RunInterruptionEqual, 5, k)
	rm.Update(context.RunInterruptionEqual, 5, mapped)
	assert.Equal(t, 2, rm.N(context.RunInterruptionEqual))
	assert.Equal(t, 1, rm.N(context.RunInterruptionUnequal))
}

func TestRunModelGolombParameterGrowsWithAccumulatedError(t *testing.T) {
	rm := context.NewRunModel(256, 64)
	kBefore := rm.K(context.RunInterruptionUnequal)
	for i := 0; i < 20; i++ {
		k := rm.K(context.RunInterruptionUnequal)
		mapped := rm.Map(context.RunInterruptionUnequal, 40, k)
		rm.Update(context.RunInterruptionUnequal, 40, mapped)
	}
	kAfter := rm.K(context.RunInterruptionUnequal)
	assert.Greater(t, kAfter, kBefore)
}

func TestRunModelMapUnmapRoundTrips(t *testing.T) {
	rm := context.NewRunModel(256, 64)
	for _, errVal := range []int{-5, -1, 0, 1, 5, 12} {
		k := rm.K(context.RunInterruptionUnequal)
		mapped := rm.Map(context.RunInterruptionUnequal, errVal, k)
		got := rm.Unmap(context.RunInterruptionUnequal, mapped, k)
		assert.Equal(t, errVal, got)
		rm.Update(context.RunInterruptionUnequal, errVal, mapped)
	}
}

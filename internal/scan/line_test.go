package scan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/jpegls-codec/internal/colortransform"
	"github.com/jpfielding/jpegls-codec/internal/scan"
)

// buildPlanarSource lays out componentCount full planes back to back,
// matching InterleaveNone's byte layout: sample(comp,y,x) = comp*1000
// + y*100 + x, distinct enough that a misrouted row shows up clearly.
func buildPlanarSource(width, height, componentCount int) []byte {
	src := make([]byte, componentCount*height*width)
	for comp := 0; comp < componentCount; comp++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				src[comp*height*width+y*width+x] = byte((comp*7 + y*3 + x) % 256)
			}
		}
	}
	return src
}

// TestPlaneRowInterleaveNoneFourComponents exercises the boundary case
// spec.md section 8 flags as under-tested: component_count=4 under
// InterleaveNone, one full plane per component.
func TestPlaneRowInterleaveNoneFourComponents(t *testing.T) {
	const width, height, comps = 5, 3, 4
	src := buildPlanarSource(width, height, comps)
	ls := &scan.LineSource{
		Width: width, Height: height, ComponentCount: comps,
		BytesPerSample: 1, Stride: scan.NaturalStride(width, 1, comps, scan.InterleaveNone),
		Interleave: scan.InterleaveNone,
	}
	row := make([]int, width)
	for comp := 0; comp < comps; comp++ {
		for y := 0; y < height; y++ {
			ls.PlaneRow(src, comp, y, row)
			for x := 0; x < width; x++ {
				want := int(byte((comp*7 + y*3 + x) % 256))
				assert.Equal(t, want, row[x], "comp=%d y=%d x=%d", comp, y, x)
			}
		}
	}
}

// buildLineInterleavedSource lays out one row per component per
// scanline (InterleaveLine): row y holds comp0's width samples, then
// comp1's, etc.
func buildLineInterleavedSource(width, height, componentCount int) []byte {
	src := make([]byte, height*componentCount*width)
	stride := scan.NaturalStride(width, 1, componentCount, scan.InterleaveLine)
	for y := 0; y < height; y++ {
		for comp := 0; comp < componentCount; comp++ {
			for x := 0; x < width; x++ {
				src[y*stride+comp*width+x] = byte((comp*11 + y*5 + x) % 256)
			}
		}
	}
	return src
}

// TestPlaneRowInterleaveLineFourComponents covers the 4-component
// InterleaveLine path the spec explicitly calls out as worth
// confirming in testing.
func TestPlaneRowInterleaveLineFourComponents(t *testing.T) {
	const width, height, comps = 6, 4, 4
	src := buildLineInterleavedSource(width, height, comps)
	ls := &scan.LineSource{
		Width: width, Height: height, ComponentCount: comps,
		BytesPerSample: 1, Stride: scan.NaturalStride(width, 1, comps, scan.InterleaveLine),
		Interleave: scan.InterleaveLine,
	}
	row := make([]int, width)
	for y := 0; y < height; y++ {
		for comp := 0; comp < comps; comp++ {
			ls.PlaneRow(src, comp, y, row)
			for x := 0; x < width; x++ {
				want := int(byte((comp*11 + y*5 + x) % 256))
				assert.Equal(t, want, row[x], "comp=%d y=%d x=%d", comp, y, x)
			}
		}
	}
}

// buildSampleInterleavedSource lays out componentCount samples per
// pixel in sequence (InterleaveSample): pixel order C0C1C2C3, C0C1C2C3...
func buildSampleInterleavedSource(width, height, componentCount int) []byte {
	src := make([]byte, width*height*componentCount)
	stride := scan.NaturalStride(width, 1, componentCount, scan.InterleaveSample)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for comp := 0; comp < componentCount; comp++ {
				src[y*stride+x*componentCount+comp] = byte((comp*13 + y*7 + x) % 256)
			}
		}
	}
	return src
}

// TestSampleRowInterleaveSampleFourComponents covers the 4-component
// InterleaveSample path (no color transform, since HP transforms only
// apply to 3-component frames).
func TestSampleRowInterleaveSampleFourComponents(t *testing.T) {
	const width, height, comps = 5, 3, 4
	src := buildSampleInterleavedSource(width, height, comps)
	ls := &scan.LineSource{
		Width: width, Height: height, ComponentCount: comps,
		BytesPerSample: 1, Stride: scan.NaturalStride(width, 1, comps, scan.InterleaveSample),
		Interleave: scan.InterleaveSample,
	}
	outs := make([][]int, comps)
	for i := range outs {
		outs[i] = make([]int, width)
	}
	for y := 0; y < height; y++ {
		ls.SampleRow(src, y, outs)
		for x := 0; x < width; x++ {
			for comp := 0; comp < comps; comp++ {
				want := int(byte((comp*13 + y*7 + x) % 256))
				assert.Equal(t, want, outs[comp][x], "comp=%d y=%d x=%d", comp, y, x)
			}
		}
	}
}

// TestSampleRowAppliesColorTransformOnlyForThreeComponents confirms
// the three-component RGB path still decorrelates via the configured
// HP transform, and that the transform is bypassed entirely once
// ComponentCount != 3 (four-component frames always pass samples
// through untouched, per internal/colortransform's scope).
func TestSampleRowAppliesColorTransformOnlyForThreeComponents(t *testing.T) {
	const width, height = 2, 1
	src := []byte{10, 20, 30, 1, 2, 3}
	ls := &scan.LineSource{
		Width: width, Height: height, ComponentCount: 3,
		BytesPerSample: 1, Stride: scan.NaturalStride(width, 1, 3, scan.InterleaveSample),
		Interleave: scan.InterleaveSample, Transform: colortransform.HP1, TransformRangeVal: 256,
	}
	outs := [][]int{make([]int, width), make([]int, width), make([]int, width)}
	ls.SampleRow(src, 0, outs)

	want0 := colortransform.Forward(colortransform.HP1, colortransform.Triplet{V1: 10, V2: 20, V3: 30}, 256)
	want1 := colortransform.Forward(colortransform.HP1, colortransform.Triplet{V1: 1, V2: 2, V3: 3}, 256)
	require.Equal(t, want0.V1, outs[0][0])
	require.Equal(t, want0.V2, outs[1][0])
	require.Equal(t, want0.V3, outs[2][0])
	require.Equal(t, want1.V1, outs[0][1])
	require.Equal(t, want1.V2, outs[1][1])
	require.Equal(t, want1.V3, outs[2][1])
}

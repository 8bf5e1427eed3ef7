package scan

import "github.com/jpfielding/jpegls-codec/internal/colortransform"

// Interleave mirrors the public InterleaveMode enum without importing
// the root package, which would create an import cycle (the root
// package imports internal/scan).
type Interleave int

const (
	InterleaveNone Interleave = iota
	InterleaveLine
	InterleaveSample
)

// LineSource materializes rows of a scan from the caller's source
// buffer, in the byte layout Interleave implies, applying the
// optional HP color transform to RGB triplets as it does. It performs
// no allocation beyond the row buffers callers hand it: every read
// method fills a caller-owned slice.
type LineSource struct {
	Width, Height     int
	ComponentCount    int
	BytesPerSample    int // 1 for bits_per_sample<=8, else 2
	Stride            int // bytes between the start of successive rows
	Interleave        Interleave
	Transform         colortransform.Kind
	TransformRangeVal int
}

func (l *LineSource) sample(src []byte, byteOffset int) int {
	if l.BytesPerSample == 1 {
		return int(src[byteOffset])
	}
	return int(src[byteOffset]) | int(src[byteOffset+1])<<8
}

// planeStride is the distance, in bytes, between successive rows of a
// single component's plane under InterleaveNone, where components are
// stored as Height full rows back to back per component.
func (l *LineSource) planeStride() int {
	return l.Stride
}

// PlaneRow decodes one row of a single component into out (length
// Width), used for InterleaveNone (one full plane per scan) and for
// InterleaveLine (one component's row within a line-interleaved scan,
// called once per component per row).
func (l *LineSource) PlaneRow(src []byte, comp, y int, out []int) {
	switch l.Interleave {
	case InterleaveNone:
		planeBase := comp * l.planeStride() * l.Height
		rowBase := planeBase + y*l.Stride
		for x := 0; x < l.Width; x++ {
			out[x] = l.sample(src, rowBase+x*l.BytesPerSample)
		}
	case InterleaveLine:
		rowBase := y*l.Stride + comp*l.Width*l.BytesPerSample
		for x := 0; x < l.Width; x++ {
			out[x] = l.sample(src, rowBase+x*l.BytesPerSample)
		}
	default:
		panic("scan: PlaneRow called for a non-planar interleave mode")
	}
}

// SampleRow decodes one row for InterleaveSample, filling outs[c][x]
// for every component c and column x from pixel-interleaved source
// bytes (component 0, component 1, ... repeated per pixel). len(outs)
// must equal ComponentCount and each slice must have length Width.
// If a color transform is configured and ComponentCount == 3, it is
// applied per pixel across the three output rows.
func (l *LineSource) SampleRow(src []byte, y int, outs [][]int) {
	rowBase := y * l.Stride
	pixelStride := l.ComponentCount * l.BytesPerSample
	for x := 0; x < l.Width; x++ {
		base := rowBase + x*pixelStride
		if l.Transform != colortransform.None && l.ComponentCount == 3 {
			t := colortransform.Forward(l.Transform, colortransform.Triplet{
				V1: l.sample(src, base),
				V2: l.sample(src, base+l.BytesPerSample),
				V3: l.sample(src, base+2*l.BytesPerSample),
			}, l.TransformRangeVal)
			outs[0][x], outs[1][x], outs[2][x] = t.V1, t.V2, t.V3
			continue
		}
		for c := 0; c < l.ComponentCount; c++ {
			outs[c][x] = l.sample(src, base+c*l.BytesPerSample)
		}
	}
}

// NaturalStride returns the row stride implied by Width, BytesPerSample,
// ComponentCount and Interleave when the caller passes stride=0 to
// request the default layout.
func NaturalStride(width, bytesPerSample, componentCount int, ilv Interleave) int {
	switch ilv {
	case InterleaveSample:
		return width * bytesPerSample * componentCount
	case InterleaveLine:
		return width * bytesPerSample * componentCount
	default: // InterleaveNone: one component's width per row of its own plane
		return width * bytesPerSample
	}
}

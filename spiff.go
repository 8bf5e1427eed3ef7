package jpegls

import "github.com/jpfielding/jpegls-codec/internal/marker"

// SPIFF color space identifiers relevant to JPEG-LS payloads,
// re-exported from internal/marker so callers never need to import an
// internal package to call WriteStandardSpiffHeader.
const (
	SpiffColorSpaceGrayscale = marker.SpiffColorSpaceGrayscale
	SpiffColorSpaceRGB       = marker.SpiffColorSpaceRGB
	SpiffColorSpaceYCbCr     = marker.SpiffColorSpaceYCbCr
)

// SpiffHeader is the caller-facing form of the mandatory SPIFF header
// entry; see WriteSpiffHeader.
type SpiffHeader struct {
	ProfileID            int
	ComponentCount       int
	Height               int
	Width                int
	ColorSpace           int
	BitsPerSample        int
	ResolutionUnits      int
	VerticalResolution   int
	HorizontalResolution int
}

func (h SpiffHeader) toInternal() marker.SpiffHeader {
	return marker.SpiffHeader{
		ProfileID:            h.ProfileID,
		ComponentCount:       h.ComponentCount,
		Height:               h.Height,
		Width:                h.Width,
		ColorSpace:           h.ColorSpace,
		BitsPerSample:        h.BitsPerSample,
		CompressionType:      marker.SpiffCompressionJPEGLS,
		ResolutionUnits:      h.ResolutionUnits,
		VerticalResolution:   h.VerticalResolution,
		HorizontalResolution: h.HorizontalResolution,
	}
}

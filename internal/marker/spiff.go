package marker

// SPIFF (Still Picture Interchange File Format) is carried as an APP8
// marker whose payload starts with the "SPIFF\0" magic, per the
// informative annex T.86 Annex F shares with T.87. It is optional
// metadata: a directory of a header entry followed by zero or more
// tagged entries, closed by an end-of-directory entry.

var spiffMagic = [6]byte{'S', 'P', 'I', 'F', 'F', 0}

// SpiffHeader is the fixed-size SPIFF header record.
type SpiffHeader struct {
	ProfileID             int
	ComponentCount        int
	Height                int
	Width                 int
	ColorSpace            int
	BitsPerSample         int
	CompressionType       int
	ResolutionUnits       int
	VerticalResolution    int
	HorizontalResolution  int
}

// SPIFF color space identifiers relevant to JPEG-LS payloads.
const (
	SpiffColorSpaceGrayscale = 8
	SpiffColorSpaceRGB       = 10
	SpiffColorSpaceYCbCr     = 3
)

// SPIFF compression type used for a JPEG-LS payload.
const SpiffCompressionJPEGLS = 5

// spiffEndOfDirectoryTag is the entry tag that closes the directory.
const spiffEndOfDirectoryTag = 1

// WriteSpiffHeader writes the mandatory SPIFF header entry. Only legal
// immediately after SOI, before any other header segment.
func (w *Writer) WriteSpiffHeader(h SpiffHeader) error {
	if err := w.require(StateHeader); err != nil {
		return err
	}
	// SOI (two bytes at offset 0) must be the only thing written so far.
	if w.spiffOpen || w.pos != 2 {
		return ErrInvalidOperation
	}
	length := 2 + len(spiffMagic) + 2 + 1 + 1 + 4 + 4 + 1 + 1 + 1 + 1 + 4 + 4
	if err := w.writeMarker(uint16(APP0 + 8)); err != nil {
		return err
	}
	if err := w.writeUint16(uint16(length)); err != nil {
		return err
	}
	if err := w.writeBytes(spiffMagic[:]); err != nil {
		return err
	}
	if err := w.writeByte(2); err != nil { // version major
		return err
	}
	if err := w.writeByte(0); err != nil { // version minor
		return err
	}
	if err := w.writeByte(byte(h.ProfileID)); err != nil {
		return err
	}
	if err := w.writeByte(byte(h.ComponentCount)); err != nil {
		return err
	}
	if err := w.writeUint32(uint32(h.Height)); err != nil {
		return err
	}
	if err := w.writeUint32(uint32(h.Width)); err != nil {
		return err
	}
	if err := w.writeByte(byte(h.ColorSpace)); err != nil {
		return err
	}
	if err := w.writeByte(byte(h.BitsPerSample)); err != nil {
		return err
	}
	if err := w.writeByte(byte(h.CompressionType)); err != nil {
		return err
	}
	if err := w.writeByte(byte(h.ResolutionUnits)); err != nil {
		return err
	}
	if err := w.writeUint32(uint32(h.VerticalResolution)); err != nil {
		return err
	}
	if err := w.writeUint32(uint32(h.HorizontalResolution)); err != nil {
		return err
	}
	w.spiffOpen = true
	return nil
}

// WriteStandardSpiffHeader is the convenience form of WriteSpiffHeader
// that fills in a JPEG-LS-appropriate profile and compression type
// from the frame's own dimensions.
func (w *Writer) WriteStandardSpiffHeader(colorSpace, resUnits, vres, hres, width, height, bitsPerSample, componentCount int) error {
	return w.WriteSpiffHeader(SpiffHeader{
		ProfileID:            0,
		ComponentCount:       componentCount,
		Height:               height,
		Width:                width,
		ColorSpace:           colorSpace,
		BitsPerSample:        bitsPerSample,
		CompressionType:      SpiffCompressionJPEGLS,
		ResolutionUnits:      resUnits,
		VerticalResolution:   vres,
		HorizontalResolution: hres,
	})
}

// WriteSpiffEntry writes one SPIFF directory entry. tag must not be
// the reserved end-of-directory tag; only WriteSpiffEndOfDirectoryEntry
// (and the automatic close in WriteSOS/WriteEOI) may write that
// entry, so a caller can never leave the directory with two
// end-of-directory-tagged entries.
func (w *Writer) WriteSpiffEntry(tag uint32, data []byte) error {
	if err := w.require(StateHeader); err != nil {
		return err
	}
	if tag == spiffEndOfDirectoryTag {
		return ErrInvalidSpiffEntryTag
	}
	if !w.spiffOpen {
		return ErrInvalidOperation
	}
	return w.writeSpiffEntry(tag, data)
}

func (w *Writer) writeSpiffEntry(tag uint32, data []byte) error {
	length := 2 + 4 + 4 + len(data)
	if err := w.writeMarker(uint16(APP0 + 8)); err != nil {
		return err
	}
	if err := w.writeUint16(uint16(length)); err != nil {
		return err
	}
	if err := w.writeUint32(tag); err != nil {
		return err
	}
	if err := w.writeUint32(uint32(len(data))); err != nil {
		return err
	}
	return w.writeBytes(data)
}

// WriteSpiffEndOfDirectoryEntry closes the SPIFF directory explicitly.
// If the caller opened a header and never closed it, WriteSOS and
// WriteEOI write the end-of-directory entry automatically.
func (w *Writer) WriteSpiffEndOfDirectoryEntry() error {
	if err := w.require(StateHeader); err != nil {
		return err
	}
	if !w.spiffOpen {
		return ErrInvalidOperation
	}
	return w.writeSpiffEndOfDirectoryLocked()
}

func (w *Writer) writeSpiffEndOfDirectoryLocked() error {
	if err := w.writeSpiffEntry(spiffEndOfDirectoryTag, nil); err != nil {
		return err
	}
	w.spiffOpen = false
	return nil
}

func (w *Writer) writeUint32(v uint32) error {
	buf := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	return w.writeBytes(buf[:])
}

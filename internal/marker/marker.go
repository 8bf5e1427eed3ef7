// Package marker implements the JPEG-LS marker-segment stream writer:
// SOI/SOF55/SOS/LSE/APPn/COM/DNL/EOI and the SPIFF metadata header,
// framed in the legal order T.87 requires, plus the small state
// machine that enforces that order.
package marker

import (
	"encoding/binary"
	"errors"

	"github.com/jpfielding/jpegls-codec/internal/bitio"
)

// ErrInvalidOperation is returned when a segment is requested in a
// state that does not permit it (e.g. a SPIFF entry after the scan
// has started).
var ErrInvalidOperation = errors.New("marker: invalid operation for current state")

// ErrInvalidSpiffEntryTag is returned when a caller tries to write a
// SPIFF directory entry using the reserved end-of-directory tag;
// that tag may only be written by the writer's own directory-closing
// call.
var ErrInvalidSpiffEntryTag = errors.New("marker: spiff entry tag is reserved for end-of-directory")

// ErrDestinationTooSmall is re-exported from bitio so callers can use
// a single errors.Is check regardless of which layer ran out of room.
var ErrDestinationTooSmall = bitio.ErrDestinationTooSmall

// Marker codes, T.87 Table B.1 plus the HP JPEG-LS extension (LSE).
const (
	SOI   = 0xffd8
	EOI   = 0xffd9
	SOF55 = 0xfff7 // Start of frame, JPEG-LS
	SOS   = 0xffda
	DNL   = 0xffdc
	LSE   = 0xfff8
	COM   = 0xfffe
	APP0  = 0xffe0 // APPn = APP0 + n, n in [0,15]
)

// LSE parameter-set types (T.87 Annex C.2.4.1).
const (
	LSETypePreset       = 1 // maximum_sample_value, T1, T2, T3, RESET
	LSETypeMappingTable = 2 // mapping table
	LSETypeMappingTableContinuation = 3
	LSETypeOOBData      = 4
)

// State is the writer's position in the legal segment sequence.
type State int

const (
	// StateInitial: no destination bound yet.
	StateInitial State = iota
	// StateDestinationSet: destination bound, SOI not yet written.
	StateDestinationSet
	// StateHeader: SOI written; SPIFF header/entries, SOF, LSE, COM
	// and APPn segments may be written here, in any legal combination,
	// before the first SOS.
	StateHeader
	// StateScan: at least one SOS has been written; entropy-coded
	// data and, for multi-scan interleave=none frames, further
	// SOS segments are written here.
	StateScan
	// StateCompleted: EOI has been written.
	StateCompleted
)

// Writer emits marker segments into a caller-owned destination slice
// and hands out a bitio.Writer positioned right after each SOS for the
// scan coder to fill with entropy-coded data.
type Writer struct {
	dst       []byte
	pos       int
	state     State
	spiffOpen bool // SPIFF header written, end-of-directory not yet written
}

// NewWriter binds dst as the destination and moves the writer to
// StateDestinationSet.
func NewWriter(dst []byte) *Writer {
	return &Writer{dst: dst, state: StateDestinationSet}
}

// State reports the writer's current state.
func (w *Writer) State() State { return w.state }

// BytesWritten reports the number of bytes emitted so far.
func (w *Writer) BytesWritten() int { return w.pos }

// Rewind returns the writer to StateDestinationSet and resets the
// write position to zero, without forgetting the destination slice
// itself, so a second encode into the same buffer can proceed.
func (w *Writer) Rewind() {
	w.pos = 0
	w.state = StateDestinationSet
	w.spiffOpen = false
}

func (w *Writer) require(states ...State) error {
	for _, s := range states {
		if w.state == s {
			return nil
		}
	}
	return ErrInvalidOperation
}

func (w *Writer) writeByte(b byte) error {
	if w.pos >= len(w.dst) {
		return ErrDestinationTooSmall
	}
	w.dst[w.pos] = b
	w.pos++
	return nil
}

func (w *Writer) writeBytes(b []byte) error {
	if w.pos+len(b) > len(w.dst) {
		return ErrDestinationTooSmall
	}
	copy(w.dst[w.pos:], b)
	w.pos += len(b)
	return nil
}

func (w *Writer) writeUint16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return w.writeBytes(buf[:])
}

func (w *Writer) writeMarker(code uint16) error {
	return w.writeUint16(code)
}

// WriteSOI writes the start-of-image marker and moves the writer into
// StateHeader, where SPIFF/SOF/LSE/COM/APPn segments may follow.
func (w *Writer) WriteSOI() error {
	if err := w.require(StateDestinationSet); err != nil {
		return err
	}
	if err := w.writeMarker(SOI); err != nil {
		return err
	}
	w.state = StateHeader
	return nil
}

// ComponentSpec describes one component's entry in SOF/SOS.
type ComponentSpec struct {
	ID        int
	TableID   int // mapping table selector, 0 = none
}

// WriteSOF writes the JPEG-LS start-of-frame segment.
func (w *Writer) WriteSOF(bitsPerSample, height, width int, comps []ComponentSpec) error {
	if err := w.require(StateHeader); err != nil {
		return err
	}
	length := 8 + 3*len(comps)
	if err := w.writeMarker(SOF55); err != nil {
		return err
	}
	if err := w.writeUint16(uint16(length)); err != nil {
		return err
	}
	if err := w.writeByte(byte(bitsPerSample)); err != nil {
		return err
	}
	if err := w.writeUint16(uint16(height)); err != nil {
		return err
	}
	if err := w.writeUint16(uint16(width)); err != nil {
		return err
	}
	if err := w.writeByte(byte(len(comps))); err != nil {
		return err
	}
	for _, c := range comps {
		if err := w.writeByte(byte(c.ID)); err != nil {
			return err
		}
		if err := w.writeByte(0x11); err != nil { // Hi=1, Vi=1
			return err
		}
		if err := w.writeByte(0x00); err != nil { // Tqi=0
			return err
		}
	}
	return nil
}

// WriteSOS writes the start-of-scan segment and returns a bitio.Writer
// positioned to receive that scan's entropy-coded bytes. The caller
// must call EndScan once the scan coder has finished writing and
// flushing that bitio.Writer.
func (w *Writer) WriteSOS(near, ilv int, comps []ComponentSpec) (*bitio.Writer, error) {
	if err := w.require(StateHeader, StateScan); err != nil {
		return nil, err
	}
	if w.spiffOpen {
		if err := w.writeSpiffEndOfDirectoryLocked(); err != nil {
			return nil, err
		}
	}
	length := 6 + 2*len(comps)
	if err := w.writeMarker(SOS); err != nil {
		return nil, err
	}
	if err := w.writeUint16(uint16(length)); err != nil {
		return nil, err
	}
	if err := w.writeByte(byte(len(comps))); err != nil {
		return nil, err
	}
	for _, c := range comps {
		if err := w.writeByte(byte(c.ID)); err != nil {
			return nil, err
		}
		if err := w.writeByte(byte(c.TableID)); err != nil {
			return nil, err
		}
	}
	if err := w.writeByte(byte(near)); err != nil {
		return nil, err
	}
	if err := w.writeByte(byte(ilv)); err != nil {
		return nil, err
	}
	if err := w.writeByte(0x00); err != nil { // Al=0, Ah=0 (point transform)
		return nil, err
	}
	w.state = StateScan
	return bitio.NewWriter(w.dst[w.pos:]), nil
}

// EndScan advances the writer's position past the bytes the scan
// coder wrote through the bitio.Writer WriteSOS returned.
func (w *Writer) EndScan(bw *bitio.Writer) {
	w.pos += bw.BytesWritten()
}

// PresetParameters mirrors the LSE type-1 payload (T.87 Annex C.2.4.1.1).
type PresetParameters struct {
	MaximumSampleValue int
	Threshold1         int
	Threshold2         int
	Threshold3         int
	ResetValue         int
}

// WriteLSEPreset writes an LSE type-1 segment.
func (w *Writer) WriteLSEPreset(p PresetParameters) error {
	if err := w.require(StateHeader); err != nil {
		return err
	}
	if err := w.writeMarker(LSE); err != nil {
		return err
	}
	if err := w.writeUint16(13); err != nil { // 2(len)+1(type)+2*5
		return err
	}
	if err := w.writeByte(LSETypePreset); err != nil {
		return err
	}
	for _, v := range []int{p.MaximumSampleValue, p.Threshold1, p.Threshold2, p.Threshold3, p.ResetValue} {
		if err := w.writeUint16(uint16(v)); err != nil {
			return err
		}
	}
	return nil
}

// WriteLSEMappingTable writes an LSE type-2 mapping table segment.
func (w *Writer) WriteLSEMappingTable(tableID, entrySize int, data []byte) error {
	if err := w.require(StateHeader); err != nil {
		return err
	}
	length := 2 + 1 + 1 + 1 + len(data)
	if err := w.writeMarker(LSE); err != nil {
		return err
	}
	if err := w.writeUint16(uint16(length)); err != nil {
		return err
	}
	if err := w.writeByte(LSETypeMappingTable); err != nil {
		return err
	}
	if err := w.writeByte(byte(tableID)); err != nil {
		return err
	}
	if err := w.writeByte(byte(entrySize)); err != nil {
		return err
	}
	return w.writeBytes(data)
}

// WriteComment writes a COM segment.
func (w *Writer) WriteComment(data []byte) error {
	if err := w.require(StateHeader); err != nil {
		return err
	}
	if err := w.writeMarker(COM); err != nil {
		return err
	}
	if err := w.writeUint16(uint16(2 + len(data))); err != nil {
		return err
	}
	return w.writeBytes(data)
}

// WriteApplicationData writes an APPn segment, n in [0,15].
func (w *Writer) WriteApplicationData(n int, data []byte) error {
	if err := w.require(StateHeader); err != nil {
		return err
	}
	if err := w.writeMarker(uint16(APP0 + n)); err != nil {
		return err
	}
	if err := w.writeUint16(uint16(2 + len(data))); err != nil {
		return err
	}
	return w.writeBytes(data)
}

// WriteDNL writes a DNL segment, used when the frame height in SOF
// was written as 0 and is now known.
func (w *Writer) WriteDNL(height int) error {
	if err := w.require(StateHeader, StateScan); err != nil {
		return err
	}
	if err := w.writeMarker(DNL); err != nil {
		return err
	}
	if err := w.writeUint16(4); err != nil {
		return err
	}
	return w.writeUint16(uint16(height))
}

// WriteEOI writes the end-of-image marker, closing any still-open
// SPIFF directory first, and moves the writer to StateCompleted.
func (w *Writer) WriteEOI() error {
	if err := w.require(StateHeader, StateScan); err != nil {
		return err
	}
	if w.spiffOpen {
		if err := w.writeSpiffEndOfDirectoryLocked(); err != nil {
			return err
		}
	}
	if err := w.writeMarker(EOI); err != nil {
		return err
	}
	w.state = StateCompleted
	return nil
}

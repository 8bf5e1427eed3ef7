// Package jpegls implements the encoder core of a JPEG-LS (ITU-T
// T.87 / ISO/IEC 14495-1) codec: context-modeled prediction, Golomb-
// Rice residual coding, RUN mode for flat regions, and the marker-
// segment stream writer that frames scans into a legal bitstream.
//
// Encoder is a builder-style configuration object: set the
// destination and frame parameters, optionally write SPIFF metadata
// and mapping tables, then call Encode; Rewind allows a further Encode
// into the same buffer with the same configuration. It is not safe for
// concurrent use by multiple goroutines.
package jpegls

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	jlscontext "github.com/jpfielding/jpegls-codec/internal/context"
	"github.com/jpfielding/jpegls-codec/internal/golomb"
	"github.com/jpfielding/jpegls-codec/internal/marker"
	"github.com/jpfielding/jpegls-codec/internal/scan"
	"github.com/jpfielding/jpegls-codec/logging"
	"github.com/jpfielding/jpegls-codec/pkg/util"
)

type mappingTable struct {
	entrySize int
	data      []byte
}

// Encoder is the public façade (component H): it validates
// configuration, computes default preset parameters, and orchestrates
// the marker writer and scan coder to turn source samples into a
// conforming JPEG-LS stream.
type Encoder struct {
	mw *marker.Writer

	frame    FrameInfo
	frameSet bool

	near   int
	ilv    InterleaveMode
	pcp    PresetCodingParameters
	xform  ColorTransformation
	tables map[int]mappingTable
	compTb map[int]int // component index -> table id, via SetTableID

	logger        *slog.Logger
	lastSessionID uuid.UUID
}

// NewEncoder returns an unconfigured Encoder. SetDestination must be
// called before any method that writes output (the SPIFF, comment and
// application-data writers, Encode, CreateTablesOnly, Rewind); the
// configuration setters and WriteTable may be called before it.
func NewEncoder() *Encoder {
	return &Encoder{
		tables: map[int]mappingTable{},
		compTb: map[int]int{},
		logger: slog.Default(),
	}
}

// SetLogger overrides the slog.Logger used for this encoder's session
// lifecycle events. Defaults to slog.Default().
func (e *Encoder) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// SetDestination binds buf as the output buffer and writes SOI,
// putting the encoder in a state where SPIFF metadata, comments and
// application data may be written before Encode.
func (e *Encoder) SetDestination(buf []byte) *Error {
	e.mw = marker.NewWriter(buf)
	if err := e.mw.WriteSOI(); err != nil {
		return translateMarkerErr(err)
	}
	return nil
}

// SetFrameInfo validates and stores the frame's dimensions and pixel
// format.
func (e *Encoder) SetFrameInfo(width, height, bitsPerSample, componentCount int) *Error {
	f := FrameInfo{Width: width, Height: height, BitsPerSample: bitsPerSample, ComponentCount: componentCount}
	if err := f.validate(); err != nil {
		return err
	}
	e.frame = f
	e.frameSet = true
	return nil
}

// SetNearLossless sets the allowed per-sample reconstruction error;
// validated fully once FrameInfo is known, at Encode time.
func (e *Encoder) SetNearLossless(n int) *Error {
	if n < 0 || n > 255 {
		return invalidArgument(InvalidArgumentNearLossless, "near_lossless %d out of range [0,255]", n)
	}
	e.near = n
	return nil
}

// SetInterleaveMode selects how components share a scan's rows.
func (e *Encoder) SetInterleaveMode(mode InterleaveMode) *Error {
	if !mode.valid() {
		return invalidArgument(InvalidArgumentInterleaveMode, "interleave_mode %d is not none/line/sample", mode)
	}
	e.ilv = mode
	return nil
}

// SetPresetCodingParameters overrides the default LSE preset
// parameters. A zero value restores default derivation.
func (e *Encoder) SetPresetCodingParameters(p PresetCodingParameters) *Error {
	e.pcp = p
	return nil
}

// SetColorTransformation selects an HP reversible RGB transform.
func (e *Encoder) SetColorTransformation(mode ColorTransformation) *Error {
	if !mode.valid() {
		return invalidArgument(InvalidArgumentColorTransformation, "color_transformation %d is not none/hp1/hp2/hp3", mode)
	}
	e.xform = mode
	return nil
}

// SetTableID associates componentIndex (0-based) with a mapping table
// id previously or later registered via WriteTable.
func (e *Encoder) SetTableID(componentIndex, tableID int) *Error {
	if tableID < 0 || tableID > 255 {
		return invalidArgument(InvalidArgumentSpiffEntrySize, "table_id %d out of range [0,255]", tableID)
	}
	e.compTb[componentIndex] = tableID
	return nil
}

// WriteSpiffHeader writes the mandatory SPIFF header entry, opening
// the SPIFF directory. Must be the first thing written after
// SetDestination.
func (e *Encoder) WriteSpiffHeader(h SpiffHeader) *Error {
	if err := e.mw.WriteSpiffHeader(h.toInternal()); err != nil {
		return translateMarkerErr(err)
	}
	return nil
}

// WriteStandardSpiffHeader derives a full SPIFF header from FrameInfo
// (which must already be set) and the given color-space/resolution
// parameters.
func (e *Encoder) WriteStandardSpiffHeader(colorSpace, resUnits, vres, hres int) *Error {
	if !e.frameSet {
		return invalidArgument(InvalidArgumentWidth, "set_frame_info must be called before write_standard_spiff_header")
	}
	if err := e.mw.WriteStandardSpiffHeader(colorSpace, resUnits, vres, hres, e.frame.Width, e.frame.Height, e.frame.BitsPerSample, e.frame.ComponentCount); err != nil {
		return translateMarkerErr(err)
	}
	return nil
}

// WriteSpiffEntry writes one SPIFF directory entry.
func (e *Encoder) WriteSpiffEntry(tag uint32, data []byte) *Error {
	if err := e.mw.WriteSpiffEntry(tag, data); err != nil {
		return translateMarkerErr(err)
	}
	return nil
}

// WriteSpiffEndOfDirectoryEntry closes the SPIFF directory explicitly.
// Encode and CreateTablesOnly do this automatically if it is left
// open.
func (e *Encoder) WriteSpiffEndOfDirectoryEntry() *Error {
	if err := e.mw.WriteSpiffEndOfDirectoryEntry(); err != nil {
		return translateMarkerErr(err)
	}
	return nil
}

// WriteComment writes a COM segment.
func (e *Encoder) WriteComment(data []byte) *Error {
	if err := e.mw.WriteComment(data); err != nil {
		return translateMarkerErr(err)
	}
	return nil
}

// WriteApplicationData writes an APPn segment, n in [0,15].
func (e *Encoder) WriteApplicationData(n int, data []byte) *Error {
	if n < 0 || n > 15 {
		return invalidArgument(InvalidArgumentSpiffEntrySize, "application data id %d out of range [0,15]", n)
	}
	if err := e.mw.WriteApplicationData(n, data); err != nil {
		return translateMarkerErr(err)
	}
	return nil
}

// WriteTable registers a mapping table for later reference via
// SetTableID and emission as an LSE type-2 segment during Encode or
// CreateTablesOnly.
func (e *Encoder) WriteTable(id, entrySize int, data []byte) *Error {
	if id < 1 || id > 255 {
		return invalidArgument(InvalidArgumentSpiffEntrySize, "table id %d out of range [1,255]", id)
	}
	if entrySize < 1 || entrySize > 255 {
		return invalidArgument(InvalidArgumentSpiffEntrySize, "entry_size %d out of range [1,255]", entrySize)
	}
	e.tables[id] = mappingTable{entrySize: entrySize, data: append([]byte(nil), data...)}
	return nil
}

// EstimatedDestinationSize returns an upper bound on the number of
// bytes Encode will write, per section 4.H's formula: enough for the
// raw samples plus generous headroom for headers and worst-case
// escape codes.
func (e *Encoder) EstimatedDestinationSize() int {
	if !e.frameSet {
		return 1024
	}
	const spiffOverhead = 32
	return e.frame.ComponentCount*e.frame.Width*e.frame.Height*e.frame.bytesPerSample() + 1024 + spiffOverhead
}

// BytesWritten reports the number of bytes emitted into the
// destination so far.
func (e *Encoder) BytesWritten() int {
	if e.mw == nil {
		return 0
	}
	return e.mw.BytesWritten()
}

// Rewind returns the encoder to the state right after SetDestination,
// preserving all other configuration, so a second Encode call can
// write into the same buffer.
func (e *Encoder) Rewind() *Error {
	if e.mw == nil {
		return invalidArgument(InvalidArgumentWidth, "set_destination must be called before rewind")
	}
	e.mw.Rewind()
	if err := e.mw.WriteSOI(); err != nil {
		return translateMarkerErr(err)
	}
	return nil
}

// LastSessionID returns the session id logged for the most recent
// Encode or CreateTablesOnly call, for caller-side log correlation.
func (e *Encoder) LastSessionID() uuid.UUID {
	return e.lastSessionID
}

func translateMarkerErr(err error) *Error {
	switch err {
	case marker.ErrInvalidOperation:
		return ErrInvalidOperation
	case marker.ErrDestinationTooSmall:
		return ErrDestinationTooSmall
	case marker.ErrInvalidSpiffEntryTag:
		return invalidArgument(InvalidArgumentSpiffEntrySize, "spiff entry tag is reserved for the end-of-directory entry")
	default:
		return &Error{Kind: InternalError, Detail: err.Error()}
	}
}

// effectivePreset resolves user-supplied preset parameters against
// defaults derived from bits_per_sample and near_lossless, and
// validates the result.
func (e *Encoder) effectivePreset() (PresetCodingParameters, *Error) {
	maxAllowed := e.frame.maxSampleValue()
	p := e.pcp
	if p.isZero() {
		p = defaultPresetCodingParameters(maxAllowed, e.near)
	}
	if err := p.validate(maxAllowed); err != nil {
		return PresetCodingParameters{}, err
	}
	if e.near > maxNearLossless(p.MaximumSampleValue) {
		return PresetCodingParameters{}, invalidArgument(InvalidArgumentNearLossless, "near_lossless %d exceeds maximum %d for maxval %d", e.near, maxNearLossless(p.MaximumSampleValue), p.MaximumSampleValue)
	}
	return p, nil
}

// writeRegisteredTables emits an LSE type-2 segment for every table
// registered via WriteTable, in ascending id order.
func (e *Encoder) writeRegisteredTables() *Error {
	ids := make([]int, 0, len(e.tables))
	for id := range e.tables {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		t := e.tables[id]
		e.logger.Debug("writing mapping table", "table_id", id, "entry_size", t.entrySize, "fingerprint", util.Md5ThenHex(t.data))
		if err := e.mw.WriteLSEMappingTable(id, t.entrySize, t.data); err != nil {
			return translateMarkerErr(err)
		}
	}
	return nil
}

// componentSpecs builds the SOF/SOS component descriptor list, 1-based
// component ids matching common JPEG practice.
func (e *Encoder) componentSpecs() []marker.ComponentSpec {
	specs := make([]marker.ComponentSpec, e.frame.ComponentCount)
	for i := range specs {
		specs[i] = marker.ComponentSpec{ID: i + 1, TableID: e.compTb[i]}
	}
	return specs
}

// configFingerprint derives a deterministic identifier from the
// encoder's configuration, so log lines from repeated encodes of the
// same layout can be correlated across separate sessions (each of
// which still gets its own random session id from startSession).
func (e *Encoder) configFingerprint() string {
	return util.HashUUID(struct {
		Frame FrameInfo
		Near  int
		Ilv   InterleaveMode
		PCP   PresetCodingParameters
		Xform ColorTransformation
	}{e.frame, e.near, e.ilv, e.pcp, e.xform})
}

func (e *Encoder) startSession(op string) uuid.UUID {
	id := uuid.New()
	e.lastSessionID = id
	ctx := logging.AppendCtx(context.Background(), slog.Group("jpegls",
		slog.String("op", op),
		slog.String("session_id", id.String()),
	))
	e.logger.InfoContext(ctx, "session started",
		"width", e.frame.Width, "height", e.frame.Height,
		"bits_per_sample", e.frame.BitsPerSample, "component_count", e.frame.ComponentCount,
		"config_fingerprint", e.configFingerprint())
	return id
}

// CreateTablesOnly emits an abbreviated-format stream: SOI, every
// registered mapping table as an LSE type-2 segment, then EOI. Used
// to distribute a shared mapping table without any scan data.
func (e *Encoder) CreateTablesOnly() *Error {
	e.startSession("create_tables_only")
	if err := e.writeRegisteredTables(); err != nil {
		return err
	}
	if err := e.mw.WriteEOI(); err != nil {
		return translateMarkerErr(err)
	}
	return nil
}

// Encode validates the current configuration, writes the frame header
// (SOF, optional LSE preset and mapping tables), then runs the scan
// coder over source once per scan (one scan per component for
// InterleaveNone, one scan for InterleaveLine/InterleaveSample),
// writing bit-packed entropy-coded data through the marker writer's
// destination. stride=0 means the natural stride for the configured
// layout.
func (e *Encoder) Encode(source []byte, stride int) *Error {
	if !e.frameSet {
		return invalidArgument(InvalidArgumentWidth, "set_frame_info must be called before encode")
	}
	preset, err := e.effectivePreset()
	if err != nil {
		return err
	}
	if e.xform != ColorTransformationNone {
		if e.frame.ComponentCount != 3 {
			return invalidArgument(InvalidArgumentColorTransformation, "color transform requires component_count=3, got %d", e.frame.ComponentCount)
		}
		if !colorTransformSupportsBitDepth(e.frame.BitsPerSample) {
			return ErrBitDepthForTransformNotSupported
		}
		if e.ilv != InterleaveSample {
			return invalidArgument(InvalidArgumentColorTransformation, "color transform requires interleave_mode=sample, got %d", e.ilv)
		}
	}

	e.startSession("encode")

	// Close a SPIFF directory the caller left open before any frame
	// segment; ErrInvalidOperation here only means none is open.
	if err := e.mw.WriteSpiffEndOfDirectoryEntry(); err != nil && err != marker.ErrInvalidOperation {
		return translateMarkerErr(err)
	}
	if err := e.writeRegisteredTables(); err != nil {
		return err
	}
	if preset != defaultPresetCodingParameters(preset.MaximumSampleValue, e.near) || e.frame.BitsPerSample > 12 {
		if err := e.mw.WriteLSEPreset(marker.PresetParameters{
			MaximumSampleValue: preset.MaximumSampleValue,
			Threshold1:         preset.Threshold1,
			Threshold2:         preset.Threshold2,
			Threshold3:         preset.Threshold3,
			ResetValue:         preset.ResetValue,
		}); err != nil {
			return translateMarkerErr(err)
		}
	}
	if err := e.mw.WriteSOF(e.frame.BitsPerSample, e.frame.Height, e.frame.Width, e.componentSpecs()); err != nil {
		return translateMarkerErr(err)
	}

	if stride == 0 {
		stride = scan.NaturalStride(e.frame.Width, e.frame.bytesPerSample(), e.frame.ComponentCount, scan.Interleave(e.ilv))
	}

	near := e.near
	rangeVal := golomb.Range(preset.MaximumSampleValue, near)
	limits := golomb.NewLimits(preset.MaximumSampleValue, near)
	params := scan.Params{Near: near, RangeVal: rangeVal, MaxVal: preset.MaximumSampleValue}

	ls := &scan.LineSource{
		Width: e.frame.Width, Height: e.frame.Height,
		ComponentCount: e.frame.ComponentCount, BytesPerSample: e.frame.bytesPerSample(),
		Stride: stride, Interleave: scan.Interleave(e.ilv),
		Transform: e.xform.toInternal(), TransformRangeVal: preset.MaximumSampleValue + 1,
	}

	switch e.ilv {
	case InterleaveNone:
		for comp := 0; comp < e.frame.ComponentCount; comp++ {
			if err := e.encodeScan(ls, source, []int{comp}, preset, params, limits); err != nil {
				return err
			}
		}
	default:
		comps := make([]int, e.frame.ComponentCount)
		for i := range comps {
			comps[i] = i
		}
		if err := e.encodeScan(ls, source, comps, preset, params, limits); err != nil {
			return err
		}
	}

	if err := e.mw.WriteEOI(); err != nil {
		return translateMarkerErr(err)
	}
	return nil
}

func colorTransformSupportsBitDepth(bitsPerSample int) bool {
	return bitsPerSample == 8 || bitsPerSample == 16
}

// encodeScan runs one scan (one SOS segment) covering the given
// component indices, each with its own fresh context model, over
// every row of the frame.
func (e *Encoder) encodeScan(ls *scan.LineSource, source []byte, comps []int, preset PresetCodingParameters, params scan.Params, limits golomb.Limits) *Error {
	specs := make([]marker.ComponentSpec, len(comps))
	for i, c := range comps {
		specs[i] = marker.ComponentSpec{ID: c + 1, TableID: e.compTb[c]}
	}
	bw, err := e.mw.WriteSOS(e.near, int(e.ilv), specs)
	if err != nil {
		return translateMarkerErr(err)
	}

	width := e.frame.Width
	coders := make([]*scan.Coder, len(comps))
	curs := make([][]int, len(comps))
	prevs := make([][]int, len(comps))
	for i := range comps {
		model := jlscontext.New(preset.Threshold1, preset.Threshold2, preset.Threshold3, preset.ResetValue)
		coders[i] = scan.NewCoder(model, limits, params)
		curs[i] = make([]int, width+1)
		prevs[i] = make([]int, width+1)
	}

	rowBuf := make([]int, width)
	sampleRows := make([][]int, len(comps))
	for i := range sampleRows {
		sampleRows[i] = make([]int, width)
	}

	for y := 0; y < e.frame.Height; y++ {
		if ls.Interleave == scan.InterleaveSample {
			ls.SampleRow(source, y, sampleRows)
		}
		for i, comp := range comps {
			if ls.Interleave == scan.InterleaveSample {
				copy(curs[i][1:], sampleRows[i])
			} else {
				ls.PlaneRow(source, comp, y, rowBuf)
				copy(curs[i][1:], rowBuf)
			}
			if err := coders[i].EncodeRow(bw, curs[i], prevs[i], width); err != nil {
				return &Error{Kind: DestinationTooSmall, Detail: err.Error()}
			}
			curs[i], prevs[i] = prevs[i], curs[i]
		}
	}

	if err := bw.Flush(); err != nil {
		return &Error{Kind: DestinationTooSmall, Detail: err.Error()}
	}
	e.mw.EndScan(bw)
	return nil
}

package jpegls

import "fmt"

// Kind discriminates the reasons any entry point in this package can
// fail. Callers branch on it with errors.Is against the Err* sentinels
// below, or by inspecting Kind directly for the invalid-argument
// variants, which need to say which argument was invalid.
type Kind int

const (
	InvalidArgumentWidth Kind = iota
	InvalidArgumentHeight
	InvalidArgumentBitsPerSample
	InvalidArgumentComponentCount
	InvalidArgumentInterleaveMode
	InvalidArgumentNearLossless
	InvalidArgumentColorTransformation
	InvalidArgumentSpiffEntrySize
	InvalidArgumentPresetCodingParameters
	InvalidOperation
	DestinationTooSmall
	BitDepthForTransformNotSupported
	InternalError
)

func (k Kind) String() string {
	switch k {
	case InvalidArgumentWidth:
		return "invalid_argument_width"
	case InvalidArgumentHeight:
		return "invalid_argument_height"
	case InvalidArgumentBitsPerSample:
		return "invalid_argument_bits_per_sample"
	case InvalidArgumentComponentCount:
		return "invalid_argument_component_count"
	case InvalidArgumentInterleaveMode:
		return "invalid_argument_interleave_mode"
	case InvalidArgumentNearLossless:
		return "invalid_argument_near_lossless"
	case InvalidArgumentColorTransformation:
		return "invalid_argument_color_transformation"
	case InvalidArgumentSpiffEntrySize:
		return "invalid_argument_spiff_entry_size"
	case InvalidArgumentPresetCodingParameters:
		return "invalid_argument_jpegls_pc_parameters"
	case InvalidOperation:
		return "invalid_operation"
	case DestinationTooSmall:
		return "destination_too_small"
	case BitDepthForTransformNotSupported:
		return "bit_depth_for_transform_not_supported"
	default:
		return "internal_error"
	}
}

// Error is the discriminated result every entry point in this package
// returns on failure, mirroring the taxonomy the teacher repo's
// dicos.ValidationError uses for DICOM validation failures.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("jpegls: %s", e.Kind)
	}
	return fmt.Sprintf("jpegls: %s: %s", e.Kind, e.Detail)
}

// Is reports whether target is an *Error of the same Kind, so callers
// can write errors.Is(err, jpegls.ErrDestinationTooSmall) without
// caring about Detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors for the Kinds that carry no useful detail beyond
// their name.
var (
	ErrInvalidOperation                 = &Error{Kind: InvalidOperation}
	ErrDestinationTooSmall               = &Error{Kind: DestinationTooSmall}
	ErrBitDepthForTransformNotSupported = &Error{Kind: BitDepthForTransformNotSupported}
	ErrInternal                          = &Error{Kind: InternalError}
)

func invalidArgument(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

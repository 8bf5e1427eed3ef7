package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	jpegls "github.com/jpfielding/jpegls-codec"
)

// NewEncodeCmd drives Encoder end to end: read raw or PNG samples,
// configure the encoder from flags, and write the resulting bitstream.
func NewEncodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "encode raw or PNG samples to a JPEG-LS bitstream",
		Long:  "encode reads a raw sample buffer or a PNG image and writes a JPEG-LS (ITU-T T.87) bitstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd)
			if err != nil {
				return err
			}
			defer in.Close()

			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			format, _ := cmd.Flags().GetString("format")
			var (
				source                        []byte
				width, height                 int
				bitsPerSample, componentCount int
			)
			switch format {
			case "png":
				source, width, height, componentCount, err = decodePNGToSamples(raw)
				if err != nil {
					return err
				}
				bitsPerSample = 8
			case "raw":
				source = raw
				width, _ = cmd.Flags().GetInt("width")
				height, _ = cmd.Flags().GetInt("height")
				bitsPerSample, _ = cmd.Flags().GetInt("bits-per-sample")
				componentCount, _ = cmd.Flags().GetInt("component-count")
			default:
				return fmt.Errorf("unknown --format %q, want raw or png", format)
			}

			near, _ := cmd.Flags().GetInt("near")
			ilv, err := parseInterleave(mustFlagString(cmd, "interleave"))
			if err != nil {
				return err
			}
			xform, err := parseColorTransform(mustFlagString(cmd, "color-transform"))
			if err != nil {
				return err
			}

			enc := jpegls.NewEncoder()
			enc.SetLogger(slog.Default())
			if jerr := enc.SetFrameInfo(width, height, bitsPerSample, componentCount); jerr != nil {
				return jerr
			}
			if jerr := enc.SetNearLossless(near); jerr != nil {
				return jerr
			}
			if jerr := enc.SetInterleaveMode(ilv); jerr != nil {
				return jerr
			}
			if jerr := enc.SetColorTransformation(xform); jerr != nil {
				return jerr
			}

			dst := make([]byte, enc.EstimatedDestinationSize())
			if jerr := enc.SetDestination(dst); jerr != nil {
				return jerr
			}
			if jerr := enc.Encode(source, 0); jerr != nil {
				return jerr
			}

			out, err := openOutput(cmd)
			if err != nil {
				return err
			}
			defer out.Close()
			if _, err := out.Write(dst[:enc.BytesWritten()]); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			slog.InfoContext(ctx, "encode complete", "bytes_written", enc.BytesWritten(), "session_id", enc.LastSessionID())
			return nil
		},
	}
	pf := cmd.Flags()
	pf.StringP("input", "i", "-", "input file path, or - for stdin")
	pf.StringP("output", "o", "-", "output file path, or - for stdout")
	pf.String("format", "raw", "input sample format: raw|png")
	pf.Int("width", 0, "frame width (raw format only)")
	pf.Int("height", 0, "frame height (raw format only)")
	pf.Int("bits-per-sample", 8, "bits per sample (raw format only)")
	pf.Int("component-count", 1, "component count (raw format only)")
	pf.Int("near", 0, "near-lossless per-sample error bound")
	pf.String("interleave", "none", "interleave mode: none|line|sample")
	pf.String("color-transform", "none", "reversible color transform: none|hp1|hp2|hp3")
	return cmd
}

func mustFlagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func openInput(cmd *cobra.Command) (io.ReadCloser, error) {
	path, _ := cmd.Flags().GetString("input")
	if path == "-" || path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

func openOutput(cmd *cobra.Command) (io.WriteCloser, error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "-" || path == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// decodePNGToSamples decodes a PNG into 8-bit, sample-interleaved
// component data (dropping alpha), the byte layout Encoder.Encode
// expects for InterleaveSample.
func decodePNGToSamples(raw []byte) (samples []byte, width, height, componentCount int, err error) {
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("decode png: %w", err)
	}
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()

	switch gray := img.(type) {
	case *image.Gray:
		componentCount = 1
		samples = make([]byte, width*height)
		for y := 0; y < height; y++ {
			copy(samples[y*width:(y+1)*width], gray.Pix[y*gray.Stride:y*gray.Stride+width])
		}
	default:
		componentCount = 3
		samples = make([]byte, width*height*3)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				base := (y*width + x) * 3
				samples[base] = byte(r >> 8)
				samples[base+1] = byte(g >> 8)
				samples[base+2] = byte(bl >> 8)
			}
		}
	}
	return samples, width, height, componentCount, nil
}

func parseInterleave(s string) (jpegls.InterleaveMode, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return jpegls.InterleaveNone, nil
	case "line":
		return jpegls.InterleaveLine, nil
	case "sample":
		return jpegls.InterleaveSample, nil
	default:
		return 0, fmt.Errorf("unknown --interleave %q, want none, line or sample", s)
	}
}

func parseColorTransform(s string) (jpegls.ColorTransformation, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return jpegls.ColorTransformationNone, nil
	case "hp1":
		return jpegls.ColorTransformationHP1, nil
	case "hp2":
		return jpegls.ColorTransformationHP2, nil
	case "hp3":
		return jpegls.ColorTransformationHP3, nil
	default:
		return 0, fmt.Errorf("unknown --color-transform %q, want none, hp1, hp2 or hp3", s)
	}
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	jpegls "github.com/jpfielding/jpegls-codec"
)

// NewTablesCmd wraps CreateTablesOnly: writes an abbreviated-format
// stream (SOI, one LSE type-2 segment per table, EOI) for distributing
// a shared mapping table without any scan data.
func NewTablesCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "write an abbreviated stream containing shared mapping tables",
		Long:  "tables writes an abbreviated-format JPEG-LS stream: SOI, one LSE type-2 mapping table segment, EOI",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetInt("id")
			entrySize, _ := cmd.Flags().GetInt("entry-size")
			dataPath, _ := cmd.Flags().GetString("data")
			outPath, _ := cmd.Flags().GetString("output")

			data, err := os.ReadFile(dataPath)
			if err != nil {
				return fmt.Errorf("read table data: %w", err)
			}

			enc := jpegls.NewEncoder()
			enc.SetLogger(slog.Default())
			if jerr := enc.WriteTable(id, entrySize, data); jerr != nil {
				return jerr
			}

			dst := make([]byte, len(data)+64)
			if jerr := enc.SetDestination(dst); jerr != nil {
				return jerr
			}
			if jerr := enc.CreateTablesOnly(); jerr != nil {
				return jerr
			}

			var out io.WriteCloser
			if outPath == "-" || outPath == "" {
				out = nopWriteCloser{os.Stdout}
			} else {
				out, err = os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
			}
			defer out.Close()
			if _, err := out.Write(dst[:enc.BytesWritten()]); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			slog.InfoContext(ctx, "tables stream complete", "bytes_written", enc.BytesWritten(), "session_id", enc.LastSessionID())
			return nil
		},
	}
	pf := cmd.Flags()
	pf.Int("id", 1, "mapping table id, 1-255")
	pf.Int("entry-size", 1, "bytes per mapping table entry")
	pf.String("data", "", "path to the raw mapping table data")
	pf.StringP("output", "o", "-", "output file path, or - for stdout")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

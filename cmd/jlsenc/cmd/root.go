package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jpfielding/jpegls-codec/logging"
)

// NewRoot builds the jlsenc command tree: encode, tables and version,
// sharing a persistent --log-level/--log-file pair that reconfigures
// slog.Default before any subcommand runs.
func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jlsenc",
		Short: "a CLI to drive the JPEG-LS encoder",
		Long:  "jlsenc encodes raw or PNG samples to a JPEG-LS (ITU-T T.87) bitstream and manages shared mapping tables",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFile, _ := cmd.Flags().GetString("log-file")

			var level slog.Level
			levelErr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if levelErr != nil {
				level = slog.LevelInfo
			}

			var w io.Writer = os.Stdout
			if logFile != "" {
				w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
					Filename:   logFile,
					MaxSize:    50, // megabytes
					MaxBackups: 3,
					MaxAge:     28, // days
				})
			}
			slog.SetDefault(logging.Logger(w, true, level))

			if levelErr != nil {
				slog.WarnContext(ctx, "invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewEncodeCmd(ctx),
		NewTablesCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "rotating log file path; stdout is always logged to as well")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/nguyentantai21042004/audio-transcriber/internal/config"
	"github.com/nguyentantai21042004/audio-transcriber/internal/converter"
	"github.com/nguyentantai21042004/audio-transcriber/internal/exporter"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/internal/runlog"
	"github.com/nguyentantai21042004/audio-transcriber/internal/scanner"
	"github.com/spf13/cobra"
)

func newConvertCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "convert [flags] <root>",
		Short: "Rebuild .docx and .pdf from the .txt transcripts in a folder",
		Long: "Reads every .txt transcript directly inside the root folder and writes a .docx and a .pdf beside it,\n" +
			"each opening with a \"Transcription: <file>\" heading. Failures go to the error log. The\n" +
			"processed-files record is never read or changed, so converted files are not treated as transcribed.\n\n" +
			exitStatusHelp,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var root string
			if len(args) == 1 {
				root = args[0]
			}
			cfg, err := opts.loadConfig(cmd, root)
			if err != nil {
				return &exitError{code: exitFatal, err: err}
			}
			cfg.Export.Title = true
			return convert(cmd.Context(), cfg, opts.strict, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// convert exports every transcript under cfg.Paths.Root to docx and pdf.
func convert(ctx context.Context, cfg *config.Config, strict bool, out, errOut io.Writer) error {
	log := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: errOut,
	})
	ctx = logger.WithRunID(ctx, uuid.NewString())

	if err := checkRoot(cfg.Paths.Root); err != nil {
		log.Error(ctx, "%v", err)
		return &exitError{code: exitFatal, err: err}
	}

	exporters, err := exporter.New(cfg.Export)
	if err != nil {
		log.Error(ctx, "PDF export unavailable: %v", err)
		return &exitError{code: exitFatal, err: err}
	}

	successPath, errorPath, processedPath, err := cfg.ResolveState()
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	rl, err := runlog.Open(successPath, errorPath)
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	defer rl.Close()

	conv := converter.New(converter.Dependencies{
		Scanner:   scanner.NewWithExtensions(".txt"),
		RunLog:    rl,
		Exporters: exporters,
		Exclude:   []string{successPath, errorPath, processedPath},
	}, log)

	sum, err := conv.Run(ctx, cfg.Paths.Root)
	fmt.Fprintln(out, renderConversion(sum))
	if len(sum.Failures) > 0 {
		fmt.Fprintln(out, renderConversionFailures(sum.Failures))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn(ctx, "Conversion interrupted")
			return err
		}
		log.Error(ctx, "Conversion aborted: %v", err)
		return &exitError{code: exitFatal, err: err}
	}

	if strict && sum.Failed > 0 {
		return &exitError{code: exitStrict}
	}
	return nil
}

func renderConversion(sum converter.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Outcome", "Transcripts"})
	tw.AppendRows([]table.Row{
		{"Found", sum.Found},
		{"Converted", sum.Converted},
		{"Failed", sum.Failed},
	})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Elapsed", sum.Elapsed.Round(time.Second).String()})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return tw.Render()
}

func renderConversionFailures(failures []converter.Failure) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "File", "Cause"})
	for i, f := range failures {
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), f.Path, logger.FormatError(f.Err)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 80},
	})
	return tw.Render()
}

package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/nguyentantai21042004/audio-transcriber/internal/logger"
	"github.com/nguyentantai21042004/audio-transcriber/internal/processor"
)

func renderSummary(sum processor.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Outcome", "Files"})
	tw.AppendRows([]table.Row{
		{"Found", sum.Found},
		{"Skipped (already processed)", sum.Skipped},
		{"Skipped (outputs exist)", sum.SkippedExisting},
		{"Succeeded", sum.Succeeded},
		{"Failed", sum.Failed},
	})
	if sum.Interrupted > 0 {
		tw.AppendRow(table.Row{"Interrupted", sum.Interrupted})
	}
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Elapsed", sum.Elapsed.Round(time.Second).String()})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return tw.Render()
}

func renderFailures(failures []processor.FileError) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "File", "Stage", "Cause"})
	for i, f := range failures {
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), f.Path, f.Stage, logger.FormatError(f.Err)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 80},
	})
	return tw.Render()
}

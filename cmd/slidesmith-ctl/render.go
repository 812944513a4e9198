// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/wingedpig/slidesmith/internal/batch"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    80,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render() + "\n"
}

var (
	segmentDone       = color.New(color.FgGreen).SprintFunc()
	segmentError      = color.New(color.FgRed).SprintFunc()
	segmentProcessing = color.New(color.FgYellow, color.Bold).SprintFunc()
	segmentPending    = color.New(color.Faint).SprintFunc()
)

// progressLine renders one segment per item followed by counts and the running key.
func progressLine(s batch.Snapshot) string {
	var bar strings.Builder
	done, failed := 0, 0
	current := ""
	for _, it := range s.Items {
		switch it.Status {
		case batch.StatusDone:
			done++
			bar.WriteString(segmentDone("■"))
		case batch.StatusError:
			failed++
			bar.WriteString(segmentError("■"))
		case batch.StatusProcessing:
			current = it.Key
			bar.WriteString(segmentProcessing("■"))
		default:
			bar.WriteString(segmentPending("□"))
		}
	}

	line := fmt.Sprintf("%s %d/%d", bar.String(), done+failed, len(s.Items))
	if failed > 0 {
		line += " " + color.RedString("(%d failed)", failed)
	}
	if current != "" {
		line += " " + current
	}
	return line
}

// summaryTable renders the per-item outcome of a batch.
func summaryTable(sum batch.Summary) string {
	rows := make([][]string, 0, len(sum.Items))
	for _, it := range sum.Items {
		status := string(it.Status)
		switch it.Status {
		case batch.StatusDone:
			status = color.GreenString(status)
		case batch.StatusError:
			status = color.RedString(status)
		}
		rows = append(rows, []string{it.Key, status, it.Error})
	}
	out := renderTable([]string{"Item", "Status", "Error"}, rows, nil)

	counts := fmt.Sprintf("%d done, %d failed", sum.Done, sum.Failed)
	if sum.Failed > 0 {
		counts = color.RedString(counts)
	} else {
		counts = color.GreenString(counts)
	}
	return out + counts + "\n"
}

// textPrinter writes the growing transcript incrementally.
type textPrinter struct {
	w       io.Writer
	printed string
}

// Update prints what full adds to the text already printed. A transcript that no
// longer extends the printed text is written out again on a new line.
func (p *textPrinter) Update(full string) {
	if strings.HasPrefix(full, p.printed) {
		io.WriteString(p.w, full[len(p.printed):])
	} else {
		io.WriteString(p.w, "\n"+full)
	}
	p.printed = full
}

// Finish ends the output with a newline if anything was printed.
func (p *textPrinter) Finish() {
	if p.printed != "" && !strings.HasSuffix(p.printed, "\n") {
		io.WriteString(p.w, "\n")
	}
}

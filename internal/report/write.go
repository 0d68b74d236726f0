package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want json or table)", s)
	}
}

// Write renders r to w in the given format.
func (r *RunReport) Write(w io.Writer, f Format) error {
	switch f {
	case FormatJSON:
		return r.WriteJSON(w)
	case FormatTable:
		return r.WriteTable(w)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// WriteJSON writes r as indented JSON.
func (r *RunReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(r)
}

// WriteTable writes a per-item table followed, when a profile exists, by a
// per-stage timing table.
func (r *RunReport) WriteTable(w io.Writer) error {
	items := table.NewWriter()
	items.SetStyle(table.StyleLight)
	items.Style().Format.Footer = text.FormatDefault
	items.AppendHeader(table.Row{"Item", "State", "Stage", "Cause"})
	for _, o := range r.Items {
		cause := ""
		if o.Cause != nil {
			cause = o.Cause.Error()
		}
		items.AppendRow(table.Row{o.ItemID, string(o.State), o.FailedStage, cause})
	}
	c := r.Counts()
	items.AppendFooter(table.Row{"Total", fmt.Sprintf("%d ok / %d failed / %d skipped", c.Completed, c.Failed, c.Skipped), "", ""})
	items.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 60}})
	if _, err := fmt.Fprintln(w, items.Render()); err != nil {
		return err
	}

	if r.Profile == nil {
		return nil
	}

	stages := table.NewWriter()
	stages.SetStyle(table.StyleLight)
	stages.Style().Format.Footer = text.FormatDefault
	stages.AppendHeader(table.Row{"Stage", "Nodes", "Total", "Mean", "Max", "Output bytes"})
	for _, s := range r.Profile.ByStage(r.Stages) {
		stages.AppendRow(table.Row{s.Stage, s.Nodes, s.Total, s.Mean(), s.Max, s.OutputBytes})
	}
	cache := r.Profile.Cache()
	stages.AppendFooter(table.Row{"Wall clock", "", r.Profile.WallClock, "", "", fmt.Sprintf("%d cached", cache.Entries)})
	stages.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	_, err := fmt.Fprintln(w, stages.Render())
	return err
}

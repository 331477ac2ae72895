// Package output serializes collection results for the CLI.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/leadsweep/leadsweep/internal/collector"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// document is the exported shape: run metadata followed by the ordered
// leads.
type document struct {
	ScrapedAt   string           `json:"scraped_at" yaml:"scraped_at"`
	CutoffDate  string           `json:"cutoff_date" yaml:"cutoff_date"`
	Termination string           `json:"termination" yaml:"termination"`
	TotalLeads  int              `json:"total_leads" yaml:"total_leads"`
	Leads       []collector.Lead `json:"leads" yaml:"leads"`
}

// WriteResult serializes one run in the requested format. JSONL writes one
// lead per line with no envelope; JSON and YAML wrap the leads with run
// metadata.
func WriteResult(w io.Writer, format Format, result collector.Result) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	doc := document{
		ScrapedAt:   result.ScrapedAt.Format("2006-01-02T15:04:05Z07:00"),
		CutoffDate:  result.CutoffDate.Format("2006-01-02"),
		Termination: string(result.Termination),
		TotalLeads:  result.TotalLeads,
		Leads:       result.Leads,
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(bw)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatJSONL:
		enc := json.NewEncoder(bw)
		for _, lead := range result.Leads {
			if err := enc.Encode(lead); err != nil {
				return err
			}
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(bw)
		defer enc.Close()
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

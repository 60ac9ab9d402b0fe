package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/picogrid/legion-rendezvous/pkg/logger"
)

var (
	colorHeader  = color.New(color.FgCyan, color.Bold)
	colorSuccess = color.New(color.FgGreen, color.Bold)
	colorFailure = color.New(color.FgRed, color.Bold)
	colorWarning = color.New(color.FgYellow, color.Bold)
)

// Write saves the report in the given format ("json" or "yaml") plus a
// .geojson file with the agent tracks, and returns the written paths.
func Write(rep *Report, dir, format string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	id := rep.Metadata.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	base := filepath.Join(dir, fmt.Sprintf("RDV_%s_%s", id, time.Now().Format("20060102_150405")))

	var data []byte
	var err error
	format = strings.ToLower(format)
	switch format {
	case "json":
		data, err = json.MarshalIndent(rep, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(rep)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	reportPath := base + "." + format
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	paths := []string{reportPath}

	if rep.Tracks != nil && len(rep.Tracks.Features) > 0 {
		raw, err := rep.Tracks.MarshalJSON()
		if err != nil {
			return paths, fmt.Errorf("failed to marshal tracks: %w", err)
		}
		tracksPath := base + ".geojson"
		if err := os.WriteFile(tracksPath, raw, 0644); err != nil {
			return paths, fmt.Errorf("failed to write tracks: %w", err)
		}
		paths = append(paths, tracksPath)
	}

	logger.Successf("Report saved to: %s", reportPath)
	return paths, nil
}

// PrintSummary writes a formatted summary of rep to w
func PrintSummary(w io.Writer, rep *Report) {
	s := rep.Summary

	colorHeader.Fprintln(w, "\n════════════════ RENDEZVOUS SUMMARY ════════════════")
	fmt.Fprintf(w, "Run:      %s (%s)\n", rep.Metadata.RunID, rep.Metadata.Maneuver)

	outcomeColor := colorFailure
	switch s.Outcome {
	case OutcomeConverged:
		outcomeColor = colorSuccess
	case OutcomeMaxTicks, OutcomeAborted:
		outcomeColor = colorWarning
	}
	fmt.Fprintf(w, "Outcome:  %s\n", outcomeColor.Sprint(s.Outcome))
	if s.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", s.Error)
	}
	fmt.Fprintf(w, "Ticks:    %d\n", s.Ticks)
	fmt.Fprintf(w, "Elapsed:  %s\n", s.Elapsed)
	fmt.Fprintf(w, "Agents:   %d/%d converged\n", s.ConvergedAgents, len(s.Agents))
	fmt.Fprintf(w, "Spread:   %.3f m\n", s.FinalMaxDistance)

	if n := len(rep.Timeline); n > 0 {
		table := logger.NewTable("AGENT", "LATITUDE", "LONGITUDE", "ALTITUDE", "CONVERGED")
		for _, a := range rep.Timeline[n-1].Agents {
			table.AddRow(
				a.Name,
				fmt.Sprintf("%.6f", a.Position.Latitude),
				fmt.Sprintf("%.6f", a.Position.Longitude),
				fmt.Sprintf("%.1f", a.Position.Altitude),
				fmt.Sprintf("%t", a.Converged),
			)
		}
		fmt.Fprintln(w)
		table.Fprint(w)
	}

	colorHeader.Fprintln(w, "════════════════════════════════════════════════════")
}

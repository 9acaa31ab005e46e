package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/mo9a7i/timebot/internal/models"
)

func PadRight(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w < width {
		return str + strings.Repeat(" ", width-w)
	}
	return str
}

// Truncate shortens str to at most width cells, ending with "..."
func Truncate(str string, width int) string {
	if runewidth.StringWidth(str) <= width {
		return str
	}
	return runewidth.Truncate(str, width, "...")
}

// FormatReport renders a run as an aligned table, one line per step
func FormatReport(report *models.RunReport) string {
	lines := []string{fmt.Sprintf("Run %s", report.Timestamp)}

	for i, step := range report.Steps {
		line := fmt.Sprintf("%d. %s %s %s %s",
			i+1,
			PadRight(step.Step, 18),
			PadRight(string(step.Outcome), 8),
			PadRight(step.Duration.Round(time.Millisecond).String(), 10),
			Truncate(step.Detail, 60),
		)
		lines = append(lines, strings.TrimRight(line, " "))
	}

	if report.Err != nil {
		lines = append(lines, fmt.Sprintf("Run ended early: %v", report.Err))
	}
	if !report.Started.IsZero() && !report.Finished.IsZero() {
		lines = append(lines, fmt.Sprintf("Finished in %s, %d step(s) failed",
			report.Finished.Sub(report.Started).Round(time.Second), report.Failed()))
	}
	return strings.Join(lines, "\n") + "\n"
}

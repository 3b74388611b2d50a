package scraper

import (
	"fmt"
	"io"
	"time"

	"mars-scraper/models"

	"github.com/mattn/go-runewidth"
)

const summaryMessageWidth = 72

// WriteSummary prints one aligned line per section followed by the totals
func WriteSummary(w io.Writer, report *models.Report) {
	nameWidth := len("SECTION")
	for _, s := range report.Sections {
		nameWidth = max(nameWidth, runewidth.StringWidth(s.Section))
	}

	fmt.Fprintf(w, "%s  %-6s  %8s  %s\n", runewidth.FillRight("SECTION", nameWidth), "STATUS", "TIME", "DETAIL")
	for _, s := range report.Sections {
		status, detail := "ok", ""
		if !s.OK {
			status = "FAILED"
			detail = runewidth.Truncate(s.Kind+": "+s.Message, summaryMessageWidth, "…")
		}
		fmt.Fprintf(w, "%s  %-6s  %8s  %s\n",
			runewidth.FillRight(s.Section, nameWidth), status, s.Duration.Round(time.Millisecond), detail)
	}
	fmt.Fprintf(w, "%d succeeded, %d failed\n", len(report.Succeeded()), len(report.Failed()))
}

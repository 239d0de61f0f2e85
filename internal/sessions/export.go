package sessions

import (
	"fmt"
	"strings"
	"time"
)

const (
	ExportFileName    = "cv_improvement_log.txt"
	ExportContentType = "text/plain; charset=utf-8"

	exportTimeLayout = "1/2/2006, 3:04:05 PM"
	runRule          = "========================================"
	headerRule       = "----------------------------------------"
)

// RenderExport writes the improvement log, newest run first and newest update
// first within a run.
func RenderExport(l Ledger, now time.Time) (string, error) {
	if len(l.Flatten()) == 0 {
		return "", ErrNothingToExport
	}

	var b strings.Builder
	b.WriteString("AI-Powered CV Optimizer - Improvement Log\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", now.Format(exportTimeLayout))

	for i := len(l.sessions) - 1; i >= 0; i-- {
		s := l.sessions[i]
		b.WriteString(runRule + "\n")
		fmt.Fprintf(&b, "ANALYSIS RUN #%d\n", i+1)
		fmt.Fprintf(&b, "Timestamp: %s\n", s.Timestamp.Format(exportTimeLayout))
		if s.ScoreBefore != nil {
			diff := s.ScoreAfter - *s.ScoreBefore
			sign := ""
			if diff >= 0 {
				sign = "+"
			}
			fmt.Fprintf(&b, "Score Change: %d -> %d (%s%d pts)\n", *s.ScoreBefore, s.ScoreAfter, sign, diff)
		} else {
			fmt.Fprintf(&b, "Initial Score: %d\n", s.ScoreAfter)
		}
		b.WriteString(headerRule + "\n\n")

		if len(s.Improvements) == 0 {
			b.WriteString("No changes were applied in this run.\n\n")
			continue
		}
		for k := len(s.Improvements) - 1; k >= 0; k-- {
			imp := s.Improvements[k]
			fmt.Fprintf(&b, "Update #%d: %s\n", k+1, imp.TaskName)
			fmt.Fprintf(&b, "Original: \"%s\"\n", strings.TrimSpace(imp.OriginalText))
			fmt.Fprintf(&b, "Updated:  \"%s\"\n\n", strings.TrimSpace(imp.ReplacementText))
		}
	}
	return b.String(), nil
}

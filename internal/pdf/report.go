package pdf

import (
	"bytes"
	"fmt"

	"promptstudio/internal/domain"

	"github.com/jung-kurt/gofpdf"
)

// BuildTaskReport renders a task's version history and latest execution
// outcomes into a one-document PDF.
func BuildTaskReport(task *domain.Task) ([]byte, error) {
	p := gofpdf.New("P", "mm", "A4", "")
	p.AddPage()
	p.SetFont("Arial", "B", 14)

	p.Cell(40, 10, fmt.Sprintf("Prompt report: %s", task.Name))
	p.Ln(8)
	p.SetFont("Arial", "", 10)
	p.Cell(40, 8, fmt.Sprintf("Group: %s    Versions: %d", task.Group, len(task.Versions)))
	p.Ln(12)

	for _, v := range task.Versions {
		p.SetFont("Arial", "B", 11)
		p.Cell(40, 8, fmt.Sprintf("Version %s (%s)", v.Name, v.ID))
		p.Ln(7)

		p.SetFont("Arial", "", 10)
		p.MultiCell(180, 5, v.Content, "", "L", false)
		p.Ln(2)

		if len(v.Results) > 0 {
			latest := v.Results[0]
			p.SetFont("Arial", "I", 9)
			p.Cell(40, 6, fmt.Sprintf("Last run %s, model %s", latest.Timestamp.Format("2006-01-02 15:04:05"), latest.Output.Model))
			p.Ln(6)
			p.SetFont("Arial", "", 9)
			p.MultiCell(180, 4, truncate(latest.Output.Response, 600), "", "L", false)
		} else {
			p.SetFont("Arial", "I", 9)
			p.Cell(40, 6, "No executions recorded")
			p.Ln(6)
		}
		p.Ln(6)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

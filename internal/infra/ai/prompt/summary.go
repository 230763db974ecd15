package prompt

import (
	"encoding/json"
	"fmt"
)

const lowConfidence = 0.25

// SummarizeReport inspects a redaction report and returns a JSON string
// matching the same schema the AI client produces. Used as the local
// fallback when no API key is configured. It never prints; it only
// returns the JSON string.
func SummarizeReport(reportURL string, reportJSON string) string {
	type region struct {
		Frame      int     `json:"frame"`
		Confidence float64 `json:"confidence"`
	}
	type counts struct {
		Frames        int     `json:"frames"`
		Regions       int     `json:"regions"`
		MaxConfidence float64 `json:"max_confidence"`
	}
	type report struct {
		Kind    string   `json:"kind"`
		Counts  counts   `json:"counts"`
		Regions []region `json:"regions"`
	}
	type output struct {
		ReportURL string   `json:"report_url"`
		Counts    counts   `json:"counts"`
		Notes     []string `json:"notes"`
		Advice    string   `json:"advice"`
	}

	out := output{ReportURL: reportURL, Notes: []string{}}

	var rep report
	if err := json.Unmarshal([]byte(reportJSON), &rep); err != nil {
		out.Notes = append(out.Notes, "report payload could not be parsed")
		out.Advice = "Re-run processing for this asset; the detection report is unreadable."
		b, _ := json.Marshal(out)
		return string(b)
	}

	out.Counts = rep.Counts

	if rep.Counts.Regions == 0 {
		out.Notes = append(out.Notes, "no plate regions were detected")
	}

	low := 0
	perFrame := map[int]int{}
	for _, r := range rep.Regions {
		if r.Confidence < lowConfidence {
			low++
		}
		perFrame[r.Frame]++
	}
	if low > 0 {
		out.Notes = append(out.Notes,
			fmt.Sprintf("%d region(s) below %.2f confidence", low, lowConfidence))
	}
	busiest := 0
	for _, n := range perFrame {
		if n > busiest {
			busiest = n
		}
	}
	if busiest > 5 {
		out.Notes = append(out.Notes,
			fmt.Sprintf("a frame carries %d regions; verify they are all plates", busiest))
	}

	switch {
	case rep.Counts.Regions == 0 && rep.Kind == "video":
		out.Advice = "No plates found across the video; spot-check a few frames manually."
	case rep.Counts.Regions == 0:
		out.Advice = "No plates found; confirm the photo actually contains a vehicle."
	case low > 0:
		out.Advice = "Low-confidence regions were still redacted; review the output before publishing."
	default:
		out.Advice = "Detections look consistent; output should be safe to publish."
	}

	b, _ := json.Marshal(out)
	return string(b)
}

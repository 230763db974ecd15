package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type summaryOut struct {
	ReportURL string   `json:"report_url"`
	Notes     []string `json:"notes"`
	Advice    string   `json:"advice"`
}

func decodeSummary(t *testing.T, raw string) summaryOut {
	t.Helper()
	var out summaryOut
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestSummarizeReportUnparseable(t *testing.T) {
	out := decodeSummary(t, SummarizeReport("https://store/r.json", "{not json"))
	require.Contains(t, out.Notes, "report payload could not be parsed")
	require.Contains(t, out.Advice, "unreadable")
}

func TestSummarizeReportNoRegions(t *testing.T) {
	report := `{"kind":"photo","counts":{"frames":1,"regions":0,"max_confidence":0},"regions":[]}`
	out := decodeSummary(t, SummarizeReport("https://store/r.json", report))
	require.Equal(t, "https://store/r.json", out.ReportURL)
	require.Contains(t, out.Notes, "no plate regions were detected")
	require.Contains(t, out.Advice, "confirm the photo")
}

func TestSummarizeReportNoRegionsVideo(t *testing.T) {
	report := `{"kind":"video","counts":{"frames":120,"regions":0,"max_confidence":0},"regions":[]}`
	out := decodeSummary(t, SummarizeReport("u", report))
	require.Contains(t, out.Advice, "spot-check")
}

func TestSummarizeReportLowConfidence(t *testing.T) {
	report := `{"kind":"photo","counts":{"frames":1,"regions":2,"max_confidence":0.8},
		"regions":[{"frame":0,"confidence":0.8},{"frame":0,"confidence":0.1}]}`
	out := decodeSummary(t, SummarizeReport("u", report))
	require.Contains(t, out.Notes, "1 region(s) below 0.25 confidence")
	require.Contains(t, out.Advice, "review the output")
}

func TestSummarizeReportBusyFrame(t *testing.T) {
	regions := make([]map[string]any, 0, 7)
	for i := 0; i < 7; i++ {
		regions = append(regions, map[string]any{"frame": 3, "confidence": 0.9})
	}
	rep, _ := json.Marshal(map[string]any{
		"kind":    "video",
		"counts":  map[string]any{"frames": 10, "regions": 7, "max_confidence": 0.9},
		"regions": regions,
	})
	out := decodeSummary(t, SummarizeReport("u", string(rep)))
	require.Contains(t, out.Notes, "a frame carries 7 regions; verify they are all plates")
}

func TestSummarizeReportClean(t *testing.T) {
	report := `{"kind":"photo","counts":{"frames":1,"regions":1,"max_confidence":0.95},
		"regions":[{"frame":0,"confidence":0.95}]}`
	out := decodeSummary(t, SummarizeReport("u", report))
	require.Empty(t, out.Notes)
	require.Contains(t, out.Advice, "safe to publish")
}

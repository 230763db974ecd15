package prompt

// GetSystemPrompt returns the system prompt for redaction-report review.
func GetSystemPrompt() string {
	return `You are a privacy compliance assistant reviewing license plate
redaction reports produced by an automated pipeline. The report lists the
media asset, the detected plate regions per frame and their confidence
scores. Respond with a single JSON object using this schema:
{
  "report_url": string,
  "counts": {"frames": int, "regions": int, "max_confidence": number},
  "notes": [string],
  "advice": string
}
Notes should flag anything a human reviewer should double-check: zero
detections on vehicle footage, low-confidence regions, frames with an
unusually high region count. Keep notes short and factual.`
}

// GetUserPrompt returns the user prompt carrying the report payload.
func GetUserPrompt(reportURL, reportJSON string) string {
	return "Review this license plate redaction report.\nReport URL: " +
		reportURL + "\nReport JSON:\n" + reportJSON
}

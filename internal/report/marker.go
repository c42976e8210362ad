package report

import "strings"

const (
	markerOpen  = "<<<RUN_REPORT_JSON"
	markerClose = "RUN_REPORT_JSON>>>"
)

// ExtractInlineMarker scans wrapper stdout for an inline
// <<<RUN_REPORT_JSON ... RUN_REPORT_JSON>>> block (§6 "Wrapper process
// contract"). The returned text is diagnostic only — the file on disk is
// always authoritative (§6); callers use this to log a mismatch warning
// when the inline block disagrees with the report file, never to drive a
// scheduling decision.
func ExtractInlineMarker(stdout string) (string, bool) {
	start := strings.Index(stdout, markerOpen)
	if start == -1 {
		return "", false
	}
	rest := stdout[start+len(markerOpen):]
	end := strings.Index(rest, markerClose)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

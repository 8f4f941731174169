package review

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
)

// WriteJSON writes the artifact as indented JSON for downstream tooling.
func (a *Artifact) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("failed to encode review artifact: %w", err)
	}
	return nil
}

// WriteHTML writes the side-by-side review document: original page image on
// the left, extracted text on the right, flagged words listed under the
// text, failed pages visibly marked, and the summary section at the end.
func (a *Artifact) WriteHTML(w io.Writer) error {
	if err := reviewTemplate.Execute(w, a); err != nil {
		return fmt.Errorf("failed to render review artifact: %w", err)
	}
	return nil
}

var reviewTemplate = template.Must(template.New("review").Funcs(template.FuncMap{
	"pct": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.1f%%", *v)
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>OCR Review: {{.Summary.DocumentName}}</title>
<style>
  body { font-family: sans-serif; margin: 2em; }
  .page { display: flex; gap: 2em; border-top: 1px solid #ccc; padding: 1.5em 0; }
  .page .scan { flex: 1; }
  .page .scan img { max-width: 100%; border: 1px solid #999; }
  .page .text { flex: 1; white-space: pre-wrap; font-size: 0.95em; }
  .failed { background: #fee; border: 1px solid #c00; padding: 1em; }
  .flagged { margin-top: 1em; color: #a60; }
  .flagged span { background: #ffd; padding: 0 0.2em; margin-right: 0.4em; }
  .incomplete { background: #fde8c8; border: 1px solid #c80; padding: 1em; margin-bottom: 1.5em; }
  .summary { border-top: 3px double #333; margin-top: 2em; padding-top: 1em; }
  .summary td { padding: 0.15em 1em 0.15em 0; }
</style>
</head>
<body>
<h1>OCR Review: {{.Summary.DocumentName}}</h1>
{{if .Summary.Incomplete}}
<div class="incomplete">
  <strong>Incomplete batch.</strong> This run did not process every page
  ({{.Summary.ProcessedCount}} of {{.Summary.PageCount}}, state {{.Summary.State}}).
  The pages below reflect partial work only.
</div>
{{end}}
<p>Compare each scan (left) with its extracted text (right) and correct the
text by hand. Highlighted words fell below the confidence threshold and
deserve extra attention.</p>

{{range .Units}}
<div class="page" id="page-{{.PageNumber}}">
  <div class="scan">
    <h2>Page {{.PageNumber}}{{if .Confidence}} <small>({{pct .Confidence}})</small>{{end}}</h2>
    <img src="{{.SourceImageRef}}" alt="Scan of page {{.PageNumber}}">
  </div>
  <div class="text">
  {{if .Succeeded}}
    {{- if .Text}}{{.Text}}{{else}}[No text detected on this page]{{end}}
    {{- if .FlaggedWords}}
    <div class="flagged">Low-confidence words:
      {{range .FlaggedWords}}<span>{{.Text}} ({{pct .Confidence}})</span>{{end}}
    </div>
    {{- end}}
  {{else}}
    <div class="failed"><strong>Page {{.PageNumber}} failed:</strong> {{.ErrorDetail}}</div>
  {{end}}
  </div>
</div>
{{end}}

<div class="summary">
<h2>Summary</h2>
<table>
  <tr><td>Engine</td><td>{{.Summary.EngineUsed}}</td></tr>
  <tr><td>Pages succeeded</td><td>{{.Summary.SucceededCount}}</td></tr>
  <tr><td>Pages failed</td><td>{{.Summary.FailedCount}}</td></tr>
  <tr><td>Average confidence</td><td>{{.Summary.AverageConfidenceLabel}}</td></tr>
  <tr><td>High confidence pages (&ge;85%)</td><td>{{.Summary.HighConfidencePages}}</td></tr>
  <tr><td>Medium confidence pages (70&ndash;84%)</td><td>{{.Summary.MediumConfidencePages}}</td></tr>
  <tr><td>Low confidence pages (&lt;70%)</td><td>{{.Summary.LowConfidencePages}}</td></tr>
</table>
</div>
</body>
</html>
`))

// Package report renders a run result as a Markdown summary and as a
// sanitized standalone HTML page.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/uiverify/internal/artifacts"
	"github.com/kuitang/uiverify/internal/errs"
	"github.com/kuitang/uiverify/internal/runner"
)

// ArtifactName is the fixed name the HTML report is stored under.
const ArtifactName = "uiverify_report.html"

const detailMaxChars = 300

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.5;
            max-width: 960px;
            margin: 0 auto;
            padding: 2rem 1rem;
        }
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid #e0e0e0; padding: 0.4em 0.6em; text-align: left; vertical-align: top; }
        th { background-color: #f5f5f5; }
        code { background-color: #f5f5f5; padding: 0.1em 0.3em; }
    </style>
</head>
<body>
    <article>
        {{.Content}}
    </article>
</body>
</html>`

var page = template.Must(template.New("report").Parse(htmlTemplate))

// Markdown renders the result as a Markdown document.
func Markdown(res *runner.Result) string {
	var b strings.Builder

	outcome := "PASSED"
	if !res.Passed() {
		outcome = "FAILED"
	}
	fmt.Fprintf(&b, "# Verification %s: %s\n\n", outcome, escape(res.Checklist))
	fmt.Fprintf(&b, "- Run: `%s`\n", res.RunID)
	fmt.Fprintf(&b, "- Target: %s\n", escape(res.BaseURL))
	fmt.Fprintf(&b, "- Started: %s\n", res.Started.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", res.Duration().Round(time.Millisecond))
	if res.Err != nil {
		fmt.Fprintf(&b, "- Error (%s): %s\n", errs.CodeOf(res.Err), escape(cell(res.Err.Error())))
	}
	b.WriteString("\n## Steps\n\n")

	if len(res.Steps) == 0 {
		b.WriteString("No steps ran.\n")
	} else {
		b.WriteString("| # | Step | Kind | Status | Duration | Detail |\n")
		b.WriteString("|---|------|------|--------|----------|--------|\n")
		for _, s := range res.Steps {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
				s.Index,
				escape(cell(s.Name)),
				s.Kind,
				statusLabel(s.Status),
				s.Duration.Round(time.Millisecond),
				escape(cell(s.Detail)),
			)
		}
	}

	if len(res.Artifacts) > 0 {
		b.WriteString("\n## Artifacts\n\n")
		for _, a := range res.Artifacts {
			fmt.Fprintf(&b, "- %s: %s\n", escape(a.Name), escape(a.Location))
		}
	}
	return b.String()
}

// HTML renders the result as a complete HTML document. The rendered body
// is sanitized because step details carry page and driver text.
func HTML(res *runner.Result) []byte {
	extensions := parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(Markdown(res)))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	body := bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))

	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title   string
		Content template.HTML
	}{
		Title:   "uiverify: " + res.Checklist,
		Content: template.HTML(body),
	})
	if err != nil {
		return []byte("<!DOCTYPE html><html><head><title>Error</title></head><body><h1>Error rendering report</h1></body></html>")
	}
	return buf.Bytes()
}

// Write stores the HTML report through store and returns its location.
func Write(ctx context.Context, store artifacts.Store, res *runner.Result) (string, error) {
	return store.Put(ctx, ArtifactName, HTML(res))
}

func statusLabel(s runner.Status) string {
	switch s {
	case runner.StatusFailed:
		return "**failed**"
	case runner.StatusAbsent, runner.StatusHidden:
		return "_" + string(s) + "_"
	default:
		return string(s)
	}
}

// cell makes text safe inside a single table cell.
func cell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	if len(s) > detailMaxChars {
		s = s[:detailMaxChars] + "..."
	}
	return s
}

var markdownEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"`", "\\`",
	"*", "\\*",
	"_", "\\_",
	"[", "\\[",
	"]", "\\]",
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

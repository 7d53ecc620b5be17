// Package render turns model-produced markdown into HTML that is safe to
// embed in a host application's UI. Document drafts and summary digests
// arrive as markdown; the host shows HTML.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/aeobrien/colloquy/storage"
)

// Renderer converts markdown to sanitised HTML. Safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New returns a renderer with GitHub-flavoured markdown and a
// user-generated-content sanitisation policy.
func New() *Renderer {
	return &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

// HTML converts markdown to sanitised HTML. Raw HTML in the input, script
// tags included, is stripped rather than passed through.
func (r *Renderer) HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// SummaryMarkdown renders a session summary as a markdown digest, one
// heading per non-empty section.
func SummaryMarkdown(s *storage.Summary) string {
	var b strings.Builder

	section := func(heading string, items []string) {
		if len(items) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## " + heading + "\n\n")
		for _, item := range items {
			b.WriteString("- " + item + "\n")
		}
	}

	section("Decisions", s.Established.Decisions)
	section("Facts learned", s.Established.FactsLearned)
	section("Progress", s.Established.ProgressMade)
	section("Patterns noticed", s.Observed.Patterns)
	section("Concerns", s.Observed.Concerns)
	section("Strengths", s.Observed.Strengths)
	section("Next actions", s.Next.NextActions)
	section("Open questions", s.Next.OpenQuestions)

	if s.Next.SuggestedMode != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Suggested next mode: " + s.Next.SuggestedMode + "\n")
	}
	return b.String()
}

// SummaryHTML renders a session summary digest straight to HTML.
func (r *Renderer) SummaryHTML(s *storage.Summary) (string, error) {
	return r.HTML(SummaryMarkdown(s))
}

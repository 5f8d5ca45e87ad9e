// Package markdown converts page content into HTML safe to serve to a
// browser: goldmark handles the Markdown, bluemonday strips unsafe markup.
package markdown

import (
	"bytes"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Sanitizer strips unsafe markup from user-submitted text using a
// user-generated-content policy.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer constructs the sanitizer applied to submitted page fields.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.UGCPolicy()}
}

// Sanitize returns the input with unsafe markup removed.
func (s *Sanitizer) Sanitize(input string) string {
	return s.policy.Sanitize(input)
}

// Renderer transforms Markdown sources into sanitized HTML fragments.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer constructs a renderer with GitHub-flavored Markdown
// extensions and class-based syntax highlighting. The output policy
// additionally admits the class attributes the highlighter emits.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("pre", "code", "span", "div")

	return &Renderer{md: md, policy: policy}
}

// Render converts the provided Markdown into sanitized HTML.
func (r *Renderer) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", eris.Wrap(err, "converting markdown")
	}

	return r.policy.Sanitize(buf.String()), nil
}

package markdown

import (
	"strings"
	"testing"
)

func TestSanitizerStripsScriptTags(t *testing.T) {
	t.Parallel()

	sanitizer := NewSanitizer()

	out := sanitizer.Sanitize(`hello <script>alert(1)</script>world`)
	if strings.Contains(out, "script") {
		t.Fatalf("expected script tag to be removed, got %q", out)
	}
	if !strings.Contains(out, "hello") || !strings.Contains(out, "world") {
		t.Fatalf("expected surrounding text to survive, got %q", out)
	}
}

func TestSanitizerStripsEventHandlers(t *testing.T) {
	t.Parallel()

	sanitizer := NewSanitizer()

	out := sanitizer.Sanitize(`<img src="x" onerror="alert(1)">`)
	if strings.Contains(out, "onerror") {
		t.Fatalf("expected event handler to be removed, got %q", out)
	}
}

func TestSanitizerLeavesPlainMarkdownAlone(t *testing.T) {
	t.Parallel()

	sanitizer := NewSanitizer()

	src := "# Hi"
	if out := sanitizer.Sanitize(src); out != src {
		t.Fatalf("expected %q to pass through, got %q", src, out)
	}
}

func TestRendererConvertsMarkdown(t *testing.T) {
	t.Parallel()

	renderer := NewRenderer()

	out, err := renderer.Render("# Hello\n\nSome *emphasis* here.")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if !strings.Contains(out, "<h1") {
		t.Fatalf("expected a heading, got %q", out)
	}
	if !strings.Contains(out, "<em>emphasis</em>") {
		t.Fatalf("expected emphasis markup, got %q", out)
	}
}

func TestRendererSanitizesRawHTML(t *testing.T) {
	t.Parallel()

	renderer := NewRenderer()

	out, err := renderer.Render("before\n\n<script>alert(1)</script>\n\nafter")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if strings.Contains(out, "<script>") {
		t.Fatalf("expected script markup to be stripped, got %q", out)
	}
}

func TestRendererRendersGFMTables(t *testing.T) {
	t.Parallel()

	renderer := NewRenderer()

	out, err := renderer.Render("| a | b |\n|---|---|\n| 1 | 2 |")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if !strings.Contains(out, "<table>") {
		t.Fatalf("expected a table, got %q", out)
	}
}

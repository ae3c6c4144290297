package tui

import (
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	t.Setenv("CANVAS_MD_STYLE", "notty")
	if got := RenderMarkdown("   ", 40); got != "" {
		t.Fatalf("blank input should render empty; got %q", got)
	}
	got := RenderMarkdown("## Current state\n\n- id=0001 type=note", 40)
	if !strings.Contains(got, "Current state") || !strings.Contains(got, "id=0001") {
		t.Fatalf("unexpected render:\n%s", got)
	}
}

func TestMarkdownStyle_Override(t *testing.T) {
	t.Setenv("CANVAS_MD_STYLE", "Light")
	if got := MarkdownStyle(); got != "light" {
		t.Fatalf("MarkdownStyle = %q", got)
	}
	t.Setenv("CANVAS_MD_STYLE", "")
	t.Setenv("NO_COLOR", "1")
	if got := MarkdownStyle(); got != "notty" {
		t.Fatalf("NO_COLOR should force notty; got %q", got)
	}
}

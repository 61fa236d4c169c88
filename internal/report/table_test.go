package report

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	out := Render(
		[]string{"Subject", "Written"},
		[][]string{
			{"Senzo Mchunu", "12"},
			{"Jacob Zuma", "3"},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines (header, separator, 2 rows), got %d:\n%s", len(lines), out)
	}

	// All lines align to the same width
	for i, line := range lines {
		if len(line) != len(lines[0]) {
			t.Errorf("Line %d width %d differs from header width %d:\n%s", i, len(line), len(lines[0]), out)
		}
	}

	if !strings.Contains(lines[0], "Subject") || !strings.Contains(lines[0], "Written") {
		t.Errorf("Header row missing column names: %q", lines[0])
	}

	if !strings.Contains(lines[1], "---") {
		t.Errorf("Expected separator row, got %q", lines[1])
	}

	if !strings.Contains(lines[2], "Senzo Mchunu") {
		t.Errorf("Expected first data row, got %q", lines[2])
	}
}

func TestRender_ShortRows(t *testing.T) {
	out := Render(
		[]string{"Key", "Inserted", "Updated"},
		[][]string{
			{"discoveries/a/x.json"},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d:\n%s", len(lines), out)
	}

	// Missing cells are padded, not dropped
	if len(lines[2]) != len(lines[0]) {
		t.Errorf("Short row not padded to full width:\n%s", out)
	}
}

func TestRender_NoRows(t *testing.T) {
	out := Render([]string{"Subject"}, nil)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and separator only, got %d lines:\n%s", len(lines), out)
	}
}

package utils

import (
	"strings"
	"testing"
)

func TestCompressAndDecompressString(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "Short string", text: "Hello, world!"},
		{name: "Tamil text", text: "வெண்ணிலவே வெண்ணிலவே விண்ணைத் தாண்டி வருவாயா"},
		{name: "Large html page", text: strings.Repeat("<p>lyrics line</p>\n", 2000)},
		{name: "Empty string", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := CompressString(tt.text)
			if err != nil {
				t.Fatalf("CompressString failed: %v", err)
			}
			got, err := DecompressString(compressed)
			if err != nil {
				t.Fatalf("DecompressString failed: %v", err)
			}
			if got != tt.text {
				t.Errorf("Expected round trip to preserve input")
			}
		})
	}
}

func TestDecompressString_InvalidInput(t *testing.T) {
	if _, err := DecompressString("not base64!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := DecompressString("aGVsbG8="); err == nil {
		t.Error("Expected error for non-gzip payload")
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Happy   Birthday ", "happy birthday"},
		{"\tVennilave\n", "vennilave"},
		{"   ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeQuery(tt.input); got != tt.expected {
			t.Errorf("NormalizeQuery(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestCollapseSpace(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Vennilave   Song ", "Vennilave Song"},
		{"\tRoja\nJaneman", "Roja Janeman"},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := CollapseSpace(tt.input); got != tt.expected {
			t.Errorf("CollapseSpace(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	tamil := "வெண்ணிலவே"
	if got := TruncateRunes(tamil, 3); RuneLen(got) != 3 {
		t.Errorf("Expected 3 runes, got %d", RuneLen(got))
	}
	if got := TruncateRunes("abc", 10); got != "abc" {
		t.Errorf("Expected unchanged string, got %q", got)
	}
	if RuneLen(tamil) != 9 {
		t.Errorf("Expected 9 runes, got %d", RuneLen(tamil))
	}
}

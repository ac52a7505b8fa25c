package quality

import (
	"math"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
)

func mustColor(t *testing.T, s string) colorful.Color {
	t.Helper()
	c, err := ParseColor(s)
	if err != nil {
		t.Fatalf("ParseColor(%q): %v", s, err)
	}
	return c
}

func TestContrastRatio(t *testing.T) {
	white := mustColor(t, "#FFFFFF")

	if got := ContrastRatio(mustColor(t, "#000"), white); math.Abs(got-21) > 0.01 {
		t.Errorf("black on white = %.3f, want 21", got)
	}
	if got := ContrastRatio(white, white); got != 1 {
		t.Errorf("white on white = %.3f, want 1", got)
	}
	if got := ContrastRatio(mustColor(t, "#767676"), white); got < MinContrastRatio || got > 4.6 {
		t.Errorf("#767676 on white = %.3f, want just above %.1f", got, MinContrastRatio)
	}
	if got := ContrastRatio(mustColor(t, "#949494"), white); got >= MinContrastRatio || got < 3.0 {
		t.Errorf("#949494 on white = %.3f, want between 3.0 and %.1f", got, MinContrastRatio)
	}
}

func TestContrastRatio_Symmetric(t *testing.T) {
	a, b := mustColor(t, "#336699"), mustColor(t, "rgb(250, 240, 230)")
	if ContrastRatio(a, b) != ContrastRatio(b, a) {
		t.Error("ContrastRatio is not symmetric")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#fff", "#ffffff"},
		{"#1A2B3C", "#1a2b3c"},
		{"rgb(255, 0, 0)", "#ff0000"},
		{"rgba(0,128,0,0.5)", "#008000"},
	}
	for _, tt := range tests {
		if got := mustColor(t, tt.in).Hex(); got != tt.want {
			t.Errorf("ParseColor(%q).Hex() = %q, want %q", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"red", "#12", "rgb(300,0,0)"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q) succeeded, want error", bad)
		}
	}
}

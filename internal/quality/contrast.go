package quality

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// MinContrastRatio is the WCAG AA threshold for normal text.
const MinContrastRatio = 4.5

var rgbFunc = regexp.MustCompile(`^rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)`)

// ParseColor accepts #rgb, #rrggbb and rgb()/rgba() notation.
func ParseColor(s string) (colorful.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if m := rgbFunc.FindStringSubmatch(s); m != nil {
		var ch [3]float64
		for i := range ch {
			n, err := strconv.Atoi(m[i+1])
			if err != nil || n > 255 {
				return colorful.Color{}, fmt.Errorf("invalid rgb channel %q", m[i+1])
			}
			ch[i] = float64(n) / 255
		}
		return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, nil
	}
	if len(s) == 4 && s[0] == '#' {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}

// RelativeLuminance is the WCAG 2.x luminance of c, in [0, 1].
func RelativeLuminance(c colorful.Color) float64 {
	lin := func(v float64) float64 {
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

// ContrastRatio returns the WCAG contrast ratio between two colors, in
// [1, 21]. Argument order does not matter.
func ContrastRatio(a, b colorful.Color) float64 {
	la, lb := RelativeLuminance(a), RelativeLuminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

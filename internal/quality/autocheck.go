package quality

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/slideforge/slideforge/internal/registry"
	"github.com/slideforge/slideforge/internal/slide"
)

// Canvas dimensions of a 16:9 slide, in points.
const (
	CanvasWidth  = 720
	CanvasHeight = 405
)

// ElementCountTolerance is the item/slot difference that counts as a mismatch.
const ElementCountTolerance = 2

// DefaultBackground is assumed when the artifact declares no background color.
const DefaultBackground = "#FFFFFF"

// Go's regexp has no lookbehind, so declarations are anchored on a
// non-identifier character to keep "max-width" and "background-color" out.
var (
	widthDecl      = regexp.MustCompile(`(?i)(?:^|[^-\w])width\s*:\s*(\d+(?:\.\d+)?)pt`)
	heightDecl     = regexp.MustCompile(`(?i)(?:^|[^-\w])height\s*:\s*(\d+(?:\.\d+)?)pt`)
	colorDecl      = regexp.MustCompile(`(?i)(?:^|[^-\w])color\s*:\s*(#[0-9a-f]{3,6}\b|rgba?\([^)]*\))`)
	backgroundDecl = regexp.MustCompile(`(?i)background(?:-color)?\s*:\s*(#[0-9a-f]{3,6}\b|rgba?\([^)]*\))`)
)

// CheckResult is the outcome of the automatic checks.
type CheckResult struct {
	HasCriticalFailure bool
	Failures           []Failure
	Issues             []string
}

func (r *CheckResult) fail(f Failure, issue string) {
	r.HasCriticalFailure = true
	r.Issues = append(r.Issues, issue)
	for _, existing := range r.Failures {
		if existing == f {
			return
		}
	}
	r.Failures = append(r.Failures, f)
}

// RunAutoChecks inspects the artifact content for problems that disqualify it
// without judging: canvas overflow, unreadable text contrast, a template whose
// slot count does not fit the content, and a missing title. tmpl may be nil.
func RunAutoChecks(content string, s slide.Slide, tmpl *registry.Template) CheckResult {
	var r CheckResult
	checkOverflow(&r, content)
	checkContrast(&r, content)
	checkElementCount(&r, s, tmpl)
	checkTitle(&r, content, s)
	return r
}

func checkOverflow(r *CheckResult, content string) {
	if w, ok := firstPoints(widthDecl, content); ok && w > CanvasWidth {
		r.fail(FailureOverflow, fmt.Sprintf("width %gpt exceeds canvas width %dpt", w, CanvasWidth))
	}
	if h, ok := firstPoints(heightDecl, content); ok && h > CanvasHeight {
		r.fail(FailureOverflow, fmt.Sprintf("height %gpt exceeds canvas height %dpt", h, CanvasHeight))
	}
}

func firstPoints(re *regexp.Regexp, content string) (float64, bool) {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// checkContrast pairs each declared text color with the first declared
// background and stops at the first pair below the threshold.
func checkContrast(r *CheckResult, content string) {
	bgText := DefaultBackground
	if m := backgroundDecl.FindStringSubmatch(content); m != nil {
		bgText = m[1]
	}
	bg, err := ParseColor(bgText)
	if err != nil {
		return
	}

	for _, m := range colorDecl.FindAllStringSubmatch(content, -1) {
		fg, err := ParseColor(m[1])
		if err != nil {
			continue
		}
		ratio := ContrastRatio(fg, bg)
		if contrastFails(ratio) {
			r.fail(FailureContrast, fmt.Sprintf(
				"contrast ratio %.2f:1 between %s and %s is below %.1f:1",
				ratio, fg.Hex(), bg.Hex(), MinContrastRatio))
			return
		}
	}
}

func checkElementCount(r *CheckResult, s slide.Slide, tmpl *registry.Template) {
	if tmpl == nil || tmpl.ElementCount == 0 {
		return
	}
	items, ok := s.ContentItems()
	if !ok {
		return
	}
	diff := len(items) - tmpl.ElementCount
	if diff < 0 {
		diff = -diff
	}
	if diff >= ElementCountTolerance {
		r.fail(FailureElementCount, fmt.Sprintf(
			"template %s has %d slots but the slide has %d items",
			tmpl.ID, tmpl.ElementCount, len(items)))
	}
}

// checkTitle fails when the slide has a title that appears nowhere in the
// artifact and the artifact has no heading to stand in for it.
func checkTitle(r *CheckResult, content string, s slide.Slide) {
	title := strings.TrimSpace(s.Title())
	if title == "" || strings.Contains(content, title) {
		return
	}
	text, hasHeading := scanDocument(content)
	if hasHeading || strings.Contains(text, title) {
		return
	}
	r.fail(FailureContentMissing, fmt.Sprintf("slide title %q is missing from the artifact", title))
}

// scanDocument returns the whitespace-collapsed text of content and whether
// it contains an h1-h6 element.
func scanDocument(content string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", false
	}
	var (
		b          strings.Builder
		hasHeading bool
		walk       func(*html.Node)
	)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				hasHeading = true
			case atom.Script, atom.Style:
				return
			}
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(b.String()), " "), hasHeading
}

// contrastFails reports whether ratio is below the WCAG AA minimum. A ratio
// of exactly MinContrastRatio passes.
func contrastFails(ratio float64) bool {
	return ratio < MinContrastRatio
}

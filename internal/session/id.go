package session

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	idTimeLayout = "2006-01-02_150405"
	maxSlugLen   = 30
)

// Slug lowercases title, folds accents, and joins runs of letters and digits
// with hyphens. It returns "untitled" when nothing survives.
func Slug(title string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	slug := b.String()
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}

// newID builds "YYYY-MM-DD_HHMMSS_<slug>", or a random 8-hex suffix when the
// title is blank.
func newID(title string, now time.Time) string {
	suffix := Slug(title)
	if strings.TrimSpace(title) == "" {
		suffix = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return now.Format(idTimeLayout) + "_" + suffix
}

// CreatedFromID parses the creation time encoded in a session id.
func CreatedFromID(id string) (time.Time, bool) {
	if len(id) < len(idTimeLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(idTimeLayout, id[:len(idTimeLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// validID rejects ids that could escape the output directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." &&
		!strings.ContainsAny(id, `/\`) && !strings.HasPrefix(id, ".")
}

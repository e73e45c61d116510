package changelog

import (
	"fmt"
	"strings"

	"ppabuild/internal/services"
)

// Version is a parsed Debian version: [epoch:]upstream[-revision].
type Version struct {
	Epoch    string
	Upstream string
	Revision string
}

// ParseVersion splits v into its components and checks the syntax dpkg
// accepts for a changelog version.
func ParseVersion(v string) (Version, error) {
	if v == "" {
		return Version{}, fmt.Errorf("empty version")
	}
	if strings.IndexFunc(v, isSpace) >= 0 {
		return Version{}, fmt.Errorf("version %q contains whitespace", v)
	}

	var out Version
	rest := v
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		out.Epoch = rest[:idx]
		rest = rest[idx+1:]
		if out.Epoch == "" || !allDigits(out.Epoch) {
			return Version{}, fmt.Errorf("version %q has a non-numeric epoch", v)
		}
	}
	if idx := strings.LastIndexByte(rest, '-'); idx >= 0 {
		out.Upstream = rest[:idx]
		out.Revision = rest[idx+1:]
		if out.Revision == "" {
			return Version{}, fmt.Errorf("version %q has an empty revision", v)
		}
	} else {
		out.Upstream = rest
	}
	if out.Upstream == "" || !isDigit(out.Upstream[0]) {
		return Version{}, fmt.Errorf("version %q: upstream part must start with a digit", v)
	}
	for _, c := range []byte(out.Upstream) {
		if !isAlnum(c) && !strings.ContainsRune(".+~-", rune(c)) {
			return Version{}, fmt.Errorf("version %q: invalid character %q in upstream part", v, c)
		}
	}
	for _, c := range []byte(out.Revision) {
		if !isAlnum(c) && !strings.ContainsRune(".+~", rune(c)) {
			return Version{}, fmt.Errorf("version %q: invalid character %q in revision", v, c)
		}
	}
	return out, nil
}

// ValidateVersion reports a usage error when v is not a valid Debian version.
func ValidateVersion(v string) error {
	if _, err := ParseVersion(v); err != nil {
		return services.Wrap(services.ErrUsage, "", "changelog version", err.Error(), nil)
	}
	return nil
}

// CompareVersions orders two Debian versions the way dpkg does. It returns a
// negative number when a sorts before b, zero when equal and positive after.
func CompareVersions(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Compare orders v against o. A missing epoch is 0 and a missing revision
// sorts as the empty string.
func (v Version) Compare(o Version) int {
	if c := compareNumeric(v.Epoch, o.Epoch); c != 0 {
		return c
	}
	if c := verrevcmp(v.Upstream, o.Upstream); c != 0 {
		return c
	}
	return verrevcmp(v.Revision, o.Revision)
}

func (v Version) String() string {
	var b strings.Builder
	if v.Epoch != "" {
		b.WriteString(v.Epoch)
		b.WriteByte(':')
	}
	b.WriteString(v.Upstream)
	if v.Revision != "" {
		b.WriteByte('-')
		b.WriteString(v.Revision)
	}
	return b.String()
}

// verrevcmp alternates between non-digit runs, compared with order(), and
// digit runs, compared numerically.
func verrevcmp(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			ac, bc := order(a, i), order(b, j)
			if ac != bc {
				return ac - bc
			}
			i++
			j++
		}
		for i < len(a) && a[i] == '0' {
			i++
		}
		for j < len(b) && b[j] == '0' {
			j++
		}
		firstDiff := 0
		for i < len(a) && j < len(b) && isDigit(a[i]) && isDigit(b[j]) {
			if firstDiff == 0 {
				firstDiff = int(a[i]) - int(b[j])
			}
			i++
			j++
		}
		if i < len(a) && isDigit(a[i]) {
			return 1
		}
		if j < len(b) && isDigit(b[j]) {
			return -1
		}
		if firstDiff != 0 {
			return firstDiff
		}
	}
	return 0
}

// order weights a character: '~' sorts before everything including the end
// of the string, letters before other symbols.
func order(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	c := s[i]
	switch {
	case isDigit(c):
		return 0
	case isAlpha(c):
		return int(c)
	case c == '~':
		return -1
	default:
		return int(c) + 256
	}
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isAlnum(c byte) bool { return isDigit(c) || isAlpha(c) }

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

package rotate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const compressedExt = ".gz"

// Generation is one parsed backup file of a log file family.
type Generation struct {
	Name       string
	Number     int
	Compressed bool
}

// Namer derives and parses backup names for one log file family:
// <base>.<N> and <base>.<N>.gz.
type Namer struct {
	base  string
	plain *regexp.Regexp
	gz    *regexp.Regexp
}

// NewNamer builds the matchers for base, which must be a bare file name.
func NewNamer(base string) (*Namer, error) {
	if base == "" || base == "." || base == ".." || strings.ContainsRune(base, '/') {
		return nil, fmt.Errorf("invalid log file name %q", base)
	}

	prefix := "^" + regexp.QuoteMeta(base+".")
	plain, err := regexp.Compile(prefix + `(\d+)$`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile backup matcher for %q: %w", base, err)
	}
	gz, err := regexp.Compile(prefix + `(\d+)\.gz$`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile compressed backup matcher for %q: %w", base, err)
	}

	return &Namer{base: base, plain: plain, gz: gz}, nil
}

// Base returns the live file name of the family.
func (n *Namer) Base() string {
	return n.base
}

// Parse reports whether name is a backup of this family and, if so, its
// generation. The two matchers are mutually exclusive.
func (n *Namer) Parse(name string) (Generation, bool) {
	compressed := true
	m := n.gz.FindStringSubmatch(name)
	if m == nil {
		compressed = false
		if m = n.plain.FindStringSubmatch(name); m == nil {
			return Generation{}, false
		}
	}

	num, err := strconv.Atoi(m[1])
	if err != nil {
		// digit run too long for an int
		return Generation{}, false
	}
	return Generation{Name: name, Number: num, Compressed: compressed}, true
}

// Name renders the backup name of generation number with a suffix padded to width.
func (n *Namer) Name(number, width int, compressed bool) string {
	name := n.base + "." + FormatSuffix(number, width)
	if compressed {
		name += compressedExt
	}
	return name
}

// FormatSuffix renders number in decimal, left-padded with '0' to at least
// width characters. Longer numbers are never truncated.
func FormatSuffix(number, width int) string {
	s := strconv.Itoa(number)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// SuffixWidth is the padding width used for a whole rotation batch whose
// highest existing generation is highest. It is computed once per batch and
// never used to repad files outside that batch, so widths can differ across
// the lifetime of a backup set.
func SuffixWidth(highest int) int {
	return len(strconv.Itoa(highest + 1))
}

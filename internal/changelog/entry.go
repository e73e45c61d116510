package changelog

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Entry is the header line of a debian/changelog stanza.
type Entry struct {
	Package      string
	Version      string
	Distribution string
	Urgency      string
}

var headerPattern = regexp.MustCompile(`^(\S+) \(([^()\s]+)\) ([^;]+);(.*)$`)

// ParseHeader parses a stanza header such as
// "helix (25.01-1~ubuntu22.10~ppa1) kinetic; urgency=medium".
func ParseHeader(line string) (Entry, error) {
	m := headerPattern.FindStringSubmatch(strings.TrimRight(line, " \t\r"))
	if m == nil {
		return Entry{}, fmt.Errorf("malformed changelog header %q", line)
	}
	entry := Entry{
		Package:      m[1],
		Version:      m[2],
		Distribution: strings.TrimSpace(m[3]),
	}
	for _, kv := range strings.Split(m[4], ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if ok && strings.EqualFold(key, "urgency") {
			entry.Urgency = value
		}
	}
	return entry, nil
}

// ReadTopEntry returns the header of the newest stanza in the changelog at path.
func ReadTopEntry(path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		return ParseHeader(line)
	}
	if err := scanner.Err(); err != nil {
		return Entry{}, err
	}
	return Entry{}, fmt.Errorf("%s has no entries", path)
}

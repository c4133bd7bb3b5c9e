package ass

import (
	"regexp"
	"sort"
	"strings"
)

var (
	subsetComment = regexp.MustCompile(`;\s*Font subset:\s*([A-Z0-9]+)\s*-\s*(.+)`)
	styleLine     = regexp.MustCompile(`^(Style:\s*[^,]+,)([^,]+)(,.*)$`)
	overrideBlock = regexp.MustCompile(`\{([^}]*)\}`)
)

// SubsetMap maps subset font identifiers to the real font names recorded by
// the subsetting tool.
type SubsetMap map[string]string

// ParseSubsetMap collects every "; Font subset: ID - Real Name" comment in
// text. A file without such comments yields an empty map.
func ParseSubsetMap(text string) SubsetMap {
	out := make(SubsetMap)
	for _, line := range splitLines(text) {
		m := subsetComment.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		subset := strings.TrimSpace(m[1])
		real := strings.TrimSpace(m[2])
		if subset != "" && real != "" {
			out[subset] = real
		}
	}
	return out
}

// Merge copies other into m; entries from other win.
func (m SubsetMap) Merge(other SubsetMap) {
	for subset, real := range other {
		m[subset] = real
	}
}

// Lookup finds the real name for a subset identifier, ignoring case.
func (m SubsetMap) Lookup(subset string) (string, bool) {
	if real, ok := m[subset]; ok {
		return real, true
	}
	for key, real := range m {
		if strings.EqualFold(key, subset) {
			return real, true
		}
	}
	return "", false
}

// keys returns identifiers longest first so a subset that contains another
// one is replaced before the shorter one can match inside it.
func (m SubsetMap) keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// ResolveSubsetNames rewrites subset font names to real names. Every
// occurrence of a subset identifier is replaced in the font field of Style
// lines (so "@ABCDEF12" and "ABCDEF12 Bold" resolve too) and inside the {...}
// override blocks of Dialogue lines. Longer identifiers are replaced first.
func ResolveSubsetNames(text string, mapping SubsetMap) string {
	if len(mapping) == 0 {
		return text
	}
	keys := mapping.keys()
	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		body, eol := cutLineEnding(line)
		if m := styleLine.FindStringSubmatch(body); m != nil {
			lines[i] = m[1] + replaceSubsets(m[2], keys, mapping) + m[3] + eol
			continue
		}
		if !strings.HasPrefix(body, "Dialogue:") {
			continue
		}
		lines[i] = overrideBlock.ReplaceAllStringFunc(body, func(block string) string {
			return "{" + replaceSubsets(block[1:len(block)-1], keys, mapping) + "}"
		}) + eol
	}
	return strings.Join(lines, "")
}

func replaceSubsets(text string, keys []string, mapping SubsetMap) string {
	for _, subset := range keys {
		text = strings.ReplaceAll(text, subset, mapping[subset])
	}
	return text
}

// ResolveFile parses the subset map of the subtitle at path, rewrites the
// file with real font names and returns the map.
func ResolveFile(path string) (SubsetMap, error) {
	text, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	mapping := ParseSubsetMap(text)
	if len(mapping) == 0 {
		return mapping, nil
	}
	if err := WriteFile(path, ResolveSubsetNames(text, mapping)); err != nil {
		return nil, err
	}
	return mapping, nil
}

func cutLineEnding(line string) (string, string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrPathTraversal = errors.New("invalid path: path traversal detected")

// PathSet is the result of validating user path input. Valid and Invalid are
// absolute paths except for entries rejected before resolution, which are
// kept verbatim in Invalid.
type PathSet struct {
	Multiple bool     `json:"multiple"`
	Valid    []string `json:"valid"`
	Invalid  []string `json:"invalid"`
}

func (s PathSet) AllExist() bool {
	return len(s.Invalid) == 0 && len(s.Valid) > 0
}

// ValidatePath trims whitespace, drops one surrounding quote on each side,
// rejects traversal tokens and returns the absolute path. Existence is not
// checked.
func ValidatePath(input string) (string, error) {
	clean := stripQuotes(strings.TrimSpace(input))
	if strings.Contains(clean, "..") || strings.Contains(clean, "~") {
		return "", ErrPathTraversal
	}
	if clean == "" {
		return "", errors.New("path is required")
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", clean, err)
	}
	return abs, nil
}

func stripQuotes(s string) string {
	if s != "" && (s[0] == '\'' || s[0] == '"') {
		s = s[1:]
	}
	if s != "" && (s[len(s)-1] == '\'' || s[len(s)-1] == '"') {
		s = s[:len(s)-1]
	}
	return s
}

// ParseMultipleFiles splits terminal drag-and-drop input on spaces. A
// backslash before a space or parenthesis keeps that character literal.
func ParseMultipleFiles(input string) []string {
	var (
		out     []string
		current strings.Builder
	)
	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			out = append(out, current.String())
		}
		current.Reset()
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			switch runes[i+1] {
			case ' ', '(', ')':
				current.WriteRune(runes[i+1])
				i++
				continue
			}
		}
		if r == ' ' {
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return out
}

// ValidateMultiplePaths decides between single-path and drag-and-drop mode.
// Input that names an existing path as a whole is always single-path, so a
// quoted directory with spaces is not split apart.
func ValidateMultiplePaths(input string) (PathSet, error) {
	candidates := ParseMultipleFiles(input)
	if len(candidates) <= 1 || wholeInputExists(input) {
		p, err := ValidatePath(input)
		if err != nil {
			return PathSet{}, err
		}
		if pathExists(p) {
			return PathSet{Valid: []string{p}, Invalid: []string{}}, nil
		}
		return PathSet{Valid: []string{}, Invalid: []string{p}}, nil
	}

	set := PathSet{Multiple: true, Valid: []string{}, Invalid: []string{}}
	for _, raw := range candidates {
		p, err := ValidatePath(raw)
		if err != nil {
			set.Invalid = append(set.Invalid, raw)
			continue
		}
		if pathExists(p) {
			set.Valid = append(set.Valid, p)
		} else {
			set.Invalid = append(set.Invalid, p)
		}
	}
	return set, nil
}

func wholeInputExists(input string) bool {
	p, err := ValidatePath(input)
	if err != nil {
		return false
	}
	return pathExists(p)
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// SPDX-License-Identifier: MPL-2.0

package registrar

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/afero"
)

// ErrMalformedSource is the sentinel error wrapped by SourceError.
var ErrMalformedSource = errors.New("malformed repository source entry")

type (
	// SourceEntry is one line of an apt sources.list file.
	SourceEntry struct {
		// Type is "deb" or "deb-src".
		Type string
		// Options are the bracketed key=value options, e.g. signed-by.
		Options map[string]string
		// URI is the repository base URL.
		URI string
		// Suite is the distribution codename or an exact path ending in "/".
		Suite string
		// Components are the archive areas, e.g. "main".
		Components []string
	}

	// SourceError describes an invalid line of a source list.
	SourceError struct {
		Line   int
		Reason string
	}
)

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Line == 0 {
		return "source list: " + e.Reason
	}
	return fmt.Sprintf("source list line %d: %s", e.Line, e.Reason)
}

// Unwrap returns ErrMalformedSource for errors.Is.
func (e *SourceError) Unwrap() error { return ErrMalformedSource }

// ParseSourceList parses one-line-style apt source entries. Every
// non-comment line must be a deb or deb-src entry with an http(s) URI and a
// suite, and at least one entry must be present.
func ParseSourceList(data []byte) ([]SourceEntry, error) {
	var entries []SourceEntry
	for i, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := parseSourceLine(line)
		if err != nil {
			return nil, &SourceError{Line: i + 1, Reason: err.Error()}
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, &SourceError{Reason: "no deb entries"}
	}
	return entries, nil
}

func parseSourceLine(line string) (SourceEntry, error) {
	typ, rest, _ := strings.Cut(line, " ")
	if typ != "deb" && typ != "deb-src" {
		return SourceEntry{}, fmt.Errorf("expected deb or deb-src, got %q", typ)
	}
	entry := SourceEntry{Type: typ}

	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return SourceEntry{}, errors.New("unterminated option list")
		}
		entry.Options = make(map[string]string)
		for _, opt := range strings.Fields(rest[1:end]) {
			k, v, ok := strings.Cut(opt, "=")
			if !ok || k == "" {
				return SourceEntry{}, fmt.Errorf("bad option %q", opt)
			}
			entry.Options[k] = v
		}
		rest = rest[end+1:]
	}

	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return SourceEntry{}, errors.New("expected URI and suite")
	}
	u, err := url.Parse(fields[0])
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return SourceEntry{}, fmt.Errorf("invalid repository URI %q", fields[0])
	}
	entry.URI = fields[0]
	entry.Suite = fields[1]
	entry.Components = fields[2:]
	if len(entry.Components) == 0 && !strings.HasSuffix(entry.Suite, "/") {
		return SourceEntry{}, fmt.Errorf("suite %q needs at least one component", entry.Suite)
	}
	return entry, nil
}

// SignedBy returns the keyring apt verifies the entry with, or "".
func (e SourceEntry) SignedBy() string {
	return e.Options["signed-by"]
}

// BindKeyring returns data with every entry bound to keyring. Entries
// without a signed-by option get one, and the number added is returned.
// An entry bound to another keyring is an error: apt would not verify it
// with keyring.
func BindKeyring(data []byte, keyring string) ([]byte, int, error) {
	lines := strings.Split(string(data), "\n")
	added := 0
	for i, raw := range lines {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := parseSourceLine(line)
		if err != nil {
			return nil, 0, &SourceError{Line: i + 1, Reason: err.Error()}
		}
		switch signedBy := entry.SignedBy(); signedBy {
		case keyring:
		case "":
			lines[i] = withSignedBy(line, keyring)
			added++
		default:
			return nil, 0, &SourceError{Line: i + 1, Reason: fmt.Sprintf("signed by %s, not %s", signedBy, keyring)}
		}
	}
	return []byte(strings.Join(lines, "\n")), added, nil
}

func withSignedBy(line, keyring string) string {
	typ, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	opt := "signed-by=" + keyring
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if opts := strings.TrimSpace(rest[1:end]); opts != "" {
			opt = opts + " " + opt
		}
		return fmt.Sprintf("%s [%s]%s", typ, opt, rest[end+1:])
	}
	return fmt.Sprintf("%s [%s] %s", typ, opt, rest)
}

// ValidateSourceList checks that path holds a valid source list.
func ValidateSourceList(fs afero.Fs, path string) ([]SourceEntry, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read source list: %w", err)
	}
	entries, err := ParseSourceList(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

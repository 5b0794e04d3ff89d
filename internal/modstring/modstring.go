// Package modstring parses Thunderstore package identifiers of the
// form author-name-version. Package names may themselves contain
// hyphens, so parsing anchors on the first and last hyphen-delimited
// segments instead of splitting naively.
package modstring

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Mod is a parsed package identifier. All three fields are non-empty
// for any Mod produced by Parse.
type Mod struct {
	Author  string
	Name    string
	Version string
}

// ParseError reports an input that does not follow the
// author-name-version form.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("MOD_STRING_PARSE: %q is not an author-name-version mod string", e.Input)
}

// Parse splits a mod string into its identifier fields. Strings with
// fewer than two hyphens, or with an empty author, name, or version
// segment, fail with a *ParseError.
func Parse(raw string) (Mod, error) {
	parts := strings.Split(raw, "-")
	if len(parts) < 3 {
		return Mod{}, &ParseError{Input: raw}
	}
	m := Mod{
		Author:  parts[0],
		Name:    strings.Join(parts[1:len(parts)-1], "-"),
		Version: parts[len(parts)-1],
	}
	if m.Author == "" || m.Name == "" || m.Version == "" {
		return Mod{}, &ParseError{Input: raw}
	}
	return m, nil
}

func (m Mod) String() string {
	return m.Author + "-" + m.Name + "-" + m.Version
}

// DirName is the on-disk directory name for an installed package.
func (m Mod) DirName() string { return m.String() }

// CompareVersions orders two package version strings. Versions that
// both parse as semver compare semantically; anything else falls back
// to a lexical comparison so orderings stay total.
func CompareVersions(a, b string) int {
	va, vb := "v"+a, "v"+b
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb)
	}
	return strings.Compare(a, b)
}

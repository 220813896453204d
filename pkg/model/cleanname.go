// Package model holds the wire-level types shared by every speedupdate
// component: clean names, versions, package metadata, operations, and
// the error kind taxonomy.
package model

import "regexp"

// cleanNamePattern is the allow-list a CleanName must satisfy. Any value
// that ends up in a file name (revisions, package names) is validated
// against it before use.
var cleanNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// CleanName is a string safe to use as a path component: revision
// identifiers, package names, and anything else that is ever turned into
// a file name on disk.
type CleanName string

// Valid reports whether n matches the CleanName grammar.
func (n CleanName) Valid() bool {
	return n != "" && cleanNamePattern.MatchString(string(n))
}

// Check validates n, returning an InvalidName error if it doesn't match
// the CleanName grammar.
func (n CleanName) Check() error {
	if !n.Valid() {
		return NewError(KindInvalidName, "name %q does not match [A-Za-z0-9_.-]+", string(n))
	}
	return nil
}

func (n CleanName) String() string {
	return string(n)
}

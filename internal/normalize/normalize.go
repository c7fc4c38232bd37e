// Package normalize holds canonical forms for user-supplied identifiers.
package normalize

import "strings"

// Email returns the storage/comparison form of an email address:
// surrounding whitespace trimmed and the address lower-cased.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// DisplayName trims surrounding whitespace; case is preserved.
func DisplayName(n string) string {
	return strings.TrimSpace(n)
}

// InviteCode returns the comparison form of an invite code. Codes are
// stored uppercase and matched case-insensitively, so folding the input
// up is sufficient.
func InviteCode(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

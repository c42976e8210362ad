// Package runid generates short unique run identifiers.
package runid

import "github.com/google/uuid"

// New returns a short unique run id: the first 8 hex characters of a
// fresh UUIDv4's canonical form. Collisions are astronomically unlikely at
// the scale of a single host running one workflow at a time (§5), and the
// short form keeps run directories and log filenames readable.
func New() string {
	return uuid.New().String()[:8]
}

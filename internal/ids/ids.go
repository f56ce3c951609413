// Package ids allocates the short identifiers used for parties, players and
// gifts.
package ids

import (
	"strings"

	"github.com/google/uuid"
)

// Length of a short id: the first group of a random UUID.
const Length = 8

// New returns an 8-character lowercase hex id. It is URL-safe and short
// enough to read out loud as a party code.
func New() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

package id

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time, so object listings come back in upload order.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// NewLower returns New in lower case, for use inside file names.
func NewLower() string {
	return strings.ToLower(New())
}

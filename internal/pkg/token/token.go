package token

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

// SaltLength matches the entropy of a 16-byte url-safe token.
const SaltLength = 22

var newSalt func() string

func init() {
	gen, err := nanoid.Standard(SaltLength)
	if err != nil {
		panic(fmt.Sprintf("init salt generator: %v", err))
	}
	newSalt = gen
}

// NewSalt returns a random url-safe salt for a single email-verification issuance.
func NewSalt() string {
	return newSalt()
}

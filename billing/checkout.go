package billing

import (
	"crypto/rand"

	"github.com/mr-tron/base58"
)

// NewCheckoutReference generates a compact, URL-safe client reference for a
// checkout session. Base58 avoids look-alike characters in support tickets.
func NewCheckoutReference() (string, error) {
	var buf [12]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return "co_" + base58.Encode(buf[:]), nil
}

// Package token decodes bearer credentials without verifying signature or
// expiry. It exists for one purpose: the last-resort fallback stage of the
// verifier chain. Nothing else may grant access based on its output.
package token

import (
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/TaxEnough/taxenough/core"
)

// subjectKeys is the field precedence for extracting a subject id from a
// decoded claim bag. Tokens from different issuers use different names.
var subjectKeys = [...]string{"uid", "sub", "user_id", "userId"}

// Decoded is the loosely-typed result of an unverified decode.
type Decoded struct {
	Subject string
	Email   string
	Name    string
	Raw     map[string]any
}

// Decode parses a three-part dot-separated token without any verification.
// Structurally invalid input returns core.ErrMalformedCredential.
func Decode(credential string) (*Decoded, error) {
	credential = strings.TrimSpace(credential)
	if strings.Count(credential, ".") != 2 {
		return nil, core.ErrMalformedCredential
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(credential, claims); err != nil {
		return nil, core.ErrMalformedCredential
	}
	d := &Decoded{Raw: claims}
	for _, k := range subjectKeys {
		if s, ok := claims[k].(string); ok && s != "" {
			d.Subject = s
			break
		}
	}
	if s, ok := claims["email"].(string); ok {
		d.Email = s
	}
	if s, ok := claims["name"].(string); ok {
		d.Name = s
	}
	return d, nil
}

// Package token mints the opaque values embedded in attendance QR codes.
package token

import "github.com/google/uuid"

// New returns an unguessable opaque token. Tokens carry no meaning and are
// only ever compared for equality against the stored session token.
func New() string {
	return uuid.NewString()
}

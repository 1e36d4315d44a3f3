package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tok := New()
	assert.NotEmpty(t, tok)
	assert.Len(t, tok, 36) // uuid text form
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		tok := New()
		assert.False(t, seen[tok], "duplicate token minted")
		seen[tok] = true
	}
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskedSecret(t *testing.T) {
	c := Credential{Secret: "gsk-abcdef123456"}
	assert.Equal(t, "...ef123456", c.MaskedSecret())

	short := Credential{Secret: "tiny"}
	assert.Equal(t, "...tiny", short.MaskedSecret())

	empty := Credential{}
	assert.Equal(t, "...", empty.MaskedSecret())
}

func TestDocumentPageCount(t *testing.T) {
	assert.Zero(t, Document{}.PageCount())
	assert.Equal(t, 3, Document{Pages: []string{"a", "", "c"}}.PageCount())
}

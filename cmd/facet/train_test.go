package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResize(t *testing.T) {
	w, h, err := parseResize("384x384")
	require.NoError(t, err)
	assert.Equal(t, 384, w)
	assert.Equal(t, 384, h)

	w, h, err = parseResize("64X128")
	require.NoError(t, err)
	assert.Equal(t, 64, w)
	assert.Equal(t, 128, h)
}

func TestParseResizeInvalid(t *testing.T) {
	for _, s := range []string{"", "384", "x384", "384x", "ax b", "0x10", "10x-1"} {
		_, _, err := parseResize(s)
		assert.Error(t, err, "input %q", s)
	}
}

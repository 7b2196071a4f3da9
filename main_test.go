package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitID(t *testing.T) {
	id, tail := splitID("42 some trailing text")
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "some trailing text", tail)

	id, tail = splitID("7")
	assert.Equal(t, int64(7), id)
	assert.Empty(t, tail)

	// Non-numeric heads must not dispatch against id 0.
	id, tail = splitID("abc 9")
	assert.Zero(t, id)
	assert.Equal(t, "abc 9", tail)

	id, _ = splitID("")
	assert.Zero(t, id)
}

func TestParsePipes(t *testing.T) {
	a, b, c, n := parsePipes("title | content | cat.png")
	assert.Equal(t, "title", a)
	assert.Equal(t, "content", b)
	assert.Equal(t, "cat.png", c)
	assert.Equal(t, 3, n)

	a, b, c, n = parsePipes("just a body")
	assert.Equal(t, "just a body", a)
	assert.Empty(t, b)
	assert.Empty(t, c)
	assert.Equal(t, 1, n)
}

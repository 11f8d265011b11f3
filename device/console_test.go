package device

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleIn(t *testing.T) {
	assert := assert.New(t)

	con := &Console{Input: strings.NewReader("ab")}

	value, err := con.In(0)
	assert.NoError(err)
	assert.Equal(uint8('a'), value)

	value, err = con.In(0)
	assert.NoError(err)
	assert.Equal(uint8('b'), value)

	// Exhausted input reads zero, without error.
	value, err = con.In(0)
	assert.NoError(err)
	assert.Equal(uint8(0), value)

	value, err = con.In(0)
	assert.NoError(err)
	assert.Equal(uint8(0), value)
}

func TestConsoleInUnwired(t *testing.T) {
	assert := assert.New(t)

	con := &Console{}

	value, err := con.In(0)
	assert.NoError(err)
	assert.Equal(uint8(0), value)
}

func TestConsoleOut(t *testing.T) {
	assert := assert.New(t)

	output := &bytes.Buffer{}
	con := &Console{Output: output}

	for _, b := range []byte("hi") {
		err := con.Out(0, b)
		assert.NoError(err)
	}

	assert.Equal("hi", output.String())

	// An unwired output discards writes.
	con = &Console{}
	err := con.Out(0, 'x')
	assert.NoError(err)
}

func TestConsoleReset(t *testing.T) {
	assert := assert.New(t)

	con := &Console{Input: strings.NewReader("a")}

	value, err := con.In(0)
	assert.NoError(err)
	assert.Equal(uint8('a'), value)

	value, err = con.In(0)
	assert.NoError(err)
	assert.Equal(uint8(0), value)

	// Reset forgets the end of input; a fresh reader feeds again.
	con.Input = strings.NewReader("b")
	con.Reset()

	value, err = con.In(0)
	assert.NoError(err)
	assert.Equal(uint8('b'), value)
}

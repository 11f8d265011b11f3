package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryWords(t *testing.T) {
	assert := assert.New(t)

	m := NewMemory()
	assert.Equal(MEMORY_SIZE, len(m.Data))

	m.WriteWord(0x1000, 0x1234)
	assert.Equal(uint8(0x34), m.Read(0x1000))
	assert.Equal(uint8(0x12), m.Read(0x1001))
	assert.Equal(uint16(0x1234), m.ReadWord(0x1000))

	m.Reset()
	assert.Equal(uint16(0), m.ReadWord(0x1000))
}

func TestMemoryLoad(t *testing.T) {
	assert := assert.New(t)

	m := NewMemory()

	image := []byte{0x11, 0x22, 0x33}
	err := m.Load(0x100, image)
	assert.NoError(err)
	assert.Equal(uint8(0x11), m.Read(0x100))
	assert.Equal(uint8(0x33), m.Read(0x102))
	assert.Equal(uint8(0x00), m.Read(0x103))

	// An image ending exactly at the top of memory fits.
	err = m.Load(0xfffd, image)
	assert.NoError(err)
	assert.Equal(uint8(0x33), m.Read(0xffff))

	err = m.Load(0xfffe, image)
	assert.ErrorIs(err, ErrImageTooLarge)

	err = m.Load(0, nil)
	assert.NoError(err)
}

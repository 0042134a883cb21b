package pgwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParameterValueText(t *testing.T) {
	p := NewTextParameter([]byte("hello"))
	assert.False(t, p.IsNull())
	assert.Equal(t, TextFormat, p.Format())

	text, ok := p.Text()
	assert.True(t, ok)
	assert.Equal(t, "hello", text)

	_, ok = p.Binary()
	assert.False(t, ok)
}

func TestParameterValueBinary(t *testing.T) {
	raw := []byte{0x00, 0x00, 0x00, 0x2a}
	p := NewBinaryParameter(raw)
	assert.False(t, p.IsNull())
	assert.Equal(t, BinaryFormat, p.Format())

	bin, ok := p.Binary()
	assert.True(t, ok)
	assert.Equal(t, raw, bin)

	_, ok = p.Text()
	assert.False(t, ok)
}

func TestNullParameter(t *testing.T) {
	p := NullParameter
	assert.True(t, p.IsNull())
	assert.Nil(t, p.Raw())

	_, ok := p.Text()
	assert.False(t, ok)

	_, ok = p.Binary()
	assert.False(t, ok)
}

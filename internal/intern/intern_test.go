package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternDedupes(t *testing.T) {
	p := NewPool()

	a := p.Intern("println")
	b := p.Intern("println")
	c := p.Intern("print")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "println", p.Name(a))
	assert.Equal(t, "print", p.Name(c))
}

func TestEmptyStringIsZeroID(t *testing.T) {
	p := NewPool()
	assert.Equal(t, ID(0), p.Intern(""))
	assert.Equal(t, "", p.Name(0))
}

func TestUnknownIDName(t *testing.T) {
	p := NewPool()
	assert.Equal(t, "", p.Name(ID(999)))
}

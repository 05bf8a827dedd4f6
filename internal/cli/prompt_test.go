package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("  Bank2 \n7\nY\nnope\nlast"), &out)

	got, err := p.line("Bank? ")
	require.NoError(t, err)
	assert.Equal(t, "Bank2", got)

	n, err := p.number("Count? ")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	ok, err := p.yes("Keep? ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.yes("Keep? ")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = p.line("Final? ")
	require.NoError(t, err)
	assert.Equal(t, "last", got, "unterminated last line")

	_, err = p.line("More? ")
	assert.Error(t, err, "end of input")
	assert.True(t, strings.HasPrefix(out.String(), "Bank? Count? Keep? "), out.String())
}

func TestPrompterRejectsNonNumber(t *testing.T) {
	p := newPrompter(strings.NewReader("three\n"), &bytes.Buffer{})
	_, err := p.number("Count? ")
	assert.Error(t, err)
}

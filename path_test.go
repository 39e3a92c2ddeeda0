package fatfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeShortName(t *testing.T) {
	name, err := encodeShortName("readme.txt")
	require.NoError(t, err)
	require.Equal(t, "README  TXT", string(name[:]))
	require.Equal(t, "README.TXT", decodeShortName(name))
}

func TestEncodeShortNameNoExtension(t *testing.T) {
	name, err := encodeShortName("BIN")
	require.NoError(t, err)
	require.Equal(t, "BIN", decodeShortName(name))
}

func TestEncodeShortNameRejectsLongBase(t *testing.T) {
	_, err := encodeShortName("toolongname.txt")
	require.ErrorIs(t, err, statusInvalidName)
}

func TestEncodeShortNameRejectsLongExtension(t *testing.T) {
	_, err := encodeShortName("a.toolong")
	require.ErrorIs(t, err, statusInvalidName)
}

func TestPathResolverWalksComponents(t *testing.T) {
	pr := newPathResolver("sub/inner.txt")

	_, isLast, ok, err := pr.next()
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, isLast)

	_, isLast, ok, err = pr.next()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, isLast)

	_, _, ok, err = pr.next()
	require.NoError(t, err)
	require.False(t, ok)
}

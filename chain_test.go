package fatfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindNthWalksChain(t *testing.T) {
	fs, _ := mountedFAT16(4200)
	c1, err := fs.allocFree()
	require.NoError(t, err)
	c2, err := fs.allocFree()
	require.NoError(t, err)
	require.NoError(t, fs.writeFATEntry(c1, c2))
	require.NoError(t, fs.markEOC(c2))

	got, err := fs.findNth(c1, 0)
	require.NoError(t, err)
	require.Equal(t, c1, got)

	got, err = fs.findNth(c1, 1)
	require.NoError(t, err)
	require.Equal(t, c2, got)

	_, err = fs.findNth(c1, 2)
	require.ErrorIs(t, err, statusEndOfChain)
}

func TestTruncateToEmptyFreesEveryCluster(t *testing.T) {
	fs, _ := mountedFAT16(4200)
	c1, err := fs.allocFree()
	require.NoError(t, err)
	c2, err := fs.allocFree()
	require.NoError(t, err)
	require.NoError(t, fs.writeFATEntry(c1, c2))
	require.NoError(t, fs.markEOC(c2))

	require.NoError(t, fs.truncateToEmpty(c1))

	e1, err := fs.readFATEntry(c1)
	require.NoError(t, err)
	require.EqualValues(t, freeCluster, e1)
	e2, err := fs.readFATEntry(c2)
	require.NoError(t, err)
	require.EqualValues(t, freeCluster, e2)
}

// erasingMemDevice wraps memDevice to additionally implement EraseBlocker,
// recording every range it was asked to erase.
type erasingMemDevice struct {
	*memDevice
	erased [][2]uint32
}

func (e *erasingMemDevice) EraseBlocks(first, count uint32) error {
	e.erased = append(e.erased, [2]uint32{first, count})
	return nil
}

func TestTruncateToEmptyErasesClustersWhenSupported(t *testing.T) {
	img := newFAT16Image(4200)
	dev := &erasingMemDevice{memDevice: img.dev}
	fs := &FS{}
	require.NoError(t, fs.Mount(dev, MountConfig{}))

	c1, err := fs.allocFree()
	require.NoError(t, err)
	require.NoError(t, fs.markEOC(c1))

	require.NoError(t, fs.truncateToEmpty(c1))
	require.Len(t, dev.erased, 1)
	require.EqualValues(t, fs.clusterToSector(c1), dev.erased[0][0])
	require.EqualValues(t, fs.bpb.secPerClus, dev.erased[0][1])
}

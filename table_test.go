package fatfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFATEntryRoundTrip(t *testing.T) {
	fs, _ := mountedFAT16(4200)
	require.NoError(t, fs.writeFATEntry(10, 11))
	got, err := fs.readFATEntry(10)
	require.NoError(t, err)
	require.EqualValues(t, 11, got)
}

func TestIsEOCFAT16(t *testing.T) {
	fs, _ := mountedFAT16(4200)
	require.True(t, fs.isEOC(0xFFF8))
	require.True(t, fs.isEOC(0xFFFF))
	require.False(t, fs.isEOC(0xFFF7))
	require.False(t, fs.isEOC(2))
}

func TestAllocFreeAdvancesHint(t *testing.T) {
	fs, _ := mountedFAT16(4200)
	first, err := fs.allocFree()
	require.NoError(t, err)
	require.EqualValues(t, 2, first)

	second, err := fs.allocFree()
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	entry, err := fs.readFATEntry(first)
	require.NoError(t, err)
	require.True(t, fs.isEOC(entry))
}

func TestAllocFreeExhaustion(t *testing.T) {
	// A tiny volume so the allocator's full-lap bound is actually reachable
	// in a test (Open Question 1: the original scan had no such bound and
	// could spin forever on a full volume).
	fs, img := mountedFAT16(4085)
	for i := uint32(0); i < img.totalClusters; i++ {
		_, err := fs.allocFree()
		require.NoError(t, err)
	}
	_, err := fs.allocFree()
	require.ErrorIs(t, err, statusNoSpace)
}

func TestSyncFATsMirrorsSecondaryCopy(t *testing.T) {
	fs, img := mountedFAT16(4200)
	require.NoError(t, fs.writeFATEntry(5, 0x1234))
	require.NoError(t, fs.syncFATs())

	mirrorStart := (uint32(img.rsvdSecCnt) + img.fatSz) * sectorSize
	off := mirrorStart + 5*2
	require.EqualValues(t, 0x34, img.dev.data[off])
	require.EqualValues(t, 0x12, img.dev.data[off+1])
}

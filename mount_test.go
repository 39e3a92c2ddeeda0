package fatfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMountFAT16(t *testing.T) {
	fs, img := mountedFAT16(4200)
	require.Equal(t, fsFAT16, fs.kind)
	require.Equal(t, img.totalClusters, fs.totalClusters)
	require.Equal(t, lba(img.firstDataSector), fs.firstDataSector)
	require.Equal(t, lba(img.rsvdSecCnt), fs.firstFATSector)
}

func TestMountRejectsFAT12(t *testing.T) {
	// A volume with fewer than 4085 data clusters classifies as FAT12,
	// which this driver deliberately does not support.
	img := newFAT16Image(100)
	fs := &FS{}
	err := fs.Mount(img.dev, MountConfig{})
	require.ErrorIs(t, err, statusNoFilesystem)
}

func TestMountRejectsTooManyFATs(t *testing.T) {
	img := newFAT16Image(4200)
	img.dev.data[bpbNumFATs] = 5
	fs := &FS{}
	err := fs.Mount(img.dev, MountConfig{})
	require.ErrorIs(t, err, statusNoFilesystem)
}

func TestMountRejectsOversizedCluster(t *testing.T) {
	img := newFAT16Image(4200)
	// bytesPerSec(512) * secPerClus(128) = 65536, past the 32 KiB cap; 128
	// stays a power of two so this trips only the new cluster-size check,
	// not the pre-existing isPowerOfTwo(secPerClus) guard.
	img.dev.data[bpbSecPerClus] = 128
	fs := &FS{}
	err := fs.Mount(img.dev, MountConfig{})
	require.ErrorIs(t, err, statusNoFilesystem)
}

func TestMountRejectsMissingSignature(t *testing.T) {
	img := newFAT16Image(4200)
	img.dev.data[bs55AA] = 0
	fs := &FS{}
	err := fs.Mount(img.dev, MountConfig{})
	require.ErrorIs(t, err, statusNoFilesystem)
}

func TestMountTwiceFails(t *testing.T) {
	fs, img := mountedFAT16(4200)
	err := fs.Mount(img.dev, MountConfig{})
	require.ErrorIs(t, err, statusNotReady)
}

func TestStringReportsFreeSpace(t *testing.T) {
	fs, _ := mountedFAT16(4200)
	require.Contains(t, fs.String(), "FAT16")
	require.Contains(t, fs.String(), " free of ")
}

func TestUnmountMirrorsFATAndInvalidatesHandles(t *testing.T) {
	fs, img := mountedFAT16(4200)
	h, err := fs.Open("a.txt", FlagWrite)
	require.NoError(t, err)
	require.NotNil(t, h)

	require.NoError(t, fs.writeFATEntry(5, 0x1234))
	require.NoError(t, fs.Unmount())

	mirrorStart := (uint32(img.rsvdSecCnt) + img.fatSz) * sectorSize
	off := mirrorStart + 5*2
	require.EqualValues(t, 0x34, img.dev.data[off])
	require.EqualValues(t, 0x12, img.dev.data[off+1])

	for i := range fs.handles {
		require.False(t, fs.handles[i].inUse)
	}
	for i := range fs.dirs {
		require.False(t, fs.dirs[i].inUse)
	}
}

func TestUnmountTwiceFails(t *testing.T) {
	fs, _ := mountedFAT16(4200)
	require.NoError(t, fs.Unmount())
	require.ErrorIs(t, fs.Unmount(), statusNotReady)
}

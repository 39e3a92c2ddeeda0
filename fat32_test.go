package fatfs

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// fat32Image mirrors fat16Image but for a volume just past the FAT16/FAT32
// boundary (countOfClusters >= 65525), whose root is an ordinary cluster
// chain rather than a fixed run of sectors.
type fat32Image struct {
	dev             *memDevice
	rsvdSecCnt      uint32
	numFATs         uint8
	fatSz           uint32
	firstDataSector uint32
	totalClusters   uint32
	rootClus        uint32
}

func newFAT32Image(dataClusters uint32) *fat32Image {
	const (
		secPerClus = 1
		numFATs    = 2
		rsvdSecCnt = 1
		rootClus   = 2
	)
	fatSz := (dataClusters+2)*4 + sectorSize - 1
	fatSz /= sectorSize
	firstDataSector := rsvdSecCnt + numFATs*fatSz
	totalSectors := firstDataSector + dataClusters*secPerClus

	dev := newMemDevice(int(totalSectors))
	boot := dev.data[0:sectorSize]
	binary.LittleEndian.PutUint16(boot[bpbBytsPerSec:], sectorSize)
	boot[bpbSecPerClus] = secPerClus
	binary.LittleEndian.PutUint16(boot[bpbRsvdSecCnt:], uint16(rsvdSecCnt))
	boot[bpbNumFATs] = numFATs
	binary.LittleEndian.PutUint16(boot[bpbRootEntCnt:], 0)
	binary.LittleEndian.PutUint16(boot[bpbTotSec16:], 0)
	boot[bpbMedia] = 0xF8
	binary.LittleEndian.PutUint16(boot[bpbFATSz16:], 0)
	binary.LittleEndian.PutUint32(boot[bpbTotSec32:], totalSectors)
	binary.LittleEndian.PutUint32(boot[bpbFATSz32:], fatSz)
	binary.LittleEndian.PutUint32(boot[bpbRootClus32:], rootClus)
	boot[bs55AA] = 0x55
	boot[bs55AA+1] = 0xAA

	for copyIdx := uint32(0); copyIdx < numFATs; copyIdx++ {
		fatStart := (rsvdSecCnt + copyIdx*fatSz) * sectorSize
		binary.LittleEndian.PutUint32(dev.data[fatStart:], 0x0FFFFFF8)
		binary.LittleEndian.PutUint32(dev.data[fatStart+4:], 0x0FFFFFFF)
		// The root directory's own cluster (2) starts as a single
		// terminated chain; Mkdir/Open extend it like any other directory.
		binary.LittleEndian.PutUint32(dev.data[fatStart+8:], 0x0FFFFFFF)
	}

	return &fat32Image{
		dev:             dev,
		rsvdSecCnt:      rsvdSecCnt,
		numFATs:         numFATs,
		fatSz:           fatSz,
		firstDataSector: firstDataSector,
		totalClusters:   dataClusters,
		rootClus:        rootClus,
	}
}

func mountedFAT32(dataClusters uint32) (*FS, *fat32Image) {
	img := newFAT32Image(dataClusters)
	fs := &FS{}
	if err := fs.Mount(img.dev, MountConfig{}); err != nil {
		panic(err)
	}
	return fs, img
}

func TestMountFAT32(t *testing.T) {
	fs, img := mountedFAT32(65525)
	require.Equal(t, fsFAT32, fs.kind)
	require.Equal(t, img.totalClusters, fs.totalClusters)
	require.Equal(t, img.rootClus, fs.bpb.rootClus)
	require.Equal(t, uint32(2), fs.rootClusterSentinel())
}

func TestFAT32CreateWriteReadRoundTrip(t *testing.T) {
	fs, _ := mountedFAT32(65525)

	h, err := fs.Open("hello.txt", FlagWrite)
	require.NoError(t, err)
	payload := []byte("a FAT32 root is just another cluster chain")
	n, err := h.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.NoError(t, h.Close())

	h2, err := fs.Open("hello.txt", FlagRead)
	require.NoError(t, err)
	got := make([]byte, len(payload))
	_, err = io.ReadFull(h2, got)
	require.NoError(t, err)
	require.Equal(t, payload, got)
	require.NoError(t, h2.Close())
}

func TestFAT32RootGrowsPastFirstCluster(t *testing.T) {
	fs, _ := mountedFAT32(65525)
	const entriesPerCluster = sectorSize / dirEntrySize

	for i := 0; i < entriesPerCluster+2; i++ {
		name := string(rune('a'+i%26)) + string(rune('0'+i/26)) + ".txt"
		h, err := fs.Open(name, FlagWrite)
		require.NoError(t, err)
		require.NoError(t, h.Close())
	}

	second, err := fs.readFATEntry(fs.bpb.rootClus)
	require.NoError(t, err)
	require.False(t, fs.isEOC(second), "expected the FAT32 root chain to span more than one cluster")
}

// TestFAT32DotDotFromTopLevelSubdirResolvesToRoot exercises looking up ".."
// out of a subdirectory one level under a FAT32 root: the on-disk ".."
// entry stores cluster 0 by convention (see Mkdir), which must resolve back
// to the root's real cluster chain (fs.bpb.rootClus), not be mistaken for a
// literal cluster number.
func TestFAT32DotDotFromTopLevelSubdirResolvesToRoot(t *testing.T) {
	fs, _ := mountedFAT32(65525)
	require.NoError(t, fs.Mkdir("sub"))

	h, err := fs.Open("sub/../hello.txt", FlagWrite)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	_, err = fs.Stat("hello.txt")
	require.NoError(t, err)
}

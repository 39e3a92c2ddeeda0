package fatfs

import "encoding/binary"

// memDevice is an in-memory BlockDevice backed by a plain byte slice.
// Grounded on soypat-fat's fat_test.go BytesBlocks helper, trimmed to the
// two operations this driver actually needs.
type memDevice struct {
	data []byte
}

func newMemDevice(sectors int) *memDevice {
	return &memDevice{data: make([]byte, sectors*sectorSize)}
}

func (m *memDevice) ReadBlock(addr uint32, dst []byte) error {
	off := int(addr) * sectorSize
	if off+sectorSize > len(m.data) {
		return statusInvalidParameter
	}
	copy(dst, m.data[off:off+sectorSize])
	return nil
}

func (m *memDevice) WriteBlock(addr uint32, src []byte) error {
	off := int(addr) * sectorSize
	if off+sectorSize > len(m.data) {
		return statusInvalidParameter
	}
	copy(m.data[off:off+sectorSize], src)
	return nil
}

// fat16Image holds the layout math for a synthetic FAT16 volume alongside
// the device it was written to, so tests can both mount it and sanity
// check FS's own parsed fields against independently computed values.
type fat16Image struct {
	dev             *memDevice
	totalSectors    uint32
	rsvdSecCnt      uint16
	numFATs         uint8
	rootEntCnt      uint16
	fatSz           uint32
	rootDirSectors  uint32
	firstDataSector uint32
	totalClusters   uint32
}

// newFAT16Image builds a minimal FAT16-layout boot sector and FAT tables over
// an in-memory device with dataClusters data clusters. Mount classifies the
// volume as FAT16 only for 4085 <= n < 65525; a smaller n yields a volume it
// classifies as FAT12 and rejects.
func newFAT16Image(dataClusters uint32) *fat16Image {
	const (
		secPerClus = 1
		numFATs    = 2
		rootEntCnt = 16
	)
	rootDirSectors := uint32(rootEntCnt*32+sectorSize-1) / sectorSize
	// FAT16 entries are 2 bytes; size the FAT generously so every cluster
	// number this image will ever allocate has a home.
	fatSz := (dataClusters+2)*2 + sectorSize - 1
	fatSz /= sectorSize
	rsvdSecCnt := uint32(1)
	firstDataSector := rsvdSecCnt + numFATs*fatSz + rootDirSectors
	totalSectors := firstDataSector + dataClusters*secPerClus

	dev := newMemDevice(int(totalSectors))
	boot := dev.data[0:sectorSize]
	binary.LittleEndian.PutUint16(boot[bpbBytsPerSec:], sectorSize)
	boot[bpbSecPerClus] = secPerClus
	binary.LittleEndian.PutUint16(boot[bpbRsvdSecCnt:], uint16(rsvdSecCnt))
	boot[bpbNumFATs] = numFATs
	binary.LittleEndian.PutUint16(boot[bpbRootEntCnt:], rootEntCnt)
	binary.LittleEndian.PutUint16(boot[bpbTotSec16:], uint16(totalSectors))
	boot[bpbMedia] = 0xF8
	binary.LittleEndian.PutUint16(boot[bpbFATSz16:], uint16(fatSz))
	boot[bs55AA] = 0x55
	boot[bs55AA+1] = 0xAA

	// Reserve FAT entries 0 and 1 per convention (media descriptor + EOC).
	for copyIdx := uint32(0); copyIdx < numFATs; copyIdx++ {
		fatStart := (rsvdSecCnt + copyIdx*fatSz) * sectorSize
		binary.LittleEndian.PutUint16(dev.data[fatStart:], 0xFFF8)
		binary.LittleEndian.PutUint16(dev.data[fatStart+2:], 0xFFFF)
	}

	return &fat16Image{
		dev:             dev,
		totalSectors:    totalSectors,
		rsvdSecCnt:      uint16(rsvdSecCnt),
		numFATs:         numFATs,
		rootEntCnt:      rootEntCnt,
		fatSz:           fatSz,
		rootDirSectors:  rootDirSectors,
		firstDataSector: firstDataSector,
		totalClusters:   dataClusters,
	}
}

func mountedFAT16(dataClusters uint32) (*FS, *fat16Image) {
	img := newFAT16Image(dataClusters)
	fs := &FS{}
	if err := fs.Mount(img.dev, MountConfig{}); err != nil {
		panic(err)
	}
	return fs, img
}

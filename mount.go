package fatfs

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
)

// Byte offsets into the boot sector, shared by the FAT16 and FAT32 BIOS
// Parameter Blocks up to bpbFATSz16; FAT32 only fields start at 36.
// Grounded on soypat-fat's tables.go bpbXxxOff constants (deleted from this
// tree along with the rest of that file's LFN/DBCS machinery, but these
// offsets are standard and independent of it).
const (
	bsJmpBoot      = 0
	bsOEMName      = 3
	bpbBytsPerSec  = 11
	bpbSecPerClus  = 13
	bpbRsvdSecCnt  = 14
	bpbNumFATs     = 16
	bpbRootEntCnt  = 17
	bpbTotSec16    = 19
	bpbMedia       = 21
	bpbFATSz16     = 22
	bpbSecPerTrk   = 24
	bpbNumHeads    = 26
	bpbHiddSec     = 28
	bpbTotSec32    = 32
	bpbFATSz32     = 36
	bpbExtFlags32  = 40
	bpbFSVer32     = 42
	bpbRootClus32  = 44
	bpbFSInfo32    = 48
	bpbBkBootSec32 = 50
	bsDrvNum       = 36 // FAT16 offset; FAT32 equivalent is at 64
	bsBootSig      = 38 // FAT16; FAT32 at 66
	bsVolID        = 39 // FAT16; FAT32 at 67
	bsVolLab       = 43 // FAT16; FAT32 at 71
	bs55AA         = 510

	fsiLeadSig    = 0
	fsiStrucSig   = 484
	fsiFree_Count = 488
	fsiNxt_Free   = 492
	fsiTrailSig   = 508
)

const (
	fsiLeadSigVal  = 0x41615252
	fsiStrucSigVal = 0x61417272
	fsiTrailSigVal = 0xAA550000
)

// bpb is the parsed contents of a mounted volume's BIOS Parameter Block.
type bpb struct {
	bytesPerSec uint16
	secPerClus  uint8
	rsvdSecCnt  uint16
	numFATs     uint8
	rootEntCnt  uint16
	totSec      uint32
	fatSz       uint32
	rootClus    uint32 // FAT32 only
	fsInfoSec   uint16 // FAT32 only
	volID       uint32
	label       string
}

// FS is a mounted FAT volume. The zero value is not usable; construct with
// Mount. FS owns exactly one sectorBuffer and a fixed pool of handles: there
// is no dynamic allocation on the hot path, matching the original driver's
// static fat_file_pool/fat_fd_pool arrays (original_source/core/cfs/fat/fat.c).
type FS struct {
	dev   BlockDevice
	sched Scheduler
	log   *slog.Logger
	cfg   MountConfig

	buf sectorBuffer

	kind fsKind
	bpb  bpb

	firstFATSector  lba
	firstRootDirSec lba // FAT16 fixed root only
	rootDirSectors  uint32
	firstDataSector lba
	totalClusters   uint32
	freeHint        uint32 // next cluster to start allocation scans from
	freeClusters    uint32 // running count, maintained by allocFree/truncateToEmpty

	handles [maxOpenHandles]Handle
	dirs    [maxOpenDirs]dirCursor
}

const (
	maxOpenHandles = 8
	maxOpenDirs    = 4
)

// Mount reads and validates the boot sector at sector 0, classifies the
// volume as FAT16 or FAT32 (FAT12 is detected and rejected), and prepares fs
// for Open/OpenDir. Mount must be called exactly once before any other
// method; calling it twice on an already-mounted FS returns statusNotReady.
func (fs *FS) Mount(dev BlockDevice, cfg MountConfig) error {
	if fs.dev != nil {
		return statusNotReady
	}
	fs.dev = dev
	fs.sched = cfg.Scheduler
	fs.cfg = cfg
	fs.log = cfg.Log
	if fs.log == nil {
		fs.log = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}

	if err := fs.bufLoad(0); err != nil {
		return err
	}
	boot := fs.buf.bytes()

	if boot[bs55AA] != 0x55 || boot[bs55AA+1] != 0xAA {
		fs.logerror("mount: missing boot sector signature")
		return statusNoFilesystem
	}

	var b bpb
	b.bytesPerSec = binary.LittleEndian.Uint16(boot[bpbBytsPerSec:])
	b.secPerClus = boot[bpbSecPerClus]
	b.rsvdSecCnt = binary.LittleEndian.Uint16(boot[bpbRsvdSecCnt:])
	b.numFATs = boot[bpbNumFATs]
	b.rootEntCnt = binary.LittleEndian.Uint16(boot[bpbRootEntCnt:])

	if b.bytesPerSec != sectorSize {
		fs.logerror("mount: unsupported sector size", "bytesPerSec", b.bytesPerSec)
		return statusNoFilesystem
	}
	if !isPowerOfTwo(uint32(b.secPerClus)) {
		fs.logerror("mount: secPerClus is not a power of two", "secPerClus", b.secPerClus)
		return statusNoFilesystem
	}
	if uint32(b.bytesPerSec)*uint32(b.secPerClus) > 32768 {
		fs.logerror("mount: cluster size exceeds 32 KiB",
			"bytesPerSec", b.bytesPerSec, "secPerClus", b.secPerClus)
		return statusNoFilesystem
	}
	if b.numFATs == 0 || b.numFATs > 2 {
		fs.logerror("mount: unsupported FAT count", "numFATs", b.numFATs)
		return statusNoFilesystem
	}

	totSec16 := uint32(binary.LittleEndian.Uint16(boot[bpbTotSec16:]))
	totSec32 := binary.LittleEndian.Uint32(boot[bpbTotSec32:])
	b.totSec = totSec16
	if b.totSec == 0 {
		b.totSec = totSec32
	}

	fatSz16 := uint32(binary.LittleEndian.Uint16(boot[bpbFATSz16:]))
	b.fatSz = fatSz16
	if b.fatSz == 0 {
		b.fatSz = binary.LittleEndian.Uint32(boot[bpbFATSz32:])
	}

	rootDirSectors := (uint32(b.rootEntCnt)*32 + sectorSize - 1) / sectorSize
	firstDataSector := uint32(b.rsvdSecCnt) + uint32(b.numFATs)*b.fatSz + rootDirSectors
	dataSec := b.totSec - firstDataSector
	countOfClusters := dataSec / uint32(b.secPerClus)

	switch {
	case countOfClusters < 4085:
		fs.kind = fsFAT12
	case countOfClusters < 65525:
		fs.kind = fsFAT16
	default:
		fs.kind = fsFAT32
	}
	if fs.kind == fsFAT12 {
		fs.logerror("mount: FAT12 volumes are not supported", "clusters", countOfClusters)
		return statusNoFilesystem
	}

	if fs.kind == fsFAT32 {
		b.rootClus = binary.LittleEndian.Uint32(boot[bpbRootClus32:])
		b.fsInfoSec = binary.LittleEndian.Uint16(boot[bpbFSInfo32:])
		if b.rootEntCnt != 0 {
			fs.logerror("mount: FAT32 volume has nonzero root entry count")
			return statusNoFilesystem
		}
	}

	fs.bpb = b
	fs.firstFATSector = lba(b.rsvdSecCnt)
	fs.firstRootDirSec = lba(uint32(b.rsvdSecCnt) + uint32(b.numFATs)*b.fatSz)
	fs.rootDirSectors = rootDirSectors
	fs.firstDataSector = lba(firstDataSector)
	fs.totalClusters = countOfClusters
	fs.freeHint = 2

	free, err := fs.countFreeClusters()
	if err != nil {
		return err
	}
	fs.freeClusters = free

	fs.info("mounted volume",
		"kind", fs.kind.String(),
		"clusters", countOfClusters,
		"bytesPerCluster", uint32(b.secPerClus)*sectorSize,
		"size", humanize.Bytes(uint64(b.totSec)*sectorSize),
		"free", humanize.Bytes(uint64(free)*uint64(b.secPerClus)*sectorSize),
	)
	return nil
}

// Unmount flushes the sector buffer, mirrors the primary FAT to every
// secondary copy, invalidates every open handle and directory descriptor,
// then detaches the block device. Unlike Close, a handle left open across
// Unmount loses any buffered size/firstCluster update: there is no chance
// left to write it back.
func (fs *FS) Unmount() error {
	if fs.dev == nil {
		return statusNotReady
	}
	if err := fs.syncFATs(); err != nil {
		return err
	}
	fs.bufInvalidate()
	for i := range fs.handles {
		fs.handles[i] = Handle{}
	}
	for i := range fs.dirs {
		fs.dirs[i] = dirCursor{}
	}
	fs.dev = nil
	return nil
}

// String renders a short human-readable description of the mounted volume,
// e.g. for inclusion in diagnostic output.
func (fs *FS) String() string {
	if fs.dev == nil {
		return "fatfs.FS(unmounted)"
	}
	return fmt.Sprintf("fatfs.FS(%s, %s free of %s)",
		fs.kind, humanize.Bytes(uint64(fs.freeClusters)*uint64(fs.bpb.secPerClus)*sectorSize),
		humanize.Bytes(uint64(fs.totalClusters)*uint64(fs.bpb.secPerClus)*sectorSize))
}

// LogInfo emits a structured snapshot of the mounted volume's geometry and
// free space at Info level, for a caller that wants an on-demand diagnostic
// dump rather than (or in addition to) the one logged automatically at
// Mount. Grounded on soypat-fat/sectors.go's BPB field dump, rebuilt here
// around slog attributes and go-humanize sizes instead of that file's
// Appendf-based text rendering.
func (fs *FS) LogInfo() {
	if fs.dev == nil {
		fs.info("volume not mounted")
		return
	}
	fs.info("volume info",
		"kind", fs.kind.String(),
		"bytesPerSector", fs.bpb.bytesPerSec,
		"sectorsPerCluster", fs.bpb.secPerClus,
		"numFATs", fs.bpb.numFATs,
		"totalClusters", fs.totalClusters,
		"freeClusters", fs.freeClusters,
		"size", humanize.Bytes(uint64(fs.bpb.totSec)*sectorSize),
		"free", humanize.Bytes(uint64(fs.freeClusters)*uint64(fs.bpb.secPerClus)*sectorSize),
	)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

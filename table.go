package fatfs

import (
	"encoding/binary"

	multierror "github.com/hashicorp/go-multierror"
)

// Sentinel FAT entry values. freeCluster is shared by both widths; the EOC
// and bad-cluster markers come in a FAT16 and a FAT32 form. FAT32 entries
// additionally reserve their top 4 bits, masked out on read and preserved on
// write.
const (
	freeCluster  = 0
	eocMarker16  = 0xFFFF
	eocMarker32  = 0x0FFFFFFF
	badCluster16 = 0xFFF7
	badCluster32 = 0x0FFFFFF7
)

func (fs *FS) fatEntrySector(cluster uint32) (sector lba, offset uint16) {
	var byteOff uint32
	if fs.kind == fsFAT32 {
		byteOff = cluster * 4
	} else {
		byteOff = cluster * 2
	}
	sector = fs.firstFATSector + lba(byteOff/sectorSize)
	offset = uint16(byteOff % sectorSize)
	return sector, offset
}

// isEOC reports whether value marks the end of a cluster chain for the
// mounted volume's FAT width. Grounded exactly on original_source's is_EOC:
// FAT16 treats anything >= 0xFFF8 as end-of-chain; FAT32 masks to the low 28
// bits first.
func (fs *FS) isEOC(value uint32) bool {
	if fs.kind == fsFAT16 {
		return value >= 0xFFF8
	}
	return value&0x0FFFFFFF >= 0x0FFFFFF8
}

// readFATEntry returns the raw (already low-28-bit-masked for FAT32) value
// stored in the primary FAT for cluster.
func (fs *FS) readFATEntry(cluster uint32) (uint32, error) {
	sector, off := fs.fatEntrySector(cluster)
	if err := fs.bufLoad(sector); err != nil {
		return 0, err
	}
	data := fs.buf.bytes()
	if fs.kind == fsFAT32 {
		return binary.LittleEndian.Uint32(data[off:]) & 0x0FFFFFFF, nil
	}
	return uint32(binary.LittleEndian.Uint16(data[off:])), nil
}

// writeFATEntry stores value into the primary FAT entry for cluster and
// marks the window dirty; it does not itself mirror to secondary FATs or
// flush — callers that need durability call syncFATs afterward.
func (fs *FS) writeFATEntry(cluster uint32, value uint32) error {
	sector, off := fs.fatEntrySector(cluster)
	if err := fs.bufLoad(sector); err != nil {
		return err
	}
	data := fs.buf.bytes()
	if fs.kind == fsFAT32 {
		// Preserve the reserved top 4 bits already on disk.
		old := binary.LittleEndian.Uint32(data[off:])
		merged := (old & 0xF0000000) | (value & 0x0FFFFFFF)
		binary.LittleEndian.PutUint32(data[off:], merged)
	} else {
		binary.LittleEndian.PutUint16(data[off:], uint16(value))
	}
	fs.bufMarkDirty()
	return nil
}

func (fs *FS) markEOC(cluster uint32) error {
	if fs.kind == fsFAT16 {
		return fs.writeFATEntry(cluster, eocMarker16)
	}
	return fs.writeFATEntry(cluster, eocMarker32)
}

// syncFATs flushes the window (so the primary FAT's last write lands on
// disk) and then copies the primary FAT's sectors onto every secondary FAT
// mirror. Failures mirroring to individual copies are aggregated rather
// than aborting after the first, so a bad secondary FAT doesn't mask
// problems with the others; grounded on dargueta-disko's use of
// hashicorp/go-multierror for exactly this kind of best-effort fan-out.
func (fs *FS) syncFATs() error {
	if err := fs.bufFlush(); err != nil {
		return err
	}
	if fs.bpb.numFATs < 2 {
		return nil
	}
	var result *multierror.Error
	var buf [sectorSize]byte
	for i := uint32(0); i < fs.bpb.fatSz; i++ {
		primary := fs.firstFATSector + lba(i)
		if err := fs.readBlock(primary, buf[:]); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		for mirror := uint8(1); mirror < fs.bpb.numFATs; mirror++ {
			dst := primary + lba(uint32(mirror)*fs.bpb.fatSz)
			if err := fs.writeBlock(dst, buf[:]); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

// allocFree finds a free cluster starting the scan at fs.freeHint and
// wrapping around the volume exactly once, marks it EOC, and advances the
// hint past it. If the scan completes a full lap with nothing free it
// returns statusNoSpace instead of looping forever.
//
// This resolves Open Question 1: the original driver's get_free_cluster
// scanned from a hint with no loop bound and could spin indefinitely on a
// full volume; here the scan is explicitly bounded to fs.totalClusters
// iterations.
func (fs *FS) allocFree() (uint32, error) {
	total := fs.totalClusters
	start := fs.freeHint
	if start < 2 {
		start = 2
	}
	for i := uint32(0); i < total; i++ {
		cluster := 2 + (start-2+i)%total
		entry, err := fs.readFATEntry(cluster)
		if err != nil {
			return 0, err
		}
		if entry == freeCluster {
			if err := fs.markEOC(cluster); err != nil {
				return 0, err
			}
			fs.freeHint = cluster + 1
			if fs.freeClusters > 0 {
				fs.freeClusters--
			}
			return cluster, nil
		}
	}
	fs.warn("allocFree: volume full", "totalClusters", total)
	return 0, statusNoSpace
}

// countFreeClusters scans the entire primary FAT once, used at Mount to
// seed fs.freeClusters. Grounded on original_source's init_alloc_info,
// which performs the same full-volume scan when a filesystem is mounted.
func (fs *FS) countFreeClusters() (uint32, error) {
	var free uint32
	for cluster := uint32(2); cluster < fs.totalClusters+2; cluster++ {
		entry, err := fs.readFATEntry(cluster)
		if err != nil {
			return 0, err
		}
		if entry == freeCluster {
			free++
		}
	}
	return free, nil
}

// FreeClusters returns the volume's current free cluster count, maintained
// incrementally by allocFree and truncateToEmpty rather than rescanned on
// every call.
func (fs *FS) FreeClusters() uint32 { return fs.freeClusters }

package fatfs

import "encoding/binary"

const dirEntrySize = 32

// Byte offsets within a 32-byte directory entry.
const (
	deName           = 0
	deAttr           = 11
	deNTRes          = 12
	deCrtTimeTenth   = 13
	deCrtTime        = 14
	deCrtDate        = 16
	deLastAccessDate = 18
	deFstClusHI      = 20
	deWrtTime        = 22
	deWrtDate        = 24
	deFstClusLO      = 26
	deFileSize       = 28
)

const (
	slotFree       = 0x00 // end of directory: this slot and all following are unused
	slotDeleted    = 0xE5
	slotKanjiE5    = 0x05 // 0xE5 escaped as the first byte of a genuine Shift-JIS name; not produced by this driver but recognized on read
)

// dirEntry is the decoded form of one 32-byte directory slot.
type dirEntry struct {
	name           [11]byte
	attr           Attr
	ntres          byte
	crtTimeTenth   byte
	crtTime        uint16
	crtDate        uint16
	lastAccessDate uint16
	wrtTime        uint16
	wrtDate        uint16
	fileSize       uint32
	fstClusHi      uint16
	fstClusLo      uint16
}

func (d *dirEntry) firstCluster() uint32 {
	return uint32(d.fstClusHi)<<16 | uint32(d.fstClusLo)
}

func (d *dirEntry) setFirstCluster(c uint32) {
	d.fstClusHi = uint16(c >> 16)
	d.fstClusLo = uint16(c)
}

func decodeDirEntry(b []byte) dirEntry {
	var d dirEntry
	copy(d.name[:], b[deName:deName+11])
	d.attr = Attr(b[deAttr])
	d.ntres = b[deNTRes]
	d.crtTimeTenth = b[deCrtTimeTenth]
	d.crtTime = binary.LittleEndian.Uint16(b[deCrtTime:])
	d.crtDate = binary.LittleEndian.Uint16(b[deCrtDate:])
	d.lastAccessDate = binary.LittleEndian.Uint16(b[deLastAccessDate:])
	d.fstClusHi = binary.LittleEndian.Uint16(b[deFstClusHI:])
	d.wrtTime = binary.LittleEndian.Uint16(b[deWrtTime:])
	d.wrtDate = binary.LittleEndian.Uint16(b[deWrtDate:])
	d.fstClusLo = binary.LittleEndian.Uint16(b[deFstClusLO:])
	d.fileSize = binary.LittleEndian.Uint32(b[deFileSize:])
	return d
}

func encodeDirEntry(d *dirEntry, b []byte) {
	copy(b[deName:deName+11], d.name[:])
	b[deAttr] = byte(d.attr)
	b[deNTRes] = d.ntres
	b[deCrtTimeTenth] = d.crtTimeTenth
	binary.LittleEndian.PutUint16(b[deCrtTime:], d.crtTime)
	binary.LittleEndian.PutUint16(b[deCrtDate:], d.crtDate)
	binary.LittleEndian.PutUint16(b[deLastAccessDate:], d.lastAccessDate)
	binary.LittleEndian.PutUint16(b[deFstClusHI:], d.fstClusHi)
	binary.LittleEndian.PutUint16(b[deWrtTime:], d.wrtTime)
	binary.LittleEndian.PutUint16(b[deWrtDate:], d.wrtDate)
	binary.LittleEndian.PutUint16(b[deFstClusLO:], d.fstClusLo)
	binary.LittleEndian.PutUint32(b[deFileSize:], d.fileSize)
}

// errEndOfDir is returned by dirCursor.slot once every entry in the
// directory has been visited (a free slot was seen, or a fixed FAT16 root's
// last sector was exhausted).
var errEndOfDir = status(0xFE)

// dirCursor walks a directory's 32-byte slots in order, transparently
// handling the two very different on-disk shapes a FAT16/FAT32 volume can
// mix: a FAT32 directory (including its root) is an ordinary cluster chain,
// while a FAT16 volume's root is a fixed run of sectors outside the cluster
// area that can never grow. Unifying them here means every other directory
// operation (lookup, insert, readdir) is written once.
//
// This also resolves Open Question 3: each Dir owns its own dirCursor
// instead of consulting one process-wide readdir offset, so two open
// directory handles no longer interfere with each other's position.
type dirCursor struct {
	fs              *FS
	inUse           bool
	fixedRoot       bool
	fixedRootStart  lba
	fixedRootSecs   uint32
	firstCluster    uint32
	curCluster      uint32
	clusterIdx      uint32
	sectorInCluster uint32
	entryInSector   int
	atEnd           bool
}

// newCursor builds a cursor over the directory starting at firstCluster.
// 0 is never a valid data cluster number and is the on-disk convention a
// directory's ".." entry uses to mean "the volume root" (see Mkdir); it is
// resolved here rather than by every caller, so a ".." lookup that crosses
// back into the root behaves the same as looking the root up directly,
// on both a FAT16 fixed root and a FAT32 root cluster chain.
func (fs *FS) newCursor(firstCluster uint32) dirCursor {
	if firstCluster == 0 {
		if fs.kind == fsFAT16 {
			return dirCursor{
				fs:             fs,
				fixedRoot:      true,
				fixedRootStart: fs.firstRootDirSec,
				fixedRootSecs:  fs.rootDirSectors,
			}
		}
		firstCluster = fs.bpb.rootClus
	}
	return dirCursor{fs: fs, firstCluster: firstCluster, curCluster: firstCluster}
}

func (c *dirCursor) reset() {
	c.clusterIdx = 0
	c.sectorInCluster = 0
	c.entryInSector = 0
	c.atEnd = false
	if !c.fixedRoot {
		c.curCluster = c.firstCluster
	}
}

func (c *dirCursor) currentSector() lba {
	if c.fixedRoot {
		return c.fixedRootStart + lba(c.sectorInCluster)
	}
	return c.fs.clusterToSector(c.curCluster) + lba(c.sectorInCluster)
}

// advance moves the cursor to the next slot position, following the
// cluster chain (or ending at the fixed root's last sector) as needed.
// Resolves Open Question 4: entries-per-cluster is computed from
// secPerClus instead of assuming one sector per cluster, so volumes with
// larger clusters no longer wrap into the wrong sector after 16 entries.
func (c *dirCursor) advance() error {
	c.entryInSector++
	if c.entryInSector < sectorSize/dirEntrySize {
		return nil
	}
	c.entryInSector = 0
	c.sectorInCluster++

	if c.fixedRoot {
		if c.sectorInCluster >= c.fixedRootSecs {
			c.atEnd = true
		}
		return nil
	}

	if c.sectorInCluster < uint32(c.fs.bpb.secPerClus) {
		return nil
	}
	c.sectorInCluster = 0
	entry, err := c.fs.readFATEntry(c.curCluster)
	if err != nil {
		return err
	}
	if c.fs.isEOC(entry) {
		c.atEnd = true
		return nil
	}
	c.curCluster = entry
	c.clusterIdx++
	return nil
}

// slot loads the raw 32 bytes at the cursor's current position and returns
// them; the slot's location for later rewriting (update/remove) is
// currentSector() and entryInSector. It does not advance; call advance() to
// move on.
func (c *dirCursor) slot() ([]byte, error) {
	if c.atEnd {
		return nil, errEndOfDir
	}
	if err := c.fs.bufLoad(c.currentSector()); err != nil {
		return nil, err
	}
	off := c.entryInSector * dirEntrySize
	raw := c.fs.buf.bytes()[off : off+dirEntrySize]
	if raw[deName] == slotFree {
		c.atEnd = true
		return nil, errEndOfDir
	}
	return raw, nil
}

// extendForInsert grows the directory by one cluster so a new entry can be
// appended past its current allocation. It is an error to call this on a
// fixed FAT16 root (Open Question 6): that region has a size fixed at
// format time and can never be extended by allocating clusters to it.
//
// The chain being extended is the directory's own, not whatever file is
// being inserted into it, so a throwaway Handle standing in for "this
// directory" is built here rather than accepting one from the caller —
// reusing the inserted file's own Handle would wrongly graft the new
// cluster onto the file's chain instead of the directory's.
func (c *dirCursor) extendForInsert() error {
	if c.fixedRoot {
		return statusDenied
	}
	dirHandle := Handle{
		fs:            c.fs,
		isDir:         true,
		firstCluster:  c.firstCluster,
		curCluster:    c.curCluster,
		curClusterIdx: c.clusterIdx,
	}
	if err := c.fs.extend(&dirHandle); err != nil {
		return err
	}
	if err := c.fs.syncFATs(); err != nil {
		return err
	}
	if c.firstCluster == 0 {
		c.firstCluster = dirHandle.firstCluster
	}
	c.curCluster = dirHandle.curCluster
	c.clusterIdx = dirHandle.curClusterIdx
	c.sectorInCluster = 0
	c.entryInSector = 0
	c.atEnd = false
	return nil
}

func isLiveEntry(raw []byte) bool {
	if raw[deName] == slotFree || raw[deName] == slotDeleted {
		return false
	}
	return !Attr(raw[deAttr]).IsLongName()
}

// findEntry scans dir's entries for name, returning the decoded entry and
// its slot location. status is statusNoFile if absent.
func (fs *FS) findEntry(dirFirstCluster uint32, name [11]byte) (dirEntry, lba, int, error) {
	c := fs.newCursor(dirFirstCluster)
	for {
		raw, err := c.slot()
		if err == errEndOfDir {
			return dirEntry{}, 0, 0, statusNoFile
		}
		if err != nil {
			return dirEntry{}, 0, 0, err
		}
		if isLiveEntry(raw) && raw[deName] != slotKanjiE5 && string(raw[deName:deName+11]) == string(name[:]) {
			return decodeDirEntry(raw), c.currentSector(), c.entryInSector, nil
		}
		if err := c.advance(); err != nil {
			return dirEntry{}, 0, 0, err
		}
	}
}

// insertEntry writes d into the first free or deleted slot of dir,
// extending the chain if necessary (and permitted; see extendForInsert).
func (fs *FS) insertEntry(dirFirstCluster uint32, d *dirEntry) (lba, int, error) {
	c := fs.newCursor(dirFirstCluster)
	for {
		if err := fs.bufLoad(c.currentSector()); err != nil {
			return 0, 0, err
		}
		off := c.entryInSector * dirEntrySize
		raw := fs.buf.bytes()[off : off+dirEntrySize]
		if raw[deName] == slotFree || raw[deName] == slotDeleted {
			encodeDirEntry(d, raw)
			fs.bufMarkDirty()
			sector, idx := c.currentSector(), c.entryInSector
			return sector, idx, nil
		}
		if err := c.advance(); err != nil {
			return 0, 0, err
		}
		if c.atEnd {
			if err := c.extendForInsert(); err != nil {
				return 0, 0, err
			}
		}
	}
}

// writeEntryAt re-encodes d into the slot at (sector, idx), used by
// Handle.Close/Sync and the write path to persist an updated file size and
// first cluster. Remove marks a slot deleted with deleteEntryAt instead.
func (fs *FS) writeEntryAt(sector lba, idx int, d *dirEntry) error {
	if err := fs.bufLoad(sector); err != nil {
		return err
	}
	off := idx * dirEntrySize
	encodeDirEntry(d, fs.buf.bytes()[off:off+dirEntrySize])
	fs.bufMarkDirty()
	return nil
}

func (fs *FS) deleteEntryAt(sector lba, idx int) error {
	if err := fs.bufLoad(sector); err != nil {
		return err
	}
	off := idx * dirEntrySize
	fs.buf.bytes()[off+deName] = slotDeleted
	fs.bufMarkDirty()
	return nil
}

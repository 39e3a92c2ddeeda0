package fatfs

import "io"

// FileInfo describes one entry returned while enumerating a directory.
type FileInfo struct {
	Name  string
	Size  uint32
	Attr  Attr
	IsDir bool
}

// Dir is an open directory handle, positioned at its first entry. Each Dir
// owns its own traversal cursor (see dirCursor, Open Question 3) so two
// Dirs over the same directory never interfere with each other.
type Dir struct {
	fs        *FS
	inUse     bool
	cursorIdx int
}

// Mkdir creates an empty subdirectory at path, wiring up its "." and ".."
// entries to point at itself and its parent respectively.
func (fs *FS) Mkdir(path string) error {
	if fs.dev == nil {
		return statusNotReady
	}
	if fs.cfg.ReadOnly {
		return statusWriteProtected
	}
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	if _, _, _, err := fs.findEntry(parent, name); err == nil {
		return statusExist
	} else if err != statusNoFile {
		return err
	}

	h, err := fs.allocHandle()
	if err != nil {
		return err
	}
	defer func() { h.inUse = false }()
	h.fs = fs
	h.isDir = true
	h.firstCluster = 0
	h.curCluster = 0
	h.curClusterIdx = 0

	if err := fs.extend(h); err != nil {
		return err
	}
	if err := fs.syncFATs(); err != nil {
		return err
	}
	selfCluster := h.firstCluster

	dotName, err := encodeShortName(".")
	if err != nil {
		return err
	}
	dotdotName, err := encodeShortName("..")
	if err != nil {
		return err
	}
	dot := dirEntry{name: dotName, attr: AttrDirectory}
	dot.setFirstCluster(selfCluster)
	dotdot := dirEntry{name: dotdotName, attr: AttrDirectory}
	// The FAT convention represents ".." pointing at the FAT16 fixed root,
	// or at a FAT32 volume's root cluster, as first cluster 0 regardless of
	// the root's real cluster number.
	if parent != fs.rootClusterSentinel() {
		dotdot.setFirstCluster(parent)
	}

	writeCursor := fs.newCursor(selfCluster)
	if err := fs.bufLoad(writeCursor.currentSector()); err != nil {
		return err
	}
	encodeDirEntry(&dot, fs.buf.bytes()[0:dirEntrySize])
	encodeDirEntry(&dotdot, fs.buf.bytes()[dirEntrySize:2*dirEntrySize])
	fs.bufMarkDirty()

	d := dirEntry{name: name, attr: AttrDirectory}
	d.setFirstCluster(selfCluster)
	if _, _, err := fs.insertEntry(parent, &d); err != nil {
		return err
	}
	return fs.bufFlush()
}

// resolveDir walks every component of path, which must name a directory
// (or be empty/"/" for the volume root), and returns its first-cluster
// sentinel as used by findEntry/newCursor.
func (fs *FS) resolveDir(path string) (uint32, error) {
	cluster := fs.rootClusterSentinel()
	pr := newPathResolver(path)
	for {
		name, _, ok, err := pr.next()
		if err != nil {
			return 0, err
		}
		if !ok {
			return cluster, nil
		}
		entry, _, _, err := fs.findEntry(cluster, name)
		if err != nil {
			return 0, err
		}
		if !entry.attr.IsDirectory() {
			return 0, statusNotDirectory
		}
		cluster = entry.firstCluster()
	}
}

// OpenDir opens path for enumeration with ForEachFile.
func (fs *FS) OpenDir(path string) (*Dir, error) {
	if fs.dev == nil {
		return nil, statusNotReady
	}
	cluster, err := fs.resolveDir(path)
	if err != nil {
		return nil, err
	}
	for i := range fs.dirs {
		if !fs.dirs[i].inUse {
			fs.dirs[i] = fs.newCursor(cluster)
			fs.dirs[i].inUse = true
			return &Dir{fs: fs, inUse: true, cursorIdx: i}, nil
		}
	}
	return nil, statusTooManyOpenFiles
}

// Close releases the directory handle back to the pool.
func (d *Dir) Close() error {
	if !d.inUse {
		return statusInvalidObject
	}
	d.fs.dirs[d.cursorIdx] = dirCursor{}
	d.inUse = false
	return nil
}

// ForEachFile visits every live entry in d in on-disk order, skipping
// deleted slots, volume-label entries, and VFAT long-name slots (Open
// Question 5: the original driver's readdir surfaced whatever bytes a
// deleted or LFN slot happened to hold as if they were a real file). It
// stops and returns nil as soon as cb returns false.
func (d *Dir) ForEachFile(cb func(FileInfo) bool) error {
	if !d.inUse {
		return statusInvalidObject
	}
	c := &d.fs.dirs[d.cursorIdx]
	for {
		raw, err := c.slot()
		if err == errEndOfDir {
			return nil
		}
		if err != nil {
			return err
		}
		if isLiveEntry(raw) && !Attr(raw[deAttr]).IsVolumeID() {
			entry := decodeDirEntry(raw)
			name := decodeShortName(entry.name)
			if name != "." && name != ".." {
				info := FileInfo{
					Name:  name,
					Size:  entry.fileSize,
					Attr:  entry.attr,
					IsDir: entry.attr.IsDirectory(),
				}
				if !cb(info) {
					return nil
				}
			}
		}
		if err := c.advance(); err != nil {
			return err
		}
	}
}

// Rewind resets d to the first entry, so it can be enumerated again.
func (d *Dir) Rewind() error {
	if !d.inUse {
		return statusInvalidObject
	}
	d.fs.dirs[d.cursorIdx].reset()
	return nil
}

// Stat resolves path without opening it, returning its directory-entry
// metadata.
func (fs *FS) Stat(path string) (FileInfo, error) {
	if fs.dev == nil {
		return FileInfo{}, statusNotReady
	}
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return FileInfo{}, err
	}
	entry, _, _, err := fs.findEntry(parent, name)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name:  decodeShortName(entry.name),
		Size:  entry.fileSize,
		Attr:  entry.attr,
		IsDir: entry.attr.IsDirectory(),
	}, nil
}

// Flush writes the shared sector buffer back to the device if it is dirty,
// the same write-back the rest of the driver triggers implicitly whenever a
// different sector is loaded. Calling Flush twice in a row performs exactly
// one device write: the second call finds the buffer already clean and does
// nothing. It does not mirror the FAT; use SyncFATs for that.
func (fs *FS) Flush() error {
	if fs.dev == nil {
		return statusNotReady
	}
	return fs.bufFlush()
}

// SyncFATs flushes the shared sector buffer and every FAT mirror without
// unmounting, for callers that want a durability point mid-session.
func (fs *FS) SyncFATs() error {
	if fs.dev == nil {
		return statusNotReady
	}
	return fs.syncFATs()
}

// ReadDir returns the next live entry in d, advancing its cursor, and
// io.EOF once the directory is exhausted. Open Question 5 applies here too:
// deleted slots, volume-label entries, and VFAT long-name slots are skipped
// rather than surfaced. ForEachFile walks the same cursor with a callback,
// for the common case of visiting every entry.
func (d *Dir) ReadDir() (FileInfo, error) {
	if !d.inUse {
		return FileInfo{}, statusInvalidObject
	}
	c := &d.fs.dirs[d.cursorIdx]
	for {
		raw, err := c.slot()
		if err == errEndOfDir {
			return FileInfo{}, io.EOF
		}
		if err != nil {
			return FileInfo{}, err
		}
		live := isLiveEntry(raw) && !Attr(raw[deAttr]).IsVolumeID()
		entry := decodeDirEntry(raw)
		name := decodeShortName(entry.name)
		if err := c.advance(); err != nil {
			return FileInfo{}, err
		}
		if !live || name == "." || name == ".." {
			continue
		}
		return FileInfo{
			Name:  name,
			Size:  entry.fileSize,
			Attr:  entry.attr,
			IsDir: entry.attr.IsDirectory(),
		}, nil
	}
}

package fatfs

// clusterToSector converts a data cluster number (>= 2) to its first
// absolute sector.
func (fs *FS) clusterToSector(cluster uint32) lba {
	return fs.firstDataSector + lba((cluster-2)*uint32(fs.bpb.secPerClus))
}

// findNth walks the chain starting at start and returns the cluster number
// n hops later (n == 0 returns start itself). Returns statusEndOfChain if
// the chain ends before n hops are exhausted.
func (fs *FS) findNth(start uint32, n uint32) (uint32, error) {
	cluster := start
	for i := uint32(0); i < n; i++ {
		entry, err := fs.readFATEntry(cluster)
		if err != nil {
			return 0, err
		}
		if fs.isEOC(entry) {
			return 0, statusEndOfChain
		}
		cluster = entry
	}
	return cluster, nil
}

// chainTail walks the entire chain starting at start and returns its last
// (EOC-marked) cluster along with that cluster's 0-based chain index. Used
// by the write-extend path to re-derive the true end of a chain rather than
// trust a cursor hint that a prior Seek may have pointed past it.
func (fs *FS) chainTail(start uint32) (cluster uint32, idx uint32, err error) {
	cluster = start
	for {
		entry, err := fs.readFATEntry(cluster)
		if err != nil {
			return 0, 0, err
		}
		if fs.isEOC(entry) {
			return cluster, idx, nil
		}
		cluster = entry
		idx++
	}
}

// truncateToEmpty frees every cluster in the chain starting at start,
// leaving none allocated. Used by Remove and by truncateFrom.
func (fs *FS) truncateToEmpty(start uint32) error {
	if start == 0 {
		return nil
	}
	cluster := start
	for {
		entry, err := fs.readFATEntry(cluster)
		if err != nil {
			return err
		}
		if err := fs.writeFATEntry(cluster, freeCluster); err != nil {
			return err
		}
		fs.eraseClusters(uint32(fs.clusterToSector(cluster)), uint32(fs.bpb.secPerClus))
		if cluster < fs.freeHint {
			fs.freeHint = cluster
		}
		fs.freeClusters++
		if fs.isEOC(entry) {
			break
		}
		cluster = entry
	}
	return fs.syncFATs()
}

// truncateFrom frees every cluster in the chain starting at (and including)
// keepLast's successor, and rewrites keepLast's entry to EOC, so the chain
// ends at keepLast.
func (fs *FS) truncateFrom(keepLast uint32) error {
	entry, err := fs.readFATEntry(keepLast)
	if err != nil {
		return err
	}
	if err := fs.markEOC(keepLast); err != nil {
		return err
	}
	if fs.isEOC(entry) {
		return fs.syncFATs()
	}
	return fs.truncateToEmpty(entry)
}

// extend grows h's cluster chain by one cluster, allocating it fresh,
// linking it from the chain's current tail (or establishing it as the
// chain's head for a previously-empty file), and advancing h's cluster
// cursor onto the new cluster. For a directory file (h.isDir) the newly
// allocated cluster is zero-filled before use (Open Question 7): the
// original driver's add_cluster_to_file left fresh directory clusters
// uninitialized, which makes garbage bytes look like live or deleted
// directory entries on the next readdir.
//
// extend does not itself call syncFATs: a write spanning many clusters
// calls extend once per cluster, and mirroring the whole FAT to every
// secondary copy after each one would turn an O(clusters) write into
// O(clusters * FAT size). Callers that loop over extend sync once after
// the loop instead.
func (fs *FS) extend(h *Handle) error {
	cluster, err := fs.allocFree()
	if err != nil {
		return err
	}
	wasEmpty := h.firstCluster == 0
	if wasEmpty {
		h.firstCluster = cluster
		h.dirty = true
	} else {
		if err := fs.writeFATEntry(h.curCluster, cluster); err != nil {
			return err
		}
	}
	if h.isDir {
		base := fs.clusterToSector(cluster)
		for s := uint32(0); s < uint32(fs.bpb.secPerClus); s++ {
			if err := fs.bufClear(base + lba(s)); err != nil {
				return err
			}
			if err := fs.bufFlush(); err != nil {
				return err
			}
		}
	}
	h.curCluster = cluster
	if wasEmpty {
		h.curClusterIdx = 0
	} else {
		h.curClusterIdx++
	}
	h.hintValid = true
	return nil
}

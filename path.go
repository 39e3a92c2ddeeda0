package fatfs

import "strings"

// pathResolver walks a slash-separated path one component at a time,
// canonicalizing each into an 11-byte padded 8.3 short name ready to
// compare against on-disk directory entries. Grounded on
// original_source/core/cfs/fat/fat.c's struct PathResolver and its
// pr_get_next_path_part/pr_is_current_path_part_a_file pair.
type pathResolver struct {
	path   string
	pos    int
	tokens int
}

func newPathResolver(path string) *pathResolver {
	path = strings.TrimPrefix(path, "/")
	return &pathResolver{path: path}
}

// next consumes the next path component and returns its 8.3 padded form.
// ok is false once the path is exhausted. isLast is true when the returned
// component is the final one (i.e. it names the target itself, not an
// intermediate directory it must be found inside).
func (pr *pathResolver) next() (name [11]byte, isLast bool, ok bool, err error) {
	if pr.pos >= len(pr.path) {
		return name, false, false, nil
	}
	pr.tokens++
	if pr.tokens > maxPathTokens {
		return name, false, false, statusInvalidName
	}
	rest := pr.path[pr.pos:]
	sep := strings.IndexByte(rest, '/')
	var token string
	if sep < 0 {
		token = rest
		pr.pos = len(pr.path)
		isLast = true
	} else {
		token = rest[:sep]
		pr.pos += sep + 1
		isLast = pr.pos >= len(pr.path)
	}
	if token == "" {
		return name, isLast, false, statusInvalidName
	}
	name, err = encodeShortName(token)
	if err != nil {
		return name, isLast, false, err
	}
	return name, isLast, true, nil
}

// encodeShortName canonicalizes a single path component ("file.txt", "BIN")
// into its fixed 11-byte base+extension on-disk form, upper-cased and
// space-padded. It rejects names with more than 8 base characters, more
// than 3 extension characters, or characters outside the short-name set.
//
// "." and ".." are the FAT convention's two reserved directory entries
// (installed by Mkdir, see fat.go) and are passed straight through as their
// literal space-padded on-disk bytes: the generic short-name rules below
// would otherwise reject the embedded dot itself, since '.' is the
// base/extension separator rather than a valid name character.
func encodeShortName(token string) ([11]byte, error) {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	if token == "." || token == ".." {
		copy(out[:], token)
		return out, nil
	}
	base, ext := splitBaseExt(token)
	if len(base) == 0 || len(base) > 8 || len(ext) > 3 {
		return out, statusInvalidName
	}
	for i := 0; i < len(base); i++ {
		if !isValidSFNChar(base[i]) {
			return out, statusInvalidName
		}
		out[i] = base[i]
	}
	for i := 0; i < len(ext); i++ {
		if !isValidSFNChar(ext[i]) {
			return out, statusInvalidName
		}
		out[8+i] = ext[i]
	}
	return out, nil
}

func decodeShortName(raw [11]byte) string {
	base := strings.TrimRight(string(raw[0:8]), " ")
	ext := strings.TrimRight(string(raw[8:11]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

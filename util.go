package fatfs

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Attr is the one-byte FAT directory entry attribute bitfield.
type Attr uint8

const (
	AttrReadOnly  Attr = 0x01
	AttrHidden    Attr = 0x02
	AttrSystem    Attr = 0x04
	AttrVolumeID  Attr = 0x08
	AttrDirectory Attr = 0x10
	AttrArchive   Attr = 0x20
	// AttrLongName marks a VFAT long-name slot; entries with all four of
	// these bits set are skipped entirely (OQ5), never surfaced as files.
	AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

func (a Attr) IsReadOnly() bool  { return a&AttrReadOnly != 0 }
func (a Attr) IsHidden() bool    { return a&AttrHidden != 0 }
func (a Attr) IsSystem() bool    { return a&AttrSystem != 0 }
func (a Attr) IsVolumeID() bool  { return a&AttrVolumeID != 0 }
func (a Attr) IsDirectory() bool { return a&AttrDirectory != 0 }
func (a Attr) IsLongName() bool  { return a&AttrLongName == AttrLongName }

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// upperCaser folds ASCII short names to upper case the way the volume
// expects them on disk. Repurposed from soypat-fat's golang.org/x/text/cases
// dependency (there used for LFN codepage case folding, which this driver
// drops along with the rest of VFAT); it still earns its keep here doing
// plain 8.3 case folding instead of a hand-rolled byte loop.
var upperCaser = cases.Upper(language.Und)

func toUpperASCII(s string) string {
	return upperCaser.String(s)
}

// splitBaseExt splits "NAME.EXT" into its 8.3 components, both upper-cased
// and without the separating dot. Either half may be shorter than its field
// width; the caller pads with spaces when encoding.
func splitBaseExt(name string) (base, ext string) {
	name = toUpperASCII(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

func isValidSFNChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '^' || c == '$' || c == '~' || c == '!' || c == '#' ||
		c == '%' || c == '&' || c == '-' || c == '{' || c == '}' || c == '(' ||
		c == ')' || c == '@' || c == '\'' || c == '`':
		return true
	default:
		return false
	}
}

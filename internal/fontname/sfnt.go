package fontname

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"subforge/internal/services"
)

const (
	sfntTrueType = 0x00010000
	sfntApple    = 0x74727565 // "true"
	sfntCFF      = 0x4f54544f // "OTTO"
	sfntTTC      = 0x74746366 // "ttcf"

	checksumMagic = 0xB1B0AFBA
	headerSize    = 12
	tableRecord   = 16
)

// Font is a parsed single-font sfnt file.
type Font struct {
	version uint32
	tables  map[string][]byte
	records []Record
	// langTags are the format 1 language-tag strings; they are dropped when
	// the table is rebuilt as format 0.
	langTags int
}

// Parse reads an sfnt font. Collections are rejected.
func Parse(data []byte) (*Font, error) {
	if len(data) < headerSize {
		return nil, malformed("font header truncated", nil)
	}
	version := binary.BigEndian.Uint32(data)
	switch version {
	case sfntTrueType, sfntApple, sfntCFF:
	case sfntTTC:
		return nil, malformed("font collections are not supported", nil)
	default:
		return nil, malformed(fmt.Sprintf("unknown sfnt version 0x%08x", version), nil)
	}
	numTables := int(binary.BigEndian.Uint16(data[4:]))
	if len(data) < headerSize+numTables*tableRecord {
		return nil, malformed("table directory truncated", nil)
	}

	font := &Font{version: version, tables: make(map[string][]byte, numTables)}
	for i := 0; i < numTables; i++ {
		rec := data[headerSize+i*tableRecord:]
		tag := string(rec[:4])
		offset := binary.BigEndian.Uint32(rec[8:])
		length := binary.BigEndian.Uint32(rec[12:])
		end := uint64(offset) + uint64(length)
		if end > uint64(len(data)) {
			return nil, malformed(fmt.Sprintf("table %q exceeds file size", tag), nil)
		}
		font.tables[tag] = append([]byte(nil), data[offset:end]...)
	}

	nameTable, ok := font.tables["name"]
	if !ok {
		return nil, malformed("font has no name table", nil)
	}
	records, langTags, err := parseNameTable(nameTable)
	if err != nil {
		return nil, err
	}
	font.records = records
	font.langTags = langTags
	return font, nil
}

// ParseFile reads and parses the font at path.
func ParseFile(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "fontname", "read", path, err)
	}
	font, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return font, nil
}

// HasTable reports whether the font carries the table with the given tag.
func (f *Font) HasTable(tag string) bool {
	_, ok := f.tables[tag]
	return ok
}

// outlineNamesSupported mirrors the TrueType-outline check used when
// choosing English ASCII names: CFF-only fonts get the new name verbatim.
func (f *Font) outlineNamesSupported() bool {
	return !f.HasTable("CFF ") || f.HasTable("glyf")
}

// Bytes serializes the font with the current name records. Tables are
// written in tag order, 4-byte aligned, with fresh checksums and
// head.checkSumAdjustment.
func (f *Font) Bytes() ([]byte, error) {
	nameTable, err := buildNameTable(f.records)
	if err != nil {
		return nil, err
	}
	tables := make(map[string][]byte, len(f.tables))
	for tag, data := range f.tables {
		tables[tag] = data
	}
	tables["name"] = nameTable

	head, hasHead := tables["head"]
	if hasHead {
		if len(head) < 12 {
			return nil, malformed("head table truncated", nil)
		}
		head = append([]byte(nil), head...)
		binary.BigEndian.PutUint32(head[8:], 0)
		tables["head"] = head
	}

	tags := make([]string, 0, len(tables))
	for tag := range tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	numTables := len(tags)
	entrySelector := 0
	for 1<<(entrySelector+1) <= numTables {
		entrySelector++
	}
	searchRange := (1 << entrySelector) * tableRecord

	size := headerSize + numTables*tableRecord
	for _, tag := range tags {
		size += padded(len(tables[tag]))
	}
	out := make([]byte, size)
	binary.BigEndian.PutUint32(out[0:], f.version)
	binary.BigEndian.PutUint16(out[4:], uint16(numTables))
	binary.BigEndian.PutUint16(out[6:], uint16(searchRange))
	binary.BigEndian.PutUint16(out[8:], uint16(entrySelector))
	binary.BigEndian.PutUint16(out[10:], uint16(numTables*tableRecord-searchRange))

	offset := headerSize + numTables*tableRecord
	headOffset := -1
	for i, tag := range tags {
		data := tables[tag]
		rec := out[headerSize+i*tableRecord:]
		copy(rec[0:4], tag)
		binary.BigEndian.PutUint32(rec[4:], checksum(data))
		binary.BigEndian.PutUint32(rec[8:], uint32(offset))
		binary.BigEndian.PutUint32(rec[12:], uint32(len(data)))
		copy(out[offset:], data)
		if tag == "head" {
			headOffset = offset
		}
		offset += padded(len(data))
	}

	if headOffset >= 0 {
		binary.BigEndian.PutUint32(out[headOffset+8:], checksumMagic-checksum(out))
	}
	return out, nil
}

func padded(n int) int {
	return (n + 3) &^ 3
}

// checksum sums big-endian uint32 words, zero-padding the final word.
func checksum(data []byte) uint32 {
	var sum uint32
	for len(data) >= 4 {
		sum += binary.BigEndian.Uint32(data)
		data = data[4:]
	}
	if len(data) > 0 {
		var tail [4]byte
		copy(tail[:], data)
		sum += binary.BigEndian.Uint32(tail[:])
	}
	return sum
}

func malformed(message string, err error) error {
	return services.Wrap(services.ErrMalformedAsset, "fontname", "parse", message, err)
}

package fontname

import (
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	PlatformUnicode   uint16 = 0
	PlatformMacintosh uint16 = 1
	PlatformWindows   uint16 = 3

	EncodingWindowsUnicodeBMP uint16 = 1

	LanguageEnglishUS        uint16 = 0x0409
	LanguageEnglishAU        uint16 = 0x0C09
	LanguageChineseChina     uint16 = 0x0804
	LanguageMacintoshEnglish uint16 = 0
)

// Name IDs touched by renaming.
const (
	NameFamily               uint16 = 1
	NameSubfamily            uint16 = 2
	NameFull                 uint16 = 4
	NamePostScript           uint16 = 6
	NameTypographicFamily    uint16 = 16
	NameTypographicSubfamily uint16 = 17
)

// Record is one entry of the naming table. Value holds the encoded bytes.
type Record struct {
	PlatformID uint16
	EncodingID uint16
	LanguageID uint16
	NameID     uint16
	Value      []byte
}

// Decode returns the record as text. Macintosh records are Mac Roman,
// everything else UTF-16BE. Undecodable bytes are dropped.
func (r Record) Decode() string {
	dec := codecFor(r.PlatformID).NewDecoder()
	out, err := dec.Bytes(r.Value)
	if err != nil {
		return ""
	}
	return string(out)
}

// english reports whether the record belongs to an English locale.
func (r Record) english() bool {
	switch r.PlatformID {
	case PlatformMacintosh:
		return true
	case PlatformWindows:
		return r.LanguageID == LanguageEnglishUS || r.LanguageID == LanguageEnglishAU
	}
	return false
}

func codecFor(platform uint16) encoding.Encoding {
	if platform == PlatformMacintosh {
		return charmap.Macintosh
	}
	return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
}

// encodeValue encodes s for the platform. ok is false when s has characters
// the platform encoding cannot represent.
func encodeValue(platform uint16, s string) (value []byte, ok bool) {
	out, err := codecFor(platform).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, false
	}
	return out, true
}

// Records returns a copy of the naming table records.
func (f *Font) Records() []Record {
	out := make([]Record, len(f.records))
	for i, rec := range f.records {
		rec.Value = append([]byte(nil), rec.Value...)
		out[i] = rec
	}
	return out
}

// Name returns the first record with nameID, preferring Windows Unicode
// records over Macintosh ones.
func (f *Font) Name(nameID uint16) string {
	var fallback string
	for _, rec := range f.records {
		if rec.NameID != nameID {
			continue
		}
		text := rec.Decode()
		if text == "" {
			continue
		}
		if rec.PlatformID == PlatformWindows {
			return text
		}
		if fallback == "" {
			fallback = text
		}
	}
	return fallback
}

func parseNameTable(data []byte) ([]Record, int, error) {
	if len(data) < 6 {
		return nil, 0, malformed("name table truncated", nil)
	}
	format := binary.BigEndian.Uint16(data)
	count := int(binary.BigEndian.Uint16(data[2:]))
	storage := int(binary.BigEndian.Uint16(data[4:]))
	if format > 1 {
		return nil, 0, malformed(fmt.Sprintf("unsupported name table format %d", format), nil)
	}
	if len(data) < 6+count*12 {
		return nil, 0, malformed("name records truncated", nil)
	}

	records := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		raw := data[6+i*12:]
		length := int(binary.BigEndian.Uint16(raw[8:]))
		offset := int(binary.BigEndian.Uint16(raw[10:]))
		start := storage + offset
		if start+length > len(data) {
			return nil, 0, malformed(fmt.Sprintf("name record %d exceeds table", i), nil)
		}
		records = append(records, Record{
			PlatformID: binary.BigEndian.Uint16(raw[0:]),
			EncodingID: binary.BigEndian.Uint16(raw[2:]),
			LanguageID: binary.BigEndian.Uint16(raw[4:]),
			NameID:     binary.BigEndian.Uint16(raw[6:]),
			Value:      append([]byte(nil), data[start:start+length]...),
		})
	}

	langTags := 0
	if format == 1 && len(data) >= 6+count*12+2 {
		langTags = int(binary.BigEndian.Uint16(data[6+count*12:]))
	}
	return records, langTags, nil
}

// buildNameTable writes a format 0 table with records sorted by platform,
// encoding, language and name ID.
func buildNameTable(records []Record) ([]byte, error) {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.PlatformID != b.PlatformID {
			return a.PlatformID < b.PlatformID
		}
		if a.EncodingID != b.EncodingID {
			return a.EncodingID < b.EncodingID
		}
		if a.LanguageID != b.LanguageID {
			return a.LanguageID < b.LanguageID
		}
		return a.NameID < b.NameID
	})

	storageOffset := 6 + 12*len(sorted)
	header := make([]byte, storageOffset)
	binary.BigEndian.PutUint16(header[2:], uint16(len(sorted)))
	binary.BigEndian.PutUint16(header[4:], uint16(storageOffset))

	var storage []byte
	for i, rec := range sorted {
		if len(rec.Value) > 0xFFFF || len(storage) > 0xFFFF {
			return nil, malformed("name table exceeds 64 KiB of strings", nil)
		}
		raw := header[6+i*12:]
		binary.BigEndian.PutUint16(raw[0:], rec.PlatformID)
		binary.BigEndian.PutUint16(raw[2:], rec.EncodingID)
		binary.BigEndian.PutUint16(raw[4:], rec.LanguageID)
		binary.BigEndian.PutUint16(raw[6:], rec.NameID)
		binary.BigEndian.PutUint16(raw[8:], uint16(len(rec.Value)))
		binary.BigEndian.PutUint16(raw[10:], uint16(len(storage)))
		storage = append(storage, rec.Value...)
	}
	if storageOffset > 0xFFFF {
		return nil, malformed("too many name records", nil)
	}
	return append(header, storage...), nil
}

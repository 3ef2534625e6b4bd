package keys

import (
	"encoding/binary"
)

// Prefix constants for the fact indices of the archive. Every fact key
// starts with the theme so a theme can be dropped or scanned on its own.
const (
	SROPrefix byte = 0x20 // Theme-Subject-Relation-Object index
	RSOPrefix byte = 0x21 // Theme-Relation-Subject-Object index
	ORSPrefix byte = 0x22 // Theme-Object-Relation-Subject index

	// ThemePrefix keys hold the fact count of an archived theme.
	ThemePrefix byte = 0x30

	// SystemPrefix is reserved for system metadata.
	SystemPrefix byte = 0xFF
)

// Key size constants
const (
	PrefixSize = 1
	IDSize     = 8

	// FactKeySize is prefix(1) + theme(8) + 3*ID(8).
	FactKeySize = PrefixSize + 4*IDSize // 33 bytes

	ThemeKeySize = PrefixSize + IDSize
)

// Indices lists the fact index prefixes written for every fact.
var Indices = []byte{SROPrefix, RSOPrefix, ORSPrefix}

// Encode builds the key of a fact for one index.
// Uses BigEndian encoding to ensure lexicographic ordering matches numeric ordering.
func Encode(index byte, theme, subject, relation, object uint64) []byte {
	key := make([]byte, FactKeySize)
	key[0] = index
	binary.BigEndian.PutUint64(key[1:9], theme)
	a, b, c := order(index, subject, relation, object)
	binary.BigEndian.PutUint64(key[9:17], a)
	binary.BigEndian.PutUint64(key[17:25], b)
	binary.BigEndian.PutUint64(key[25:33], c)
	return key
}

// Decode splits a fact key into theme, subject, relation and object.
func Decode(key []byte) (theme, subject, relation, object uint64, ok bool) {
	if len(key) != FactKeySize {
		return 0, 0, 0, 0, false
	}
	theme = binary.BigEndian.Uint64(key[1:9])
	a := binary.BigEndian.Uint64(key[9:17])
	b := binary.BigEndian.Uint64(key[17:25])
	c := binary.BigEndian.Uint64(key[25:33])
	switch key[0] {
	case SROPrefix:
		return theme, a, b, c, true
	case RSOPrefix:
		return theme, b, a, c, true
	case ORSPrefix:
		return theme, c, b, a, true
	default:
		return 0, 0, 0, 0, false
	}
}

func order(index byte, s, r, o uint64) (uint64, uint64, uint64) {
	switch index {
	case RSOPrefix:
		return r, s, o
	case ORSPrefix:
		return o, r, s
	default:
		return s, r, o
	}
}

// Prefix creates a prefix for range scans. first and second are the leading
// components in index order; zero means unbound and ends the prefix.
func Prefix(index byte, theme, first, second uint64) []byte {
	prefix := make([]byte, PrefixSize+IDSize, FactKeySize)
	prefix[0] = index
	binary.BigEndian.PutUint64(prefix[1:9], theme)
	if first == 0 {
		return prefix
	}
	prefix = binary.BigEndian.AppendUint64(prefix, first)
	if second == 0 {
		return prefix
	}
	return binary.BigEndian.AppendUint64(prefix, second)
}

// ThemeKey is [ThemePrefix | theme(8)].
func ThemeKey(theme uint64) []byte {
	key := make([]byte, ThemeKeySize)
	key[0] = ThemePrefix
	binary.BigEndian.PutUint64(key[1:], theme)
	return key
}

// DecodeThemeKey returns the theme of a theme key.
func DecodeThemeKey(key []byte) (uint64, bool) {
	if len(key) != ThemeKeySize || key[0] != ThemePrefix {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[1:]), true
}

// EncodeCount and DecodeCount store counters as 8 big endian bytes.
func EncodeCount(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

func DecodeCount(val []byte) uint64 {
	if len(val) != IDSize {
		return 0
	}
	return binary.BigEndian.Uint64(val)
}

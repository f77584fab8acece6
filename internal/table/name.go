package table

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const tableExt = ".json"

// sourceExts are suffixes that mark an import identifier as a file import
// rather than a library name.
var sourceExts = []string{".robot", ".resource", ".txt", ".tsv", ".py"}

// RFTableName returns the table name for a source file: its base name plus
// the md5 of the normalised absolute path.
func RFTableName(path string) string {
	normalized := NormalizePath(path)
	return name(filepath.Base(normalized), normalized)
}

// LibTableName returns the table name for a library imported by name.
func LibTableName(library string) string {
	return name(library, library)
}

func name(base, key string) string {
	sum := md5.Sum([]byte(key))
	return base + "-" + hex.EncodeToString(sum[:]) + tableExt
}

// NormalizePath makes path absolute and clean. Paths that cannot be made
// absolute are only cleaned.
func NormalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// ObjectName recovers the display name a table was derived from, e.g.
// "BuiltIn" from "BuiltIn-<md5>.json". Names that do not follow the table
// naming scheme are returned without the .json suffix.
func ObjectName(tableName string) string {
	base := strings.TrimSuffix(tableName, tableExt)
	i := strings.LastIndexByte(base, '-')
	if i < 0 || !isMD5(base[i+1:]) {
		return base
	}
	return base[:i]
}

func isMD5(s string) bool {
	if len(s) != md5.Size*2 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// IsTableName reports whether s already follows the table naming scheme.
func IsTableName(s string) bool {
	return strings.HasSuffix(s, tableExt) && ObjectName(s) != strings.TrimSuffix(s, tableExt)
}

// IsFileImport reports whether an import identifier refers to a source file.
func IsFileImport(identifier string) bool {
	if strings.ContainsAny(identifier, `/\`) {
		return true
	}
	lower := strings.ToLower(identifier)
	for _, ext := range sourceExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Resolve maps an import identifier to the table it names and the object name
// keywords from that table are tagged with. Relative file imports are resolved
// against importerDir.
func Resolve(identifier, importerDir string) (tableName, objectName string) {
	if !IsFileImport(identifier) {
		return LibTableName(identifier), identifier
	}
	path := identifier
	if !filepath.IsAbs(path) && importerDir != "" {
		path = filepath.Join(importerDir, path)
	}
	path = NormalizePath(path)
	return RFTableName(path), filepath.Base(path)
}

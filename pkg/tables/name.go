package tables

import (
	"path"
	"strings"
)

// NormalizeName derives a dataset's short name from its storage key:
// the base name without extension, e.g. "a/b/单位基本情况_611.csv" → "单位基本情况_611".
func NormalizeName(key string) string {
	base := path.Base(strings.ReplaceAll(key, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.TrimSpace(base)
}

// NameFromParent derives a short name from a raw upload directory name by
// keeping the text between its first and last underscore, e.g.
// "01_单位基本情况_611_2023" → "单位基本情况_611". Without two underscores the
// whole directory name is used.
func NameFromParent(parent string) string {
	first := strings.Index(parent, "_")
	last := strings.LastIndex(parent, "_")
	core := parent
	if first != -1 && last > first {
		core = parent[first+1 : last]
	}
	return strings.Trim(core, " _")
}

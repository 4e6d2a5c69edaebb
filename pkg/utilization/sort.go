package utilization

import (
	"fmt"
	"sort"
	"strings"
)

// SortKey names the report column rows are ordered by.
type SortKey string

// Sort keys. Each has a short alias accepted by ParseSortKey.
const (
	SortNone       SortKey = ""
	SortName       SortKey = "name"
	SortCPURequest SortKey = "cpu-request"
	SortCPULimit   SortKey = "cpu-limit"
	SortCPUUsage   SortKey = "cpu-usage"
	SortMemRequest SortKey = "mem-request"
	SortMemLimit   SortKey = "mem-limit"
	SortMemUsage   SortKey = "mem-usage"
)

var sortAliases = map[string]SortKey{
	"name":        SortName,
	"n":           SortName,
	"cpu-request": SortCPURequest,
	"cr":          SortCPURequest,
	"cpu-limit":   SortCPULimit,
	"cl":          SortCPULimit,
	"cpu-usage":   SortCPUUsage,
	"cu":          SortCPUUsage,
	"mem-request": SortMemRequest,
	"mr":          SortMemRequest,
	"mem-limit":   SortMemLimit,
	"ml":          SortMemLimit,
	"mem-usage":   SortMemUsage,
	"mu":          SortMemUsage,
}

// SortKeyNames lists every accepted sort key spelling, long forms first.
func SortKeyNames() []string {
	return []string{
		"name", "cpu-request", "cpu-limit", "cpu-usage", "mem-request", "mem-limit", "mem-usage",
		"n", "cr", "cl", "cu", "mr", "ml", "mu",
	}
}

// ParseSortKey resolves a long or short sort key. The empty string means unsorted.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return SortNone, nil
	}
	key, ok := sortAliases[s]
	if !ok {
		return SortNone, fmt.Errorf("invalid sort key %q (choose from %s)", s, strings.Join(SortKeyNames(), ", "))
	}
	return key, nil
}

// value returns the Totals field the key orders by.
func (k SortKey) value(t Totals) int64 {
	switch k {
	case SortCPURequest:
		return t.CPURequest
	case SortCPULimit:
		return t.CPULimit
	case SortCPUUsage:
		return t.CPUUsage
	case SortMemRequest:
		return t.MemRequest
	case SortMemLimit:
		return t.MemLimit
	case SortMemUsage:
		return t.MemUsage
	default:
		return 0
	}
}

// SortRows orders namespace rows in place, descending on key. Ties, and SortNone,
// fall back to ascending namespace name.
func SortRows(rows []Row, key SortKey) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch key {
		case SortNone:
			return a.Name < b.Name
		case SortName:
			return a.Name > b.Name
		}
		va, vb := key.value(a.Totals), key.value(b.Totals)
		if va != vb {
			return va > vb
		}
		return a.Name < b.Name
	})
}

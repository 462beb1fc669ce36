package assets

import (
	"sort"
	"strings"
)

// Sortable columns for View. An empty sort key means the default
// case-insensitive name order.
const (
	SortByName    = "name"
	SortByType    = "type"
	SortByAuthor  = "author"
	SortByLicense = "license"
)

// ValidSortKey reports whether the key names a sortable column.
func ValidSortKey(key string) bool {
	switch key {
	case "", SortByName, SortByType, SortByAuthor, SortByLicense:
		return true
	default:
		return false
	}
}

// ViewOptions select the filter and order of a View.
type ViewOptions struct {
	// SortKey is one of the SortBy constants, or empty for name order.
	SortKey string
	// FilterType, when set, keeps only assets whose stored type equals it
	// exactly (case-sensitive).
	FilterType string
}

// View returns a filtered, deterministically ordered copy of the asset
// collection. The input slice is never mutated, and identical inputs always
// produce an identical sequence: ties fall back to case-insensitive name,
// then record id, giving every sort a total order.
func View(collection []Asset, opts ViewOptions) []Asset {
	result := make([]Asset, 0, len(collection))
	for _, asset := range collection {
		if opts.FilterType != "" && deref(asset.Type) != opts.FilterType {
			continue
		}
		result = append(result, asset)
	}

	column := func(a *Asset) string {
		switch opts.SortKey {
		case SortByType:
			return deref(a.Type)
		case SortByAuthor:
			return deref(a.Author)
		case SortByLicense:
			return deref(a.License)
		default:
			return ""
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		left, right := &result[i], &result[j]

		if key := column(left); opts.SortKey != "" && opts.SortKey != SortByName {
			if other := column(right); key != other {
				return key < other
			}
		}

		leftName := strings.ToLower(left.Name)
		rightName := strings.ToLower(right.Name)
		if leftName != rightName {
			return leftName < rightName
		}
		return left.ID < right.ID
	})

	return result
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

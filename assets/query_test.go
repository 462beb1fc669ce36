package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func sampleCollection() []Asset {
	return []Asset{
		{ID: 1, Name: "Zelda-like tileset", Type: str("Tileset"), Author: str("Kenney"), License: str("CC0")},
		{ID: 2, Name: "beep.wav", Type: str("SFX"), Author: str("rubberduck"), License: str("CC0")},
		{ID: 3, Name: "Aria theme", Type: str("Music"), Author: str("Komiku"), License: str("CC-BY")},
		{ID: 4, Name: "beep.wav", Type: str("SFX"), Author: str("Kenney"), License: str("CC-BY")},
		{ID: 5, Name: "monogram font", Type: str("Font"), Author: str("datagoblin"), License: str("CC0")},
	}
}

func names(view []Asset) []string {
	result := make([]string, 0, len(view))
	for _, asset := range view {
		result = append(result, asset.Name)
	}
	return result
}

func ids(view []Asset) []uint64 {
	result := make([]uint64, 0, len(view))
	for _, asset := range view {
		result = append(result, asset.ID)
	}
	return result
}

func TestViewDefaultOrderIsCaseInsensitiveName(t *testing.T) {
	view := View(sampleCollection(), ViewOptions{})

	assert.Equal(t, []string{
		"Aria theme", "beep.wav", "beep.wav", "monogram font", "Zelda-like tileset",
	}, names(view))
	// Equal names fall back to id order.
	assert.Equal(t, []uint64{3, 2, 4, 5, 1}, ids(view))
}

func TestViewIsIdempotent(t *testing.T) {
	once := View(sampleCollection(), ViewOptions{SortKey: SortByName})
	twice := View(once, ViewOptions{SortKey: SortByName})

	assert.Equal(t, ids(once), ids(twice))
}

func TestViewIsDeterministic(t *testing.T) {
	first := View(sampleCollection(), ViewOptions{SortKey: SortByAuthor})
	second := View(sampleCollection(), ViewOptions{SortKey: SortByAuthor})

	assert.Equal(t, ids(first), ids(second))
}

func TestViewSortByLicenseBreaksTiesByName(t *testing.T) {
	view := View(sampleCollection(), ViewOptions{SortKey: SortByLicense})

	assert.Equal(t, []uint64{3, 4, 2, 5, 1}, ids(view))
}

func TestViewFilterByType(t *testing.T) {
	collection := sampleCollection()
	filtered := View(collection, ViewOptions{FilterType: "SFX"})

	require.Len(t, filtered, 2)
	for _, asset := range filtered {
		assert.Equal(t, "SFX", *asset.Type)
	}
}

func TestViewFilterIsCaseSensitive(t *testing.T) {
	filtered := View(sampleCollection(), ViewOptions{FilterType: "sfx"})
	assert.Empty(t, filtered)
}

// The filtered view plus its complement must reproduce the whole set.
func TestViewFilterPartition(t *testing.T) {
	collection := sampleCollection()

	byType := map[uint64]bool{}
	for _, asset := range View(collection, ViewOptions{FilterType: "SFX"}) {
		byType[asset.ID] = true
	}
	complement := 0
	for _, asset := range collection {
		if *asset.Type != "SFX" {
			complement++
		} else {
			require.True(t, byType[asset.ID])
		}
	}
	assert.Equal(t, len(collection), complement+len(byType))
}

func TestViewDoesNotMutateInput(t *testing.T) {
	collection := sampleCollection()
	original := ids(collection)

	_ = View(collection, ViewOptions{SortKey: SortByLicense, FilterType: "SFX"})

	assert.Equal(t, original, ids(collection))
}

func TestViewHandlesNilFields(t *testing.T) {
	collection := []Asset{
		{ID: 1, Name: "untyped"},
		{ID: 2, Name: "typed", Type: str("Image")},
	}

	view := View(collection, ViewOptions{SortKey: SortByType})
	assert.Equal(t, []uint64{1, 2}, ids(view))

	filtered := View(collection, ViewOptions{FilterType: "Image"})
	require.Len(t, filtered, 1)
	assert.Equal(t, uint64(2), filtered[0].ID)
}

func TestValidSortKey(t *testing.T) {
	for _, key := range []string{"", SortByName, SortByType, SortByAuthor, SortByLicense} {
		assert.True(t, ValidSortKey(key), key)
	}
	assert.False(t, ValidSortKey("created_at"))
	assert.False(t, ValidSortKey("NAME"))
}

package licenses

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupBuiltinDefaults(t *testing.T) {
	catalog := LoadCatalog()

	cases := []struct {
		id          string
		commercial  Decision
		modify      Decision
		attribution Decision
	}{
		{"CC0", Yes, Yes, No},
		{"CC-BY", Yes, Yes, Yes},
		{"CC-BY-SA", Yes, Yes, Yes},
		{"CC-BY-NC", No, Yes, Yes},
		{"CC-BY-NC-SA", No, Yes, Yes},
		{"MIT", Yes, Yes, Yes},
		{"GPL", Yes, Yes, Yes},
		{"LGPL", Yes, Yes, Yes},
		{"Public-Domain", Yes, Yes, No},
		{"Proprietary", Unspecified, Unspecified, Unspecified},
		{"Custom", Unspecified, Unspecified, Unspecified},
	}

	for _, tc := range cases {
		entry, builtin := catalog.Lookup(tc.id)
		require.True(t, builtin, "expected %s to be builtin", tc.id)
		assert.Equal(t, tc.id, entry.ID)
		assert.Equal(t, tc.commercial, entry.AllowCommercial, "%s commercial", tc.id)
		assert.Equal(t, tc.modify, entry.AllowModification, "%s modification", tc.id)
		assert.Equal(t, tc.attribution, entry.RequireAttribution, "%s attribution", tc.id)
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	catalog := LoadCatalog()

	entry, builtin := catalog.Lookup("cc-by")
	require.True(t, builtin)
	assert.Equal(t, "CC-BY", entry.ID)
}

func TestLookupUnknownIDResolvesToUnspecified(t *testing.T) {
	catalog := LoadCatalog()

	entry, builtin := catalog.Lookup("OFL-1.1")
	assert.False(t, builtin)
	assert.Equal(t, "OFL-1.1", entry.ID)
	assert.Equal(t, Unspecified, entry.AllowCommercial)
	assert.Equal(t, Unspecified, entry.AllowModification)
	assert.Equal(t, Unspecified, entry.RequireAttribution)
	assert.Empty(t, entry.AttributionTemplate)
}

func TestAttributionTemplates(t *testing.T) {
	catalog := LoadCatalog()

	for _, id := range []string{"CC-BY", "CC-BY-SA", "CC-BY-NC", "CC-BY-NC-SA", "MIT", "GPL", "LGPL"} {
		entry, _ := catalog.Lookup(id)
		assert.NotEmpty(t, entry.AttributionTemplate, "%s should carry a template", id)
	}
	for _, id := range []string{"CC0", "Public-Domain", "Proprietary", "Custom"} {
		entry, _ := catalog.Lookup(id)
		assert.Empty(t, entry.AttributionTemplate, "%s should not carry a template", id)
	}
}

func TestNewCatalogDropsDuplicatesAndBlanks(t *testing.T) {
	catalog := NewCatalog([]Entry{
		{ID: "MIT", AllowCommercial: Yes},
		{ID: "mit", AllowCommercial: No},
		{ID: "   "},
		{ID: "OFL", AllowCommercial: "YES", AllowModification: "nonsense"},
	})

	require.Equal(t, 2, catalog.Len())

	entry, ok := catalog.Lookup("MIT")
	require.True(t, ok)
	assert.Equal(t, Yes, entry.AllowCommercial)

	entry, ok = catalog.Lookup("OFL")
	require.True(t, ok)
	assert.Equal(t, Yes, entry.AllowCommercial)
	assert.Equal(t, Unspecified, entry.AllowModification)
}

func TestIdentifiersKeepRegistrationOrder(t *testing.T) {
	catalog := LoadCatalog()

	ids := catalog.Identifiers()
	require.GreaterOrEqual(t, len(ids), 11)
	assert.Equal(t, "CC0", ids[0])
	assert.Equal(t, Custom, ids[10])

	// Deterministic across invocations.
	assert.Equal(t, ids, catalog.Identifiers())
}

func TestDecisionLabels(t *testing.T) {
	assert.Equal(t, "Yes", Yes.Label())
	assert.Equal(t, "No", No.Label())
	assert.Equal(t, "Unspecified", Unspecified.Label())
	assert.Equal(t, "Unspecified", Decision("").Label())
}

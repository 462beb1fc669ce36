package licenses

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Decision is the tri-state value of a legal permission attribute.
type Decision string

const (
	Yes         Decision = "yes"
	No          Decision = "no"
	Unspecified Decision = "unspecified"
)

// Label renders a decision the way reports and UI combos display it.
func (d Decision) Label() string {
	switch d {
	case Yes:
		return "Yes"
	case No:
		return "No"
	default:
		return "Unspecified"
	}
}

func normalizeDecision(raw string) Decision {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true":
		return Yes
	case "no", "n", "false":
		return No
	default:
		return Unspecified
	}
}

// Entry describes one license and the legal defaults derived from it.
type Entry struct {
	ID                  string   `json:"id"`
	AllowCommercial     Decision `json:"allow_commercial"`
	AllowModification   Decision `json:"allow_modification"`
	RequireAttribution  Decision `json:"require_attribution"`
	AttributionTemplate string   `json:"attribution_template,omitempty"`
}

// Custom is the sentinel identifier for licenses the catalog knows nothing
// about; its defaults are all unspecified so the user must fill them in.
const Custom = "Custom"

var builtinCatalog = []Entry{
	{ID: "CC0", AllowCommercial: Yes, AllowModification: Yes, RequireAttribution: No},
	{ID: "CC-BY", AllowCommercial: Yes, AllowModification: Yes, RequireAttribution: Yes,
		AttributionTemplate: "\"{title}\" by {author}, licensed under CC BY ({url})"},
	{ID: "CC-BY-SA", AllowCommercial: Yes, AllowModification: Yes, RequireAttribution: Yes,
		AttributionTemplate: "\"{title}\" by {author}, licensed under CC BY-SA ({url})"},
	{ID: "CC-BY-NC", AllowCommercial: No, AllowModification: Yes, RequireAttribution: Yes,
		AttributionTemplate: "\"{title}\" by {author}, licensed under CC BY-NC ({url})"},
	{ID: "CC-BY-NC-SA", AllowCommercial: No, AllowModification: Yes, RequireAttribution: Yes,
		AttributionTemplate: "\"{title}\" by {author}, licensed under CC BY-NC-SA ({url})"},
	{ID: "MIT", AllowCommercial: Yes, AllowModification: Yes, RequireAttribution: Yes,
		AttributionTemplate: "Includes \"{title}\" by {author}, MIT licensed ({url})"},
	{ID: "GPL", AllowCommercial: Yes, AllowModification: Yes, RequireAttribution: Yes,
		AttributionTemplate: "Includes \"{title}\" by {author}, GPL licensed ({url})"},
	{ID: "LGPL", AllowCommercial: Yes, AllowModification: Yes, RequireAttribution: Yes,
		AttributionTemplate: "Includes \"{title}\" by {author}, LGPL licensed ({url})"},
	{ID: "Public-Domain", AllowCommercial: Yes, AllowModification: Yes, RequireAttribution: No},
	{ID: "Proprietary", AllowCommercial: Unspecified, AllowModification: Unspecified, RequireAttribution: Unspecified},
	{ID: Custom, AllowCommercial: Unspecified, AllowModification: Unspecified, RequireAttribution: Unspecified},
}

// Catalog is an immutable license table. The zero value is unusable; build
// one with LoadCatalog or NewCatalog.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// NewCatalog builds a catalog from the given entries, keeping first
// occurrence order and dropping duplicates and blank identifiers.
func NewCatalog(entries []Entry) Catalog {
	normalized := make([]Entry, 0, len(entries))
	index := make(map[string]int, len(entries))

	for _, entry := range entries {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			continue
		}
		if _, exists := index[strings.ToLower(id)]; exists {
			continue
		}

		entry.ID = id
		entry.AllowCommercial = normalizeDecision(string(entry.AllowCommercial))
		entry.AllowModification = normalizeDecision(string(entry.AllowModification))
		entry.RequireAttribution = normalizeDecision(string(entry.RequireAttribution))
		entry.AttributionTemplate = strings.TrimSpace(entry.AttributionTemplate)

		index[strings.ToLower(id)] = len(normalized)
		normalized = append(normalized, entry)
	}

	return Catalog{entries: normalized, index: index}
}

// LoadCatalog returns the builtin table, extended by LICENSE_CATALOG /
// LICENSE_CATALOG_FILE when present. Builtin entries are never replaced or
// removed by an override, only supplemented.
func LoadCatalog() Catalog {
	merged := append([]Entry(nil), builtinCatalog...)
	merged = append(merged, loadCatalogFromEnv()...)
	return NewCatalog(merged)
}

// loadCatalogFromEnv reads extra license entries from env or a JSON file.
func loadCatalogFromEnv() []Entry {
	rawInline := strings.TrimSpace(os.Getenv("LICENSE_CATALOG"))
	if rawInline != "" {
		if entries := parseCatalogJSON(rawInline); len(entries) > 0 {
			return entries
		}
		log.Printf("licenses: failed to parse LICENSE_CATALOG override")
	}

	rawPath := strings.TrimSpace(os.Getenv("LICENSE_CATALOG_FILE"))
	if rawPath != "" {
		data, err := os.ReadFile(filepath.Clean(rawPath))
		if err != nil {
			log.Printf("licenses: read LICENSE_CATALOG_FILE failed: %v", err)
		} else if entries := parseCatalogJSON(string(data)); len(entries) > 0 {
			return entries
		} else {
			log.Printf("licenses: failed to parse catalog file %s", rawPath)
		}
	}

	return nil
}

func parseCatalogJSON(raw string) []Entry {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	var wrapped struct {
		Licenses []Entry `json:"licenses"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err == nil && len(wrapped.Licenses) > 0 {
		return wrapped.Licenses
	}

	var list []Entry
	if err := json.Unmarshal([]byte(trimmed), &list); err == nil && len(list) > 0 {
		return list
	}

	return nil
}

// Lookup resolves a license identifier to its default legal attributes. The
// boolean reports whether the identifier is present in the table; any other
// non-empty identifier resolves to all-unspecified defaults with an empty
// attribution template (a de-facto custom license). Identifier matching is
// case-insensitive, the stored casing is preserved in the returned entry.
func (c Catalog) Lookup(id string) (Entry, bool) {
	trimmed := strings.TrimSpace(id)
	if pos, ok := c.index[strings.ToLower(trimmed)]; ok {
		return c.entries[pos], true
	}

	return Entry{
		ID:                 trimmed,
		AllowCommercial:    Unspecified,
		AllowModification:  Unspecified,
		RequireAttribution: Unspecified,
	}, false
}

// Identifiers lists the catalog's license ids in registration order.
func (c Catalog) Identifiers() []string {
	ids := make([]string, 0, len(c.entries))
	for _, entry := range c.entries {
		ids = append(ids, entry.ID)
	}
	return ids
}

// Entries returns a copy of the catalog table.
func (c Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Len reports the number of entries in the table.
func (c Catalog) Len() int {
	return len(c.entries)
}

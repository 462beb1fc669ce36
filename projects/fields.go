package projects

// Asset field keys a project configuration can toggle. FieldLegal covers the
// whole legal-attribute group (the three permissions plus attribution text).
const (
	FieldName         = "name"
	FieldType         = "type"
	FieldAuthor       = "author"
	FieldSourceURL    = "source_url"
	FieldDownloadDate = "download_date"
	FieldLicense      = "license"
	FieldLegal        = "legal"
	FieldUsage        = "usage"
	FieldNotes        = "notes"
	FieldTags         = "tags"
	FieldProof        = "proof"
)

var recognizedFields = map[string]struct{}{
	FieldName:         {},
	FieldType:         {},
	FieldAuthor:       {},
	FieldSourceURL:    {},
	FieldDownloadDate: {},
	FieldLicense:      {},
	FieldLegal:        {},
	FieldUsage:        {},
	FieldNotes:        {},
	FieldTags:         {},
	FieldProof:        {},
}

// RecognizedField reports whether this version of the schema knows the key.
func RecognizedField(key string) bool {
	_, ok := recognizedFields[key]
	return ok
}

// DefaultFieldConfig is the field set new projects start with.
func DefaultFieldConfig() []string {
	return []string{FieldName, FieldType, FieldAuthor, FieldLicense}
}

// FieldSet is a resolved set of active asset field keys.
type FieldSet map[string]struct{}

// Has reports whether the key is active.
func (s FieldSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// ActiveFields resolves the project's stored configuration to the set of
// active asset fields. Keys the current schema does not recognize are
// silently ignored so projects written by newer versions stay loadable, and
// the name field is always included so assets remain identifiable.
func ActiveFields(p *Project) FieldSet {
	set := make(FieldSet)
	for _, key := range p.FieldConfigKeys() {
		if RecognizedField(key) {
			set[key] = struct{}{}
		}
	}
	set[FieldName] = struct{}{}
	return set
}

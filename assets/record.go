package assets

import (
	"errors"
	"fmt"
	"strings"

	"keeper_back/licenses"
	"keeper_back/projects"
)

var (
	// ErrInvalidLicenseReference rejects an empty license identifier. Any
	// non-empty identifier is accepted, unknown ones count as de-facto
	// custom licenses.
	ErrInvalidLicenseReference = errors.New("assets: license identifier must not be empty")
	// ErrFieldNotActive rejects writes to a field the owning project has
	// not enabled.
	ErrFieldNotActive = errors.New("assets: field is not active for this project")
)

// Keys of the individual legal-attribute fields. They are active as a group
// through the project's "legal" field toggle and carry per-field manual-edit
// markers.
const (
	LegalAllowCommercial    = "allow_commercial"
	LegalAllowModification  = "allow_modification"
	LegalRequireAttribution = "require_attribution"
	LegalAttributionText    = "attribution_text"
)

// SetLicense stores the license identifier and auto-fills every legal field
// from the catalog defaults. Selecting a license, including re-selecting the
// currently stored one, discards prior overrides: the manual-edit markers are
// cleared and all four legal fields take the catalog values. Overrides only
// survive edits that do not touch the license.
func SetLicense(asset *Asset, licenseID string, catalog licenses.Catalog) error {
	trimmed := strings.TrimSpace(licenseID)
	if trimmed == "" {
		return ErrInvalidLicenseReference
	}

	entry, _ := catalog.Lookup(trimmed)
	asset.License = &trimmed
	asset.clearManualEdits()

	asset.AllowCommercial = entry.AllowCommercial
	asset.AllowModification = entry.AllowModification
	asset.RequireAttribution = entry.RequireAttribution
	if entry.AttributionTemplate == "" {
		asset.AttributionText = nil
	} else {
		template := entry.AttributionTemplate
		asset.AttributionText = &template
	}

	return nil
}

// SetField writes one asset field, enforcing the owning project's field
// configuration. Legal fields additionally record a manual-edit marker so
// the value survives later auto-fill. The value is stored verbatim; an
// explicit empty string is distinct from a field that was never set.
func SetField(asset *Asset, project *projects.Project, key, value string) error {
	active := projects.ActiveFields(project)

	store := func(field **string) {
		v := value
		*field = &v
	}

	switch key {
	case projects.FieldName:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return errors.New("assets: name must not be empty")
		}
		asset.Name = trimmed
	case projects.FieldType:
		if !active.Has(projects.FieldType) {
			return ErrFieldNotActive
		}
		store(&asset.Type)
	case projects.FieldAuthor:
		if !active.Has(projects.FieldAuthor) {
			return ErrFieldNotActive
		}
		store(&asset.Author)
	case projects.FieldSourceURL:
		if !active.Has(projects.FieldSourceURL) {
			return ErrFieldNotActive
		}
		store(&asset.SourceURL)
	case projects.FieldDownloadDate:
		if !active.Has(projects.FieldDownloadDate) {
			return ErrFieldNotActive
		}
		store(&asset.DownloadDate)
	case projects.FieldUsage:
		if !active.Has(projects.FieldUsage) {
			return ErrFieldNotActive
		}
		store(&asset.Usage)
	case projects.FieldNotes:
		if !active.Has(projects.FieldNotes) {
			return ErrFieldNotActive
		}
		store(&asset.Notes)
	case projects.FieldTags:
		if !active.Has(projects.FieldTags) {
			return ErrFieldNotActive
		}
		store(&asset.Tags)
	case projects.FieldProof:
		if !active.Has(projects.FieldProof) {
			return ErrFieldNotActive
		}
		store(&asset.ProofRef)
	case "custom_license":
		if !active.Has(projects.FieldLicense) {
			return ErrFieldNotActive
		}
		store(&asset.CustomLicense)
	case LegalAllowCommercial:
		if !active.Has(projects.FieldLegal) {
			return ErrFieldNotActive
		}
		asset.AllowCommercial = licenses.Decision(value)
		asset.markManualEdit(LegalAllowCommercial)
	case LegalAllowModification:
		if !active.Has(projects.FieldLegal) {
			return ErrFieldNotActive
		}
		asset.AllowModification = licenses.Decision(value)
		asset.markManualEdit(LegalAllowModification)
	case LegalRequireAttribution:
		if !active.Has(projects.FieldLegal) {
			return ErrFieldNotActive
		}
		asset.RequireAttribution = licenses.Decision(value)
		asset.markManualEdit(LegalRequireAttribution)
	case LegalAttributionText:
		if !active.Has(projects.FieldLegal) {
			return ErrFieldNotActive
		}
		store(&asset.AttributionText)
		asset.markManualEdit(LegalAttributionText)
	case projects.FieldLicense:
		return fmt.Errorf("assets: license is selected through SetLicense, not SetField")
	default:
		return fmt.Errorf("assets: unknown field key %q", key)
	}

	return nil
}

// Violation is one advisory or fatal finding from Validate.
type Violation struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Advisory bool   `json:"advisory"`
}

// Validate reports problems with the asset. Only an empty name makes the
// record invalid; everything else is advisory.
func Validate(asset *Asset, project *projects.Project, catalog licenses.Catalog) []Violation {
	var violations []Violation

	if strings.TrimSpace(asset.Name) == "" {
		violations = append(violations, Violation{
			Field:   projects.FieldName,
			Message: "asset name must not be empty",
		})
	}

	if asset.Type != nil && *asset.Type != "" && !IsBuiltinType(*asset.Type) && !project.HasCustomType(*asset.Type) {
		violations = append(violations, Violation{
			Field:    projects.FieldType,
			Message:  fmt.Sprintf("unregistered custom type %q", *asset.Type),
			Advisory: true,
		})
	}

	if asset.License != nil && *asset.License != "" {
		if _, known := catalog.Lookup(*asset.License); !known {
			if asset.CustomLicense == nil || strings.TrimSpace(*asset.CustomLicense) == "" {
				violations = append(violations, Violation{
					Field:    projects.FieldLicense,
					Message:  fmt.Sprintf("license %q is not in the catalog and no custom license label is set", *asset.License),
					Advisory: true,
				})
			}
		}
	}

	if asset.SourceURL != nil && *asset.SourceURL != "" {
		url := strings.TrimSpace(*asset.SourceURL)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			violations = append(violations, Violation{
				Field:    projects.FieldSourceURL,
				Message:  "URL does not look valid (missing http:// or https://)",
				Advisory: true,
			})
		}
	}

	return violations
}

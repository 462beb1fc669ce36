package projects

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Project groups tracked assets under one field configuration.
type Project struct {
	ID          uint64         `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Type        *string        `gorm:"size:50" json:"type,omitempty"`
	Usage       *string        `gorm:"size:50" json:"usage,omitempty"`
	Status      *string        `gorm:"size:50" json:"status,omitempty"`
	Notes       *string        `gorm:"type:text" json:"notes,omitempty"`
	FieldConfig datatypes.JSON `gorm:"type:json" json:"field_config,omitempty"`
	CustomTypes datatypes.JSON `gorm:"type:json" json:"custom_types,omitempty"`
	Revision    uint64         `gorm:"not null;default:0" json:"revision"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName names the projects table.
func (Project) TableName() string {
	return "projects"
}

// FieldConfigKeys decodes the stored field configuration verbatim, including
// keys this version does not recognize.
func (p *Project) FieldConfigKeys() []string {
	return decodeStringList(p.FieldConfig)
}

// SetFieldConfig replaces the stored field configuration. Keys are trimmed
// and deduplicated but otherwise stored as given, so configurations written
// by a newer schema survive a round trip. Asset data for now-inactive fields
// is untouched: hiding a field never destroys its stored values.
func (p *Project) SetFieldConfig(keys []string) error {
	encoded, err := encodeStringList(keys)
	if err != nil {
		return err
	}
	p.FieldConfig = encoded
	return nil
}

// CustomTypeList decodes the project's registry of user-defined asset types.
func (p *Project) CustomTypeList() []string {
	return decodeStringList(p.CustomTypes)
}

// SetCustomTypes replaces the custom asset type registry.
func (p *Project) SetCustomTypes(types []string) error {
	encoded, err := encodeStringList(types)
	if err != nil {
		return err
	}
	p.CustomTypes = encoded
	return nil
}

// RegisterCustomType adds a type label to the registry if not yet present.
func (p *Project) RegisterCustomType(label string) error {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return nil
	}
	for _, existing := range p.CustomTypeList() {
		if existing == trimmed {
			return nil
		}
	}
	return p.SetCustomTypes(append(p.CustomTypeList(), trimmed))
}

// HasCustomType reports whether the label is registered for this project.
func (p *Project) HasCustomType(label string) bool {
	for _, existing := range p.CustomTypeList() {
		if existing == label {
			return true
		}
	}
	return false
}

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func encodeStringList(values []string) (datatypes.JSON, error) {
	seen := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}

	encoded, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

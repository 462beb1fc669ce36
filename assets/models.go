package assets

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"keeper_back/licenses"
)

// Builtin asset types. Anything else stored in Type is a user-defined custom
// type, expected in the owning project's registry.
var BuiltinTypes = []string{
	"Image",
	"Sprite",
	"Tileset",
	"Music",
	"SFX",
	"Font",
	"Code",
	"3D-model",
}

// IsBuiltinType reports whether the label is one of the builtin asset types.
func IsBuiltinType(label string) bool {
	for _, builtin := range BuiltinTypes {
		if builtin == label {
			return true
		}
	}
	return false
}

// Asset is one tracked third-party resource owned by a project.
//
// Optional text fields are pointers so the store keeps the distinction
// between never-set and explicitly set to empty, which the soft-hide
// behavior of project field configuration relies on.
type Asset struct {
	ID                 uint64            `gorm:"primaryKey" json:"id"`
	ProjectID          uint64            `gorm:"not null;index" json:"project_id"`
	Name               string            `gorm:"size:200;not null" json:"name"`
	Type               *string           `gorm:"column:asset_type;size:50" json:"type,omitempty"`
	Author             *string           `gorm:"size:200" json:"author,omitempty"`
	SourceURL          *string           `gorm:"size:500" json:"source_url,omitempty"`
	DownloadDate       *string           `gorm:"size:10" json:"download_date,omitempty"`
	License            *string           `gorm:"size:100" json:"license,omitempty"`
	CustomLicense      *string           `gorm:"size:200" json:"custom_license,omitempty"`
	AllowCommercial    licenses.Decision `gorm:"size:16;not null;default:'unspecified'" json:"allow_commercial"`
	AllowModification  licenses.Decision `gorm:"size:16;not null;default:'unspecified'" json:"allow_modification"`
	RequireAttribution licenses.Decision `gorm:"size:16;not null;default:'unspecified'" json:"require_attribution"`
	AttributionText    *string           `gorm:"type:text" json:"attribution_text,omitempty"`
	Usage              *string           `gorm:"size:500" json:"usage,omitempty"`
	Notes              *string           `gorm:"type:text" json:"notes,omitempty"`
	Tags               *string           `gorm:"size:500" json:"tags,omitempty"`
	ProofRef           *string           `gorm:"size:500" json:"proof_ref,omitempty"`
	ManualEdits        datatypes.JSON    `gorm:"type:json" json:"manual_edits,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// TableName names the assets table.
func (Asset) TableName() string {
	return "assets"
}

// ManualEditList decodes the keys of the legal fields the user has edited
// since the last license selection.
func (a *Asset) ManualEditList() []string {
	if len(a.ManualEdits) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(a.ManualEdits, &list); err != nil {
		return nil
	}
	return list
}

// HasManualEdit reports whether the legal field carries an override marker.
func (a *Asset) HasManualEdit(key string) bool {
	for _, existing := range a.ManualEditList() {
		if existing == key {
			return true
		}
	}
	return false
}

func (a *Asset) markManualEdit(key string) {
	if a.HasManualEdit(key) {
		return
	}
	encoded, err := json.Marshal(append(a.ManualEditList(), key))
	if err != nil {
		return
	}
	a.ManualEdits = datatypes.JSON(encoded)
}

func (a *Asset) clearManualEdits() {
	a.ManualEdits = datatypes.JSON("[]")
}

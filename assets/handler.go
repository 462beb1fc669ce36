package assets

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"keeper_back/authorization"
	"keeper_back/events"
	"keeper_back/licenses"
	"keeper_back/projects"
)

// Module serves asset records, the query engine and type statistics.
type Module struct {
	db      *gorm.DB
	catalog licenses.Catalog
	hub     *events.Hub
}

type assetForm struct {
	Name               string  `json:"name" binding:"required"`
	Type               *string `json:"type"`
	Author             *string `json:"author"`
	SourceURL          *string `json:"source_url"`
	DownloadDate       *string `json:"download_date"`
	License            *string `json:"license"`
	CustomLicense      *string `json:"custom_license"`
	AllowCommercial    *string `json:"allow_commercial"`
	AllowModification  *string `json:"allow_modification"`
	RequireAttribution *string `json:"require_attribution"`
	AttributionText    *string `json:"attribution_text"`
	Usage              *string `json:"usage"`
	Notes              *string `json:"notes"`
	Tags               *string `json:"tags"`
	ProofRef           *string `json:"proof_ref"`
}

type assetDTO struct {
	ID                 uint64      `json:"id"`
	ProjectID          uint64      `json:"project_id"`
	Name               string      `json:"name"`
	Type               *string     `json:"type,omitempty"`
	Author             *string     `json:"author,omitempty"`
	SourceURL          *string     `json:"source_url,omitempty"`
	DownloadDate       *string     `json:"download_date,omitempty"`
	License            *string     `json:"license,omitempty"`
	CustomLicense      *string     `json:"custom_license,omitempty"`
	AllowCommercial    *string     `json:"allow_commercial,omitempty"`
	AllowModification  *string     `json:"allow_modification,omitempty"`
	RequireAttribution *string     `json:"require_attribution,omitempty"`
	AttributionText    *string     `json:"attribution_text,omitempty"`
	Usage              *string     `json:"usage,omitempty"`
	Notes              *string     `json:"notes,omitempty"`
	Tags               *string     `json:"tags,omitempty"`
	ProofRef           *string     `json:"proof_ref,omitempty"`
	ManualEdits        []string    `json:"manual_edits,omitempty"`
	Violations         []Violation `json:"violations,omitempty"`
	CreatedAt          int64       `json:"created_at"`
	UpdatedAt          int64       `json:"updated_at"`
}

// RegisterRoutes opens the record store, migrates the assets table and
// mounts the asset endpoints.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, catalog licenses.Catalog, hub *events.Hub) (*Module, error) {
	db, err := openDatabaseFromEnv()
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Asset{}); err != nil {
		return nil, fmt.Errorf("assets: migrate tables: %w", err)
	}

	module := &Module{db: db, catalog: catalog, hub: hub}

	router.GET("/projects/:id/assets", module.handleListAssets)

	projectMutations := router.Group("/projects/:id/assets")
	projectMutations.Use(guard.RequireAuthenticated())
	projectMutations.POST("", module.handleCreateAsset)

	group := router.Group("/assets")
	group.GET("/types", module.handleTypeUsage)
	group.GET("/:id", module.handleGetAsset)
	group.GET("/:id/validate", module.handleValidateAsset)

	mutating := group.Group("")
	mutating.Use(guard.RequireAuthenticated())
	mutating.PUT("/:id", module.handleUpdateAsset)
	mutating.DELETE("/:id", module.handleDeleteAsset)
	mutating.PUT("/:id/license", module.handleSetLicense)
	mutating.PUT("/:id/fields/:key", module.handleSetField)
	mutating.POST("/types/rename", module.handleRenameType)

	return module, nil
}

func (m *Module) fetchAssetByParam(raw string) (*Asset, *projects.Project, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return nil, nil, fmt.Errorf("assets: invalid asset id %q", raw)
	}

	var asset Asset
	if err := m.db.First(&asset, id).Error; err != nil {
		return nil, nil, err
	}

	project, err := projects.Find(m.db, asset.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	return &asset, project, nil
}

func (m *Module) handleListAssets(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || projectID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	project, err := projects.Find(m.db, projectID)
	if err != nil {
		if errors.Is(err, projects.ErrUnknownProject) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		}
		return
	}

	sortKey := strings.TrimSpace(c.Query("sort"))
	if !ValidSortKey(sortKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported sort key %q", sortKey)})
		return
	}

	var records []Asset
	if err := m.db.Where("project_id = ?", projectID).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list assets"})
		return
	}

	ordered := View(records, ViewOptions{SortKey: sortKey, FilterType: c.Query("type")})

	active := projects.ActiveFields(project)
	result := make([]assetDTO, 0, len(ordered))
	for i := range ordered {
		result = append(result, toDTO(&ordered[i], active, nil))
	}

	c.JSON(http.StatusOK, gin.H{"assets": result})
}

func (m *Module) handleCreateAsset(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || projectID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	project, err := projects.Find(m.db, projectID)
	if err != nil {
		if errors.Is(err, projects.ErrUnknownProject) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		}
		return
	}

	var form assetForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset payload"})
		return
	}

	name := strings.TrimSpace(form.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset name is required"})
		return
	}

	asset := Asset{ProjectID: projectID, Name: name}
	if err := m.applyForm(&asset, project, &form); err != nil {
		m.respondFieldError(c, err)
		return
	}

	if err := m.db.Create(&asset).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create asset"})
		return
	}

	m.afterMutation(project, "created", &asset)
	c.JSON(http.StatusCreated, gin.H{"asset": toDTO(&asset, projects.ActiveFields(project), nil)})
}

func (m *Module) handleGetAsset(c *gin.Context) {
	asset, project, err := m.fetchAssetByParam(c.Param("id"))
	if err != nil {
		m.respondFetchError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset": toDTO(asset, projects.ActiveFields(project), nil)})
}

func (m *Module) handleValidateAsset(c *gin.Context) {
	asset, project, err := m.fetchAssetByParam(c.Param("id"))
	if err != nil {
		m.respondFetchError(c, err)
		return
	}

	violations := Validate(asset, project, m.catalog)
	if violations == nil {
		violations = []Violation{}
	}

	c.JSON(http.StatusOK, gin.H{"violations": violations})
}

func (m *Module) handleUpdateAsset(c *gin.Context) {
	asset, project, err := m.fetchAssetByParam(c.Param("id"))
	if err != nil {
		m.respondFetchError(c, err)
		return
	}

	var form assetForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset payload"})
		return
	}

	name := strings.TrimSpace(form.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset name is required"})
		return
	}
	asset.Name = name

	if err := m.applyForm(asset, project, &form); err != nil {
		m.respondFieldError(c, err)
		return
	}

	if err := m.db.Save(asset).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update asset"})
		return
	}

	m.afterMutation(project, "updated", asset)
	c.JSON(http.StatusOK, gin.H{"asset": toDTO(asset, projects.ActiveFields(project), nil)})
}

func (m *Module) handleDeleteAsset(c *gin.Context) {
	asset, project, err := m.fetchAssetByParam(c.Param("id"))
	if err != nil {
		m.respondFetchError(c, err)
		return
	}

	if err := m.db.Delete(&Asset{}, asset.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete asset"})
		return
	}

	m.afterMutation(project, "deleted", asset)
	c.JSON(http.StatusOK, gin.H{"deleted": asset.ID})
}

type setLicenseForm struct {
	License string `json:"license" binding:"required"`
}

func (m *Module) handleSetLicense(c *gin.Context) {
	asset, project, err := m.fetchAssetByParam(c.Param("id"))
	if err != nil {
		m.respondFetchError(c, err)
		return
	}

	var form setLicenseForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid license payload"})
		return
	}

	if err := SetLicense(asset, form.License, m.catalog); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := m.db.Save(asset).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update asset"})
		return
	}

	m.afterMutation(project, "updated", asset)
	c.JSON(http.StatusOK, gin.H{"asset": toDTO(asset, projects.ActiveFields(project), nil)})
}

type setFieldForm struct {
	Value string `json:"value"`
}

func (m *Module) handleSetField(c *gin.Context) {
	asset, project, err := m.fetchAssetByParam(c.Param("id"))
	if err != nil {
		m.respondFetchError(c, err)
		return
	}

	var form setFieldForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field payload"})
		return
	}

	key := c.Param("key")
	if err := SetField(asset, project, key, form.Value); err != nil {
		m.respondFieldError(c, err)
		return
	}

	if key == projects.FieldType {
		if err := m.registerCustomType(project, form.Value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register custom type"})
			return
		}
	}

	if err := m.db.Save(asset).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update asset"})
		return
	}

	m.afterMutation(project, "updated", asset)
	c.JSON(http.StatusOK, gin.H{"asset": toDTO(asset, projects.ActiveFields(project), nil)})
}

// handleTypeUsage reports how often each asset type is used, optionally
// scoped to one project.
func (m *Module) handleTypeUsage(c *gin.Context) {
	query := m.db.Model(&Asset{}).
		Select("asset_type, count(*) as count").
		Where("asset_type IS NOT NULL AND asset_type <> ''").
		Group("asset_type").
		Order("asset_type")

	if raw := strings.TrimSpace(c.Query("project_id")); raw != "" {
		projectID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || projectID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
			return
		}
		query = query.Where("project_id = ?", projectID)
	}

	var rows []struct {
		AssetType string `json:"type" gorm:"column:asset_type"`
		Count     int64  `json:"count"`
	}
	if err := query.Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load type usage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"types": rows})
}

type renameTypeForm struct {
	Old string `json:"old" binding:"required"`
	New string `json:"new" binding:"required"`
}

// handleRenameType renames a type label across every asset, the bulk edit
// for cleaning up custom type spellings.
func (m *Module) handleRenameType(c *gin.Context) {
	var form renameTypeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rename payload"})
		return
	}

	oldType := strings.TrimSpace(form.Old)
	newType := strings.TrimSpace(form.New)
	if oldType == "" || newType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "both old and new type labels are required"})
		return
	}

	result := m.db.Model(&Asset{}).Where("asset_type = ?", oldType).
		UpdateColumn("asset_type", newType)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rename asset type"})
		return
	}

	// Renaming touches assets across projects, so every cached export is
	// potentially stale.
	if err := m.db.Model(&projects.Project{}).Where("1 = 1").
		UpdateColumn("revision", gorm.Expr("revision + 1")).Error; err == nil {
		m.hub.Publish(events.Event{Type: "asset", Action: "updated"})
	}

	c.JSON(http.StatusOK, gin.H{"renamed": result.RowsAffected})
}

// applyForm routes every provided field through the rules engine so the
// project's field configuration and the manual-edit markers apply uniformly.
// The license is applied first: explicit legal values in the same payload
// count as manual overrides of the fresh auto-fill.
func (m *Module) applyForm(asset *Asset, project *projects.Project, form *assetForm) error {
	if form.License != nil {
		active := projects.ActiveFields(project)
		if !active.Has(projects.FieldLicense) {
			return ErrFieldNotActive
		}
		if err := SetLicense(asset, *form.License, m.catalog); err != nil {
			return err
		}
	}

	apply := func(key string, value *string) error {
		if value == nil {
			return nil
		}
		return SetField(asset, project, key, *value)
	}

	steps := []struct {
		key   string
		value *string
	}{
		{projects.FieldType, form.Type},
		{projects.FieldAuthor, form.Author},
		{projects.FieldSourceURL, form.SourceURL},
		{projects.FieldDownloadDate, form.DownloadDate},
		{"custom_license", form.CustomLicense},
		{LegalAllowCommercial, form.AllowCommercial},
		{LegalAllowModification, form.AllowModification},
		{LegalRequireAttribution, form.RequireAttribution},
		{LegalAttributionText, form.AttributionText},
		{projects.FieldUsage, form.Usage},
		{projects.FieldNotes, form.Notes},
		{projects.FieldTags, form.Tags},
		{projects.FieldProof, form.ProofRef},
	}
	for _, step := range steps {
		if err := apply(step.key, step.value); err != nil {
			return fmt.Errorf("%s: %w", step.key, err)
		}
	}

	if form.Type != nil {
		if err := m.registerCustomType(project, *form.Type); err != nil {
			return err
		}
	}

	return nil
}

// registerCustomType records a non-builtin type label in the project's
// registry, the way the original picker added new labels to its combo.
func (m *Module) registerCustomType(project *projects.Project, label string) error {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" || IsBuiltinType(trimmed) || project.HasCustomType(trimmed) {
		return nil
	}
	if err := project.RegisterCustomType(trimmed); err != nil {
		return err
	}
	return m.db.Save(project).Error
}

func (m *Module) afterMutation(project *projects.Project, action string, asset *Asset) {
	if err := projects.BumpRevision(m.db, project.ID); err == nil {
		m.hub.Publish(events.Event{Type: "asset", Action: action, ID: asset.ID, ProjectID: project.ID})
	}
}

func (m *Module) respondFetchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
	case errors.Is(err, projects.ErrUnknownProject):
		c.JSON(http.StatusNotFound, gin.H{"error": "owning project not found"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// respondFieldError maps rules-engine failures to responses. Inactive
// fields, bad license references and unknown keys are all invalid input.
func (m *Module) respondFieldError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// toDTO projects the record through the active field set: inactive fields
// are omitted from the payload entirely while their stored values survive
// untouched in the record store.
func toDTO(asset *Asset, active projects.FieldSet, violations []Violation) assetDTO {
	dto := assetDTO{
		ID:          asset.ID,
		ProjectID:   asset.ProjectID,
		Name:        asset.Name,
		ManualEdits: asset.ManualEditList(),
		Violations:  violations,
		CreatedAt:   asset.CreatedAt.Unix(),
		UpdatedAt:   asset.UpdatedAt.Unix(),
	}

	if active.Has(projects.FieldType) {
		dto.Type = asset.Type
	}
	if active.Has(projects.FieldAuthor) {
		dto.Author = asset.Author
	}
	if active.Has(projects.FieldSourceURL) {
		dto.SourceURL = asset.SourceURL
	}
	if active.Has(projects.FieldDownloadDate) {
		dto.DownloadDate = asset.DownloadDate
	}
	if active.Has(projects.FieldLicense) {
		dto.License = asset.License
		dto.CustomLicense = asset.CustomLicense
	}
	if active.Has(projects.FieldLegal) {
		commercial := asset.AllowCommercial.Label()
		modification := asset.AllowModification.Label()
		attribution := asset.RequireAttribution.Label()
		dto.AllowCommercial = &commercial
		dto.AllowModification = &modification
		dto.RequireAttribution = &attribution
		dto.AttributionText = asset.AttributionText
	}
	if active.Has(projects.FieldUsage) {
		dto.Usage = asset.Usage
	}
	if active.Has(projects.FieldNotes) {
		dto.Notes = asset.Notes
	}
	if active.Has(projects.FieldTags) {
		dto.Tags = asset.Tags
	}
	if active.Has(projects.FieldProof) {
		dto.ProofRef = asset.ProofRef
	}

	return dto
}

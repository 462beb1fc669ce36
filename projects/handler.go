package projects

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"keeper_back/authorization"
	"keeper_back/events"
)

// ErrUnknownProject is returned for operations against a project that does
// not exist; callers surface it instead of silently ignoring the reference.
var ErrUnknownProject = errors.New("projects: unknown project reference")

// Module serves project records and their field configuration.
type Module struct {
	db  *gorm.DB
	hub *events.Hub
}

type projectForm struct {
	Name        string   `json:"name" binding:"required"`
	Type        *string  `json:"type"`
	Usage       *string  `json:"usage"`
	Status      *string  `json:"status"`
	Notes       *string  `json:"notes"`
	FieldConfig []string `json:"field_config"`
	CustomTypes []string `json:"custom_types"`
}

type projectDTO struct {
	ID           uint64   `json:"id"`
	Name         string   `json:"name"`
	Type         *string  `json:"type,omitempty"`
	Usage        *string  `json:"usage,omitempty"`
	Status       *string  `json:"status,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	FieldConfig  []string `json:"field_config"`
	ActiveFields []string `json:"active_fields"`
	CustomTypes  []string `json:"custom_types"`
	AssetCount   int64    `json:"asset_count"`
	Revision     uint64   `json:"revision"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
}

// RegisterRoutes opens the record store, migrates the projects table and
// mounts the CRUD endpoints under /projects.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, hub *events.Hub) (*Module, error) {
	db, err := openDatabaseFromEnv()
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Project{}); err != nil {
		return nil, fmt.Errorf("projects: migrate tables: %w", err)
	}

	module := &Module{db: db, hub: hub}

	group := router.Group("/projects")
	group.GET("", module.handleListProjects)
	group.GET("/:id", module.handleGetProject)

	mutating := group.Group("")
	mutating.Use(guard.RequireAuthenticated())
	mutating.POST("", module.handleCreateProject)
	mutating.PUT("/:id", module.handleUpdateProject)
	mutating.DELETE("/:id", module.handleDeleteProject)

	return module, nil
}

// Find loads a project by id, mapping gorm's not-found to ErrUnknownProject.
func Find(db *gorm.DB, id uint64) (*Project, error) {
	var project Project
	if err := db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownProject
		}
		return nil, err
	}
	return &project, nil
}

// BumpRevision advances the project's revision stamp. Export report caching
// keys off this value, so every mutation touching the project or its assets
// must call it.
func BumpRevision(db *gorm.DB, id uint64) error {
	return db.Model(&Project{}).Where("id = ?", id).
		UpdateColumn("revision", gorm.Expr("revision + 1")).Error
}

func parseProjectID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("projects: invalid project id %q", raw)
	}
	return id, nil
}

func (m *Module) handleListProjects(c *gin.Context) {
	var records []Project
	if err := m.db.Order("lower(name), id").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects"})
		return
	}

	result := make([]projectDTO, 0, len(records))
	for i := range records {
		result = append(result, m.toDTO(&records[i]))
	}

	c.JSON(http.StatusOK, gin.H{"projects": result})
}

func (m *Module) handleGetProject(c *gin.Context) {
	id, err := parseProjectID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	project, err := Find(m.db, id)
	if err != nil {
		if errors.Is(err, ErrUnknownProject) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": m.toDTO(project)})
}

func (m *Module) handleCreateProject(c *gin.Context) {
	var form projectForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project payload"})
		return
	}

	name := strings.TrimSpace(form.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project name is required"})
		return
	}

	project := Project{
		Name:   name,
		Type:   trimOptional(form.Type),
		Usage:  trimOptional(form.Usage),
		Status: trimOptional(form.Status),
		Notes:  trimOptional(form.Notes),
	}

	config := form.FieldConfig
	if len(config) == 0 {
		config = DefaultFieldConfig()
	}
	if err := project.SetFieldConfig(config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field configuration"})
		return
	}
	if err := project.SetCustomTypes(form.CustomTypes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid custom type list"})
		return
	}

	if err := m.db.Create(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		return
	}

	m.hub.Publish(events.Event{Type: "project", Action: "created", ID: project.ID})
	c.JSON(http.StatusCreated, gin.H{"project": m.toDTO(&project)})
}

func (m *Module) handleUpdateProject(c *gin.Context) {
	id, err := parseProjectID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	project, err := Find(m.db, id)
	if err != nil {
		if errors.Is(err, ErrUnknownProject) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		}
		return
	}

	var form projectForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project payload"})
		return
	}

	name := strings.TrimSpace(form.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project name is required"})
		return
	}

	project.Name = name
	project.Type = trimOptional(form.Type)
	project.Usage = trimOptional(form.Usage)
	project.Status = trimOptional(form.Status)
	project.Notes = trimOptional(form.Notes)
	if form.FieldConfig != nil {
		if err := project.SetFieldConfig(form.FieldConfig); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid field configuration"})
			return
		}
	}
	if form.CustomTypes != nil {
		if err := project.SetCustomTypes(form.CustomTypes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid custom type list"})
			return
		}
	}
	project.Revision++

	if err := m.db.Save(project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update project"})
		return
	}

	m.hub.Publish(events.Event{Type: "project", Action: "updated", ID: project.ID})
	c.JSON(http.StatusOK, gin.H{"project": m.toDTO(project)})
}

// handleDeleteProject removes a project and every asset it owns. Deletion is
// destructive, so the caller must acknowledge the cascade with confirm=true,
// the API equivalent of the confirmation dialog.
func (m *Module) handleDeleteProject(c *gin.Context) {
	id, err := parseProjectID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	if !strings.EqualFold(c.Query("confirm"), "true") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project deletion requires confirm=true"})
		return
	}

	if _, err := Find(m.db, id); err != nil {
		if errors.Is(err, ErrUnknownProject) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		}
		return
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM assets WHERE project_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Project{}, id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete project"})
		return
	}

	m.hub.Publish(events.Event{Type: "project", Action: "deleted", ID: id})
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (m *Module) toDTO(project *Project) projectDTO {
	active := ActiveFields(project)
	activeKeys := make([]string, 0, len(active))
	for key := range active {
		activeKeys = append(activeKeys, key)
	}
	sort.Strings(activeKeys)

	var assetCount int64
	if err := m.db.Table("assets").Where("project_id = ?", project.ID).Count(&assetCount).Error; err != nil {
		assetCount = 0
	}

	fieldConfig := project.FieldConfigKeys()
	if fieldConfig == nil {
		fieldConfig = []string{}
	}
	customTypes := project.CustomTypeList()
	if customTypes == nil {
		customTypes = []string{}
	}

	return projectDTO{
		ID:           project.ID,
		Name:         project.Name,
		Type:         project.Type,
		Usage:        project.Usage,
		Status:       project.Status,
		Notes:        project.Notes,
		FieldConfig:  fieldConfig,
		ActiveFields: activeKeys,
		CustomTypes:  customTypes,
		AssetCount:   assetCount,
		Revision:     project.Revision,
		CreatedAt:    project.CreatedAt.Unix(),
		UpdatedAt:    project.UpdatedAt.Unix(),
	}
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

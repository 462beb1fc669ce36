package export

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"keeper_back/assets"
	"keeper_back/cache"
	"keeper_back/projects"
)

// Module renders attribution reports for download.
type Module struct {
	db    *gorm.DB
	cache *reportCache
}

// RegisterRoutes opens the record store and mounts the export endpoint.
func RegisterRoutes(router *gin.Engine) (*Module, error) {
	db, err := openDatabaseFromEnv()
	if err != nil {
		return nil, err
	}

	client, err := cache.GetRedisClient()
	if err != nil {
		// Caching is best effort; a broken Redis only costs re-rendering.
		client = nil
	}

	module := &Module{db: db, cache: newReportCache(client)}

	router.GET("/projects/:id/export", module.handleExport)

	return module, nil
}

// handleExport streams the rendered report. The asset order comes from the
// query engine with the same sort/type parameters the list endpoint takes,
// so an export always matches the view the user is looking at, and repeated
// exports of unchanged data are byte-identical.
func (m *Module) handleExport(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || projectID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	format, err := ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sortKey := strings.TrimSpace(c.Query("sort"))
	if !assets.ValidSortKey(sortKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported sort key %q", sortKey)})
		return
	}
	filterType := c.Query("type")

	project, err := projects.Find(m.db, projectID)
	if err != nil {
		if errors.Is(err, projects.ErrUnknownProject) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		}
		return
	}

	cacheKey := m.cache.key(project.ID, project.Revision, format, sortKey, filterType)
	if report, ok := m.cache.get(c.Request.Context(), cacheKey); ok {
		m.respond(c, project, format, report)
		return
	}

	var records []assets.Asset
	if err := m.db.Where("project_id = ?", projectID).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load assets"})
		return
	}

	ordered := assets.View(records, assets.ViewOptions{SortKey: sortKey, FilterType: filterType})
	report := Render(project, ordered, format)

	m.cache.set(c.Request.Context(), cacheKey, report)
	m.respond(c, project, format, report)
}

func (m *Module) respond(c *gin.Context, project *projects.Project, format Format, report string) {
	filename := fmt.Sprintf("%s-report.%s", sanitizeFilename(project.Name), format.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), []byte(report))
}

func sanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, name)
	if cleaned == "" {
		return "project"
	}
	return cleaned
}

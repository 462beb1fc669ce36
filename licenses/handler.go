package licenses

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Module exposes the license catalog over HTTP for UI combos.
type Module struct {
	catalog Catalog
}

// RegisterRoutes mounts the read-only catalog endpoints under /licenses.
func RegisterRoutes(router *gin.Engine, catalog Catalog) *Module {
	module := &Module{catalog: catalog}

	group := router.Group("/licenses")
	group.GET("", module.handleListLicenses)
	group.GET("/:id", module.handleGetLicense)

	return module
}

func (m *Module) handleListLicenses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"licenses": m.catalog.Entries()})
}

func (m *Module) handleGetLicense(c *gin.Context) {
	entry, builtin := m.catalog.Lookup(c.Param("id"))
	if entry.ID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "license not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"license": entry, "builtin": builtin})
}

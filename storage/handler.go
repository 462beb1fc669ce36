package storage

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"keeper_back/authorization"
)

// Module serves proof attachment uploads and downloads.
type Module struct {
	storage *ProofStorage
}

// RegisterRoutes initialises the proof backend and mounts the endpoints
// under /storage/proofs.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard) (*Module, error) {
	store, err := NewProofStorageFromEnv()
	if err != nil {
		return nil, err
	}

	module := &Module{storage: store}

	group := router.Group("/storage/proofs")
	group.GET("/*ref", module.handleGetProof)

	mutating := group.Group("")
	mutating.Use(guard.RequireAuthenticated())
	mutating.POST("", module.handleUploadProof)

	return module, nil
}

func (m *Module) handleUploadProof(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proof file is required"})
		return
	}

	ref, err := m.storage.SaveProof(c.Request.Context(), fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ref": ref})
}

func (m *Module) handleGetProof(c *gin.Context) {
	ref := c.Param("ref")

	if m.storage.ObjectBacked() {
		url, err := m.storage.PresignedURL(c.Request.Context(), ref, 15*time.Minute)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "proof not found"})
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}

	target, err := m.storage.Resolve(ref)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proof reference"})
		return
	}

	info, err := os.Stat(target)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "proof not found"})
		return
	}

	// Bundle references point at a folder; list its contents instead of
	// streaming a file.
	if info.IsDir() {
		entries, err := os.ReadDir(target)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read proof bundle"})
			return
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, filepath.ToSlash(entry.Name()))
		}
		c.JSON(http.StatusOK, gin.H{"bundle": names})
		return
	}

	c.File(target)
}

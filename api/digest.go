package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/digest"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

// GetDigesters handles GET /api/digest/digesters
func (h *Handlers) GetDigesters(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.DigesterInfo())
}

// GetDigestStats handles GET /api/digest/stats
func (h *Handlers) GetDigestStats(c *gin.Context) {
	stats, err := db.GetDigestStats()
	if err != nil {
		log.Error().Err(err).Msg("failed to get digest stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get digest stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetDigests handles GET /api/digest/file/*path
func (h *Handlers) GetDigests(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Path is required"})
		return
	}

	digests, err := db.ListDigestsForFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to get digests")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get digests"})
		return
	}

	// Build status summary
	status := "done"
	for _, d := range digests {
		if d.Status == db.DigestStatusInProgress {
			status = "processing"
			break
		}
		if d.Status == db.DigestStatusTodo || d.Status == db.DigestStatusFailed {
			status = "pending"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"path":    path,
		"status":  status,
		"digests": digests,
	})
}

// triggerRequest is the body of POST /api/digest/file/*path
type triggerRequest struct {
	Reset    bool   `json:"reset"`
	Digester string `json:"digester"`
}

// TriggerDigest handles POST /api/digest/file/*path. With reset=true the
// file's digests (optionally one digester's) are cleared and recomputed;
// this is the targeted-retry path for permanently failed digests.
func (h *Handlers) TriggerDigest(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Path is required"})
		return
	}

	file, err := db.GetFileByPath(path)
	if err != nil || file == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	var req triggerRequest
	c.ShouldBindJSON(&req) // Empty body means plain trigger

	if req.Digester != "" && h.registry.Get(req.Digester) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown digester"})
		return
	}

	var opts *digest.ProcessOptions
	if req.Reset {
		opts = &digest.ProcessOptions{Reset: true, Digester: req.Digester}
	}

	go func() {
		if err := h.coordinator.Process(context.Background(), path, opts); err != nil {
			log.Error().Err(err).Str("path", path).Msg("triggered digest run failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"path":    path,
		"started": true,
	})
}

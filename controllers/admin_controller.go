package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CacheAdmin interface {
	PurgeCache() int
	CacheSize() int
}

type AdminController struct {
	cache CacheAdmin
	log   *slog.Logger
}

func NewAdminController(cache CacheAdmin, log *slog.Logger) *AdminController {
	return &AdminController{cache: cache, log: log}
}

func (ac *AdminController) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": ac.cache.CacheSize()})
}

// PurgeCache drops every cached catalog page so the next read goes to the
// primary store.
func (ac *AdminController) PurgeCache(c *gin.Context) {
	n := ac.cache.PurgeCache()
	ac.log.InfoContext(c.Request.Context(), "catalog cache purged by admin",
		slog.String("admin", c.GetString("adminSubject")),
		slog.Int("entries", n))
	c.JSON(http.StatusOK, gin.H{"success": true, "purged": n})
}

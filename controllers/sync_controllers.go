package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos-sync/services"
	"github.com/yeremiapane/restaurant-pos-sync/utils"
)

type SyncController struct {
	Engine    *services.SyncEngine
	Cache     *services.EssentialDataCache
	Retention *services.RetentionManager
}

func NewSyncController(engine *services.SyncEngine, cache *services.EssentialDataCache, retention *services.RetentionManager) *SyncController {
	return &SyncController{Engine: engine, Cache: cache, Retention: retention}
}

// GetSyncStatus -> pending badge count, pass state and environment snapshot
func (sc *SyncController) GetSyncStatus(c *gin.Context) {
	pending, err := sc.Engine.PendingCount()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	lastSync, _ := sc.Retention.LastSync(services.DatasetEssential)
	utils.RespondJSON(c, http.StatusOK, "Sync status", gin.H{
		"pending":        pending,
		"running":        sc.Engine.Running(),
		"last_data_sync": lastSync,
		"environment":    sc.Retention.ClassifyEnvironment(),
	})
}

// TriggerSync -> run a reconciliation pass right now (joins a running one)
func (sc *SyncController) TriggerSync(c *gin.Context) {
	count, err := sc.Engine.SyncAll(c.Request.Context())
	if err != nil {
		utils.RespondError(c, http.StatusBadGateway, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sync pass finished", gin.H{"processed": count})
}

// RefreshEssential -> pull reference data, ?force=true bypasses the TTL
func (sc *SyncController) RefreshEssential(c *gin.Context) {
	force := c.Query("force") == "true"
	result, err := sc.Cache.Refresh(c.Request.Context(), force)
	if err != nil {
		utils.RespondError(c, http.StatusBadGateway, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Refresh finished", gin.H{
		"outcome": result.Outcome,
		"items":   result.Items,
	})
}

// GetStorage -> approximate usage figures for the settings screen
func (sc *SyncController) GetStorage(c *gin.Context) {
	usage, err := sc.Retention.StorageUsage()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	breakdown, err := sc.Retention.StorageBreakdown()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Storage usage", gin.H{
		"usage":     usage,
		"breakdown": breakdown,
	})
}

// EvictHistory -> manual retention pass
func (sc *SyncController) EvictHistory(c *gin.Context) {
	evicted, err := sc.Retention.EvictAgedOrders()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Eviction finished", gin.H{"evicted": evicted})
}

package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos-sync/controllers"
	"github.com/yeremiapane/restaurant-pos-sync/services"
	"github.com/yeremiapane/restaurant-pos-sync/store"
)

// SetupRouter wires the local diagnostics/intake surface the POS shell talks
// to. Everything business-facing (menu admin, reports, payments) lives on the
// backend, not here.
func SetupRouter(st *store.Store, engine *services.SyncEngine, cache *services.EssentialDataCache, retention *services.RetentionManager, intake *services.IntakeService) *gin.Engine {
	r := gin.Default()

	syncCtrl := controllers.NewSyncController(engine, cache, retention)
	orderCtrl := controllers.NewOrderController(intake)
	catalogCtrl := controllers.NewCatalogController(cache, st)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/sync/status", syncCtrl.GetSyncStatus)
		api.POST("/sync/now", syncCtrl.TriggerSync)
		api.POST("/catalog/refresh", syncCtrl.RefreshEssential)
		api.GET("/storage", syncCtrl.GetStorage)
		api.POST("/storage/evict", syncCtrl.EvictHistory)

		api.GET("/catalog", catalogCtrl.GetCatalog)
		api.GET("/tables", catalogCtrl.GetTables)
		api.GET("/staff", catalogCtrl.GetStaff)

		api.GET("/cart", catalogCtrl.GetCart)
		api.POST("/cart", catalogCtrl.AddCartLine)
		api.DELETE("/cart", catalogCtrl.ClearCart)

		api.POST("/orders", orderCtrl.CreateOrder)
		api.POST("/shifts/clock-in", orderCtrl.ClockIn)
		api.POST("/shifts/:shift_id/clock-out", orderCtrl.ClockOut)
	}

	return r
}

package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeremiapane/restaurant-pos-sync/models"
	"github.com/yeremiapane/restaurant-pos-sync/services"
	"github.com/yeremiapane/restaurant-pos-sync/store"
	"github.com/yeremiapane/restaurant-pos-sync/utils"
)

// CatalogController serves the cached reference data and the draft cart.
// Everything here reads and writes the local store only, so it works offline.
type CatalogController struct {
	Cache *services.EssentialDataCache
	Store *store.Store
}

func NewCatalogController(cache *services.EssentialDataCache, st *store.Store) *CatalogController {
	return &CatalogController{Cache: cache, Store: st}
}

func (cc *CatalogController) GetCatalog(c *gin.Context) {
	items, err := cc.Cache.Items()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	categories, err := cc.Cache.Categories()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Catalog", gin.H{
		"items":      items,
		"categories": categories,
	})
}

func (cc *CatalogController) GetTables(c *gin.Context) {
	tables, err := cc.Cache.Tables()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tables", tables)
}

func (cc *CatalogController) GetStaff(c *gin.Context) {
	staff, err := cc.Cache.Staff()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Staff", staff)
}

func (cc *CatalogController) GetCart(c *gin.Context) {
	var lines []models.CartLine
	if err := cc.Store.GetAll(&lines); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart", lines)
}

// AddCartLine -> persist a draft line so the cart survives a reload
func (cc *CatalogController) AddCartLine(c *gin.Context) {
	var req struct {
		ItemID    string  `json:"item_id" binding:"required"`
		Quantity  int     `json:"quantity" binding:"required,gt=0"`
		UnitPrice float64 `json:"unit_price" binding:"required"`
		Notes     string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	line := models.CartLine{
		ID:        uuid.NewString(),
		ItemID:    req.ItemID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Notes:     req.Notes,
		UpdatedAt: time.Now().UTC(),
	}
	if err := cc.Store.Put(&line); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Cart line added", line)
}

func (cc *CatalogController) ClearCart(c *gin.Context) {
	if err := cc.Store.Clear(&models.CartLine{}); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart cleared", nil)
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos-sync/services"
	"github.com/yeremiapane/restaurant-pos-sync/utils"
)

type OrderController struct {
	Intake *services.IntakeService
}

func NewOrderController(intake *services.IntakeService) *OrderController {
	return &OrderController{Intake: intake}
}

// CreateOrder -> buffer an order locally; success is immediate regardless of
// connectivity, reconciliation happens in the background
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req services.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Intake.PlaceOrder(req)
	if err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order buffered", order)
}

// ClockIn -> buffer an attendance shift
func (oc *OrderController) ClockIn(c *gin.Context) {
	var req struct {
		StaffID string `json:"staff_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	shift, err := oc.Intake.ClockIn(req.StaffID)
	if err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Shift started", shift)
}

// ClockOut -> close a buffered shift
func (oc *OrderController) ClockOut(c *gin.Context) {
	shiftID := c.Param("shift_id")
	shift, err := oc.Intake.ClockOut(shiftID)
	if err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Shift closed", shift)
}

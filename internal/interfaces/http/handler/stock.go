package handler

import (
	"github.com/gin-gonic/gin"
	postingapp "github.com/salonerp/backend/internal/application/posting"
	"github.com/salonerp/backend/internal/application/stockquery"
	"github.com/salonerp/backend/internal/domain/stock"
	"github.com/salonerp/backend/internal/interfaces/http/dto"
)

// StockHandler handles batch, balance and allocation preview API endpoints
type StockHandler struct {
	BaseHandler
	queries *stockquery.QueryService
	preview *postingapp.PreviewService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(queries *stockquery.QueryService, preview *postingapp.PreviewService) *StockHandler {
	return &StockHandler{
		queries: queries,
		preview: preview,
	}
}

// ===================== Request DTOs =====================

// StockKeyFilter identifies one item at a site in one unit of measure
//
//	@Description	Stock key filter
type StockKeyFilter struct {
	ItemCode string `form:"item_code" binding:"required" example:"SKU-001"`
	SiteCode string `form:"site_code" binding:"required" example:"S01"`
	UOM      string `form:"uom" binding:"required" example:"PCS"`
}

// ExpiringBatchFilter represents filter parameters for the expiring batch list
//
//	@Description	Expiring batch filter
type ExpiringBatchFilter struct {
	SiteCode   string `form:"site_code" binding:"required" example:"S01"`
	WithinDays int    `form:"within_days,omitempty" binding:"omitempty,min=1,max=3650" example:"30"`
}

// PreviewAllocationRequest represents an interactive allocation preview request
//
//	@Description	Allocation preview request
type PreviewAllocationRequest struct {
	ItemCode     string                   `json:"item_code" binding:"required" example:"SKU-001"`
	SiteCode     string                   `json:"site_code" binding:"required" example:"S01"`
	UOM          string                   `json:"uom" binding:"required" example:"PCS"`
	Quantity     float64                  `json:"quantity" binding:"required" example:"10"`
	MovementKind string                   `json:"movement_kind" binding:"required,movementkind" example:"TRANSFER_OUT"`
	BatchNo      string                   `json:"batch_no" example:"B240115"`
	ExpiryDate   string                   `json:"expiry_date" example:"2026-12-31"`
	Manual       *ManualAllocationRequest `json:"manual,omitempty"`
}

// ===================== Handlers =====================

// GetBatches godoc
// @ID           getStockBatches
//
//	@Summary		Get batch snapshot
//	@Description	Get the batch records of an item at a site, in allocation order
//	@Tags			stock
//	@Produce		json
//	@Param			item_code	query		string	true	"Item code"
//	@Param			site_code	query		string	true	"Site code"
//	@Param			uom			query		string	true	"Unit of measure"
//	@Success		200			{object}	dto.Response
//	@Failure		400			{object}	dto.Response
//	@Router			/stock/batches [get]
func (h *StockHandler) GetBatches(c *gin.Context) {
	var filter StockKeyFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	snapshot, err := h.queries.GetBatches(c.Request.Context(), filter.ItemCode, filter.SiteCode, filter.UOM)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, snapshot)
}

// GetBalance godoc
// @ID           getStockBalance
//
//	@Summary		Get running balance
//	@Description	Get the running quantity and cost balance of an item at a site
//	@Tags			stock
//	@Produce		json
//	@Param			item_code	query		string	true	"Item code"
//	@Param			site_code	query		string	true	"Site code"
//	@Param			uom			query		string	true	"Unit of measure"
//	@Success		200			{object}	dto.Response
//	@Failure		400			{object}	dto.Response
//	@Router			/stock/balance [get]
func (h *StockHandler) GetBalance(c *gin.Context) {
	var filter StockKeyFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	balance, err := h.queries.GetBalance(c.Request.Context(), filter.ItemCode, filter.SiteCode, filter.UOM)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// GetExpiringBatches godoc
// @ID           getExpiringBatches
//
//	@Summary		List expiring batches
//	@Description	List batches at a site whose expiry date falls within the given window
//	@Tags			stock
//	@Produce		json
//	@Param			site_code	query		string	true	"Site code"
//	@Param			within_days	query		int		false	"Window in days"	default(30)
//	@Success		200			{object}	dto.Response
//	@Failure		400			{object}	dto.Response
//	@Router			/stock/expiring [get]
func (h *StockHandler) GetExpiringBatches(c *gin.Context) {
	var filter ExpiringBatchFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	batches, err := h.queries.GetExpiringBatches(c.Request.Context(), filter.SiteCode, filter.WithinDays)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batches)
}

// PreviewAllocation godoc
// @ID           previewAllocation
//
//	@Summary		Preview an allocation
//	@Description	Compute the batch allocation a line would get if posted right now
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			request	body		PreviewAllocationRequest	true	"Line to preview"
//	@Success		200		{object}	dto.Response
//	@Failure		400		{object}	dto.Response
//	@Failure		503		{object}	dto.Response
//	@Router			/stock/allocation-preview [post]
func (h *StockHandler) PreviewAllocation(c *gin.Context) {
	var req PreviewAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	expiry, err := parseExpiryDate(req.ExpiryDate)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{{
			Field:   "expiry_date",
			Message: "Expiry date must be formatted as YYYY-MM-DD",
		}})
		return
	}

	preview, err := h.preview.PreviewAllocation(c.Request.Context(), postingapp.PreviewAllocationRequest{
		ItemCode:     req.ItemCode,
		SiteCode:     req.SiteCode,
		UOM:          req.UOM,
		Quantity:     toDecimal(req.Quantity),
		MovementKind: stock.MovementKind(req.MovementKind),
		BatchNo:      req.BatchNo,
		ExpiryDate:   expiry,
		Manual:       toManualInput(req.Manual),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, preview)
}

// RegisterRoutes registers all stock query routes
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stocks := rg.Group("/stock")
	{
		stocks.GET("/batches", h.GetBatches)
		stocks.GET("/balance", h.GetBalance)
		stocks.GET("/expiring", h.GetExpiringBatches)
		stocks.POST("/allocation-preview", h.PreviewAllocation)
	}
}

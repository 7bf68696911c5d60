package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	postingapp "github.com/salonerp/backend/internal/application/posting"
	"github.com/salonerp/backend/internal/domain/stock"
	"github.com/salonerp/backend/internal/interfaces/http/dto"
)

// DocumentHandler handles stock movement document API endpoints
type DocumentHandler struct {
	BaseHandler
	service *postingapp.PostingService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(service *postingapp.PostingService) *DocumentHandler {
	return &DocumentHandler{
		service: service,
	}
}

// ===================== Request/Response DTOs =====================

// CreateDocumentRequest represents a request to open a movement document
//
//	@Description	Create document request
type CreateDocumentRequest struct {
	SiteCode         string `json:"site_code" binding:"required" example:"S01"`
	CounterpartySite string `json:"counterparty_site" example:"S02"`
	MovementKind     string `json:"movement_kind" binding:"required,movementkind" example:"RECEIVE"`
	Remarks          string `json:"remarks" example:"weekly replenishment"`
}

// ManualSelectionRequest represents one row of a user-entered batch split
//
//	@Description	Manual batch selection row
type ManualSelectionRequest struct {
	BatchNo  string  `json:"batch_no" binding:"required" example:"B240115"`
	Quantity float64 `json:"quantity" binding:"required,gt=0" example:"5"`
}

// ManualAllocationRequest represents a manual batch split for a line
//
//	@Description	Manual allocation request
type ManualAllocationRequest struct {
	Selections []ManualSelectionRequest `json:"selections"`
	NoBatchQty float64                  `json:"no_batch_qty" binding:"omitempty,gte=0" example:"2"`
}

// DocumentLineRequest represents one line of a document's working set
//
//	@Description	Document line request
type DocumentLineRequest struct {
	ItemCode   string                   `json:"item_code" binding:"required" example:"SKU-001"`
	UOM        string                   `json:"uom" binding:"required" example:"PCS"`
	Quantity   float64                  `json:"quantity" binding:"required" example:"10"`
	Price      float64                  `json:"price" binding:"omitempty,gte=0" example:"25.50"`
	BatchNo    string                   `json:"batch_no" example:"B240115"`
	ExpiryDate string                   `json:"expiry_date" example:"2026-12-31"`
	Remarks    string                   `json:"remarks"`
	Manual     *ManualAllocationRequest `json:"manual,omitempty"`
}

// SaveLinesRequest represents a request to replace a document's lines
//
//	@Description	Save document lines request
type SaveLinesRequest struct {
	Lines []DocumentLineRequest `json:"lines" binding:"required,dive"`
}

// PostedLineEditRequest represents an amendment to one posted line
//
//	@Description	Posted line edit request
type PostedLineEditRequest struct {
	LineID   string                   `json:"line_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Quantity *float64                 `json:"quantity,omitempty" example:"8"`
	Price    *float64                 `json:"price,omitempty" example:"24.00"`
	Remarks  *string                  `json:"remarks,omitempty"`
	Manual   *ManualAllocationRequest `json:"manual,omitempty"`
}

// EditPostedRequest represents a request to amend a posted document
//
//	@Description	Edit posted document request
type EditPostedRequest struct {
	Edits []PostedLineEditRequest `json:"edits" binding:"required,min=1,dive"`
}

// DocumentListFilter represents filter parameters for the document list
//
//	@Description	Document list filter
type DocumentListFilter struct {
	SiteCode string `form:"site_code" binding:"required" example:"S01"`
	Kind     string `form:"kind" binding:"omitempty,movementkind" example:"RECEIVE"`
	Limit    int    `form:"limit,omitempty" binding:"omitempty,min=1,max=500" example:"50"`
}

func toManualInput(req *ManualAllocationRequest) *postingapp.ManualAllocationInput {
	if req == nil {
		return nil
	}
	manual := &postingapp.ManualAllocationInput{
		Selections: make([]postingapp.ManualSelectionInput, 0, len(req.Selections)),
		NoBatchQty: toDecimal(req.NoBatchQty),
	}
	for _, sel := range req.Selections {
		manual.Selections = append(manual.Selections, postingapp.ManualSelectionInput{
			BatchNo:  sel.BatchNo,
			Quantity: toDecimal(sel.Quantity),
		})
	}
	return manual
}

// ===================== Handlers =====================

// CreateDocument godoc
// @ID           createDocument
//
//	@Summary		Create a movement document
//	@Description	Open a new draft document for the given site and movement kind
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	dto.Response
//	@Failure		400		{object}	dto.Response
//	@Router			/documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	doc, err := h.service.CreateDocument(c.Request.Context(), postingapp.CreateDocumentRequest{
		SiteCode:         req.SiteCode,
		CounterpartySite: req.CounterpartySite,
		MovementKind:     stock.MovementKind(req.MovementKind),
		Remarks:          req.Remarks,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, doc)
}

// GetDocument godoc
// @ID           getDocument
//
//	@Summary		Get a document
//	@Description	Get a document with its lines by ID
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	dto.Response
//	@Failure		404	{object}	dto.Response
//	@Router			/documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	doc, err := h.service.GetDocument(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, doc)
}

// ListDocuments godoc
// @ID           listDocuments
//
//	@Summary		List documents
//	@Description	List documents for a site, newest first, optionally filtered by movement kind
//	@Tags			documents
//	@Produce		json
//	@Param			site_code	query		string	true	"Site code"
//	@Param			kind		query		string	false	"Movement kind"	Enums(RECEIVE, RETURN, TRANSFER_OUT, TRANSFER_IN, ADJUSTMENT)
//	@Param			limit		query		int		false	"Max rows"	default(50)
//	@Success		200			{object}	dto.Response
//	@Failure		400			{object}	dto.Response
//	@Router			/documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	var filter DocumentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	docs, err := h.service.ListDocuments(c.Request.Context(), filter.SiteCode, stock.MovementKind(filter.Kind), filter.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, docs)
}

// SaveLines godoc
// @ID           saveDocumentLines
//
//	@Summary		Save document lines
//	@Description	Replace the working set of lines on a draft or saved document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Document ID"
//	@Param			request	body		SaveLinesRequest	true	"Lines to save"
//	@Success		200		{object}	dto.Response
//	@Failure		400		{object}	dto.Response
//	@Failure		422		{object}	dto.Response
//	@Router			/documents/{id}/lines [put]
func (h *DocumentHandler) SaveLines(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	var req SaveLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	inputs := make([]postingapp.LineInput, 0, len(req.Lines))
	for i, line := range req.Lines {
		expiry, err := parseExpiryDate(line.ExpiryDate)
		if err != nil {
			h.ValidationError(c, []dto.ValidationDetail{{
				Field:   fmt.Sprintf("lines[%d].expiry_date", i),
				Message: "Expiry date must be formatted as YYYY-MM-DD",
			}})
			return
		}
		inputs = append(inputs, postingapp.LineInput{
			ItemCode:   line.ItemCode,
			UOM:        line.UOM,
			Quantity:   toDecimal(line.Quantity),
			Price:      toDecimal(line.Price),
			BatchNo:    line.BatchNo,
			ExpiryDate: expiry,
			Remarks:    line.Remarks,
			Manual:     toManualInput(line.Manual),
		})
	}

	doc, err := h.service.SaveLines(c.Request.Context(), id, inputs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, doc)
}

// Post godoc
// @ID           postDocument
//
//	@Summary		Post a document
//	@Description	Allocate batches, write ledger rows and update balances for every line
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	dto.Response
//	@Failure		404	{object}	dto.Response
//	@Failure		409	{object}	dto.Response
//	@Failure		422	{object}	dto.Response
//	@Router			/documents/{id}/post [post]
func (h *DocumentHandler) Post(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	result, err := h.service.Post(c.Request.Context(), id, getOperator(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// EditPosted godoc
// @ID           editPostedDocument
//
//	@Summary		Amend a posted document
//	@Description	Apply quantity, price or allocation amendments to lines of a posted document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Document ID"
//	@Param			request	body		EditPostedRequest	true	"Line amendments"
//	@Success		200		{object}	dto.Response
//	@Failure		403		{object}	dto.Response
//	@Failure		422		{object}	dto.Response
//	@Router			/documents/{id}/edit [post]
func (h *DocumentHandler) EditPosted(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	var req EditPostedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	edits := make([]postingapp.PostedLineEdit, 0, len(req.Edits))
	for _, e := range req.Edits {
		lineID, err := uuid.Parse(e.LineID)
		if err != nil {
			h.BadRequest(c, "Invalid line ID: "+e.LineID)
			return
		}
		edit := postingapp.PostedLineEdit{
			LineID:  lineID,
			Remarks: e.Remarks,
			Manual:  toManualInput(e.Manual),
		}
		if e.Quantity != nil {
			edit.Quantity = toDecimalPtr(*e.Quantity)
		}
		if e.Price != nil {
			edit.Price = toDecimalPtr(*e.Price)
		}
		edits = append(edits, edit)
	}

	result, err := h.service.EditPosted(c.Request.Context(), id, edits)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// DeleteDocument godoc
// @ID           deleteDocument
//
//	@Summary		Delete a document
//	@Description	Delete an unposted document and its lines
//	@Tags			documents
//	@Produce		json
//	@Param			id	path	string	true	"Document ID"
//	@Success		204
//	@Failure		404	{object}	dto.Response
//	@Failure		422	{object}	dto.Response
//	@Router			/documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	if err := h.service.DeleteDocument(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers all document routes
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	documents := rg.Group("/documents")
	{
		documents.GET("", h.ListDocuments)
		documents.POST("", h.CreateDocument)
		documents.GET("/:id", h.GetDocument)
		documents.DELETE("/:id", h.DeleteDocument)
		documents.PUT("/:id/lines", h.SaveLines)
		documents.POST("/:id/post", h.Post)
		documents.POST("/:id/edit", h.EditPosted)
	}
}

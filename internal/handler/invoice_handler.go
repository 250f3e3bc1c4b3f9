package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academy-manager/academy-api/internal/service"
	"github.com/academy-manager/academy-api/pkg/response"
)

// InvoiceHandler exposes invoice endpoints.
type InvoiceHandler struct {
	invoices *service.InvoiceService
}

// NewInvoiceHandler constructs InvoiceHandler.
func NewInvoiceHandler(invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// List godoc
// @Summary List invoices of an enrollment
// @Tags Invoices
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.invoices.ListByEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, nil)
}

// Create godoc
// @Summary Invoice an enrollment
// @Description taxable_base defaults to the enrollment final price and vat_percentage to 21
// @Tags Invoices
// @Accept json
// @Param id path string true "Enrollment ID"
// @Param payload body service.CreateInvoiceRequest true "Invoice"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if !bindJSON(c, &req, "invoice") {
		return
	}
	invoice, err := h.invoices.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// Get godoc
// @Summary Get invoice
// @Tags Invoices
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	invoicedomain "github.com/smallbiznis/mockpay/internal/invoice/domain"
)

func (s *Server) HandleCreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	key := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
	inv, replayed, err := s.invoiceSvc.Create(c.Request.Context(), req, key)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, s.toCreateResponse(inv))
}

func (s *Server) HandleGetInvoice(c *gin.Context) {
	id, ok := s.invoiceID(c)
	if !ok {
		return
	}

	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func (s *Server) HandleListDeliveries(c *gin.Context) {
	id, ok := s.invoiceID(c)
	if !ok {
		return
	}

	if _, err := s.invoiceSvc.GetByID(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.deliveries.ByInvoice(id)})
}

func (s *Server) invoiceID(c *gin.Context) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) toCreateResponse(inv invoicedomain.Invoice) invoicedomain.CreateInvoiceResponse {
	return invoicedomain.CreateInvoiceResponse{
		ID:          inv.ID,
		Status:      inv.Status,
		Amount:      inv.Amount,
		Currency:    inv.Currency,
		CreatedAt:   inv.CreatedAt,
		WebhookURL:  inv.WebhookURL,
		CheckoutURL: s.profile.Get().CheckoutBaseURL + "/" + inv.ID.String(),
		Metadata:    inv.Metadata,
	}
}

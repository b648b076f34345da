package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/interfaces/http/response"
	"paywatch.backend/internal/usecases"
)

type PaymentRequestHandler struct {
	usecase *usecases.PaymentRequestUsecase
}

func NewPaymentRequestHandler(usecase *usecases.PaymentRequestUsecase) *PaymentRequestHandler {
	return &PaymentRequestHandler{usecase: usecase}
}

type CreatePaymentRequestRequest struct {
	Network          string `json:"network" binding:"required"`
	Asset            string `json:"asset" binding:"required"`
	Amount           string `json:"amount" binding:"required"`
	RecipientAddress string `json:"recipientAddress"`
	Description      string `json:"description"`
}

// CreatePaymentRequest creates a new payment request
// POST /api/v1/payment-requests
func (h *PaymentRequestHandler) CreatePaymentRequest(c *gin.Context) {
	var req CreatePaymentRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	result, err := h.usecase.CreatePaymentRequest(c.Request.Context(), usecases.CreatePaymentRequestInput{
		Network:          req.Network,
		Asset:            req.Asset,
		Amount:           req.Amount,
		RecipientAddress: req.RecipientAddress,
		Description:      req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// GetPaymentRequest returns the payment-page payload for a request
// GET /api/v1/payment-requests/:id
func (h *PaymentRequestHandler) GetPaymentRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request ID"))
		return
	}

	request, err := h.usecase.GetPaymentRequest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			response.Error(c, domainerrors.NotFound("payment request not found"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, request)
}

package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"educore/internal/auth"
	"educore/internal/invoice"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// @Summary      Current wallet balance
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} Wallet
// @Failure      401 {object} api.ErrorResponse
// @Router       /wallet [get]
func (h *Handler) GetWallet(c *gin.Context) {
	schoolID, userID, ok := callerScope(c)
	if !ok {
		return
	}

	w, err := h.service.GetWallet(c.Request.Context(), schoolID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, w)
}

// @Summary      Start a wallet funding payment
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body FundIntentRequest true "Funding intent"
// @Success      201 {object} payment.Intent
// @Failure      400 {object} api.ErrorResponse
// @Router       /wallet/fund-intent [post]
func (h *Handler) CreateFundIntent(c *gin.Context) {
	schoolID, userID, ok := callerScope(c)
	if !ok {
		return
	}

	var req FundIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent, err := h.service.CreateFundingIntent(c.Request.Context(), schoolID, userID, req.AmountKobo, req.Method)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to start payment"})
		return
	}

	c.JSON(http.StatusCreated, intent)
}

// @Summary      Credit the wallet from a completed payment
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body FundRequest true "Funding payload"
// @Success      200 {object} Wallet
// @Failure      400 {object} api.ErrorResponse
// @Failure      402 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /wallet/fund [post]
func (h *Handler) Fund(c *gin.Context) {
	schoolID, userID, ok := callerScope(c)
	if !ok {
		return
	}

	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.service.Fund(c.Request.Context(), schoolID, userID, req.AmountKobo, req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrPaymentNotCompleted), errors.Is(err, ErrPaymentMismatch):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		case errors.Is(err, ErrDuplicateReference):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fund wallet"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "wallet funded",
		"wallet":  w,
	})
}

// @Summary      Pay school fees from the wallet
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body SpendRequest true "Spend payload"
// @Success      200 {object} Wallet
// @Failure      400 {object} api.ErrorResponse
// @Failure      402 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /wallet/spend [post]
func (h *Handler) Spend(c *gin.Context) {
	schoolID, userID, ok := callerScope(c)
	if !ok {
		return
	}

	var req SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.service.Spend(c.Request.Context(), SpendParams{
		SchoolID:    schoolID,
		ParentID:    userID,
		StudentID:   req.StudentID,
		AmountKobo:  req.AmountKobo,
		Description: req.Description,
		InvoiceID:   req.InvoiceID,
	})
	if err != nil {
		var insufficient *InsufficientFundsError
		switch {
		case errors.As(err, &insufficient):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": insufficient.Error()})
		case errors.Is(err, ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrWalletNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
		case errors.Is(err, invoice.ErrInvoiceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		case errors.Is(err, invoice.ErrInvoiceAlreadyPaid):
			c.JSON(http.StatusConflict, gin.H{"error": "invoice already paid"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to pay from wallet"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "payment successful",
		"new_balance_kobo": w.BalanceKobo,
		"wallet":           w,
	})
}

// @Summary      Transfer funds to another parent's wallet
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body TransferRequest true "Transfer payload"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      402 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /wallet/transfer [post]
func (h *Handler) Transfer(c *gin.Context) {
	schoolID, userID, ok := callerScope(c)
	if !ok {
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reference, err := h.service.Transfer(c.Request.Context(), schoolID, userID, req.ToParentID, req.AmountKobo, req.Reason)
	if err != nil {
		var insufficient *InsufficientFundsError
		switch {
		case errors.As(err, &insufficient):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": insufficient.Error()})
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrSameWallet):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrWalletNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to transfer"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "transfer successful",
		"reference": reference,
	})
}

// @Summary      Wallet transaction history, newest first
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        limit query int false "Page size"
// @Success      200 {array} Transaction
// @Router       /wallet/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	schoolID, userID, ok := callerScope(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	txs, err := h.service.ListTransactions(c.Request.Context(), schoolID, userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}

func callerScope(c *gin.Context) (schoolID, userID int, ok bool) {
	userID, ok = auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, 0, false
	}
	schoolID, ok = auth.GetSchoolID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, 0, false
	}
	return schoolID, userID, true
}

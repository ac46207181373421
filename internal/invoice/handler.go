package invoice

import (
	"errors"
	"net/http"
	"strconv"

	"educore/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo *Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// @Summary      Create a fee invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body CreateInvoiceRequest true "Invoice payload"
// @Success      201 {object} Invoice
// @Failure      400 {object} api.ErrorResponse
// @Router       /admin/invoices [post]
func (h *Handler) CreateInvoice(c *gin.Context) {
	schoolID, ok := auth.GetSchoolID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.repo.Create(c.Request.Context(), schoolID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invoice"})
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// @Summary      List invoices for the caller's school
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status query string false "Filter by status (pending, paid)"
// @Param        student_id query int false "Filter by student (required for non-admin callers)"
// @Success      200 {array} Invoice
// @Failure      403 {object} api.ErrorResponse
// @Router       /invoices [get]
func (h *Handler) ListInvoices(c *gin.Context) {
	schoolID, ok := auth.GetSchoolID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if studentParam := c.Query("student_id"); studentParam != "" {
		studentID, err := strconv.Atoi(studentParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "student_id must be an integer"})
			return
		}

		invs, err := h.repo.ListByStudent(c.Request.Context(), schoolID, studentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load invoices"})
			return
		}

		c.JSON(http.StatusOK, invs)
		return
	}

	// The school-wide listing is an admin view; parents query per student.
	if role, _ := auth.GetRole(c); role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "student_id is required"})
		return
	}

	invs, err := h.repo.ListBySchool(c.Request.Context(), schoolID, c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load invoices"})
		return
	}

	c.JSON(http.StatusOK, invs)
}

// @Summary      Fetch one invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        invoiceID path string true "Invoice id"
// @Success      200 {object} Invoice
// @Failure      404 {object} api.ErrorResponse
// @Router       /invoices/{invoiceID} [get]
func (h *Handler) GetInvoice(c *gin.Context) {
	schoolID, ok := auth.GetSchoolID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	inv, err := h.repo.GetByID(c.Request.Context(), schoolID, c.Param("invoiceID"))
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load invoice"})
		return
	}

	c.JSON(http.StatusOK, inv)
}

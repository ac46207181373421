package finance

import (
	"net/http"
	"strconv"
	"time"

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

func parseRange(c *gin.Context) (time.Time, time.Time) {
	from := time.Now().AddDate(0, -1, 0)
	to := time.Now()

	if v := c.Query("from"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			from = parsed
		}
	}
	if v := c.Query("to"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			to = parsed.AddDate(0, 0, 1)
		}
	}

	return from, to
}

// @Summary      School fee transaction feed
// @Tags         finance
// @Security     BearerAuth
// @Produce      json
// @Param        limit query int false "Page size"
// @Param        offset query int false "Page offset"
// @Success      200 {array} FinancialTransaction
// @Router       /admin/finance/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	schoolID, ok := auth.GetSchoolID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	fts, err := h.repo.List(c.Request.Context(), schoolID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, fts)
}

// @Summary      Fee collection totals by day
// @Tags         finance
// @Security     BearerAuth
// @Produce      json
// @Param        from query string false "Start date (YYYY-MM-DD)"
// @Param        to query string false "End date (YYYY-MM-DD)"
// @Success      200 {array} DailySummary
// @Router       /admin/finance/summary/daily [get]
func (h *Handler) DailySummary(c *gin.Context) {
	schoolID, ok := auth.GetSchoolID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	from, to := parseRange(c)

	stats, err := h.repo.SummaryByDay(c.Request.Context(), schoolID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load summary"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary      Fee collection totals by payment method
// @Tags         finance
// @Security     BearerAuth
// @Produce      json
// @Param        from query string false "Start date (YYYY-MM-DD)"
// @Param        to query string false "End date (YYYY-MM-DD)"
// @Success      200 {array} MethodSummary
// @Router       /admin/finance/summary/methods [get]
func (h *Handler) MethodSummary(c *gin.Context) {
	schoolID, ok := auth.GetSchoolID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	from, to := parseRange(c)

	stats, err := h.repo.SummaryByMethod(c.Request.Context(), schoolID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load summary"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

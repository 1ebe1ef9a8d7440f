package main

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"worktrack/models"
	"worktrack/pkg/auth"
	"worktrack/pkg/calendar"
	"worktrack/pkg/dberr"
	"worktrack/pkg/events"
	"worktrack/pkg/logx"
)

const (
	ctxUserID   = "userId"
	ctxUsername = "username"
	ctxEmail    = "email"
	maxPageSize = 100
)

func setupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/health", healthHandler)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", registerHandler)
	authGroup.POST("/login", loginHandler)
	authGroup.POST("/refresh", refreshHandler)
	authGroup.POST("/revoke", revokeRefreshHandler)
	authGroup.GET("/profile", jwtAuthMiddleware(), profileHandler)
	authGroup.PUT("/hourly-rate", jwtAuthMiddleware(), hourlyRateHandler)

	work := api.Group("/work", jwtAuthMiddleware())
	work.GET("/schedule", getScheduleHandler)
	work.PUT("/schedule", updateScheduleHandler)
	work.GET("/days", listWorkDaysHandler)
	work.POST("/days", createWorkDayHandler)
	work.PUT("/days/:id", updateWorkDayHandler)
	work.PATCH("/days/:id/payment", updatePaymentHandler)
	work.DELETE("/days/:id", deleteWorkDayHandler)
	work.GET("/stats/monthly", workMonthlyStatsHandler)
	work.POST("/schedule/bulk", bulkScheduleHandler)
	work.POST("/schedule", scheduleDayHandler)
	work.DELETE("/schedule/:date", unscheduleDayHandler)
	work.POST("/schedule/skip/:date", skipDayHandler)
	work.DELETE("/schedule/skip/:date", unskipDayHandler)
	work.GET("/calendar/monthly", monthlyCalendarHandler)
	work.GET("/tips/summary", tipsSummaryHandler)
	work.GET("/payment/summary", paymentSummaryHandler)

	exp := api.Group("/expenses", jwtAuthMiddleware())
	exp.GET("", listExpensesHandler)
	exp.POST("", createExpenseHandler)
	exp.GET("/categories", expenseCategoriesHandler)
	exp.GET("/summary/monthly", expenseMonthlySummaryHandler)
	exp.GET("/summary/category", expenseCategorySummaryHandler)
	exp.PUT("/:id", updateExpenseHandler)
	exp.DELETE("/:id", deleteExpenseHandler)
	exp.POST("/:id/receipt", uploadReceiptHandler)
	exp.GET("/:id/receipts", listReceiptsHandler)

	dash := api.Group("/dashboard", jwtAuthMiddleware())
	dash.GET("", dashboardHandler)
	dash.GET("/overview", dashboardOverviewHandler)
	dash.GET("/year-overview", yearOverviewHandler)
	dash.GET("/upcoming-schedule", upcomingScheduleHandler)

	goals := api.Group("/goals", jwtAuthMiddleware())
	goals.GET("", listGoalsHandler)
	goals.GET("/stats/overview", goalStatsHandler)
	goals.GET("/shared", sharedGoalsHandler)
	goals.GET("/:id", getGoalHandler)
	goals.POST("", createGoalHandler)
	goals.PUT("/:id", updateGoalHandler)
	goals.DELETE("/:id", deleteGoalHandler)
	goals.POST("/:id/progress", addGoalProgressHandler)
	goals.POST("/:id/milestones", addMilestoneHandler)
	goals.DELETE("/milestones/:milestoneId", deleteMilestoneHandler)
	goals.POST("/:id/share", shareGoalHandler)
	goals.POST("/:id/support", addSupportHandler)
	goals.GET("/:id/support", listSupportHandler)

	cal := api.Group("/calendar", jwtAuthMiddleware())
	cal.GET("/events", listEventsHandler)
	cal.GET("/events/date/:date", eventsByDateHandler)
	cal.POST("/events", createEventHandler)
	cal.PUT("/events/:id", updateEventHandler)
	cal.DELETE("/events/:id", deleteEventHandler)
	cal.PATCH("/events/:id/status", updateEventStatusHandler)
	cal.GET("/stats", eventStatsHandler)

	cust := api.Group("/customization", jwtAuthMiddleware())
	cust.GET("/dashboard-settings", getDashboardSettingsHandler)
	cust.PUT("/dashboard-settings", updateDashboardSettingsHandler)
	cust.GET("/custom-fields", listCustomFieldsHandler)
	cust.POST("/custom-fields", createCustomFieldHandler)
	cust.PUT("/custom-fields/:id", updateCustomFieldHandler)
	cust.DELETE("/custom-fields/:id", deleteCustomFieldHandler)
	cust.GET("/custom-field-values/:recordType/:recordId", listCustomFieldValuesHandler)
	cust.POST("/custom-field-values", saveCustomFieldValueHandler)
	cust.GET("/preferences", getPreferencesHandler)
	cust.POST("/preferences", savePreferenceHandler)
	cust.GET("/dashboard-widgets", listWidgetsHandler)
	cust.POST("/dashboard-widgets", saveWidgetHandler)
	cust.DELETE("/dashboard-widgets/:id", deleteWidgetHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
}

// jwtAuthMiddleware requires a valid bearer token. A missing header is 401,
// a bad or expired token is 403.
func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxEmail, claims.Email)
		c.Next()
	}
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint(ctxUserID)
}

func healthHandler(c *gin.Context) {
	env := "development"
	port := "8081"
	if cfg != nil {
		env = cfg.Environment
		port = cfg.Port
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"port":        port,
		"environment": env,
		"hostname":    hostname(),
	})
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func respondNotFound(c *gin.Context, resource string) {
	respondError(c, http.StatusNotFound, resource+" not found")
}

// respondInternal logs err and hides it from the client.
func respondInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	logx.FromGin(c).ErrorContext(c.Request.Context(), "Request failed", logx.FieldError, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong!"})
}

// bindJSON decodes and validates the body, writing the 400 response itself
// when it fails.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

var errInvalidID = errors.New("invalid id")

// paramID reads a positive integer path parameter. It writes 404 for
// malformed ids so they behave like unknown rows.
func paramID(c *gin.Context, name, resource string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		_ = c.Error(errInvalidID)
		respondNotFound(c, resource)
		return 0, false
	}
	return uint(v), true
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// parsePaging reads page and limit query values. limit is capped at maxPageSize.
func parsePaging(c *gin.Context, defaultLimit int) pagination {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return pagination{Page: page, Limit: limit}
}

func (p pagination) offset() int {
	return (p.Page - 1) * p.Limit
}

func (p pagination) withTotal(total int64) pagination {
	p.Total = total
	p.TotalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return p
}

func isNotFound(err error) bool {
	return dberr.IsNotFound(err)
}

// emit publishes a domain event for the request. Failures are logged only.
func emit(c *gin.Context, eventType string, userID uint, payload any) {
	events.Emit(c.Request.Context(), publisher, logx.FromGin(c), eventType, userID, payload)
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		respondBindError(c, err)
		return false
	}
	return true
}

// dateParam reads a YYYY-MM-DD path parameter.
func dateParam(c *gin.Context, name string) (models.Date, bool) {
	d, err := models.ParseDate(c.Param(name))
	if err != nil {
		respondFieldError(c, name, "must be a valid date (YYYY-MM-DD)")
		return models.Date{}, false
	}
	return d, true
}

// monthQuery reads the month and year query values, defaulting to the
// current month.
func monthQuery(c *gin.Context) (calendar.Month, bool) {
	m, err := calendar.ParseMonth(c.Query("month"), c.Query("year"), time.Now())
	if err != nil {
		field := "month"
		if errors.Is(err, calendar.ErrInvalidYear) {
			field = "year"
		}
		respondFieldError(c, field, err.Error())
		return calendar.Month{}, false
	}
	return m, true
}

// monthFilter reads an optional month filter for list endpoints. The filter
// applies only when both month and year are present.
func monthFilter(c *gin.Context) (m calendar.Month, apply, ok bool) {
	if c.Query("month") == "" || c.Query("year") == "" {
		return calendar.Month{}, false, true
	}
	m, ok = monthQuery(c)
	return m, ok, ok
}

func yearQuery(c *gin.Context) (int, bool) {
	y, err := calendar.ParseYear(c.Query("year"), time.Now())
	if err != nil {
		respondFieldError(c, "year", err.Error())
		return 0, false
	}
	return y, true
}

// inRange restricts column to [start, end).
func inRange(q *gorm.DB, column string, start, end models.Date) *gorm.DB {
	return q.Where(column+" >= ? AND "+column+" < ?", start, end)
}

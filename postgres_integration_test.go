package main

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/models"
	"worktrack/pkg/config"
	"worktrack/pkg/events"
	"worktrack/pkg/logx"
	"worktrack/pkg/receipt"
)

// TestPostgresFlow runs against a real database. It is opt-in: set
// DB_DSN_TEST=1 and DB_DSN to a disposable Postgres database.
func TestPostgresFlow(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("postgres integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	dsn := os.Getenv("DB_DSN")
	require.NotEmpty(t, dsn, "DB_DSN must be set")

	gin.SetMode(gin.TestMode)
	logger = logx.Discard()
	cfg = &config.Config{
		Environment:      "test",
		Port:             "8081",
		DBDSN:            dsn,
		DBAutoMigrate:    true,
		DBMaxOpenConns:   5,
		DBMaxIdleConns:   2,
		JWTSecret:        "test-secret",
		JWTTTL:           time.Hour,
		RefreshTokenTTL:  time.Hour,
		BcryptCost:       4,
		UploadBase:       t.TempDir(),
		OCRMinConfidence: 0.15,
	}
	require.NoError(t, initDB(cfg))
	initServices(cfg)
	publisher = events.Nop{}
	extractor = receipt.NewExtractor(fakeTextReader{text: "TOTAL $9.99"})
	limiter = nil
	r := newRouter()

	name := fmt.Sprintf("pg%d", time.Now().UnixNano())
	s := registerUser(t, r, name)

	resp := doJSON(t, r, http.MethodPost, "/api/work/days", s.Token, map[string]any{
		"workDate": "2024-02-29", "hoursWorked": 7.25, "tipsAmount": 4.5, "startTime": "08:00",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	resp = doJSON(t, r, http.MethodPost, "/api/work/days", s.Token, map[string]any{"workDate": "2024-02-29", "hoursWorked": 1})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = performRequest(r, http.MethodGet, "/api/work/calendar/monthly?month=2&year=2024", nil, s.Token, "")
	require.Equal(t, http.StatusOK, resp.Code)
	days := decode[[]map[string]any](t, resp)
	require.Len(t, days, 1)
	assert.Equal(t, "2024-02-29", days[0]["work_date"])

	resp = doJSON(t, r, http.MethodPost, "/api/customization/custom-fields", s.Token, map[string]any{
		"field_name": "client", "field_type": "select", "field_label": "Client", "field_options": []string{"A", "B"},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	fields := decode[[]models.CustomField](t, performRequest(r, http.MethodGet, "/api/customization/custom-fields", nil, s.Token, ""))
	require.Len(t, fields, 1)
	assert.JSONEq(t, `["A","B"]`, string(fields[0].FieldOptions))

	id := createGoal(t, r, s.Token, map[string]any{"title": "Fund", "target_amount": 100, "target_date": "2030-01-01"})
	resp = doJSON(t, r, http.MethodPost, idPath("/api/goals", id)+"/progress", s.Token, map[string]any{"amount": 40})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.EqualValues(t, 40, decode[map[string]any](t, resp)["current_amount"])
}

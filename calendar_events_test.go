package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/models"
)

type eventView struct {
	ID        uint     `json:"id"`
	Title     string   `json:"title"`
	EventType string   `json:"event_type"`
	StartDate string   `json:"start_date"`
	EndDate   *string  `json:"end_date"`
	StartTime *string  `json:"start_time"`
	Priority  string   `json:"priority"`
	Status    string   `json:"status"`
	Color     string   `json:"color"`
	Attendees []string `json:"attendees"`
}

func createEvent(t *testing.T, r http.Handler, token string, body map[string]any) eventView {
	t.Helper()
	resp := doJSON(t, r, http.MethodPost, "/api/calendar/events", token, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[struct {
		Event eventView `json:"event"`
	}](t, resp).Event
}

func listEvents(t *testing.T, r http.Handler, token, path string) []eventView {
	t.Helper()
	resp := performRequest(r, http.MethodGet, path, nil, token, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decode[struct {
		Events []eventView `json:"events"`
	}](t, resp).Events
}

func TestCalendarEventsFlow(t *testing.T) {
	r, _ := setupTestServer(t)
	s := registerUser(t, r, "organizer")

	standup := createEvent(t, r, s.Token, map[string]any{
		"title": "Standup", "event_type": "meeting", "start_date": "2024-06-10", "start_time": "9:30",
		"attendees": []string{"sam@example.com"},
	})
	assert.Equal(t, "medium", standup.Priority)
	assert.Equal(t, "pending", standup.Status)
	assert.Equal(t, models.DefaultEventColor, standup.Color)
	require.NotNil(t, standup.EndDate)
	assert.Equal(t, "2024-06-10", *standup.EndDate)
	require.NotNil(t, standup.StartTime)
	assert.Equal(t, "09:30", *standup.StartTime)
	assert.Equal(t, []string{"sam@example.com"}, standup.Attendees)

	allDay := createEvent(t, r, s.Token, map[string]any{
		"title": "Offsite", "event_type": "work", "start_date": "2024-06-10", "end_date": "2024-06-11", "is_all_day": true,
	})
	assert.Empty(t, allDay.Attendees)
	todo := createEvent(t, r, s.Token, map[string]any{
		"title": "File taxes", "event_type": "todo", "start_date": "2024-06-03", "priority": "urgent",
	})
	createEvent(t, r, s.Token, map[string]any{
		"title": "Dentist", "event_type": "appointment", "start_date": "2024-07-01",
	})

	t.Run("validation", func(t *testing.T) {
		resp := doJSON(t, r, http.MethodPost, "/api/calendar/events", s.Token, map[string]any{
			"title": "Bad", "event_type": "party", "start_date": "2024-06-10",
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = doJSON(t, r, http.MethodPost, "/api/calendar/events", s.Token, map[string]any{
			"title": "Backwards", "event_type": "todo", "start_date": "2024-06-10", "end_date": "2024-06-09",
		})
		require.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Body.String(), "end_date")

		resp = doJSON(t, r, http.MethodPost, "/api/calendar/events", s.Token, map[string]any{
			"title": "   ", "event_type": "todo", "start_date": "2024-06-10",
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("list is ordered", func(t *testing.T) {
		list := listEvents(t, r, s.Token, "/api/calendar/events?month=6&year=2024")
		require.Len(t, list, 3)
		assert.Equal(t, []uint{todo.ID, allDay.ID, standup.ID}, []uint{list[0].ID, list[1].ID, list[2].ID})

		assert.Len(t, listEvents(t, r, s.Token, "/api/calendar/events"), 4)
		assert.Len(t, listEvents(t, r, s.Token, "/api/calendar/events/date/2024-06-10"), 2)

		resp := performRequest(r, http.MethodGet, "/api/calendar/events/date/june", nil, s.Token, "")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("partial update", func(t *testing.T) {
		path := idPath("/api/calendar/events", standup.ID)
		resp := doJSON(t, r, http.MethodPut, path, s.Token, map[string]any{"location": "Room 4", "priority": "high"})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		ev := decode[struct {
			Event eventView `json:"event"`
		}](t, resp).Event
		assert.Equal(t, "Standup", ev.Title)
		assert.Equal(t, "high", ev.Priority)
		assert.Equal(t, []string{"sam@example.com"}, ev.Attendees)

		resp = doJSON(t, r, http.MethodPut, path, s.Token, map[string]any{"end_date": "2024-06-01"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = doJSON(t, r, http.MethodPut, "/api/calendar/events/9999", s.Token, map[string]any{"title": "x"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("status and stats", func(t *testing.T) {
		path := idPath("/api/calendar/events", todo.ID) + "/status"
		resp := doJSON(t, r, http.MethodPatch, path, s.Token, map[string]any{"status": "completed"})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		resp = doJSON(t, r, http.MethodPatch, path, s.Token, map[string]any{"status": "done"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = performRequest(r, http.MethodGet, "/api/calendar/stats?month=6&year=2024", nil, s.Token, "")
		require.Equal(t, http.StatusOK, resp.Code)
		body := decode[struct {
			Stats   []eventCount `json:"stats"`
			Summary eventSummary `json:"summary"`
		}](t, resp)
		assert.Equal(t, 3, body.Summary.TotalEvents)
		assert.Equal(t, 1, body.Summary.CompletedTodos)
		assert.Len(t, body.Stats, 3)
	})

	t.Run("delete", func(t *testing.T) {
		path := idPath("/api/calendar/events", allDay.ID)
		other := registerUser(t, r, "peeker")
		assert.Equal(t, http.StatusNotFound, performRequest(r, http.MethodDelete, path, nil, other.Token, "").Code)
		assert.Equal(t, http.StatusOK, performRequest(r, http.MethodDelete, path, nil, s.Token, "").Code)
		assert.Equal(t, http.StatusNotFound, performRequest(r, http.MethodDelete, path, nil, s.Token, "").Code)
	})
}

func TestSummarizeEvents(t *testing.T) {
	today := models.NewDate(2024, 6, 10)
	list := []models.CalendarEvent{
		{EventType: "todo", Status: "completed", Priority: "high", StartDate: today.AddDays(-3)},
		{EventType: "todo", Status: "completed", Priority: "high", StartDate: today},
		{EventType: "todo", Status: "pending", Priority: "low", StartDate: today.AddDays(7)},
		{EventType: "meeting", Status: "pending", Priority: "medium", StartDate: today.AddDays(8)},
	}
	groups, sum := summarizeEvents(list, today)
	assert.Equal(t, eventSummary{TotalEvents: 4, CompletedTodos: 2, UpcomingDeadlines: 2}, sum)
	require.Len(t, groups, 3)
	assert.Equal(t, eventCount{EventType: "meeting", Status: "pending", Priority: "medium", Count: 1}, groups[0])
	assert.Equal(t, eventCount{EventType: "todo", Status: "completed", Priority: "high", Count: 2}, groups[1])
}

func TestSortEventsPutsUntimedFirst(t *testing.T) {
	nine, eight := "09:00", "08:00"
	d := models.NewDate(2024, 1, 2)
	list := []models.CalendarEvent{
		{ID: 1, StartDate: d, StartTime: &nine},
		{ID: 2, StartDate: d},
		{ID: 3, StartDate: d, StartTime: &eight},
		{ID: 4, StartDate: d.AddDays(-1), StartTime: &nine},
	}
	sortEvents(list)
	var ids []uint
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []uint{4, 2, 3, 1}, ids)
}

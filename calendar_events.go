package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"worktrack/models"
)

type eventRequest struct {
	Title           string   `json:"title" binding:"required,max=255"`
	Description     string   `json:"description"`
	EventType       string   `json:"event_type" binding:"required,oneof=todo meeting reminder work personal appointment"`
	StartDate       string   `json:"start_date" binding:"required,isodate"`
	EndDate         string   `json:"end_date" binding:"omitempty,isodate"`
	StartTime       *string  `json:"start_time" binding:"omitempty,hhmm"`
	EndTime         *string  `json:"end_time" binding:"omitempty,hhmm"`
	IsAllDay        bool     `json:"is_all_day"`
	Priority        string   `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status          string   `json:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	ReminderMinutes *int     `json:"reminder_minutes" binding:"omitempty,gte=0"`
	Location        string   `json:"location" binding:"max=255"`
	Attendees       []string `json:"attendees" binding:"omitempty,dive,max=255"`
	Color           string   `json:"color" binding:"omitempty,hexcolor6"`
}

// eventPatch is a partial update; nil fields are left unchanged.
type eventPatch struct {
	Title           *string   `json:"title" binding:"omitempty,min=1,max=255"`
	Description     *string   `json:"description"`
	EventType       *string   `json:"event_type" binding:"omitempty,oneof=todo meeting reminder work personal appointment"`
	StartDate       *string   `json:"start_date" binding:"omitempty,isodate"`
	EndDate         *string   `json:"end_date" binding:"omitempty,isodate"`
	StartTime       *string   `json:"start_time" binding:"omitempty,hhmm"`
	EndTime         *string   `json:"end_time" binding:"omitempty,hhmm"`
	IsAllDay        *bool     `json:"is_all_day"`
	Priority        *string   `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status          *string   `json:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	ReminderMinutes *int      `json:"reminder_minutes" binding:"omitempty,gte=0"`
	Location        *string   `json:"location" binding:"omitempty,max=255"`
	Attendees       *[]string `json:"attendees" binding:"omitempty,dive,max=255"`
	Color           *string   `json:"color" binding:"omitempty,hexcolor6"`
}

func encodeAttendees(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return string(b)
}

// sortEvents orders by start date, all-day entries without a time first.
func sortEvents(list []models.CalendarEvent) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		at, bt := "", ""
		if a.StartTime != nil {
			at = *a.StartTime
		}
		if b.StartTime != nil {
			bt = *b.StartTime
		}
		if at != bt {
			return at < bt
		}
		return a.ID < b.ID
	})
}

func listEventsHandler(c *gin.Context) {
	q := db.WithContext(c.Request.Context()).Where("user_id = ?", currentUserID(c))
	m, filter, ok := monthFilter(c)
	if !ok {
		return
	}
	if filter {
		q = inRange(q, "start_date", m.Start(), m.End())
	}
	list := []models.CalendarEvent{}
	if err := q.Find(&list).Error; err != nil {
		respondInternal(c, err)
		return
	}
	sortEvents(list)
	c.JSON(http.StatusOK, gin.H{"events": list})
}

func eventsByDateHandler(c *gin.Context) {
	d, ok := dateParam(c, "date")
	if !ok {
		return
	}
	list := []models.CalendarEvent{}
	err := db.WithContext(c.Request.Context()).
		Where("user_id = ? AND start_date = ?", currentUserID(c), d).
		Find(&list).Error
	if err != nil {
		respondInternal(c, err)
		return
	}
	sortEvents(list)
	c.JSON(http.StatusOK, gin.H{"events": list})
}

func createEventHandler(c *gin.Context) {
	var req eventRequest
	if !bindJSON(c, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		respondFieldError(c, "title", "title is required")
		return
	}
	start, _ := models.ParseDate(req.StartDate)
	end := start
	if req.EndDate != "" {
		end, _ = models.ParseDate(req.EndDate)
	}
	if end.Before(start) {
		respondFieldError(c, "end_date", "must not be before start_date")
		return
	}
	e := models.CalendarEvent{
		UserID:          currentUserID(c),
		Title:           title,
		Description:     req.Description,
		EventType:       req.EventType,
		StartDate:       start,
		EndDate:         &end,
		StartTime:       normalizeTime(req.StartTime),
		EndTime:         normalizeTime(req.EndTime),
		IsAllDay:        req.IsAllDay,
		Priority:        req.Priority,
		Status:          req.Status,
		ReminderMinutes: req.ReminderMinutes,
		Location:        req.Location,
		Attendees:       encodeAttendees(req.Attendees),
		Color:           req.Color,
	}
	if e.Priority == "" {
		e.Priority = "medium"
	}
	if e.Status == "" {
		e.Status = "pending"
	}
	if e.Color == "" {
		e.Color = models.DefaultEventColor
	}
	if err := db.WithContext(c.Request.Context()).Create(&e).Error; err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Event created successfully", "event": e})
}

// findEvent loads an event owned by the caller, writing 404 otherwise.
func findEvent(c *gin.Context) (models.CalendarEvent, bool) {
	id, ok := paramID(c, "id", "Event")
	if !ok {
		return models.CalendarEvent{}, false
	}
	var e models.CalendarEvent
	err := db.WithContext(c.Request.Context()).Where("id = ? AND user_id = ?", id, currentUserID(c)).First(&e).Error
	if err != nil {
		if isNotFound(err) {
			respondNotFound(c, "Event")
		} else {
			respondInternal(c, err)
		}
		return models.CalendarEvent{}, false
	}
	return e, true
}

// apply merges the patch into e and returns the changed columns.
func (p eventPatch) apply(e *models.CalendarEvent) map[string]any {
	set := map[string]any{}
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
		set["title"] = e.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
		set["description"] = e.Description
	}
	if p.EventType != nil {
		e.EventType = *p.EventType
		set["event_type"] = e.EventType
	}
	if p.StartDate != nil {
		e.StartDate, _ = models.ParseDate(*p.StartDate)
		set["start_date"] = e.StartDate
	}
	if p.EndDate != nil {
		d, _ := models.ParseDate(*p.EndDate)
		e.EndDate = &d
		set["end_date"] = d
	}
	if p.StartTime != nil {
		e.StartTime = normalizeTime(p.StartTime)
		set["start_time"] = e.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = normalizeTime(p.EndTime)
		set["end_time"] = e.EndTime
	}
	if p.IsAllDay != nil {
		e.IsAllDay = *p.IsAllDay
		set["is_all_day"] = e.IsAllDay
	}
	if p.Priority != nil {
		e.Priority = *p.Priority
		set["priority"] = e.Priority
	}
	if p.Status != nil {
		e.Status = *p.Status
		set["status"] = e.Status
	}
	if p.ReminderMinutes != nil {
		e.ReminderMinutes = p.ReminderMinutes
		set["reminder_minutes"] = *p.ReminderMinutes
	}
	if p.Location != nil {
		e.Location = *p.Location
		set["location"] = e.Location
	}
	if p.Attendees != nil {
		e.Attendees = encodeAttendees(*p.Attendees)
		set["attendees"] = e.Attendees
	}
	if p.Color != nil {
		e.Color = *p.Color
		set["color"] = e.Color
	}
	return set
}

func updateEventHandler(c *gin.Context) {
	e, ok := findEvent(c)
	if !ok {
		return
	}
	var patch eventPatch
	if !bindJSON(c, &patch) {
		return
	}
	set := patch.apply(&e)
	if e.Title == "" {
		respondFieldError(c, "title", "title is required")
		return
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		respondFieldError(c, "end_date", "must not be before start_date")
		return
	}
	if len(set) > 0 {
		if err := db.WithContext(c.Request.Context()).Model(&e).Updates(set).Error; err != nil {
			respondInternal(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event updated successfully", "event": e})
}

func deleteEventHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Event")
	if !ok {
		return
	}
	res := db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, currentUserID(c)).
		Delete(&models.CalendarEvent{})
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}

func updateEventStatusHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Event")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required,oneof=pending in_progress completed cancelled"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res := db.WithContext(c.Request.Context()).Model(&models.CalendarEvent{}).
		Where("id = ? AND user_id = ?", id, currentUserID(c)).
		Update("status", req.Status)
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event status updated successfully"})
}

type eventCount struct {
	EventType string `json:"event_type"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	Count     int    `json:"count"`
}

type eventSummary struct {
	TotalEvents       int `json:"total_events"`
	CompletedTodos    int `json:"completed_todos"`
	UpcomingDeadlines int `json:"upcoming_deadlines"`
}

// summarizeEvents groups events by type, status and priority. Upcoming
// counts events starting between today and a week from today inclusive.
func summarizeEvents(list []models.CalendarEvent, today models.Date) ([]eventCount, eventSummary) {
	type key struct{ t, s, p string }
	idx := map[key]int{}
	groups := []eventCount{}
	var sum eventSummary
	horizon := today.AddDays(7)
	for _, e := range list {
		k := key{e.EventType, e.Status, e.Priority}
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, eventCount{EventType: e.EventType, Status: e.Status, Priority: e.Priority})
		}
		groups[i].Count++
		sum.TotalEvents++
		if e.EventType == "todo" && e.Status == "completed" {
			sum.CompletedTodos++
		}
		if !e.StartDate.Before(today) && !e.StartDate.After(horizon) {
			sum.UpcomingDeadlines++
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.EventType != b.EventType {
			return a.EventType < b.EventType
		}
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		return a.Priority < b.Priority
	})
	return groups, sum
}

func eventStatsHandler(c *gin.Context) {
	q := db.WithContext(c.Request.Context()).Where("user_id = ?", currentUserID(c))
	if c.Query("month") != "" {
		m, ok := monthQuery(c)
		if !ok {
			return
		}
		q = inRange(q, "start_date", m.Start(), m.End())
	}
	var list []models.CalendarEvent
	if err := q.Find(&list).Error; err != nil {
		respondInternal(c, err)
		return
	}
	groups, sum := summarizeEvents(list, models.Today())
	c.JSON(http.StatusOK, gin.H{"stats": groups, "summary": sum})
}

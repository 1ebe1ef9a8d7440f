package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"worktrack/models"
	"worktrack/pkg/calendar"
	"worktrack/pkg/dberr"
	"worktrack/pkg/events"
	"worktrack/pkg/money"
)

const defaultPlannedHours = 8.0

type workDayRequest struct {
	StartTime   *string  `json:"startTime" binding:"omitempty,hhmm"`
	EndTime     *string  `json:"endTime" binding:"omitempty,hhmm"`
	HoursWorked *float64 `json:"hoursWorked" binding:"required,gte=0,lte=24"`
	TipsAmount  *float64 `json:"tipsAmount" binding:"omitempty,gte=0"`
	Notes       string   `json:"notes" binding:"max=500"`
}

// apply copies the request onto w. Empty times are stored as NULL.
func (r workDayRequest) apply(w *models.WorkDay) {
	w.StartTime = normalizeTime(r.StartTime)
	w.EndTime = normalizeTime(r.EndTime)
	w.HoursWorked = *r.HoursWorked
	w.TipsAmount = 0
	if r.TipsAmount != nil {
		w.TipsAmount = money.Round2(*r.TipsAmount)
	}
	w.Notes = r.Notes
}

// normalizeTime zero-pads H:MM to HH:MM and maps "" to nil.
func normalizeTime(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	t := strings.TrimSpace(*s)
	if len(t) == 4 {
		t = "0" + t
	}
	return &t
}

// withPayment fills the derived payment fields from the owner's rate.
func withPayment(days []models.WorkDay, rate float64) {
	for i := range days {
		days[i].HourlyRate = rate
		days[i].CalculatedPayment = money.Payment(days[i].HoursWorked, rate)
		days[i].TipsAmount = money.Round2(days[i].TipsAmount)
	}
}

func getScheduleHandler(c *gin.Context) {
	var schedule []models.WorkSchedule
	err := db.WithContext(c.Request.Context()).
		Where("user_id = ?", currentUserID(c)).
		Order("day_of_week").
		Find(&schedule).Error
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

func updateScheduleHandler(c *gin.Context) {
	var req struct {
		Schedule []struct {
			DayOfWeek    *int     `json:"day_of_week" binding:"required,gte=0,lte=6"`
			IsWorkDay    bool     `json:"is_work_day"`
			DefaultHours *float64 `json:"default_hours" binding:"required,gte=0,lte=24"`
		} `json:"schedule" binding:"required,dive"`
	}
	if !bindJSON(c, &req) {
		return
	}
	uid := currentUserID(c)
	rows := make([]models.WorkSchedule, 0, len(req.Schedule))
	for _, d := range req.Schedule {
		rows = append(rows, models.WorkSchedule{
			UserID:       uid,
			DayOfWeek:    *d.DayOfWeek,
			IsWorkDay:    d.IsWorkDay,
			DefaultHours: *d.DefaultHours,
		})
	}
	if len(rows) > 0 {
		err := db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "day_of_week"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_work_day", "default_hours", "updated_at"}),
		}).Create(&rows).Error
		if err != nil {
			respondInternal(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule updated successfully"})
}

func listWorkDaysHandler(c *gin.Context) {
	user, ok := loadCurrentUser(c)
	if !ok {
		return
	}
	p := parsePaging(c, 30)
	q := db.WithContext(c.Request.Context()).Model(&models.WorkDay{}).Where("user_id = ?", user.ID)
	m, filter, ok := monthFilter(c)
	if !ok {
		return
	}
	if filter {
		q = inRange(q, "work_date", m.Start(), m.End())
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		respondInternal(c, err)
		return
	}
	days := []models.WorkDay{}
	if err := q.Order("work_date DESC").Limit(p.Limit).Offset(p.offset()).Find(&days).Error; err != nil {
		respondInternal(c, err)
		return
	}
	withPayment(days, user.HourlyRate)
	c.JSON(http.StatusOK, gin.H{"workDays": days, "pagination": p.withTotal(total)})
}

func createWorkDayHandler(c *gin.Context) {
	var req struct {
		WorkDate string `json:"workDate" binding:"required,isodate"`
		workDayRequest
	}
	if !bindJSON(c, &req) {
		return
	}
	user, ok := loadCurrentUser(c)
	if !ok {
		return
	}
	date, _ := models.ParseDate(req.WorkDate)
	day := models.WorkDay{UserID: user.ID, WorkDate: date, PaymentStatus: models.PaymentPending}
	req.apply(&day)

	if err := db.WithContext(c.Request.Context()).Create(&day).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			respondError(c, http.StatusBadRequest, "Work day for this date already exists")
			return
		}
		respondInternal(c, err)
		return
	}
	days := []models.WorkDay{day}
	withPayment(days, user.HourlyRate)
	emit(c, events.WorkDayLogged, user.ID, gin.H{
		"work_day_id":  day.ID,
		"work_date":    day.WorkDate.String(),
		"hours_worked": day.HoursWorked,
	})
	c.JSON(http.StatusCreated, gin.H{"message": "Work day added successfully", "workDay": days[0]})
}

func updateWorkDayHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Work day")
	if !ok {
		return
	}
	var req workDayRequest
	if !bindJSON(c, &req) {
		return
	}
	var day models.WorkDay
	req.apply(&day)
	res := db.WithContext(c.Request.Context()).Model(&models.WorkDay{}).
		Where("id = ? AND user_id = ?", id, currentUserID(c)).
		Updates(map[string]any{
			"start_time":   day.StartTime,
			"end_time":     day.EndTime,
			"hours_worked": day.HoursWorked,
			"tips_amount":  day.TipsAmount,
			"notes":        day.Notes,
		})
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Work day")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work day updated successfully"})
}

func updatePaymentHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Work day")
	if !ok {
		return
	}
	var req struct {
		PaymentStatus string `json:"paymentStatus" binding:"required,oneof=pending paid"`
		PaymentDate   string `json:"paymentDate" binding:"omitempty,isodate"`
	}
	if !bindJSON(c, &req) {
		return
	}
	var paidOn *models.Date
	if req.PaymentStatus == models.PaymentPaid {
		d := models.Today()
		if req.PaymentDate != "" {
			d, _ = models.ParseDate(req.PaymentDate)
		}
		paidOn = &d
	}
	uid := currentUserID(c)
	res := db.WithContext(c.Request.Context()).Model(&models.WorkDay{}).
		Where("id = ? AND user_id = ?", id, uid).
		Updates(map[string]any{"payment_status": req.PaymentStatus, "payment_date": paidOn})
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Work day")
		return
	}
	var dateOut any
	if paidOn != nil {
		dateOut = paidOn.String()
		emit(c, events.WorkDayPaid, uid, gin.H{"work_day_id": id, "payment_date": dateOut})
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       fmt.Sprintf("Payment status updated to %s", req.PaymentStatus),
		"paymentStatus": req.PaymentStatus,
		"paymentDate":   dateOut,
	})
}

func deleteWorkDayHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Work day")
	if !ok {
		return
	}
	res := db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, currentUserID(c)).
		Delete(&models.WorkDay{})
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Work day")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work day deleted successfully"})
}

type monthlyWorkStats struct {
	Month          int     `json:"month"`
	Year           int     `json:"year"`
	DaysWorked     int     `json:"days_worked"`
	TotalHours     float64 `json:"total_hours"`
	AvgHoursPerDay float64 `json:"avg_hours_per_day"`
	TotalEarnings  float64 `json:"total_earnings"`
	TotalTips      float64 `json:"total_tips"`
}

// workMonthlyStatsHandler groups the year's work days by month. Months
// without work are left out.
func workMonthlyStatsHandler(c *gin.Context) {
	year, ok := yearQuery(c)
	if !ok {
		return
	}
	user, ok := loadCurrentUser(c)
	if !ok {
		return
	}
	start, end := calendar.YearBounds(year)
	var days []models.WorkDay
	q := db.WithContext(c.Request.Context()).Where("user_id = ?", user.ID)
	if err := inRange(q, "work_date", start, end).Order("work_date").Find(&days).Error; err != nil {
		respondInternal(c, err)
		return
	}

	out := []monthlyWorkStats{}
	for _, d := range days {
		m := int(d.WorkDate.Month())
		if len(out) == 0 || out[len(out)-1].Month != m {
			out = append(out, monthlyWorkStats{Month: m, Year: year})
		}
		s := &out[len(out)-1]
		s.DaysWorked++
		s.TotalHours += d.HoursWorked
		s.TotalTips += d.TipsAmount
	}
	for i := range out {
		s := &out[i]
		s.AvgHoursPerDay = money.Round2(s.TotalHours / float64(s.DaysWorked))
		s.TotalEarnings = money.Payment(s.TotalHours, user.HourlyRate)
		s.TotalHours = money.Round2(s.TotalHours)
		s.TotalTips = money.Round2(s.TotalTips)
	}
	c.JSON(http.StatusOK, out)
}

// upsertScheduled plans hours on each date, replacing earlier plans.
func upsertScheduled(c *gin.Context, dates []models.Date, hours float64) error {
	uid := currentUserID(c)
	rows := make([]models.ScheduledWorkDay, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, models.ScheduledWorkDay{UserID: uid, ScheduledDate: d, PlannedHours: hours})
	}
	return db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "scheduled_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"planned_hours", "updated_at"}),
	}).Create(&rows).Error
}

func bulkScheduleHandler(c *gin.Context) {
	var req struct {
		Dates []string `json:"dates" binding:"required,min=1,dive,isodate"`
		Hours *float64 `json:"hours" binding:"omitempty,gte=0,lte=24"`
	}
	if !bindJSON(c, &req) {
		return
	}
	hours := defaultPlannedHours
	if req.Hours != nil {
		hours = *req.Hours
	}
	// duplicates in one statement would hit the conflict target twice
	seen := make(map[string]bool, len(req.Dates))
	dates := make([]models.Date, 0, len(req.Dates))
	for _, s := range req.Dates {
		d, _ := models.ParseDate(s)
		if seen[d.String()] {
			continue
		}
		seen[d.String()] = true
		dates = append(dates, d)
	}
	if err := upsertScheduled(c, dates, hours); err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule updated successfully"})
}

func scheduleDayHandler(c *gin.Context) {
	var req struct {
		Date  string   `json:"date" binding:"required,isodate"`
		Hours *float64 `json:"hours" binding:"omitempty,gte=0,lte=24"`
	}
	if !bindJSON(c, &req) {
		return
	}
	hours := defaultPlannedHours
	if req.Hours != nil {
		hours = *req.Hours
	}
	d, _ := models.ParseDate(req.Date)
	if err := upsertScheduled(c, []models.Date{d}, hours); err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work day scheduled successfully"})
}

func unscheduleDayHandler(c *gin.Context) {
	d, ok := dateParam(c, "date")
	if !ok {
		return
	}
	res := db.WithContext(c.Request.Context()).
		Where("user_id = ? AND scheduled_date = ?", currentUserID(c), d).
		Delete(&models.ScheduledWorkDay{})
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Scheduled day")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Scheduled day removed successfully"})
}

func skipDayHandler(c *gin.Context) {
	d, ok := dateParam(c, "date")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"max=255"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = models.DefaultSkipReason
	}
	row := models.SkippedWorkDay{UserID: currentUserID(c), SkippedDate: d, Reason: reason}
	err := db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "skipped_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work day skipped successfully"})
}

func unskipDayHandler(c *gin.Context) {
	d, ok := dateParam(c, "date")
	if !ok {
		return
	}
	res := db.WithContext(c.Request.Context()).
		Where("user_id = ? AND skipped_date = ?", currentUserID(c), d).
		Delete(&models.SkippedWorkDay{})
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Skipped day")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Day unskipped successfully"})
}

// loadMonth fetches the three calendar sources of one month.
func loadMonth(c *gin.Context, userID uint, m calendar.Month) ([]models.ScheduledWorkDay, []models.SkippedWorkDay, []models.WorkDay, error) {
	var (
		scheduled []models.ScheduledWorkDay
		skipped   []models.SkippedWorkDay
		worked    []models.WorkDay
	)
	q := db.WithContext(c.Request.Context()).Where("user_id = ?", userID)
	if err := inRange(q.Session(&gorm.Session{}), "scheduled_date", m.Start(), m.End()).Find(&scheduled).Error; err != nil {
		return nil, nil, nil, err
	}
	if err := inRange(q.Session(&gorm.Session{}), "skipped_date", m.Start(), m.End()).Find(&skipped).Error; err != nil {
		return nil, nil, nil, err
	}
	if err := inRange(q.Session(&gorm.Session{}), "work_date", m.Start(), m.End()).Find(&worked).Error; err != nil {
		return nil, nil, nil, err
	}
	return scheduled, skipped, worked, nil
}

func monthlyCalendarHandler(c *gin.Context) {
	m, ok := monthQuery(c)
	if !ok {
		return
	}
	user, ok := loadCurrentUser(c)
	if !ok {
		return
	}
	scheduled, skipped, worked, err := loadMonth(c, user.ID, m)
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, calendar.Merge(user.HourlyRate, scheduled, skipped, worked))
}

// monthWorkDays lists the caller's work days in the requested month.
func monthWorkDays(c *gin.Context) ([]models.WorkDay, float64, bool) {
	m, ok := monthQuery(c)
	if !ok {
		return nil, 0, false
	}
	user, ok := loadCurrentUser(c)
	if !ok {
		return nil, 0, false
	}
	var days []models.WorkDay
	q := db.WithContext(c.Request.Context()).Where("user_id = ?", user.ID)
	if err := inRange(q, "work_date", m.Start(), m.End()).Find(&days).Error; err != nil {
		respondInternal(c, err)
		return nil, 0, false
	}
	return days, user.HourlyRate, true
}

func tipsSummaryHandler(c *gin.Context) {
	days, _, ok := monthWorkDays(c)
	if !ok {
		return
	}
	var (
		withTips int
		total    float64
		highest  float64
		lowest   *float64
	)
	for _, d := range days {
		tip := d.TipsAmount
		total += tip
		if tip > highest {
			highest = tip
		}
		if tip > 0 {
			withTips++
			if lowest == nil || tip < *lowest {
				v := money.Round2(tip)
				lowest = &v
			}
		}
	}
	var avg float64
	if len(days) > 0 {
		avg = money.Round2(total / float64(len(days)))
	}
	c.JSON(http.StatusOK, gin.H{
		"days_with_tips":   withTips,
		"total_tips":       money.Round2(total),
		"avg_tips_per_day": avg,
		"max_tips_day":     money.Round2(highest),
		"min_tips_day":     lowest,
	})
}

type paymentBucket struct {
	DaysCount     int     `json:"days_count"`
	TotalEarnings float64 `json:"total_earnings"`
	TotalTips     float64 `json:"total_tips"`
}

func paymentSummaryHandler(c *gin.Context) {
	days, rate, ok := monthWorkDays(c)
	if !ok {
		return
	}
	summary := map[string]*paymentBucket{
		models.PaymentPending: {},
		models.PaymentPaid:    {},
	}
	hours := map[string]float64{}
	for _, d := range days {
		b, ok := summary[d.PaymentStatus]
		if !ok {
			continue
		}
		b.DaysCount++
		b.TotalTips += d.TipsAmount
		hours[d.PaymentStatus] += d.HoursWorked
	}
	for status, b := range summary {
		b.TotalEarnings = money.Payment(hours[status], rate)
		b.TotalTips = money.Round2(b.TotalTips)
	}
	c.JSON(http.StatusOK, summary)
}

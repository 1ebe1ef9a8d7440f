package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"

	"worktrack/models"
)

// loadDashboardSettings returns the caller's settings, creating the
// defaults on first access.
func loadDashboardSettings(c *gin.Context) (models.DashboardSettings, error) {
	uid := currentUserID(c)
	defaults := models.DefaultDashboardSettings(uid)
	tx := db.WithContext(c.Request.Context())
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
		return models.DashboardSettings{}, err
	}
	var s models.DashboardSettings
	err := tx.Where("user_id = ?", uid).First(&s).Error
	return s, err
}

func getDashboardSettingsHandler(c *gin.Context) {
	s, err := loadDashboardSettings(c)
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type settingsPatch struct {
	LayoutType         *string  `json:"layout_type" binding:"omitempty,oneof=grid list compact minimal"`
	Theme              *string  `json:"theme" binding:"omitempty,oneof=light dark auto corporate modern"`
	PrimaryColor       *string  `json:"primary_color" binding:"omitempty,hexcolor6"`
	SecondaryColor     *string  `json:"secondary_color" binding:"omitempty,hexcolor6"`
	ShowGoals          *bool    `json:"show_goals"`
	ShowStats          *bool    `json:"show_stats"`
	ShowSchedule       *bool    `json:"show_schedule"`
	ShowRecentWork     *bool    `json:"show_recent_work"`
	ShowExpenses       *bool    `json:"show_expenses"`
	WidgetOrder        []string `json:"widget_order" binding:"omitempty,max=20,dive,min=1,max=50"`
	GoalsWidgetSize    *string  `json:"goals_widget_size" binding:"omitempty,oneof=small medium large"`
	StatsWidgetSize    *string  `json:"stats_widget_size" binding:"omitempty,oneof=small medium large"`
	ScheduleWidgetSize *string  `json:"schedule_widget_size" binding:"omitempty,oneof=small medium large"`
	WorkWidgetSize     *string  `json:"work_widget_size" binding:"omitempty,oneof=small medium large"`
	ExpensesWidgetSize *string  `json:"expenses_widget_size" binding:"omitempty,oneof=small medium large"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func (p settingsPatch) apply(s *models.DashboardSettings) {
	setString(&s.LayoutType, p.LayoutType)
	setString(&s.Theme, p.Theme)
	setString(&s.PrimaryColor, p.PrimaryColor)
	setString(&s.SecondaryColor, p.SecondaryColor)
	setBool(&s.ShowGoals, p.ShowGoals)
	setBool(&s.ShowStats, p.ShowStats)
	setBool(&s.ShowSchedule, p.ShowSchedule)
	setBool(&s.ShowRecentWork, p.ShowRecentWork)
	setBool(&s.ShowExpenses, p.ShowExpenses)
	if p.WidgetOrder != nil {
		b, _ := json.Marshal(p.WidgetOrder)
		s.WidgetOrder = string(b)
	}
	setString(&s.GoalsWidgetSize, p.GoalsWidgetSize)
	setString(&s.StatsWidgetSize, p.StatsWidgetSize)
	setString(&s.ScheduleWidgetSize, p.ScheduleWidgetSize)
	setString(&s.WorkWidgetSize, p.WorkWidgetSize)
	setString(&s.ExpensesWidgetSize, p.ExpensesWidgetSize)
}

func updateDashboardSettingsHandler(c *gin.Context) {
	var patch settingsPatch
	if !bindJSON(c, &patch) {
		return
	}
	s, err := loadDashboardSettings(c)
	if err != nil {
		respondInternal(c, err)
		return
	}
	patch.apply(&s)
	if err := db.WithContext(c.Request.Context()).Save(&s).Error; err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dashboard settings updated successfully", "settings": s})
}

// compactJSON normalizes optional raw JSON; empty or null becomes nil.
func compactJSON(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil
	}
	return buf.Bytes()
}

type customFieldRequest struct {
	FieldName    string          `json:"field_name" binding:"required,max=100"`
	FieldType    string          `json:"field_type" binding:"required,oneof=text number date select textarea checkbox url email"`
	FieldLabel   string          `json:"field_label" binding:"required,max=200"`
	FieldOptions json.RawMessage `json:"field_options"`
	IsRequired   bool            `json:"is_required"`
	IsActive     *bool           `json:"is_active"`
	AppliesTo    string          `json:"applies_to" binding:"omitempty,oneof=work expense goal global"`
	DisplayOrder int             `json:"display_order"`
}

func listCustomFieldsHandler(c *gin.Context) {
	appliesTo := c.DefaultQuery("applies_to", "work")
	if !oneOf(appliesTo, models.AppliesTo) {
		respondFieldError(c, "applies_to", "must be one of: "+strings.Join(models.AppliesTo, ", "))
		return
	}
	fields := []models.CustomField{}
	err := db.WithContext(c.Request.Context()).
		Where("user_id = ? AND applies_to = ? AND is_active = ?", currentUserID(c), appliesTo, true).
		Order("display_order").Order("id").
		Find(&fields).Error
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func createCustomFieldHandler(c *gin.Context) {
	var req customFieldRequest
	if !bindJSON(c, &req) {
		return
	}
	f := models.CustomField{
		UserID:       currentUserID(c),
		FieldName:    strings.TrimSpace(req.FieldName),
		FieldType:    req.FieldType,
		FieldLabel:   strings.TrimSpace(req.FieldLabel),
		FieldOptions: models.JSONText(compactJSON(req.FieldOptions)),
		IsRequired:   req.IsRequired,
		IsActive:     true,
		AppliesTo:    req.AppliesTo,
		DisplayOrder: req.DisplayOrder,
	}
	if f.AppliesTo == "" {
		f.AppliesTo = "work"
	}
	if err := db.WithContext(c.Request.Context()).Create(&f).Error; err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": f.ID, "message": "Custom field created successfully"})
}

func updateCustomFieldHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Custom field")
	if !ok {
		return
	}
	var req customFieldRequest
	if !bindJSON(c, &req) {
		return
	}
	set := map[string]any{
		"field_name":    strings.TrimSpace(req.FieldName),
		"field_type":    req.FieldType,
		"field_label":   strings.TrimSpace(req.FieldLabel),
		"field_options": models.JSONText(compactJSON(req.FieldOptions)),
		"is_required":   req.IsRequired,
		"display_order": req.DisplayOrder,
	}
	if req.IsActive != nil {
		set["is_active"] = *req.IsActive
	}
	if req.AppliesTo != "" {
		set["applies_to"] = req.AppliesTo
	}
	res := db.WithContext(c.Request.Context()).Model(&models.CustomField{}).
		Where("id = ? AND user_id = ?", id, currentUserID(c)).
		Updates(set)
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Custom field")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Custom field updated successfully"})
}

// deleteCustomFieldHandler deactivates the field; stored values remain.
func deleteCustomFieldHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Custom field")
	if !ok {
		return
	}
	res := db.WithContext(c.Request.Context()).Model(&models.CustomField{}).
		Where("id = ? AND user_id = ?", id, currentUserID(c)).
		Update("is_active", false)
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Custom field")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Custom field deleted successfully"})
}

type fieldValueView struct {
	models.CustomFieldValue
	FieldName    string          `json:"field_name"`
	FieldType    string          `json:"field_type"`
	FieldLabel   string          `json:"field_label"`
	FieldOptions json.RawMessage `json:"field_options"`
}

func listCustomFieldValuesHandler(c *gin.Context) {
	recordType := c.Param("recordType")
	if !oneOf(recordType, models.RecordTypes) {
		respondFieldError(c, "recordType", "must be one of: "+strings.Join(models.RecordTypes, ", "))
		return
	}
	recordID, err := strconv.ParseUint(c.Param("recordId"), 10, 64)
	if err != nil {
		respondFieldError(c, "recordId", "must be a positive integer")
		return
	}
	ctx := c.Request.Context()
	var fields []models.CustomField
	if err := db.WithContext(ctx).Where("user_id = ?", currentUserID(c)).Find(&fields).Error; err != nil {
		respondInternal(c, err)
		return
	}
	out := []fieldValueView{}
	if len(fields) == 0 {
		c.JSON(http.StatusOK, out)
		return
	}
	byID := make(map[uint]models.CustomField, len(fields))
	ids := make([]uint, 0, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
		ids = append(ids, f.ID)
	}
	var values []models.CustomFieldValue
	err = db.WithContext(ctx).
		Where("custom_field_id IN ? AND record_type = ? AND record_id = ?", ids, recordType, recordID).
		Order("id").
		Find(&values).Error
	if err != nil {
		respondInternal(c, err)
		return
	}
	for _, v := range values {
		f := byID[v.CustomFieldID]
		out = append(out, fieldValueView{
			CustomFieldValue: v,
			FieldName:        f.FieldName,
			FieldType:        f.FieldType,
			FieldLabel:       f.FieldLabel,
			FieldOptions:     json.RawMessage(f.FieldOptions),
		})
	}
	c.JSON(http.StatusOK, out)
}

func saveCustomFieldValueHandler(c *gin.Context) {
	var req struct {
		CustomFieldID uint   `json:"custom_field_id" binding:"required"`
		RecordID      uint   `json:"record_id" binding:"required"`
		RecordType    string `json:"record_type" binding:"required,oneof=work expense goal"`
		FieldValue    string `json:"field_value"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	var n int64
	if err := db.WithContext(ctx).Model(&models.CustomField{}).
		Where("id = ? AND user_id = ?", req.CustomFieldID, currentUserID(c)).
		Count(&n).Error; err != nil {
		respondInternal(c, err)
		return
	}
	if n == 0 {
		respondNotFound(c, "Custom field")
		return
	}
	v := models.CustomFieldValue{
		CustomFieldID: req.CustomFieldID,
		RecordID:      req.RecordID,
		RecordType:    req.RecordType,
		FieldValue:    req.FieldValue,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "custom_field_id"}, {Name: "record_id"}, {Name: "record_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"field_value", "updated_at"}),
	}).Create(&v).Error
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Custom field value saved successfully"})
}

// decodePreference returns the stored value as JSON when it parses,
// otherwise as the raw string.
func decodePreference(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// encodePreference stores strings verbatim and everything else as JSON.
func encodePreference(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if c := compactJSON(raw); c != nil {
		return string(c)
	}
	return ""
}

func getPreferencesHandler(c *gin.Context) {
	var prefs []models.UserPreference
	if err := db.WithContext(c.Request.Context()).Where("user_id = ?", currentUserID(c)).Find(&prefs).Error; err != nil {
		respondInternal(c, err)
		return
	}
	out := make(map[string]any, len(prefs))
	for _, p := range prefs {
		out[p.PreferenceKey] = decodePreference(p.PreferenceValue)
	}
	c.JSON(http.StatusOK, out)
}

// savePreferenceHandler upserts one preference. preference_key and
// preference_value are accepted as aliases of key and value.
func savePreferenceHandler(c *gin.Context) {
	var req struct {
		Key             string          `json:"key" binding:"max=100"`
		Value           json.RawMessage `json:"value"`
		PreferenceKey   string          `json:"preference_key" binding:"max=100"`
		PreferenceValue json.RawMessage `json:"preference_value"`
	}
	if !bindJSON(c, &req) {
		return
	}
	key, value := strings.TrimSpace(req.Key), req.Value
	if key == "" {
		key = strings.TrimSpace(req.PreferenceKey)
	}
	if value == nil {
		value = req.PreferenceValue
	}
	if key == "" {
		respondFieldError(c, "key", "key is required")
		return
	}
	p := models.UserPreference{UserID: currentUserID(c), PreferenceKey: key, PreferenceValue: encodePreference(value)}
	err := db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "preference_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"preference_value", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Preference saved successfully"})
}

func listWidgetsHandler(c *gin.Context) {
	widgets := []models.DashboardWidget{}
	err := db.WithContext(c.Request.Context()).
		Where("user_id = ?", currentUserID(c)).
		Order("position_y").Order("position_x").Order("id").
		Find(&widgets).Error
	if err != nil {
		respondInternal(c, err)
		return
	}
	for i := range widgets {
		if len(widgets[i].WidgetConfig) == 0 {
			widgets[i].WidgetConfig = models.JSONText("{}")
		}
	}
	c.JSON(http.StatusOK, widgets)
}

// saveWidgetHandler creates a widget, or updates the caller's widget when
// id is present.
func saveWidgetHandler(c *gin.Context) {
	var req struct {
		ID           *uint           `json:"id"`
		WidgetType   string          `json:"widget_type" binding:"max=50"`
		WidgetTitle  string          `json:"widget_title" binding:"max=200"`
		WidgetConfig json.RawMessage `json:"widget_config"`
		PositionX    *int            `json:"position_x" binding:"omitempty,gte=0"`
		PositionY    *int            `json:"position_y" binding:"omitempty,gte=0"`
		Width        *int            `json:"width" binding:"omitempty,gte=1"`
		Height       *int            `json:"height" binding:"omitempty,gte=1"`
		IsVisible    *bool           `json:"is_visible"`
	}
	if !bindJSON(c, &req) {
		return
	}
	config := compactJSON(req.WidgetConfig)
	if config == nil {
		config = json.RawMessage("{}")
	}
	orDefault := func(p *int, def int) int {
		if p == nil {
			return def
		}
		return *p
	}
	visible := req.IsVisible == nil || *req.IsVisible
	uid := currentUserID(c)

	if req.ID != nil {
		res := db.WithContext(c.Request.Context()).Model(&models.DashboardWidget{}).
			Where("id = ? AND user_id = ?", *req.ID, uid).
			Updates(map[string]any{
				"widget_title":  req.WidgetTitle,
				"widget_config": models.JSONText(config),
				"position_x":    orDefault(req.PositionX, 0),
				"position_y":    orDefault(req.PositionY, 0),
				"width":         orDefault(req.Width, 1),
				"height":        orDefault(req.Height, 1),
				"is_visible":    visible,
			})
		if res.Error != nil {
			respondInternal(c, res.Error)
			return
		}
		if res.RowsAffected == 0 {
			respondNotFound(c, "Widget")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Widget updated successfully"})
		return
	}

	if strings.TrimSpace(req.WidgetType) == "" {
		respondFieldError(c, "widget_type", "widget_type is required")
		return
	}
	w := models.DashboardWidget{
		UserID:       uid,
		WidgetType:   strings.TrimSpace(req.WidgetType),
		WidgetTitle:  req.WidgetTitle,
		WidgetConfig: models.JSONText(config),
		PositionX:    orDefault(req.PositionX, 0),
		PositionY:    orDefault(req.PositionY, 0),
		Width:        orDefault(req.Width, 1),
		Height:       orDefault(req.Height, 1),
		IsVisible:    visible,
	}
	if err := db.WithContext(c.Request.Context()).Create(&w).Error; err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": w.ID, "message": "Widget created successfully"})
}

func deleteWidgetHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Widget")
	if !ok {
		return
	}
	res := db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, currentUserID(c)).
		Delete(&models.DashboardWidget{})
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Widget")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Widget deleted successfully"})
}

package main

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"worktrack/models"
	"worktrack/pkg/events"
	"worktrack/pkg/money"
)

const defaultGoalColor = "#10B981"

var errGoalNotFound = errors.New("goal not found")

type goalRequest struct {
	Title        string   `json:"title" binding:"required,max=255"`
	Description  string   `json:"description"`
	Category     string   `json:"category" binding:"omitempty,oneof=savings equipment vacation emergency investment debt other"`
	GoalType     string   `json:"goal_type" binding:"omitempty,oneof=short-term long-term"`
	TargetAmount *float64 `json:"target_amount" binding:"required,gt=0"`
	TargetDate   string   `json:"target_date" binding:"required,isodate"`
	Priority     string   `json:"priority" binding:"omitempty,oneof=low medium high"`
	Color        string   `json:"color" binding:"omitempty,hexcolor6"`
}

// fields returns the column values with defaults applied.
func (r goalRequest) fields() map[string]any {
	category, goalType, priority, color := r.Category, r.GoalType, r.Priority, r.Color
	if category == "" {
		category = "savings"
	}
	if goalType == "" {
		goalType = "short-term"
	}
	if priority == "" {
		priority = "medium"
	}
	if color == "" {
		color = defaultGoalColor
	}
	target, _ := models.ParseDate(r.TargetDate)
	return map[string]any{
		"title":         strings.TrimSpace(r.Title),
		"description":   r.Description,
		"category":      category,
		"goal_type":     goalType,
		"target_amount": money.Round2(*r.TargetAmount),
		"target_date":   target,
		"priority":      priority,
		"color":         color,
	}
}

type goalSummary struct {
	models.Goal
	MilestoneCount     int `json:"milestone_count"`
	AchievedMilestones int `json:"achieved_milestones"`
}

func listGoalsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	var goals []models.Goal
	if err := db.WithContext(ctx).Where("user_id = ? AND is_active = ?", currentUserID(c), true).Find(&goals).Error; err != nil {
		respondInternal(c, err)
		return
	}
	out := make([]goalSummary, 0, len(goals))
	if len(goals) == 0 {
		c.JSON(http.StatusOK, out)
		return
	}
	ids := make([]uint, 0, len(goals))
	for _, g := range goals {
		ids = append(ids, g.ID)
	}
	var milestones []models.GoalMilestone
	if err := db.WithContext(ctx).Where("goal_id IN ?", ids).Find(&milestones).Error; err != nil {
		respondInternal(c, err)
		return
	}
	total := map[uint]int{}
	achieved := map[uint]int{}
	for _, m := range milestones {
		total[m.GoalID]++
		if m.AchievedAt != nil {
			achieved[m.GoalID]++
		}
	}
	for _, g := range goals {
		out = append(out, goalSummary{Goal: g, MilestoneCount: total[g.ID], AchievedMilestones: achieved[g.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := models.PriorityRank(out[i].Priority), models.PriorityRank(out[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	c.JSON(http.StatusOK, out)
}

// findGoal loads a goal owned by the caller, writing 404 otherwise.
func findGoal(c *gin.Context, activeOnly bool) (models.Goal, bool) {
	id, ok := paramID(c, "id", "Goal")
	if !ok {
		return models.Goal{}, false
	}
	q := db.WithContext(c.Request.Context()).Where("id = ? AND user_id = ?", id, currentUserID(c))
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var g models.Goal
	if err := q.First(&g).Error; err != nil {
		if isNotFound(err) {
			respondNotFound(c, "Goal")
		} else {
			respondInternal(c, err)
		}
		return models.Goal{}, false
	}
	return g, true
}

func getGoalHandler(c *gin.Context) {
	g, ok := findGoal(c, false)
	if !ok {
		return
	}
	milestones := []models.GoalMilestone{}
	progress := []models.GoalProgress{}
	ctx := c.Request.Context()
	if err := db.WithContext(ctx).Where("goal_id = ?", g.ID).Order("target_amount").Find(&milestones).Error; err != nil {
		respondInternal(c, err)
		return
	}
	if err := db.WithContext(ctx).Where("goal_id = ?", g.ID).Order("created_at DESC").Order("id DESC").Limit(10).Find(&progress).Error; err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, struct {
		models.Goal
		Milestones []models.GoalMilestone `json:"milestones"`
		Progress   []models.GoalProgress  `json:"progress"`
	}{g, milestones, progress})
}

func createGoalHandler(c *gin.Context) {
	var req goalRequest
	if !bindJSON(c, &req) {
		return
	}
	f := req.fields()
	g := models.Goal{
		UserID:       currentUserID(c),
		Title:        f["title"].(string),
		Description:  req.Description,
		Category:     f["category"].(string),
		GoalType:     f["goal_type"].(string),
		TargetAmount: f["target_amount"].(float64),
		TargetDate:   f["target_date"].(models.Date),
		Priority:     f["priority"].(string),
		Color:        f["color"].(string),
		IsActive:     true,
	}
	if g.Title == "" {
		respondFieldError(c, "title", "title is required")
		return
	}
	if err := db.WithContext(c.Request.Context()).Create(&g).Error; err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Goal created successfully", "goalId": g.ID})
}

func updateGoalHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Goal")
	if !ok {
		return
	}
	var req goalRequest
	if !bindJSON(c, &req) {
		return
	}
	f := req.fields()
	if f["title"] == "" {
		respondFieldError(c, "title", "title is required")
		return
	}
	res := db.WithContext(c.Request.Context()).Model(&models.Goal{}).
		Where("id = ? AND user_id = ?", id, currentUserID(c)).
		Updates(f)
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Goal")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Goal updated successfully"})
}

// deleteGoalHandler deactivates the goal; its history is kept.
func deleteGoalHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Goal")
	if !ok {
		return
	}
	res := db.WithContext(c.Request.Context()).Model(&models.Goal{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, currentUserID(c), true).
		Update("is_active", false)
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Goal")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}

// parseAmount accepts a JSON number or a numeric string.
func parseAmount(raw json.RawMessage) (float64, bool) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		v, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
	}
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// addGoalProgressHandler records a contribution, raises current_amount and
// marks every milestone the new total reaches, all in one transaction.
func addGoalProgressHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Goal")
	if !ok {
		return
	}
	var req struct {
		Amount json.RawMessage `json:"amount"`
		Note   string          `json:"note"`
	}
	if !bindJSON(c, &req) {
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid amount")
		return
	}
	amount = money.Round2(amount)
	uid := currentUserID(c)

	var (
		goal     models.Goal
		achieved []models.GoalMilestone
	)
	err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Goal{}).
			Where("id = ? AND user_id = ? AND is_active = ?", id, uid, true).
			Update("current_amount", gorm.Expr("current_amount + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errGoalNotFound
		}
		if err := tx.First(&goal, id).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.GoalProgress{GoalID: id, Amount: amount, Note: req.Note}).Error; err != nil {
			return err
		}
		if err := tx.Where("goal_id = ? AND achieved_at IS NULL AND target_amount <= ?", id, goal.CurrentAmount).
			Find(&achieved).Error; err != nil {
			return err
		}
		if len(achieved) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(achieved))
		for _, m := range achieved {
			ids = append(ids, m.ID)
		}
		return tx.Model(&models.GoalMilestone{}).Where("id IN ?", ids).Update("achieved_at", time.Now()).Error
	})
	if errors.Is(err, errGoalNotFound) {
		respondNotFound(c, "Goal")
		return
	}
	if err != nil {
		respondInternal(c, err)
		return
	}

	emit(c, events.GoalProgressAdded, uid, gin.H{"goal_id": id, "amount": amount, "current_amount": goal.CurrentAmount})
	for _, m := range achieved {
		emit(c, events.GoalMilestoneAchieved, uid, gin.H{"goal_id": id, "milestone_id": m.ID, "title": m.Title})
	}
	c.JSON(http.StatusOK, gin.H{
		"message":            "Progress added successfully",
		"achievedMilestones": len(achieved),
		"current_amount":     money.Round2(goal.CurrentAmount),
	})
}

func addMilestoneHandler(c *gin.Context) {
	g, ok := findGoal(c, false)
	if !ok {
		return
	}
	var req struct {
		Title             string   `json:"title" binding:"required,max=255"`
		TargetAmount      *float64 `json:"target_amount" binding:"required,gt=0"`
		RewardDescription string   `json:"reward_description"`
	}
	if !bindJSON(c, &req) {
		return
	}
	m := models.GoalMilestone{
		GoalID:            g.ID,
		Title:             strings.TrimSpace(req.Title),
		TargetAmount:      money.Round2(*req.TargetAmount),
		RewardDescription: req.RewardDescription,
	}
	if err := db.WithContext(c.Request.Context()).Create(&m).Error; err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Milestone added successfully", "milestone": m})
}

func deleteMilestoneHandler(c *gin.Context) {
	mid, ok := paramID(c, "milestoneId", "Milestone")
	if !ok {
		return
	}
	owned := db.Model(&models.Goal{}).Select("id").Where("user_id = ?", currentUserID(c))
	res := db.WithContext(c.Request.Context()).
		Where("id = ? AND goal_id IN (?)", mid, owned).
		Delete(&models.GoalMilestone{})
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "Milestone")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Milestone deleted successfully"})
}

type goalStats struct {
	TotalGoals     int     `json:"total_goals"`
	CompletedGoals int     `json:"completed_goals"`
	TotalTarget    float64 `json:"total_target"`
	TotalProgress  float64 `json:"total_progress"`
	AvgProgress    float64 `json:"avg_progress"`
}

// summarizeGoals averages progress over goals that have started.
func summarizeGoals(goals []models.Goal) goalStats {
	var (
		s       goalStats
		pctSum  float64
		started int
	)
	for _, g := range goals {
		s.TotalGoals++
		if g.Completed() {
			s.CompletedGoals++
		}
		s.TotalTarget += g.TargetAmount
		s.TotalProgress += g.CurrentAmount
		if g.CurrentAmount > 0 {
			pctSum += money.Percent(g.CurrentAmount, g.TargetAmount)
			started++
		}
	}
	s.TotalTarget = money.Round2(s.TotalTarget)
	s.TotalProgress = money.Round2(s.TotalProgress)
	if started > 0 {
		s.AvgProgress = money.Round2(pctSum / float64(started))
	}
	return s
}

func goalStatsHandler(c *gin.Context) {
	var goals []models.Goal
	if err := db.WithContext(c.Request.Context()).Where("user_id = ? AND is_active = ?", currentUserID(c), true).Find(&goals).Error; err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, summarizeGoals(goals))
}

func shareGoalHandler(c *gin.Context) {
	g, ok := findGoal(c, false)
	if !ok {
		return
	}
	var req struct {
		Email   string `json:"email" binding:"required,email"`
		Message string `json:"message"`
	}
	if !bindJSON(c, &req) {
		return
	}
	share := models.GoalShare{
		GoalID:          g.ID,
		SharedWithEmail: strings.ToLower(strings.TrimSpace(req.Email)),
		Message:         req.Message,
		SharedByUserID:  g.UserID,
	}
	err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&share).Error; err != nil {
			return err
		}
		return tx.Model(&models.Goal{}).Where("id = ?", g.ID).Update("is_shared", true).Error
	})
	if err != nil {
		respondInternal(c, err)
		return
	}
	emit(c, events.GoalShared, g.UserID, gin.H{"goal_id": g.ID, "shared_with": share.SharedWithEmail})
	c.JSON(http.StatusOK, gin.H{"message": "Goal shared successfully"})
}

type sharedGoal struct {
	models.Goal
	OwnerName string    `json:"owner_name"`
	Message   string    `json:"message"`
	SharedAt  time.Time `json:"shared_at"`
}

func callerEmail(c *gin.Context) string {
	return strings.ToLower(c.GetString(ctxEmail))
}

// sharedGoalsHandler lists active goals other users shared with the caller,
// newest share first.
func sharedGoalsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	var shares []models.GoalShare
	if err := db.WithContext(ctx).Where("shared_with_email = ?", callerEmail(c)).
		Order("created_at DESC").Order("id DESC").Find(&shares).Error; err != nil {
		respondInternal(c, err)
		return
	}
	out := []sharedGoal{}
	if len(shares) == 0 {
		c.JSON(http.StatusOK, out)
		return
	}
	ids := make([]uint, 0, len(shares))
	for _, s := range shares {
		ids = append(ids, s.GoalID)
	}
	var goals []models.Goal
	if err := db.WithContext(ctx).Where("id IN ? AND is_active = ?", ids, true).Find(&goals).Error; err != nil {
		respondInternal(c, err)
		return
	}
	byID := make(map[uint]models.Goal, len(goals))
	ownerIDs := make([]uint, 0, len(goals))
	for _, g := range goals {
		byID[g.ID] = g
		ownerIDs = append(ownerIDs, g.UserID)
	}
	names, err := usernamesByID(c, ownerIDs)
	if err != nil {
		respondInternal(c, err)
		return
	}
	for _, s := range shares {
		g, ok := byID[s.GoalID]
		if !ok {
			continue
		}
		out = append(out, sharedGoal{Goal: g, OwnerName: names[g.UserID], Message: s.Message, SharedAt: s.CreatedAt})
	}
	c.JSON(http.StatusOK, out)
}

func usernamesByID(c *gin.Context, ids []uint) (map[uint]string, error) {
	out := map[uint]string{}
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := db.WithContext(c.Request.Context()).Select("id", "username").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Username
	}
	return out, nil
}

// sharedWithCaller reports whether the goal was shared with the caller.
func sharedWithCaller(c *gin.Context, goalID uint) (bool, error) {
	var n int64
	err := db.WithContext(c.Request.Context()).Model(&models.GoalShare{}).
		Where("goal_id = ? AND shared_with_email = ?", goalID, callerEmail(c)).
		Count(&n).Error
	return n > 0, err
}

func addSupportHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Goal")
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message" binding:"required,max=2000"`
	}
	if !bindJSON(c, &req) {
		return
	}
	shared, err := sharedWithCaller(c, id)
	if err != nil {
		respondInternal(c, err)
		return
	}
	if !shared {
		respondError(c, http.StatusNotFound, "Goal not found or not shared with you")
		return
	}
	s := models.GoalSupport{GoalID: id, SupporterEmail: callerEmail(c), Message: req.Message}
	if err := db.WithContext(c.Request.Context()).Create(&s).Error; err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Support added successfully"})
}

type supportView struct {
	models.GoalSupport
	SupporterName *string `json:"supporter_name"`
}

// listSupportHandler is visible to the goal owner and to anyone the goal
// was shared with.
func listSupportHandler(c *gin.Context) {
	id, ok := paramID(c, "id", "Goal")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var owned int64
	if err := db.WithContext(ctx).Model(&models.Goal{}).Where("id = ? AND user_id = ?", id, currentUserID(c)).Count(&owned).Error; err != nil {
		respondInternal(c, err)
		return
	}
	if owned == 0 {
		shared, err := sharedWithCaller(c, id)
		if err != nil {
			respondInternal(c, err)
			return
		}
		if !shared {
			respondNotFound(c, "Goal")
			return
		}
	}

	var support []models.GoalSupport
	if err := db.WithContext(ctx).Where("goal_id = ?", id).Order("created_at DESC").Order("id DESC").Find(&support).Error; err != nil {
		respondInternal(c, err)
		return
	}
	emails := make([]string, 0, len(support))
	for _, s := range support {
		emails = append(emails, s.SupporterEmail)
	}
	names := map[string]string{}
	if len(emails) > 0 {
		var users []models.User
		if err := db.WithContext(ctx).Select("email", "username").Where("email IN ?", emails).Find(&users).Error; err != nil {
			respondInternal(c, err)
			return
		}
		for _, u := range users {
			names[u.Email] = u.Username
		}
	}
	out := make([]supportView, 0, len(support))
	for _, s := range support {
		v := supportView{GoalSupport: s}
		if n, ok := names[s.SupporterEmail]; ok {
			v.SupporterName = &n
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, out)
}

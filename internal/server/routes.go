package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nvlong/workdesk/internal/lifecycle"
	"github.com/nvlong/workdesk/internal/notify"
	"github.com/nvlong/workdesk/internal/views"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, d *deps) {
	api := router.Group("/api")

	api.POST("/workitems", d.handleCreate)
	api.POST("/workitems/:id/progress", d.handleProgress)
	api.POST("/workitems/:id/approve", d.handleApprove)
	api.POST("/workitems/:id/priority", d.handlePriority)
	api.GET("/workitems/:id/ledger", d.handleLedger)
	api.POST("/ledger/:id/reply", d.handleReply)

	api.GET("/board", d.handleBoard)
	api.GET("/history", d.handleHistory)
	api.GET("/changes", d.handleChanges)
	api.GET("/summary", d.handleSummary)
	api.GET("/helpers", d.handleHelpers)
}

type createRequest struct {
	Actor    string `json:"actor" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Category string `json:"category" binding:"required"`
	Subject  string `json:"subject"`
	Detail   string `json:"detail"`
	StartAt  string `json:"start_date"`
	DueAt    string `json:"due_date"`
}

func (d *deps) handleCreate(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Supervisor is the actor's manager at creation time.
	supervisor, err := d.dir.DirectManagerOf(req.Actor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	item, fx, err := d.mgr.Create(lifecycle.CreateOpts{
		Owner:      req.Actor,
		Supervisor: supervisor,
		Category:   req.Category,
		Subject:    req.Subject,
		Title:      req.Title,
		Detail:     req.Detail,
		StartDate:  parseDate(req.StartAt),
		DueDate:    parseDate(req.DueAt),
		SourceAddr: c.ClientIP(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	d.dispatcher.Deliver(fx)

	c.JSON(http.StatusCreated, gin.H{"id": item.ID, "status": item.Status})
}

type progressRequest struct {
	Actor      string   `json:"actor" binding:"required"`
	Percent    int      `json:"percent"`
	Content    string   `json:"content"`
	Kind       string   `json:"kind" binding:"required"`
	Helpers    []string `json:"helpers"`
	Attachment string   `json:"attachment"`
}

func (d *deps) handleProgress(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := d.mgr.RecordProgress(lifecycle.ProgressOpts{
		WorkItemID: id,
		Actor:      req.Actor,
		Percent:    req.Percent,
		Content:    req.Content,
		Kind:       strings.ToUpper(strings.TrimSpace(req.Kind)),
		Helpers:    req.Helpers,
		Attachment: req.Attachment,
		SourceAddr: c.ClientIP(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	d.dispatcher.Deliver(result.Effects)

	resp := gin.H{
		"status":  result.Item.Status,
		"percent": result.Item.ProgressPercent,
	}
	if result.FanOut != nil {
		resp["helpers_requested"] = result.FanOut.Requested
		resp["helpers_notified"] = result.FanOut.Created
		d.announceFanOut(c, result)
	}
	c.JSON(http.StatusOK, resp)
}

// announceFanOut posts a best-effort chat notice about spawned help items.
func (d *deps) announceFanOut(c *gin.Context, result *lifecycle.Result) {
	if result.FanOut.Created == 0 {
		return
	}
	d.dispatcher.Announce(c.Request.Context(), notify.Notice{
		Title:    "Help requested on work item #" + strconv.FormatUint(uint64(result.Item.ID), 10),
		Body:     result.Item.Title,
		Severity: "WARNING",
	})
}

type approveRequest struct {
	Supervisor string `json:"supervisor" binding:"required"`
	Verdict    string `json:"verdict" binding:"required"` // approve or reject
	Feedback   string `json:"feedback"`
}

func (d *deps) handleApprove(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verdict := strings.ToLower(strings.TrimSpace(req.Verdict))
	if verdict != "approve" && verdict != "reject" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "verdict must be approve or reject"})
		return
	}

	result, err := d.mgr.Approve(id, req.Supervisor, verdict == "approve", req.Feedback, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}
	d.dispatcher.Deliver(result.Effects)

	c.JSON(http.StatusOK, gin.H{
		"status":  result.Item.Status,
		"percent": result.Item.ProgressPercent,
	})
}

type priorityRequest struct {
	Priority string `json:"priority" binding:"required"`
}

func (d *deps) handlePriority(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req priorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := d.mgr.SetPriority(id, req.Priority); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (d *deps) handleLedger(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	entries, err := views.Ledger(d.db, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type replyRequest struct {
	Supervisor string `json:"supervisor" binding:"required"`
	Text       string `json:"text" binding:"required"`
}

func (d *deps) handleReply(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fx, err := d.mgr.AttachReply(id, req.Supervisor, req.Text, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}
	d.dispatcher.Deliver(fx)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (d *deps) handleBoard(c *gin.Context) {
	scope, ok := d.scopeFrom(c)
	if !ok {
		return
	}
	rows, err := views.Board(d.db, scope, d.recentDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": views.EnrichSubjects(rows, d.subjects)})
}

func (d *deps) handleHistory(c *gin.Context) {
	scope, ok := d.scopeFrom(c)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.Query("days"))
	rows, err := views.History(d.db, scope, views.HistoryFilters{
		Days:   days,
		Bucket: c.Query("bucket"),
		Search: c.Query("search"),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": views.EnrichSubjects(rows, d.subjects)})
}

func (d *deps) handleChanges(c *gin.Context) {
	scope, ok := d.scopeFrom(c)
	if !ok {
		return
	}
	minutes, _ := strconv.Atoi(c.Query("minutes"))
	if minutes <= 0 {
		minutes = d.pollMinutes
	}
	changes, err := views.PollChanges(d.db, scope, minutes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}

func (d *deps) handleSummary(c *gin.Context) {
	scope, ok := d.scopeFrom(c)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.Query("days"))
	summary, err := views.BuildSummary(d.db, scope, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (d *deps) handleHelpers(c *gin.Context) {
	helpers, err := d.dir.EligibleHelpers(c.Query("department"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"helpers": helpers})
}

// scopeFrom builds the visibility scope from actor and view query params,
// pre-resolving the admin flag for team view.
func (d *deps) scopeFrom(c *gin.Context) (views.Scope, bool) {
	actor := strings.TrimSpace(c.Query("actor"))
	if actor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor is required"})
		return views.Scope{}, false
	}
	team := strings.EqualFold(c.Query("view"), "team")
	admin := false
	if team {
		var err error
		admin, err = d.dir.IsAdmin(actor)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return views.Scope{}, false
		}
	}
	return views.Scope{Actor: actor, TeamView: team, Admin: admin}, true
}

// paramID parses the :id path parameter.
func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// parseDate parses a YYYY-MM-DD date, returning nil when absent or invalid.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// writeError maps domain errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var dup *lifecycle.DuplicateError
	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{
			"error":       "duplicate work item",
			"existing_id": dup.ExistingID,
		})
	case errors.Is(err, lifecycle.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrNotFound) || views.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, lifecycle.ErrTerminal),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/services"
	"github.com/ieltsprep/practice-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *utils.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	validator *utils.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      validator,
	}
}

// ===== REQUEST STRUCTURES =====

type StartAttemptRequest struct {
	TestID uint `json:"test_id" validate:"required"`
}

type SaveAnswerRequest struct {
	QuestionNumber int    `json:"question_number" validate:"required,min=1"`
	Answer         string `json:"answer"`
}

type FlagRequest struct {
	QuestionNumber int `json:"question_number" validate:"required,min=1"`
}

type QuestionNoteRequest struct {
	QuestionNumber int    `json:"question_number" validate:"required,min=1"`
	Text           string `json:"text"`
}

type NavigateRequest struct {
	PartIndex int `json:"part_index" validate:"min=0"`
}

type HighlightNoteRequest struct {
	SectionIndex int    `json:"section_index" validate:"min=0"`
	Note         string `json:"note"`
}

// ===== LIFECYCLE =====

// StartAttempt starts or resumes a test sitting
// @Summary Start attempt
// @Description Starts a new attempt, or resumes the student's in-progress attempt on the same test
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body StartAttemptRequest true "Test to start"
// @Success 201 {object} services.StartAttemptResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /attempts/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting attempt", "test_id", req.TestID)

	resp, err := h.attemptService.Start(c.Request.Context(), req.TestID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// GetProgress returns the live state of a sitting
// @Summary Get attempt progress
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptProgress
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/progress [get]
func (h *AttemptHandler) GetProgress(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	progress, err := h.attemptService.GetProgress(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// ===== IN-SESSION STATE =====

// SaveAnswer records an answer for one question
// @Summary Save answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param answer body SaveAnswerRequest true "Answer"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/answers [post]
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.SaveAnswer(c.Request.Context(), id, userID, req.QuestionNumber, req.Answer); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Answer saved"})
}

// ToggleFlag toggles the review flag on a question
// @Summary Toggle question flag
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param flag body FlagRequest true "Question to toggle"
// @Success 200 {object} SuccessResponse
// @Router /attempts/{id}/flags [post]
func (h *AttemptHandler) ToggleFlag(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	flagged, err := h.attemptService.ToggleFlag(c.Request.Context(), id, userID, req.QuestionNumber)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Flag toggled",
		Data:    gin.H{"question_number": req.QuestionNumber, "flagged": flagged},
	})
}

// SetQuestionNote sets or clears the note attached to a question
// @Summary Set question note
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param note body QuestionNoteRequest true "Note text, empty to clear"
// @Success 200 {object} SuccessResponse
// @Router /attempts/{id}/notes [put]
func (h *AttemptHandler) SetQuestionNote(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req QuestionNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.SetQuestionNote(c.Request.Context(), id, userID, req.QuestionNumber, req.Text); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Note saved"})
}

// Navigate moves the sitting to another part
// @Summary Navigate between parts
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param navigation body NavigateRequest true "Target part index"
// @Success 200 {object} SuccessResponse
// @Router /attempts/{id}/navigate [post]
func (h *AttemptHandler) Navigate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.Navigate(c.Request.Context(), id, userID, req.PartIndex); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Navigated"})
}

// ===== HIGHLIGHTS =====

// AddHighlight creates a highlight from a text selection
// @Summary Add highlight
// @Tags highlights
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param highlight body services.AddHighlightRequest true "Selection"
// @Success 201 {object} highlight.Highlight
// @Failure 400 {object} ErrorResponse
// @Router /attempts/{id}/highlights [post]
func (h *AttemptHandler) AddHighlight(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req services.AddHighlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	hl, err := h.attemptService.AddHighlight(c.Request.Context(), id, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, hl)
}

// DeleteHighlight removes a highlight
// @Summary Delete highlight
// @Tags highlights
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param highlight_id path string true "Highlight ID"
// @Param section_index query int true "Section index"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/highlights/{highlight_id} [delete]
func (h *AttemptHandler) DeleteHighlight(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	highlightID := c.Param("highlight_id")
	sectionIndex := h.parseIntQuery(c, "section_index", 0)
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.DeleteHighlight(c.Request.Context(), id, userID, sectionIndex, highlightID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Highlight deleted"})
}

// SetHighlightNote attaches a note to a highlight, empty to clear
// @Summary Set highlight note
// @Tags highlights
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param highlight_id path string true "Highlight ID"
// @Param note body HighlightNoteRequest true "Note"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/highlights/{highlight_id}/note [put]
func (h *AttemptHandler) SetHighlightNote(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	highlightID := c.Param("highlight_id")
	var req HighlightNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.SetHighlightNote(c.Request.Context(), id, userID, req.SectionIndex, highlightID, req.Note); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Note saved"})
}

// ActivateHighlight marks one highlight active, deactivating all others
// @Summary Activate highlight
// @Tags highlights
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param highlight_id path string true "Highlight ID"
// @Param section_index query int true "Section index"
// @Success 200 {object} SuccessResponse
// @Router /attempts/{id}/highlights/{highlight_id}/activate [post]
func (h *AttemptHandler) ActivateHighlight(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	highlightID := c.Param("highlight_id")
	sectionIndex := h.parseIntQuery(c, "section_index", 0)
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.ActivateHighlight(c.Request.Context(), id, userID, sectionIndex, highlightID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Highlight activated"})
}

// ClearActiveHighlights deactivates every highlight in the sitting
// @Summary Clear active highlights
// @Tags highlights
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse
// @Router /attempts/{id}/highlights/active [delete]
func (h *AttemptHandler) ClearActiveHighlights(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.ClearActiveHighlights(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Active highlights cleared"})
}

// RenderSection returns a section's text split into plain and highlighted segments
// @Summary Render section with highlights
// @Tags highlights
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param section_index path int true "Section index"
// @Success 200 {array} highlight.Segment
// @Router /attempts/{id}/sections/{section_index}/render [get]
func (h *AttemptHandler) RenderSection(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	sectionIndex, ok := h.parseIntParam(c, "section_index")
	if !ok {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	segments, err := h.attemptService.RenderSection(c.Request.Context(), id, userID, sectionIndex)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, segments)
}

// ===== SUBMISSION =====

// SubmitAttempt grades the sitting and persists the result
// @Summary Submit attempt
// @Description Grades the attempt exactly once; concurrent submits are rejected
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.AttemptResult
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", id)

	result, err := h.attemptService.Submit(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AbandonAttempt ends the sitting without grading
// @Summary Abandon attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse
// @Router /attempts/{id}/abandon [post]
func (h *AttemptHandler) AbandonAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Attempt abandoned"})
}

// GetResult returns the graded result of a submitted attempt
// @Summary Get attempt result
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.AttemptResult
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/result [get]
func (h *AttemptHandler) GetResult(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.attemptService.GetResult(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMyAttempts lists the authenticated student's attempts
// @Summary List my attempts
// @Tags attempts
// @Produce json
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} ListResponse
// @Router /attempts [get]
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)
	filters := repositories.AttemptFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}
	if v := c.Query("test_id"); v != "" {
		if id := h.parseIntQuery(c, "test_id", 0); id > 0 {
			testID := uint(id)
			filters.TestID = &testID
		}
	}

	attempts, total, err := h.attemptService.ListByStudent(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Data:  attempts,
		Total: total,
		Page:  page,
		Size:  size,
	})
}

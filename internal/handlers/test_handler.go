package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/services"
	"github.com/ieltsprep/practice-service/internal/utils"
)

type TestHandler struct {
	BaseHandler
	testService  services.TestService
	importExport services.ImportExportService
	validator    *utils.Validator
}

func NewTestHandler(
	testService services.TestService,
	importExport services.ImportExportService,
	validator *utils.Validator,
	logger utils.Logger,
) *TestHandler {
	return &TestHandler{
		BaseHandler:  NewBaseHandler(logger),
		testService:  testService,
		importExport: importExport,
		validator:    validator,
	}
}

// CreateTest creates a new practice test
// @Summary Create test
// @Description Creates a new reading or listening practice test in draft status
// @Tags tests
// @Accept json
// @Produce json
// @Param test body services.CreateTestRequest true "Test data"
// @Success 201 {object} models.Test
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tests [post]
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req services.CreateTestRequest
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

	test, err := h.testService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// GetTest retrieves a test by ID without its sections
// @Summary Get test
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} models.Test
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id} [get]
func (h *TestHandler) GetTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// GetTestWithDetails retrieves a test with sections and questions
// @Summary Get test with details
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} models.Test
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/details [get]
func (h *TestHandler) GetTestWithDetails(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.testService.GetByIDWithDetails(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// GetTestByType retrieves a published test of the expected type. It backs the
// typed routes /reading/:id and /listening/:id, so a reading client cannot
// accidentally load a listening document.
func (h *TestHandler) GetTestByType(testType models.TestType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := h.parseIDParam(c, "id")
		if id == 0 {
			return
		}

		h.LogRequest(c, "Getting typed test", "test_id", id, "test_type", testType)

		test, err := h.testService.GetByIDWithDetails(c.Request.Context(), id)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		if test.TestType != testType {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Message: fmt.Sprintf("no %s test with this id", testType),
			})
			return
		}
		if test.Status != models.StatusActive {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "test is not published",
			})
			return
		}

		c.JSON(http.StatusOK, test)
	}
}

// ListTests lists tests with filters
// @Summary List tests
// @Tags tests
// @Produce json
// @Param test_type query string false "Filter by test type (reading, listening)"
// @Param status query string false "Filter by status"
// @Param difficulty query string false "Filter by difficulty"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} ListResponse
// @Router /tests [get]
func (h *TestHandler) ListTests(c *gin.Context) {
	filters := h.parseTestFilters(c)

	tests, total, err := h.testService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondList(c, tests, total, filters)
}

// SearchTests searches tests by title
// @Summary Search tests
// @Tags tests
// @Produce json
// @Param q query string true "Search query"
// @Success 200 {object} ListResponse
// @Router /tests/search [get]
func (h *TestHandler) SearchTests(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Search query is required",
		})
		return
	}

	filters := h.parseTestFilters(c)
	tests, total, err := h.testService.Search(c.Request.Context(), query, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondList(c, tests, total, filters)
}

// UpdateTest updates a draft test
// @Summary Update test
// @Tags tests
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param test body services.UpdateTestRequest true "Test update data"
// @Success 200 {object} models.Test
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tests/{id} [put]
func (h *TestHandler) UpdateTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTestRequest
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

	test, err := h.testService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// DeleteTest deletes a test without attempts
// @Summary Delete test
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /tests/{id} [delete]
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test deleted"})
}

// PublishTest makes a draft test available to students
// @Summary Publish test
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /tests/{id}/publish [post]
func (h *TestHandler) PublishTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.testService.Publish(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test published"})
}

// ArchiveTest retires a test from the catalog
// @Summary Archive test
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} SuccessResponse
// @Router /tests/{id}/archive [post]
func (h *TestHandler) ArchiveTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.testService.Archive(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test archived"})
}

// GetTestStats returns aggregate attempt statistics for a test
// @Summary Get test stats
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} repositories.TestStats
// @Router /tests/{id}/stats [get]
func (h *TestHandler) GetTestStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	stats, err := h.testService.GetStats(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ImportTest creates a test from an uploaded spreadsheet
// @Summary Import test
// @Description Creates a test from a CSV or Excel file of questions
// @Tags tests
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Question spreadsheet"
// @Param title formData string true "Test title"
// @Param test_type formData string true "Test type (reading, listening)"
// @Param time_limit formData int true "Time limit in minutes"
// @Success 201 {object} services.ImportTestResult
// @Failure 400 {object} ErrorResponse
// @Router /tests/import [post]
func (h *TestHandler) ImportTest(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "File is required",
			Details: err.Error(),
		})
		return
	}

	timeLimit, _ := strconv.Atoi(c.PostForm("time_limit"))
	meta := &services.ImportTestRequest{
		Title:      c.PostForm("title"),
		TestType:   models.TestType(c.PostForm("test_type")),
		Difficulty: models.DifficultyLevel(c.PostForm("difficulty")),
		TimeLimit:  timeLimit,
	}
	if err := h.validator.Validate(meta); err != nil {
		h.handleServiceError(c, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing test", "filename", fileHeader.Filename)

	result, err := h.importExport.ImportTestFromFile(c.Request.Context(), file, fileHeader.Filename, meta, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ExportTest downloads a test's questions as an Excel workbook
// @Summary Export test
// @Tags tests
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Test ID"
// @Param include_answers query bool false "Include correct answers"
// @Success 200 {file} binary
// @Router /tests/{id}/export [get]
func (h *TestHandler) ExportTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	includeAnswers := c.Query("include_answers") == "true"
	data, err := h.importExport.ExportTestToExcel(c.Request.Context(), id, userID, includeAnswers)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("test-%d.xlsx", id)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ExportTestResults downloads all submitted attempt results for a test
// @Summary Export test results
// @Tags tests
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Test ID"
// @Success 200 {file} binary
// @Router /tests/{id}/results/export [get]
func (h *TestHandler) ExportTestResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	data, err := h.importExport.ExportResults(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("test-%d-results.xlsx", id)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ===== HELPERS =====

func (h *TestHandler) parseTestFilters(c *gin.Context) repositories.TestFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.TestFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if v := c.Query("test_type"); v != "" {
		testType := models.TestType(v)
		filters.TestType = &testType
	}
	if v := c.Query("status"); v != "" {
		status := models.TestStatus(v)
		filters.Status = &status
	}
	if v := c.Query("difficulty"); v != "" {
		difficulty := models.DifficultyLevel(v)
		filters.Difficulty = &difficulty
	}
	if v := c.Query("created_by"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			createdBy := uint(id)
			filters.CreatedBy = &createdBy
		}
	}
	return filters
}

func (h *TestHandler) respondList(c *gin.Context, tests []*models.Test, total int64, filters repositories.TestFilters) {
	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}
	c.JSON(http.StatusOK, ListResponse{
		Data:  tests,
		Total: total,
		Page:  page,
		Size:  filters.Limit,
	})
}

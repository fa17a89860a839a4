package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
)

// ImportExportService handles bulk test authoring through spreadsheet files
// and exports of test content and attempt results.
type ImportExportService interface {
	ImportTestFromFile(ctx context.Context, file io.Reader, filename string, meta *ImportTestRequest, creatorID uint) (*ImportTestResult, error)
	ImportTestFromCSV(ctx context.Context, reader io.Reader, meta *ImportTestRequest, creatorID uint) (*ImportTestResult, error)
	ImportTestFromExcel(ctx context.Context, reader io.Reader, meta *ImportTestRequest, creatorID uint) (*ImportTestResult, error)

	ExportTestToExcel(ctx context.Context, testID uint, userID uint, includeAnswers bool) ([]byte, error)
	ExportResults(ctx context.Context, testID uint, userID uint) ([]byte, error)
}

// ImportTestRequest carries the test-level metadata that spreadsheet rows
// cannot express.
type ImportTestRequest struct {
	Title      string                 `json:"title" validate:"required,min=1,max=200"`
	TestType   models.TestType        `json:"test_type" validate:"required,test_type"`
	Difficulty models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	TimeLimit  int                    `json:"time_limit" validate:"required,min=5,max=300"`
}

type ImportTestResult struct {
	Test    *models.Test         `json:"test,omitempty"`
	Summary models.ImportSummary `json:"summary"`
}

// Column layout shared by CSV and Excel imports. Section metadata repeats on
// each row of the section; the first row of a section wins.
var requiredImportColumns = []string{"section", "question_number", "question_type", "question", "correct_answer"}

type importExportService struct {
	repo   repositories.Repository
	tests  TestService
	logger *slog.Logger
}

func NewImportExportService(repo repositories.Repository, tests TestService, logger *slog.Logger) ImportExportService {
	return &importExportService{
		repo:   repo,
		tests:  tests,
		logger: logger,
	}
}

// ===== IMPORT OPERATIONS =====

func (s *importExportService) ImportTestFromFile(ctx context.Context, file io.Reader, filename string, meta *ImportTestRequest, creatorID uint) (*ImportTestResult, error) {
	s.logger.Info("Starting test import", "filename", filename, "creator_id", creatorID)

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return s.ImportTestFromCSV(ctx, file, meta, creatorID)
	case ".xlsx", ".xls":
		return s.ImportTestFromExcel(ctx, file, meta, creatorID)
	default:
		return nil, NewValidationError("file", "unsupported file format", ext)
	}
}

func (s *importExportService) ImportTestFromCSV(ctx context.Context, reader io.Reader, meta *ImportTestRequest, creatorID uint) (*ImportTestResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return s.importRows(ctx, records, meta, creatorID, "CSV")
}

func (s *importExportService) ImportTestFromExcel(ctx context.Context, reader io.Reader, meta *ImportTestRequest, creatorID uint) (*ImportTestResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return s.importRows(ctx, rows, meta, creatorID, "Excel")
}

// importRows converts the row grid into sections and questions and creates
// the test through the normal authoring path, so imports pass the exact same
// validation as hand-built tests.
func (s *importExportService) importRows(ctx context.Context, rows [][]string, meta *ImportTestRequest, creatorID uint, format string) (*ImportTestResult, error) {
	started := time.Now()

	if len(rows) < 2 {
		return nil, NewValidationError("file", "file must have a header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range requiredImportColumns {
		if _, exists := headerMap[col]; !exists {
			return nil, NewValidationError("headers", fmt.Sprintf("missing required column: %s", col), col)
		}
	}

	summary := models.ImportSummary{TotalRows: len(rows) - 1}

	type sectionDraft struct {
		input SectionInput
		order int
	}
	sections := make(map[int]*sectionDraft)

	for rowIndex, record := range rows[1:] {
		rowNum := rowIndex + 2
		summary.ProcessedRows++

		getColumn := func(name string) string {
			if index, exists := headerMap[name]; exists && index < len(record) {
				return strings.TrimSpace(record[index])
			}
			return ""
		}

		sectionNum, err := strconv.Atoi(getColumn("section"))
		if err != nil || sectionNum < 1 {
			summary.Errors = append(summary.Errors, models.ImportValidationError{
				Row: rowNum, Field: "section", Message: "must be a positive section number",
			})
			summary.ErrorCount++
			continue
		}

		questionNumber, err := strconv.Atoi(getColumn("question_number"))
		if err != nil || questionNumber < 1 {
			summary.Errors = append(summary.Errors, models.ImportValidationError{
				Row: rowNum, Field: "question_number", Message: "must be a positive question number",
			})
			summary.ErrorCount++
			continue
		}

		questionText := getColumn("question")
		if questionText == "" {
			summary.Errors = append(summary.Errors, models.ImportValidationError{
				Row: rowNum, Field: "question", Message: "required field",
			})
			summary.ErrorCount++
			continue
		}

		answers := splitCell(getColumn("correct_answer"))
		if len(answers) == 0 {
			summary.Errors = append(summary.Errors, models.ImportValidationError{
				Row: rowNum, Field: "correct_answer", Message: "required field",
			})
			summary.ErrorCount++
			continue
		}

		draft, exists := sections[sectionNum]
		if !exists {
			draft = &sectionDraft{order: sectionNum}
			draft.input.Title = optionalCell(getColumn("section_title"))
			draft.input.Content = optionalCell(getColumn("section_content"))
			draft.input.AudioURL = optionalCell(getColumn("section_audio_url"))
			draft.input.Transcript = optionalCell(getColumn("section_transcript"))
			sections[sectionNum] = draft
		}

		draft.input.Questions = append(draft.input.Questions, QuestionInput{
			QuestionNumber: questionNumber,
			QuestionType:   models.QuestionType(strings.ToLower(getColumn("question_type"))),
			Question:       questionText,
			Options:        splitCell(getColumn("options")),
			CorrectAnswer:  answers,
			ContextText:    optionalCell(getColumn("context_text")),
			ImageURL:       optionalCell(getColumn("image_url")),
		})
		summary.SuccessCount++
	}

	summary.ProcessingTime = time.Since(started)

	if summary.ErrorCount > 0 {
		// Partial imports would produce tests with holes in the question
		// numbering, so a single bad row fails the whole file.
		return &ImportTestResult{Summary: summary}, NewValidationError("file", fmt.Sprintf("%d rows failed validation", summary.ErrorCount), nil)
	}
	if len(sections) == 0 {
		return &ImportTestResult{Summary: summary}, NewValidationError("file", "no valid question rows found", nil)
	}

	orders := make([]int, 0, len(sections))
	for order := range sections {
		orders = append(orders, order)
	}
	sort.Ints(orders)

	createReq := &CreateTestRequest{
		Title:      meta.Title,
		TestType:   meta.TestType,
		Difficulty: meta.Difficulty,
		TimeLimit:  meta.TimeLimit,
	}
	for _, order := range orders {
		createReq.Sections = append(createReq.Sections, sections[order].input)
	}

	test, err := s.tests.Create(ctx, createReq, creatorID)
	if err != nil {
		return &ImportTestResult{Summary: summary}, err
	}

	for _, section := range test.Sections {
		for _, question := range section.Questions {
			summary.CreatedQuestions = append(summary.CreatedQuestions, question.ID)
		}
	}
	summary.ProcessingTime = time.Since(started)

	s.logger.Info("Test import completed",
		"format", format,
		"test_id", test.ID,
		"total_rows", summary.TotalRows,
		"success_count", summary.SuccessCount)

	return &ImportTestResult{Test: test, Summary: summary}, nil
}

// ===== EXPORT OPERATIONS =====

func (s *importExportService) ExportTestToExcel(ctx context.Context, testID uint, userID uint, includeAnswers bool) ([]byte, error) {
	test, err := s.getOwnedTest(ctx, testID, userID, "export")
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Questions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Section", "Section Title", "Question Number", "Question Type", "Question",
		"Options", "Context Text", "Image URL",
	}
	if includeAnswers {
		headers = append(headers, "Correct Answer")
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	rowNum := 2
	for _, section := range test.Sections {
		title := ""
		if section.Title != nil {
			title = *section.Title
		}
		for _, question := range section.Questions {
			options, err := question.OptionList()
			if err != nil {
				return nil, err
			}
			row := []interface{}{
				section.Position + 1,
				title,
				question.QuestionNumber,
				string(question.QuestionType),
				question.Question,
				strings.Join(options, "|"),
				derefOr(question.ContextText, ""),
				derefOr(question.ImageURL, ""),
			}
			if includeAnswers {
				canonical, err := question.CanonicalAnswer()
				if err != nil {
					return nil, err
				}
				row = append(row, canonical)
			}
			for colIndex, value := range row {
				cell, _ := excelize.CoordinatesToCellName(colIndex+1, rowNum)
				f.SetCellValue(sheetName, cell, value)
			}
			rowNum++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *importExportService) ExportResults(ctx context.Context, testID uint, userID uint) ([]byte, error) {
	if _, err := s.getOwnedTest(ctx, testID, userID, "export_results"); err != nil {
		return nil, err
	}

	status := models.AttemptSubmitted
	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		TestID: &testID,
		Status: status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Results"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Student ID", "Status", "Started At", "Submitted At", "End Reason",
		"Correct", "Incorrect", "Unanswered", "Total", "Band", "Time Spent (minutes)",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, attempt := range attempts {
		row := []interface{}{
			attempt.StudentID,
			string(attempt.Status),
			attempt.StartedAt.Format("2006-01-02 15:04:05"),
		}
		if attempt.SubmittedAt != nil {
			row = append(row, attempt.SubmittedAt.Format("2006-01-02 15:04:05"))
		} else {
			row = append(row, "")
		}
		row = append(row, derefOr(attempt.EndReason, ""))

		result, err := s.repo.Attempt().GetResult(ctx, attempt.ID)
		if err != nil {
			row = append(row, "", "", "", "", "")
		} else {
			row = append(row, result.Correct, result.Incorrect, result.Unanswered, result.Total, result.Band)
		}
		row = append(row, attempt.TimeSpent/60)

		for colIndex, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIndex+1, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// ===== HELPER FUNCTIONS =====

func (s *importExportService) getOwnedTest(ctx context.Context, testID uint, userID uint, action string) (*models.Test, error) {
	test, err := s.tests.GetByIDWithDetails(ctx, testID)
	if err != nil {
		return nil, err
	}
	isOwner, err := s.repo.Test().IsOwner(ctx, testID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check ownership: %w", err)
	}
	if !isOwner {
		return nil, NewPermissionError(userID, testID, "test", action, "not the test creator")
	}
	return test, nil
}

// splitCell breaks a pipe-separated cell into trimmed, non-empty parts.
func splitCell(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func optionalCell(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}

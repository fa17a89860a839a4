package postgres

import (
	"context"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"gorm.io/gorm"
)

type TestPostgreSQL struct {
	db *gorm.DB
}

func NewTestPostgreSQL(db *gorm.DB) repositories.TestRepository {
	return &TestPostgreSQL{db: db}
}

func (t *TestPostgreSQL) Create(ctx context.Context, test *models.Test) error {
	return t.db.WithContext(ctx).Create(test).Error
}

func (t *TestPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	var test models.Test
	if err := t.db.WithContext(ctx).First(&test, id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (t *TestPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error) {
	var test models.Test
	if err := t.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("test_sections.position ASC")
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("test_questions.question_number ASC")
		}).
		First(&test, id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (t *TestPostgreSQL) Update(ctx context.Context, test *models.Test) error {
	return t.db.WithContext(ctx).Save(test).Error
}

func (t *TestPostgreSQL) Delete(ctx context.Context, id uint) error {
	return t.db.WithContext(ctx).Delete(&models.Test{}, id).Error
}

func (t *TestPostgreSQL) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	var tests []*models.Test
	var total int64

	query := t.db.WithContext(ctx).Model(&models.Test{})
	query = t.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applySort(query, filters.SortBy, filters.SortOrder, map[string]bool{
		"created_at": true,
		"title":      true,
		"difficulty": true,
	})
	query = applyPagination(query, filters.Limit, filters.Offset)

	if err := query.Find(&tests).Error; err != nil {
		return nil, 0, err
	}
	return tests, total, nil
}

func (t *TestPostgreSQL) Search(ctx context.Context, search string, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	var tests []*models.Test
	var total int64

	query := t.db.WithContext(ctx).Model(&models.Test{}).
		Where("title ILIKE ?", "%"+search+"%")
	query = t.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applySort(query, filters.SortBy, filters.SortOrder, map[string]bool{
		"created_at": true,
		"title":      true,
	})
	query = applyPagination(query, filters.Limit, filters.Offset)

	if err := query.Find(&tests).Error; err != nil {
		return nil, 0, err
	}
	return tests, total, nil
}

func (t *TestPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.TestStatus) error {
	result := t.db.WithContext(ctx).Model(&models.Test{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *TestPostgreSQL) IsOwner(ctx context.Context, testID uint, userID uint) (bool, error) {
	var count int64
	err := t.db.WithContext(ctx).Model(&models.Test{}).
		Where("id = ? AND created_by = ?", testID, userID).
		Count(&count).Error
	return count > 0, err
}

func (t *TestPostgreSQL) HasAttempts(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := t.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("test_id = ?", id).
		Count(&count).Error
	return count > 0, err
}

func (t *TestPostgreSQL) ReplaceSections(ctx context.Context, testID uint, sections []models.Section) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sectionIDs []uint
		if err := tx.Model(&models.Section{}).
			Where("test_id = ?", testID).
			Pluck("id", &sectionIDs).Error; err != nil {
			return err
		}
		if len(sectionIDs) > 0 {
			if err := tx.Where("section_id IN ?", sectionIDs).
				Delete(&models.Question{}).Error; err != nil {
				return err
			}
			if err := tx.Where("test_id = ?", testID).
				Delete(&models.Section{}).Error; err != nil {
				return err
			}
		}
		for i := range sections {
			sections[i].ID = 0
			sections[i].TestID = testID
			sections[i].Position = i
		}
		if len(sections) == 0 {
			return nil
		}
		return tx.Create(&sections).Error
	})
}

func (t *TestPostgreSQL) AddQuestions(ctx context.Context, sectionID uint, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	for i := range questions {
		questions[i].ID = 0
		questions[i].SectionID = sectionID
	}
	return t.db.WithContext(ctx).Create(&questions).Error
}

func (t *TestPostgreSQL) GetStats(ctx context.Context, id uint) (*repositories.TestStats, error) {
	stats := &repositories.TestStats{}

	var totalAttempts, submitted int64
	if err := t.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("test_id = ?", id).
		Count(&totalAttempts).Error; err != nil {
		return nil, err
	}
	if err := t.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("test_id = ? AND status = ?", id, models.AttemptSubmitted).
		Count(&submitted).Error; err != nil {
		return nil, err
	}
	stats.TotalAttempts = int(totalAttempts)
	stats.SubmittedAttempts = int(submitted)

	row := t.db.WithContext(ctx).Model(&models.AttemptResult{}).
		Select("COALESCE(AVG(attempt_results.band), 0)").
		Joins("JOIN attempts ON attempts.id = attempt_results.attempt_id").
		Where("attempts.test_id = ?", id).
		Row()
	if err := row.Scan(&stats.AverageBand); err != nil {
		return nil, err
	}

	var avgTime float64
	row = t.db.WithContext(ctx).Model(&models.Attempt{}).
		Select("COALESCE(AVG(time_spent), 0)").
		Where("test_id = ? AND status = ?", id, models.AttemptSubmitted).
		Row()
	if err := row.Scan(&avgTime); err != nil {
		return nil, err
	}
	stats.AverageTimeSpent = int(avgTime)

	var questionCount int64
	if err := t.db.WithContext(ctx).Model(&models.Question{}).
		Joins("JOIN test_sections ON test_sections.id = test_questions.section_id").
		Where("test_sections.test_id = ?", id).
		Count(&questionCount).Error; err != nil {
		return nil, err
	}
	stats.QuestionCount = int(questionCount)

	return stats, nil
}

func (t *TestPostgreSQL) applyFilters(query *gorm.DB, filters repositories.TestFilters) *gorm.DB {
	if filters.TestType != nil {
		query = query.Where("test_type = ?", *filters.TestType)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	return query
}

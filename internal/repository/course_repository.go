package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"coursehub/pkg/models"
)

// CourseRepository handles course catalog persistence
type CourseRepository interface {
	// Core CRUD operations
	Create(ctx context.Context, course *models.Course, categoryIDs []string) error
	GetByID(ctx context.Context, id string) (*models.Course, error)
	GetWithCategories(ctx context.Context, id string) (*models.CourseWithCategories, error)
	List(ctx context.Context, limit, offset int) ([]models.Course, int, error)
	ListFiltered(ctx context.Context, limit, offset int, status, level string, categories []string) ([]models.Course, int, error)
	Update(ctx context.Context, courseID string, update *models.UpdateCourseRequest) error
	Delete(ctx context.Context, id string) error

	// Curriculum
	GetCurriculum(ctx context.Context, courseID string) ([]models.SectionWithChapters, error)
	CreateSection(ctx context.Context, section *models.CourseSection) error
	CreateChapter(ctx context.Context, chapter *models.CourseChapter) error
	GetChapter(ctx context.Context, courseID, chapterID string) (*models.CourseChapter, error)

	// Transaction support
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error

	// Search and Trending
	SearchCourses(ctx context.Context, query string, limit, offset int) ([]models.CourseWithCategories, int, error)
	GetTrendingCourses(ctx context.Context, limit int) ([]*models.TopCourse, error)
}

type courseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new PostgreSQL course repository
func NewCourseRepository(pool *pgxpool.Pool) CourseRepository {
	return &courseRepository{pool: pool}
}

// Create inserts a new course with categories and initializes stats
func (r *courseRepository) Create(ctx context.Context, course *models.Course, categoryIDs []string) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		courseQuery := `
			INSERT INTO courses (id, title, description, instructor, price_cents, currency, status, level, thumbnail_key, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, CURRENT_TIMESTAMP))
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(ctx, courseQuery,
			course.ID,
			course.Title,
			course.Description,
			course.Instructor,
			course.PriceCents,
			course.Currency,
			course.Status,
			course.Level,
			course.ThumbnailKey,
			course.CreatedAt,
		).Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt)

		if err != nil {
			return r.mapDBError(err, "create_course")
		}

		// Insert categories
		if err := r.updateCategoriesForCourse(ctx, tx, course.ID, categoryIDs); err != nil {
			return err
		}

		// Initialize stats
		statsQuery := `
			INSERT INTO course_stats (course_id, enrollment_count, review_count, discussion_count, weekly_score, updated_at)
			VALUES ($1, 0, 0, 0, 0, CURRENT_TIMESTAMP)
		`
		_, err = tx.Exec(ctx, statsQuery, course.ID)
		if err != nil {
			return r.mapDBError(err, "initialize_course_stats")
		}

		return nil
	})
}

// GetByID retrieves a course by ID
func (r *courseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	query := `
		SELECT id, title, description, instructor, price_cents, currency, status, level, thumbnail_key, created_at, updated_at
		FROM courses
		WHERE id = $1
	`
	course := &models.Course{}

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.Instructor,
		&course.PriceCents,
		&course.Currency,
		&course.Status,
		&course.Level,
		&course.ThumbnailKey,
		&course.CreatedAt,
		&course.UpdatedAt,
	)

	if err != nil {
		return nil, r.mapDBError(err, "get_course_by_id")
	}

	return course, nil
}

// GetWithCategories retrieves a course with its associated categories
func (r *courseRepository) GetWithCategories(ctx context.Context, id string) (*models.CourseWithCategories, error) {
	course, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	categoriesQuery := `
		SELECT c.id, c.name
		FROM categories c
		INNER JOIN course_categories cc ON c.id = cc.category_id
		WHERE cc.course_id = $1
		ORDER BY c.name
	`
	rows, err := r.pool.Query(ctx, categoriesQuery, id)
	if err != nil {
		return nil, r.mapDBError(err, "get_course_categories")
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var category models.Category
		err := rows.Scan(&category.ID, &category.Name)
		if err != nil {
			return nil, r.mapDBError(err, "scan_category")
		}
		categories = append(categories, category)
	}

	return &models.CourseWithCategories{
		Course:     *course,
		Categories: categories,
	}, nil
}

// List retrieves courses with pagination
func (r *courseRepository) List(ctx context.Context, limit, offset int) ([]models.Course, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM courses").Scan(&total)
	if err != nil {
		return nil, 0, r.mapDBError(err, "count_courses")
	}

	query := `
		SELECT id, title, description, instructor, price_cents, currency, status, level, thumbnail_key, created_at, updated_at
		FROM courses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, r.mapDBError(err, "list_courses")
	}
	defer rows.Close()

	courses, err := r.scanCourses(rows)
	if err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

// ListFiltered retrieves courses with optional status, level and category filters
func (r *courseRepository) ListFiltered(ctx context.Context, limit, offset int, status, level string, categories []string) ([]models.Course, int, error) {
	baseQuery := `
		FROM courses c
	`
	args := []interface{}{}
	filters := []string{}
	param := 1

	if len(categories) > 0 {
		placeholders := make([]string, len(categories))
		for i, cat := range categories {
			placeholders[i] = fmt.Sprintf("$%d", param)
			args = append(args, cat)
			param++
		}
		filters = append(filters, fmt.Sprintf("c.id IN (SELECT course_id FROM course_categories WHERE category_id IN (%s))", strings.Join(placeholders, ",")))
	}

	if status != "" {
		filters = append(filters, fmt.Sprintf("c.status = $%d", param))
		args = append(args, status)
		param++
	}

	if level != "" {
		filters = append(filters, fmt.Sprintf("c.level = $%d", param))
		args = append(args, level)
		param++
	}

	where := ""
	if len(filters) > 0 {
		where = " WHERE " + strings.Join(filters, " AND ")
	}

	// Count total
	countQuery := "SELECT COUNT(DISTINCT c.id) " + baseQuery + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, r.mapDBError(err, "count_courses_filtered")
	}

	// List results
	selectQuery := `
		SELECT DISTINCT c.id, c.title, c.description, c.instructor, c.price_cents, c.currency, c.status, c.level, c.thumbnail_key, c.created_at, c.updated_at
	` + baseQuery + where + `
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d
	`

	args = append(args, limit, offset)
	selectQuery = fmt.Sprintf(selectQuery, param, param+1)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, r.mapDBError(err, "list_courses_filtered")
	}
	defer rows.Close()

	courses, err := r.scanCourses(rows)
	if err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

// Update updates course information and categories
func (r *courseRepository) Update(ctx context.Context, courseID string, update *models.UpdateCourseRequest) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		// Build update query dynamically
		var updates []string
		var args []interface{}
		args = append(args, courseID)
		argCount := 2 // Starting from $2

		if update.Title != nil {
			updates = append(updates, fmt.Sprintf("title = $%d", argCount))
			args = append(args, *update.Title)
			argCount++
		}

		if update.Description != nil {
			updates = append(updates, fmt.Sprintf("description = $%d", argCount))
			args = append(args, *update.Description)
			argCount++
		}

		if update.Instructor != nil {
			updates = append(updates, fmt.Sprintf("instructor = $%d", argCount))
			args = append(args, *update.Instructor)
			argCount++
		}

		if update.PriceCents != nil {
			updates = append(updates, fmt.Sprintf("price_cents = $%d", argCount))
			args = append(args, *update.PriceCents)
			argCount++
		}

		if update.Currency != nil {
			updates = append(updates, fmt.Sprintf("currency = $%d", argCount))
			args = append(args, *update.Currency)
			argCount++
		}

		if update.Status != nil {
			updates = append(updates, fmt.Sprintf("status = $%d", argCount))
			args = append(args, *update.Status)
			argCount++
		}

		if update.Level != nil {
			updates = append(updates, fmt.Sprintf("level = $%d", argCount))
			args = append(args, *update.Level)
			argCount++
		}

		if update.ThumbnailKey != nil {
			updates = append(updates, fmt.Sprintf("thumbnail_key = $%d", argCount))
			args = append(args, *update.ThumbnailKey)
			argCount++
		}

		if len(updates) == 0 {
			return nil // Nothing to update
		}

		query := fmt.Sprintf(`
			UPDATE courses
			SET %s, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1
			RETURNING id
		`, strings.Join(updates, ", "))

		var updatedID string
		err := tx.QueryRow(ctx, query, args...).Scan(&updatedID)
		if err != nil {
			return r.mapDBError(err, "update_course")
		}

		// Update categories if provided
		if update.CategoryIDs != nil {
			if err := r.updateCategoriesForCourse(ctx, tx, courseID, update.CategoryIDs); err != nil {
				return err
			}
		}

		return nil
	})
}

// Delete removes a course and all related data
func (r *courseRepository) Delete(ctx context.Context, id string) error {
	return r.WithTransaction(ctx, func(tx pgx.Tx) error {
		// Delete will cascade to course_categories, sections, chapters, reviews,
		// discussion_messages and course_stats
		query := `DELETE FROM courses WHERE id = $1 RETURNING id`
		var deletedID string
		err := tx.QueryRow(ctx, query, id).Scan(&deletedID)
		if err != nil {
			return r.mapDBError(err, "delete_course")
		}
		return nil
	})
}

// GetCurriculum returns the ordered section/chapter outline of a course
func (r *courseRepository) GetCurriculum(ctx context.Context, courseID string) ([]models.SectionWithChapters, error) {
	sectionsQuery := `
		SELECT id, course_id, title, position
		FROM course_sections
		WHERE course_id = $1
		ORDER BY position, id
	`
	rows, err := r.pool.Query(ctx, sectionsQuery, courseID)
	if err != nil {
		return nil, r.mapDBError(err, "get_course_sections")
	}
	defer rows.Close()

	var curriculum []models.SectionWithChapters
	for rows.Next() {
		var section models.CourseSection
		if err := rows.Scan(&section.ID, &section.CourseID, &section.Title, &section.Position); err != nil {
			return nil, r.mapDBError(err, "scan_section")
		}
		curriculum = append(curriculum, models.SectionWithChapters{CourseSection: section})
	}
	rows.Close()

	chaptersQuery := `
		SELECT ch.id, ch.section_id, ch.title, ch.position, ch.video_key, ch.duration_seconds, ch.free_preview
		FROM course_chapters ch
		INNER JOIN course_sections s ON ch.section_id = s.id
		WHERE s.course_id = $1
		ORDER BY ch.position, ch.id
	`
	chRows, err := r.pool.Query(ctx, chaptersQuery, courseID)
	if err != nil {
		return nil, r.mapDBError(err, "get_course_chapters")
	}
	defer chRows.Close()

	bySection := make(map[string]int, len(curriculum))
	for i, section := range curriculum {
		bySection[section.ID] = i
	}

	for chRows.Next() {
		var chapter models.CourseChapter
		if err := chRows.Scan(
			&chapter.ID,
			&chapter.SectionID,
			&chapter.Title,
			&chapter.Position,
			&chapter.VideoKey,
			&chapter.DurationSeconds,
			&chapter.FreePreview,
		); err != nil {
			return nil, r.mapDBError(err, "scan_chapter")
		}
		if i, ok := bySection[chapter.SectionID]; ok {
			curriculum[i].Chapters = append(curriculum[i].Chapters, chapter)
		}
	}

	return curriculum, nil
}

// CreateSection appends a section to a course's curriculum
func (r *courseRepository) CreateSection(ctx context.Context, section *models.CourseSection) error {
	query := `
		INSERT INTO course_sections (id, course_id, title, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		section.ID,
		section.CourseID,
		section.Title,
		section.Position,
	).Scan(&section.ID)
	if err != nil {
		return r.mapDBError(err, "create_section")
	}
	return nil
}

// CreateChapter appends a chapter to a curriculum section
func (r *courseRepository) CreateChapter(ctx context.Context, chapter *models.CourseChapter) error {
	query := `
		INSERT INTO course_chapters (id, section_id, title, position, video_key, duration_seconds, free_preview)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		chapter.ID,
		chapter.SectionID,
		chapter.Title,
		chapter.Position,
		chapter.VideoKey,
		chapter.DurationSeconds,
		chapter.FreePreview,
	).Scan(&chapter.ID)
	if err != nil {
		return r.mapDBError(err, "create_chapter")
	}
	return nil
}

// GetChapter fetches a chapter, verifying it belongs to the given course
func (r *courseRepository) GetChapter(ctx context.Context, courseID, chapterID string) (*models.CourseChapter, error) {
	query := `
		SELECT ch.id, ch.section_id, ch.title, ch.position, ch.video_key, ch.duration_seconds, ch.free_preview
		FROM course_chapters ch
		INNER JOIN course_sections s ON ch.section_id = s.id
		WHERE ch.id = $1 AND s.course_id = $2
	`
	chapter := &models.CourseChapter{}
	err := r.pool.QueryRow(ctx, query, chapterID, courseID).Scan(
		&chapter.ID,
		&chapter.SectionID,
		&chapter.Title,
		&chapter.Position,
		&chapter.VideoKey,
		&chapter.DurationSeconds,
		&chapter.FreePreview,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("get_chapter: %w", models.ErrChapterNotFound)
	}
	if err != nil {
		return nil, r.mapDBError(err, "get_chapter")
	}
	return chapter, nil
}

// WithTransaction executes a function within a database transaction
func (r *courseRepository) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return r.mapDBError(err, "begin_transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

// updateCategoriesForCourse updates the categories for a course (helper method)
func (r *courseRepository) updateCategoriesForCourse(ctx context.Context, tx pgx.Tx, courseID string, categoryIDs []string) error {
	// Delete existing categories
	_, err := tx.Exec(ctx, "DELETE FROM course_categories WHERE course_id = $1", courseID)
	if err != nil {
		return r.mapDBError(err, "delete_course_categories")
	}

	// Insert new categories
	for _, categoryID := range categoryIDs {
		// Try to insert category (ignore if exists)
		_, err := tx.Exec(ctx, `
			INSERT INTO categories (id, name)
			VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING
		`, categoryID, titleFromSlug(categoryID))
		if err != nil {
			return r.mapDBError(err, "ensure_category_exists")
		}

		// Insert course_category relationship
		_, err = tx.Exec(ctx, `
			INSERT INTO course_categories (course_id, category_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, courseID, categoryID)
		if err != nil {
			return r.mapDBError(err, "insert_course_category")
		}
	}

	return nil
}

// titleFromSlug turns "web-development" into "Web Development"
func titleFromSlug(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// SearchCourses searches published courses by title or description
func (r *courseRepository) SearchCourses(ctx context.Context, query string, limit, offset int) ([]models.CourseWithCategories, int, error) {
	searchQuery := strings.TrimSpace(query)
	if searchQuery == "" {
		return []models.CourseWithCategories{}, 0, nil
	}

	countSQL := `
		SELECT COUNT(*)
		FROM courses
		WHERE search_vector @@ websearch_to_tsquery('english', $1)
		  AND status = 'published'
	`
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, searchQuery).Scan(&total); err != nil {
		return nil, 0, r.mapDBError(err, "count_search_results")
	}
	if total == 0 {
		return []models.CourseWithCategories{}, 0, nil
	}

	searchSQL := `
		SELECT
			c.id, c.title, c.description, c.instructor, c.price_cents, c.currency, c.status, c.level, c.thumbnail_key, c.created_at, c.updated_at
		FROM courses c
		WHERE c.search_vector @@ websearch_to_tsquery('english', $1)
		  AND c.status = 'published'
		ORDER BY ts_rank_cd(c.search_vector, websearch_to_tsquery('english', $1)) DESC, c.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, searchSQL, searchQuery, limit, offset)
	if err != nil {
		return nil, 0, r.mapDBError(err, "search_courses")
	}
	defer rows.Close()

	courses, err := r.scanCourses(rows)
	if err != nil {
		return nil, 0, err
	}

	results := make([]models.CourseWithCategories, 0, len(courses))
	for _, course := range courses {
		results = append(results, models.CourseWithCategories{Course: course})
	}
	return results, total, nil
}

// GetTrendingCourses retrieves the trending courses based on weekly score
func (r *courseRepository) GetTrendingCourses(ctx context.Context, limit int) ([]*models.TopCourse, error) {
	query := `
		SELECT
			c.id, c.title, c.thumbnail_key,
			s.weekly_score
		FROM courses c
		INNER JOIN course_stats s ON c.id = s.course_id
		WHERE c.status = 'published'
		ORDER BY s.weekly_score DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, r.mapDBError(err, "get_trending_courses")
	}
	defer rows.Close()

	var results []*models.TopCourse
	rank := 1
	for rows.Next() {
		var course models.TopCourse
		var thumbnailKey string
		if err := rows.Scan(
			&course.CourseID,
			&course.Title,
			&thumbnailKey,
			&course.WeeklyScore,
		); err != nil {
			return nil, r.mapDBError(err, "scan_trending_course")
		}
		course.ThumbnailURL = thumbnailKey
		course.Rank = rank
		results = append(results, &course)
		rank++
	}
	return results, nil
}

// scanCourses collects course rows
func (r *courseRepository) scanCourses(rows pgx.Rows) ([]models.Course, error) {
	var courses []models.Course
	for rows.Next() {
		var course models.Course
		if err := rows.Scan(
			&course.ID,
			&course.Title,
			&course.Description,
			&course.Instructor,
			&course.PriceCents,
			&course.Currency,
			&course.Status,
			&course.Level,
			&course.ThumbnailKey,
			&course.CreatedAt,
			&course.UpdatedAt,
		); err != nil {
			return nil, r.mapDBError(err, "scan_course")
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// mapDBError maps database errors to application errors
func (r *courseRepository) mapDBError(err error, operation string) error {
	if err == pgx.ErrNoRows {
		return fmt.Errorf("%s: %w", operation, models.ErrCourseNotFound)
	}

	if pgErr, ok := err.(*pgconn.PgError); ok {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate course entry: %w", err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("invalid category reference: %w", err)
		case "22P02": // invalid_text_representation
			return fmt.Errorf("invalid course status: %w", err)
		}
	}

	return fmt.Errorf("database error during %s: %w", operation, err)
}

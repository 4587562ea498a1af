// Package core - Course Catalog Business Logic
// Protocol-agnostic course management service
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"coursehub/internal/repository"
	"coursehub/pkg/logger"
	"coursehub/pkg/models"
	"coursehub/pkg/objectstore"
)

// CourseService defines course catalog operations
type CourseService interface {
	Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error)
	GetByID(ctx context.Context, id string) (*models.Course, error)
	GetDetail(ctx context.Context, id string) (*models.CourseDetail, error)
	List(ctx context.Context, req models.CourseSearchRequest) (*models.CourseListResponse, error)
	Search(ctx context.Context, query string, limit, offset int) (*models.CourseListResponse, error)
	Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, id string) error
	AddSection(ctx context.Context, courseID string, req models.CreateSectionRequest) (*models.CourseSection, error)
	AddChapter(ctx context.Context, courseID, sectionID string, req models.CreateChapterRequest) (*models.CourseChapter, error)
}

type courseService struct {
	courseRepo   repository.CourseRepository
	statsRepo    repository.StatsRepository
	activityRepo repository.ActivityRepository
	assets       objectstore.Store
}

// NewCourseService creates a new course service
func NewCourseService(courseRepo repository.CourseRepository, statsRepo repository.StatsRepository, activityRepo repository.ActivityRepository, assets objectstore.Store) CourseService {
	return &courseService{
		courseRepo:   courseRepo,
		statsRepo:    statsRepo,
		activityRepo: activityRepo,
		assets:       assets,
	}
}

// Create creates a new course
func (s *courseService) Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.Instructor == "" {
		return nil, fmt.Errorf("instructor is required")
	}
	if req.PriceCents < 0 {
		return nil, fmt.Errorf("price cannot be negative")
	}
	if req.Status == "" {
		req.Status = string(models.CourseStatusDraft)
	}
	if !models.IsValidCourseStatus(req.Status) {
		return nil, fmt.Errorf("invalid status: must be one of [draft, published, archived]")
	}
	if req.Level == "" {
		req.Level = string(models.CourseLevelBeginner)
	}
	if !models.IsValidCourseLevel(req.Level) {
		return nil, fmt.Errorf("invalid level: must be one of [beginner, intermediate, advanced]")
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	course := &models.Course{
		ID:           uuid.New().String(),
		Title:        req.Title,
		Description:  req.Description,
		Instructor:   req.Instructor,
		PriceCents:   req.PriceCents,
		Currency:     req.Currency,
		Status:       req.Status,
		Level:        req.Level,
		ThumbnailKey: req.ThumbnailKey,
		CreatedAt:    time.Now(),
	}

	if err := s.courseRepo.Create(ctx, course, req.CategoryIDs); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	if course.Status == string(models.CourseStatusPublished) {
		s.announceCourse(ctx, course)
	}

	s.resolveThumbnail(course)
	return course, nil
}

// GetByID retrieves a course by ID
func (s *courseService) GetByID(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("course not found: %w", err)
	}
	s.resolveThumbnail(course)
	return course, nil
}

// GetDetail retrieves the full course page: categories, curriculum and stats
func (s *courseService) GetDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.courseRepo.GetWithCategories(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("course not found: %w", err)
	}

	curriculum, err := s.courseRepo.GetCurriculum(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load curriculum: %w", err)
	}

	detail := &models.CourseDetail{
		CourseWithCategories: *course,
		Curriculum:           curriculum,
	}

	stats, err := s.statsRepo.GetByCourseID(ctx, id)
	if err != nil {
		logger.Warnf("failed to load stats for course %s: %v", id, err)
	} else {
		detail.Stats = stats
	}

	s.resolveThumbnail(&detail.Course)
	return detail, nil
}

// List retrieves courses with pagination
func (s *courseService) List(ctx context.Context, req models.CourseSearchRequest) (*models.CourseListResponse, error) {
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	if strings.TrimSpace(req.Query) != "" {
		results, total, err := s.courseRepo.SearchCourses(ctx, req.Query, req.Limit, req.Offset)
		if err != nil {
			return nil, fmt.Errorf("failed to search courses: %w", err)
		}
		return s.listResponse(results, total, req.Limit, req.Offset), nil
	}

	if req.Status != "" || req.Level != "" || len(req.Categories) > 0 {
		list, total, err := s.courseRepo.ListFiltered(ctx, req.Limit, req.Offset, req.Status, req.Level, req.Categories)
		if err != nil {
			return nil, fmt.Errorf("failed to list courses: %w", err)
		}

		out := make([]models.CourseWithCategories, 0, len(list))
		for _, course := range list {
			out = append(out, models.CourseWithCategories{
				Course:     course,
				Categories: []models.Category{},
			})
		}
		return s.listResponse(out, total, req.Limit, req.Offset), nil
	}

	list, total, err := s.courseRepo.List(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	out := make([]models.CourseWithCategories, 0, len(list))
	for _, course := range list {
		out = append(out, models.CourseWithCategories{
			Course:     course,
			Categories: []models.Category{},
		})
	}
	return s.listResponse(out, total, req.Limit, req.Offset), nil
}

// Search performs full-text search over published courses
func (s *courseService) Search(ctx context.Context, query string, limit, offset int) (*models.CourseListResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	results, total, err := s.courseRepo.SearchCourses(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search courses: %w", err)
	}
	return s.listResponse(results, total, limit, offset), nil
}

// Update updates course information
func (s *courseService) Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.Course, error) {
	if req.Status != nil && !models.IsValidCourseStatus(*req.Status) {
		return nil, fmt.Errorf("invalid status: must be one of [draft, published, archived]")
	}
	if req.Level != nil && !models.IsValidCourseLevel(*req.Level) {
		return nil, fmt.Errorf("invalid level: must be one of [beginner, intermediate, advanced]")
	}
	if req.PriceCents != nil && *req.PriceCents < 0 {
		return nil, fmt.Errorf("price cannot be negative")
	}

	current, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("course not found: %w", err)
	}

	if err := s.courseRepo.Update(ctx, id, &req); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	updated, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload course: %w", err)
	}

	// Announce the publish transition, not every edit to a published course
	if updated.Status == string(models.CourseStatusPublished) && current.Status != string(models.CourseStatusPublished) {
		s.announceCourse(ctx, updated)
	}

	s.resolveThumbnail(updated)
	return updated, nil
}

// Delete removes a course
func (s *courseService) Delete(ctx context.Context, id string) error {
	if err := s.courseRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}

// AddSection appends a section to a course's curriculum
func (s *courseService) AddSection(ctx context.Context, courseID string, req models.CreateSectionRequest) (*models.CourseSection, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.Position < 0 {
		return nil, fmt.Errorf("position cannot be negative")
	}

	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		return nil, fmt.Errorf("course not found: %w", err)
	}

	section := &models.CourseSection{
		ID:       uuid.New().String(),
		CourseID: courseID,
		Title:    req.Title,
		Position: req.Position,
	}

	if err := s.courseRepo.CreateSection(ctx, section); err != nil {
		return nil, fmt.Errorf("failed to create section: %w", err)
	}

	return section, nil
}

// AddChapter appends a chapter to a curriculum section
func (s *courseService) AddChapter(ctx context.Context, courseID, sectionID string, req models.CreateChapterRequest) (*models.CourseChapter, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.Position < 0 {
		return nil, fmt.Errorf("position cannot be negative")
	}
	if req.DurationSeconds < 0 {
		return nil, fmt.Errorf("duration cannot be negative")
	}

	curriculum, err := s.courseRepo.GetCurriculum(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load curriculum: %w", err)
	}

	found := false
	for _, section := range curriculum {
		if section.ID == sectionID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("section %s does not belong to course %s: %w", sectionID, courseID, models.ErrNotFound)
	}

	chapter := &models.CourseChapter{
		ID:              uuid.New().String(),
		SectionID:       sectionID,
		Title:           req.Title,
		Position:        req.Position,
		VideoKey:        req.VideoKey,
		DurationSeconds: req.DurationSeconds,
		FreePreview:     req.FreePreview,
	}

	if err := s.courseRepo.CreateChapter(ctx, chapter); err != nil {
		return nil, fmt.Errorf("failed to create chapter: %w", err)
	}

	return chapter, nil
}

// announceCourse pushes a publish notification to the feed and UDP broadcaster.
// Failures here must not fail the catalog write.
func (s *courseService) announceCourse(ctx context.Context, course *models.Course) {
	courseID := course.ID
	notification := &models.NotificationEvent{
		Type:      "new_course",
		Message:   fmt.Sprintf("New course published: %s", course.Title),
		CourseID:  &courseID,
		Priority:  "medium",
		Icon:      "🎓",
		Timestamp: time.Now(),
	}

	if err := s.activityRepo.LogNotificationEvent(ctx, notification); err != nil {
		logger.Warnf("failed to announce course %s: %v", course.ID, err)
	}
}

func (s *courseService) resolveThumbnail(course *models.Course) {
	if s.assets == nil || course.ThumbnailKey == "" {
		return
	}
	course.ThumbnailURL = s.assets.PublicURL(course.ThumbnailKey)
}

func (s *courseService) listResponse(data []models.CourseWithCategories, total, limit, offset int) *models.CourseListResponse {
	for i := range data {
		s.resolveThumbnail(&data[i].Course)
	}
	return &models.CourseListResponse{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

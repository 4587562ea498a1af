package models

import (
	"time"
)

// CourseStatus represents valid course status values
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// CourseLevel represents the target audience of a course
type CourseLevel string

const (
	CourseLevelBeginner     CourseLevel = "beginner"
	CourseLevelIntermediate CourseLevel = "intermediate"
	CourseLevelAdvanced     CourseLevel = "advanced"
)

// Course represents a course
type Course struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Instructor   string    `json:"instructor" db:"instructor"`
	PriceCents   int       `json:"price_cents" db:"price_cents"` // 0 = free
	Currency     string    `json:"currency" db:"currency"`
	Status       string    `json:"status" db:"status"` // draft, published, archived
	Level        string    `json:"level" db:"level"`   // beginner, intermediate, advanced
	ThumbnailKey string    `json:"-" db:"thumbnail_key"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty" db:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Category represents a course category
type Category struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// CourseWithCategories represents a course with populated categories for API responses
type CourseWithCategories struct {
	Course
	Categories []Category `json:"categories"`
}

// CourseSection is one row of a course's curriculum outline
type CourseSection struct {
	ID       string `json:"id" db:"id"`
	CourseID string `json:"course_id" db:"course_id"`
	Title    string `json:"title" db:"title"`
	Position int    `json:"position" db:"position"`
}

// CourseChapter is a playable unit inside a section
type CourseChapter struct {
	ID              string `json:"id" db:"id"`
	SectionID       string `json:"section_id" db:"section_id"`
	Title           string `json:"title" db:"title"`
	Position        int    `json:"position" db:"position"`
	VideoKey        string `json:"-" db:"video_key"`
	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`
	FreePreview     bool   `json:"free_preview" db:"free_preview"`
}

// SectionWithChapters represents one curriculum section with its chapters
type SectionWithChapters struct {
	CourseSection
	Chapters []CourseChapter `json:"chapters"`
}

// CourseDetail is the full course page payload
type CourseDetail struct {
	CourseWithCategories
	Curriculum []SectionWithChapters `json:"curriculum"`
	Stats      *CourseStats          `json:"stats,omitempty"`
}

// CourseSearchRequest represents search parameters
type CourseSearchRequest struct {
	Query      string   `json:"query" form:"query"`
	Categories []string `json:"categories" form:"categories"`
	Status     string   `json:"status" form:"status"`
	Level      string   `json:"level" form:"level"`
	Limit      int      `json:"limit" form:"limit" validate:"min=1,max=100"`
	Offset     int      `json:"offset" form:"offset" validate:"min=0"`
}

// CourseListResponse represents paginated course results
type CourseListResponse struct {
	Data    []CourseWithCategories `json:"data"`
	Total   int                    `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
	HasMore bool                   `json:"has_more"`
}

// CreateCourseRequest represents a request to create a new course
type CreateCourseRequest struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	Instructor   string   `json:"instructor" validate:"required"`
	PriceCents   int      `json:"price_cents" validate:"min=0"`
	Currency     string   `json:"currency"`
	Status       string   `json:"status" validate:"oneof=draft published archived"`
	Level        string   `json:"level" validate:"oneof=beginner intermediate advanced"`
	ThumbnailKey string   `json:"thumbnail_key"`
	CategoryIDs  []string `json:"category_ids"`
}

// UpdateCourseRequest represents a request to update a course
type UpdateCourseRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Instructor   *string  `json:"instructor"`
	PriceCents   *int     `json:"price_cents" validate:"omitempty,min=0"`
	Currency     *string  `json:"currency"`
	Status       *string  `json:"status" validate:"omitempty,oneof=draft published archived"`
	Level        *string  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	ThumbnailKey *string  `json:"thumbnail_key"`
	CategoryIDs  []string `json:"category_ids"`
}

// CreateSectionRequest adds a section to a course's curriculum
type CreateSectionRequest struct {
	Title    string `json:"title" validate:"required"`
	Position int    `json:"position" validate:"min=0"`
}

// CreateChapterRequest adds a chapter to a curriculum section
type CreateChapterRequest struct {
	Title           string `json:"title" validate:"required"`
	Position        int    `json:"position" validate:"min=0"`
	VideoKey        string `json:"video_key"`
	DurationSeconds int    `json:"duration_seconds" validate:"min=0"`
	FreePreview     bool   `json:"free_preview"`
}

// PlaybackResponse carries a short-lived signed URL for a chapter video
type PlaybackResponse struct {
	ChapterID string    `json:"chapter_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidateCourseSearch validates course search request
func ValidateCourseSearch(req *CourseSearchRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return nil
}

// IsValidCourseStatus validates status against schema constraints
func IsValidCourseStatus(status string) bool {
	switch CourseStatus(status) {
	case CourseStatusDraft, CourseStatusPublished, CourseStatusArchived:
		return true
	default:
		return false
	}
}

// IsValidCourseLevel validates level against schema constraints
func IsValidCourseLevel(level string) bool {
	switch CourseLevel(level) {
	case CourseLevelBeginner, CourseLevelIntermediate, CourseLevelAdvanced:
		return true
	default:
		return false
	}
}

// IsFree reports whether the course checks out without payment
func (c *Course) IsFree() bool {
	return c.PriceCents == 0
}

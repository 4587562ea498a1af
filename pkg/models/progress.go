package models

import (
	"errors"
	"time"
)

// ChapterProgress tracks completion of a single chapter.
// Serialized camelCase: progress payloads predate the rest of the API and
// existing clients depend on the original key casing.
type ChapterProgress struct {
	ChapterID string `json:"chapterId" db:"chapter_id"`
	Completed bool   `json:"completed" db:"completed"`
}

// SectionProgress groups chapter progress under one curriculum section.
// Chapter entries are ordered and unique by chapterId.
type SectionProgress struct {
	SectionID string            `json:"sectionId"`
	Chapters  []ChapterProgress `json:"chapters"`
}

// CourseProgress is the per-user per-course progress record. At most one
// exists for a (userId, courseId) pair. EnrollmentDate is written once when
// the record is first created and never changes afterwards.
type CourseProgress struct {
	UserID                string            `json:"userId" db:"user_id"`
	CourseID              string            `json:"courseId" db:"course_id"`
	EnrollmentDate        time.Time         `json:"enrollmentDate" db:"enrollment_date"`
	OverallProgress       float64           `json:"overallProgress" db:"overall_progress"`
	LastAccessedTimestamp time.Time         `json:"lastAccessedTimestamp" db:"last_accessed"`
	Sections              []SectionProgress `json:"sections" db:"sections"`
	Version               int64             `json:"-" db:"version"`
}

// UpdateProgressRequest is the PUT /users/progress/:course_id body
type UpdateProgressRequest struct {
	Sections []SectionProgress `json:"sections" validate:"required"`
}

// LibraryEntry joins an owned course with its progress for library listings
type LibraryEntry struct {
	Course          CourseWithCategories `json:"course"`
	PurchasedAt     time.Time            `json:"purchased_at"`
	OverallProgress float64              `json:"overall_progress"`
	LastAccessed    *time.Time           `json:"last_accessed,omitempty"`
}

// ValidateIncomingSections rejects payloads with missing identifiers before
// any stored state is touched
func ValidateIncomingSections(sections []SectionProgress) error {
	for _, section := range sections {
		if section.SectionID == "" {
			return errors.New("section is missing sectionId")
		}
		for _, chapter := range section.Chapters {
			if chapter.ChapterID == "" {
				return errors.New("chapter is missing chapterId")
			}
		}
	}
	return nil
}

// CountChapters returns (completed, total) across all sections
func CountChapters(sections []SectionProgress) (int, int) {
	completed, total := 0, 0
	for _, section := range sections {
		for _, chapter := range section.Chapters {
			total++
			if chapter.Completed {
				completed++
			}
		}
	}
	return completed, total
}

// CloneSections deep-copies a section slice so callers can merge without
// touching the original
func CloneSections(sections []SectionProgress) []SectionProgress {
	if sections == nil {
		return nil
	}
	out := make([]SectionProgress, len(sections))
	for i, section := range sections {
		out[i] = section
		out[i].Chapters = append([]ChapterProgress(nil), section.Chapters...)
	}
	return out
}

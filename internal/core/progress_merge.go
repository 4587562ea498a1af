// Package core - Progress Merge Logic
// Pure merge and aggregation functions for course progress records
package core

import (
	"coursehub/pkg/models"
)

// MergeSections combines stored sections with an incoming partial update.
// Existing sections keep their original order; sections seen for the first
// time are appended in the order they appear in incoming. Nothing is ever
// removed: a section absent from incoming is carried over untouched.
// Neither input slice is mutated.
func MergeSections(existing, incoming []models.SectionProgress) []models.SectionProgress {
	merged := models.CloneSections(existing)

	index := make(map[string]int, len(merged))
	for i, section := range merged {
		index[section.SectionID] = i
	}

	for _, section := range incoming {
		if i, ok := index[section.SectionID]; ok {
			merged[i].Chapters = MergeChapters(merged[i].Chapters, section.Chapters)
			continue
		}

		index[section.SectionID] = len(merged)
		merged = append(merged, models.SectionProgress{
			SectionID: section.SectionID,
			Chapters:  append([]models.ChapterProgress(nil), section.Chapters...),
		})
	}

	return merged
}

// MergeChapters overlays incoming chapter states onto existing ones, keyed by
// chapterId. The incoming completed flag always wins, so a chapter can be
// un-completed by a later update. Chapters absent from incoming are kept.
// Neither input slice is mutated.
func MergeChapters(existing, incoming []models.ChapterProgress) []models.ChapterProgress {
	merged := append([]models.ChapterProgress(nil), existing...)

	index := make(map[string]int, len(merged))
	for i, chapter := range merged {
		index[chapter.ChapterID] = i
	}

	for _, chapter := range incoming {
		if i, ok := index[chapter.ChapterID]; ok {
			merged[i].Completed = chapter.Completed
			continue
		}

		index[chapter.ChapterID] = len(merged)
		merged = append(merged, chapter)
	}

	return merged
}

// CalculateOverallProgress returns the completion percentage in [0,100]
// across all chapters of all sections, or 0 when there are no chapters.
func CalculateOverallProgress(sections []models.SectionProgress) float64 {
	completed, total := models.CountChapters(sections)
	if total == 0 {
		return 0
	}
	return 100 * float64(completed) / float64(total)
}

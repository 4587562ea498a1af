package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/pkg/models"
)

func section(id string, chapters ...models.ChapterProgress) models.SectionProgress {
	return models.SectionProgress{SectionID: id, Chapters: chapters}
}

func chapter(id string, completed bool) models.ChapterProgress {
	return models.ChapterProgress{ChapterID: id, Completed: completed}
}

func TestMergeSectionsAddsNewSection(t *testing.T) {
	existing := []models.SectionProgress{
		section("s1", chapter("c1", false)),
	}
	incoming := []models.SectionProgress{
		section("s2", chapter("c2", true)),
	}

	merged := MergeSections(existing, incoming)

	require.Len(t, merged, 2)
	assert.Equal(t, "s1", merged[0].SectionID)
	assert.Equal(t, "s2", merged[1].SectionID)
	assert.Equal(t, float64(50), CalculateOverallProgress(merged))
}

func TestMergeSectionsPreservesSiblingChapters(t *testing.T) {
	existing := []models.SectionProgress{
		section("s1", chapter("c1", false), chapter("c2", false)),
	}
	incoming := []models.SectionProgress{
		section("s1", chapter("c1", true)),
	}

	merged := MergeSections(existing, incoming)

	require.Len(t, merged, 1)
	require.Len(t, merged[0].Chapters, 2)
	assert.True(t, merged[0].Chapters[0].Completed, "c1 should be completed")
	assert.False(t, merged[0].Chapters[1].Completed, "c2 should be untouched")
	assert.Equal(t, float64(50), CalculateOverallProgress(merged))
}

func TestMergeSectionsIsIdempotent(t *testing.T) {
	existing := []models.SectionProgress{
		section("s1", chapter("c1", false), chapter("c2", true)),
		section("s2", chapter("c3", false)),
	}
	incoming := []models.SectionProgress{
		section("s1", chapter("c1", true), chapter("c4", false)),
		section("s3", chapter("c5", true)),
	}

	once := MergeSections(existing, incoming)
	twice := MergeSections(once, incoming)

	assert.Equal(t, once, twice)
}

func TestMergeSectionsKeepsExistingOrder(t *testing.T) {
	existing := []models.SectionProgress{
		section("s3", chapter("c1", false)),
		section("s1", chapter("c2", false)),
	}
	incoming := []models.SectionProgress{
		section("s9", chapter("c3", false)),
		section("s1", chapter("c2", true)),
		section("s5", chapter("c4", false)),
	}

	merged := MergeSections(existing, incoming)

	require.Len(t, merged, 4)
	assert.Equal(t, "s3", merged[0].SectionID)
	assert.Equal(t, "s1", merged[1].SectionID)
	assert.Equal(t, "s9", merged[2].SectionID)
	assert.Equal(t, "s5", merged[3].SectionID)
}

func TestMergeSectionsNeverRemoves(t *testing.T) {
	existing := []models.SectionProgress{
		section("s1", chapter("c1", true)),
		section("s2", chapter("c2", false)),
	}
	incoming := []models.SectionProgress{
		section("s2", chapter("c2", true)),
	}

	merged := MergeSections(existing, incoming)

	require.Len(t, merged, 2)
	assert.Equal(t, "s1", merged[0].SectionID)
	assert.True(t, merged[0].Chapters[0].Completed, "absent section must carry over untouched")
	assert.True(t, merged[1].Chapters[0].Completed)
}

func TestMergeChaptersAllowsUncomplete(t *testing.T) {
	existing := []models.ChapterProgress{chapter("c1", true)}
	incoming := []models.ChapterProgress{chapter("c1", false)}

	merged := MergeChapters(existing, incoming)

	require.Len(t, merged, 1)
	assert.False(t, merged[0].Completed, "later update must be able to un-complete")
}

func TestMergeChaptersKeepsEveryExistingChapter(t *testing.T) {
	existing := []models.ChapterProgress{
		chapter("c1", true),
		chapter("c2", false),
		chapter("c3", true),
	}
	incoming := []models.ChapterProgress{
		chapter("c2", true),
		chapter("c4", false),
	}

	merged := MergeChapters(existing, incoming)

	require.GreaterOrEqual(t, len(merged), len(existing))
	ids := make(map[string]bool, len(merged))
	for _, ch := range merged {
		ids[ch.ChapterID] = true
	}
	for _, ch := range existing {
		assert.True(t, ids[ch.ChapterID], "chapter %s must survive the merge", ch.ChapterID)
	}
}

func TestMergeSectionsDoesNotMutateInputs(t *testing.T) {
	existing := []models.SectionProgress{
		section("s1", chapter("c1", false), chapter("c2", false)),
	}
	incoming := []models.SectionProgress{
		section("s1", chapter("c1", true)),
		section("s2", chapter("c3", true)),
	}

	existingSnapshot := models.CloneSections(existing)
	incomingSnapshot := models.CloneSections(incoming)

	MergeSections(existing, incoming)

	assert.Equal(t, existingSnapshot, existing, "existing must stay untouched so the merge can be retried")
	assert.Equal(t, incomingSnapshot, incoming)
}

func TestMergeSectionsCollapsesDuplicateIncomingSections(t *testing.T) {
	incoming := []models.SectionProgress{
		section("s1", chapter("c1", false)),
		section("s1", chapter("c1", true), chapter("c2", false)),
	}

	merged := MergeSections(nil, incoming)

	require.Len(t, merged, 1)
	require.Len(t, merged[0].Chapters, 2)
	assert.True(t, merged[0].Chapters[0].Completed)
}

func TestCalculateOverallProgressBounds(t *testing.T) {
	assert.Equal(t, float64(0), CalculateOverallProgress(nil))
	assert.Equal(t, float64(0), CalculateOverallProgress([]models.SectionProgress{}))
	assert.Equal(t, float64(0), CalculateOverallProgress([]models.SectionProgress{
		section("s1"),
	}), "sections with no chapters must not divide by zero")

	all := []models.SectionProgress{
		section("s1", chapter("c1", true), chapter("c2", true)),
	}
	assert.Equal(t, float64(100), CalculateOverallProgress(all))

	third := []models.SectionProgress{
		section("s1", chapter("c1", true), chapter("c2", false), chapter("c3", false)),
	}
	assert.InDelta(t, 33.33, CalculateOverallProgress(third), 0.01)

	for _, sections := range [][]models.SectionProgress{nil, all, third} {
		got := CalculateOverallProgress(sections)
		assert.GreaterOrEqual(t, got, float64(0))
		assert.LessOrEqual(t, got, float64(100))
	}
}

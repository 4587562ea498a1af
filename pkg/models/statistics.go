package models

import (
	"time"
)

// CourseStats is the engagement counter row kept per course. WeeklyScore
// is refreshed nightly from the trailing week of feed rows; the plain
// counts only grow.
type CourseStats struct {
	CourseID        string    `json:"course_id" db:"course_id"`
	EnrollmentCount int       `json:"enrollment_count" db:"enrollment_count"`
	ReviewCount     int       `json:"review_count" db:"review_count"`
	DiscussionCount int       `json:"discussion_count" db:"discussion_count"`
	WeeklyScore     int       `json:"weekly_score" db:"weekly_score"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// TopCourse is one row of the weekly ranking.
type TopCourse struct {
	CourseID     string `json:"course_id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	WeeklyScore  int    `json:"weekly_score"`
	Rank         int    `json:"rank"`
}

// TrendingCourse ranks courses by raw activity volume inside a window.
type TrendingCourse struct {
	CourseID      string `json:"course_id"`
	Title         string `json:"title"`
	ActivityCount int    `json:"activity_count"`
	Timeframe     string `json:"timeframe"` // 24h, 7d, 30d
}

// Notification is a stored broadcast announcement.
type Notification struct {
	ID        string    `json:"id" db:"id"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StatsResponse is the marketplace overview block the dashboard renders.
type StatsResponse struct {
	TopCourses       []TopCourse      `json:"top_courses"`
	ActiveRooms      []TrendingCourse `json:"active_rooms"`
	RecentActivity   []ActivityEvent  `json:"recent_activity"`
	DailyActivity    map[string]int   `json:"daily_activity,omitempty"` // yyyy-mm-dd -> feed rows
	TotalReviews     int              `json:"total_reviews"`
	TotalDiscussions int              `json:"total_discussions"`
}

// RankedCourse is a catalog entry with its stats and ranking position.
type RankedCourse struct {
	Course Course      `json:"course"`
	Stats  CourseStats `json:"stats"`
	Rank   int         `json:"rank"`
}

// RankedCourseResponse is one page of the ranking.
type RankedCourseResponse struct {
	Data    []RankedCourse `json:"data"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// LeaderboardEntry is one row of a user leaderboard.
type LeaderboardEntry struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
	Category string `json:"category"`
}

// UserStats is the per-user learning counter row.
type UserStats struct {
	UserID            string    `json:"user_id" db:"user_id"`
	CoursesEnrolled   int       `json:"courses_enrolled" db:"courses_enrolled"`
	CoursesCompleted  int       `json:"courses_completed" db:"courses_completed"`
	ChaptersCompleted int       `json:"chapters_completed" db:"chapters_completed"`
	LastActivity      time.Time `json:"last_activity" db:"last_activity"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// UserStatistics is the profile page aggregate, the counter row joined
// with review totals and favorite categories.
type UserStatistics struct {
	UserID            string     `json:"user_id"`
	CoursesEnrolled   int        `json:"courses_enrolled"`
	CoursesCompleted  int        `json:"courses_completed"`
	ChaptersCompleted int        `json:"chapters_completed"`
	TotalReviews      int        `json:"total_reviews"`
	AverageRating     float64    `json:"average_rating"`
	TopCategories     []Category `json:"top_categories"`
}

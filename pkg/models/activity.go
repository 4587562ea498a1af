package models

import (
	"time"
)

// Feed entry kinds accepted by the activities table CHECK constraint.
const (
	ActivityTypeReview       = "review"
	ActivityTypeDiscussion   = "discussion"
	ActivityTypeCourseUpdate = "course_update"
	ActivityTypeEnrollment   = "enrollment"
)

// Activity is one row of the marketplace feed. UserID and CourseID are
// pointers because system events carry neither.
type Activity struct {
	ID        string    `json:"id" db:"id"`
	Type      string    `json:"type" db:"type" validate:"required,oneof=review discussion course_update enrollment"`
	UserID    *string   `json:"user_id,omitempty" db:"user_id"`
	CourseID  *string   `json:"course_id,omitempty" db:"course_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ActivityUser is the slice of the account a feed entry shows.
type ActivityUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ActivityCourse is the slice of the course a feed entry shows.
type ActivityCourse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ActivityResponse is a feed entry with its user and course joined in.
type ActivityResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	User      *ActivityUser   `json:"user,omitempty"`
	Course    *ActivityCourse `json:"course,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ActivityFeedResponse is one page of the feed.
type ActivityFeedResponse struct {
	Data    []ActivityResponse `json:"data"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	HasMore bool               `json:"has_more"`
}

// ActivityEvent is the frame the TCP engagement aggregator accepts.
type ActivityEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // review, discussion, enrollment, course_update
	CourseID  *string   `json:"course_id,omitempty"`
	UserID    *string   `json:"user_id,omitempty"`
	EventType string    `json:"event_type"` // create, helpful, update
	Weight    int       `json:"weight"`     // 1-10, defaulted from Type when zero
	Source    string    `json:"source"`     // http, websocket, admin, system
	Timestamp time.Time `json:"timestamp"`
}

// NotificationEvent is an announcement on its way to the UDP broadcaster.
type NotificationEvent struct {
	Type      string    `json:"type"` // new_course, system_announcement
	Message   string    `json:"message"`
	CourseID  *string   `json:"course_id,omitempty"`
	Priority  string    `json:"priority"` // low, medium, high
	Icon      string    `json:"icon,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

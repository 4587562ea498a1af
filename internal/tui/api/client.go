// Package api is the HTTP client the terminal clients use against the
// CourseHub REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coursehub/pkg/models"
)

// Client talks to one CourseHub server. It remembers the bearer token
// from the last successful login and sends it on every request.
type Client struct {
	baseURL string // .../api/v1
	rootURL string // server root, for the /ws status endpoints
	http    *http.Client
	token   string
}

// NewClient creates a client for the given API base URL, e.g.
// "http://localhost:8080/api/v1".
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: base,
		rootURL: strings.TrimSuffix(base, "/api/v1"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// dispatch builds and sends one JSON request.
func (c *Client) dispatch(ctx context.Context, method, fullURL string, body any) (*http.Response, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// call hits an /api/v1 endpoint and unwraps the response envelope into
// target.
func (c *Client) call(ctx context.Context, method, path string, body, target any) error {
	resp, err := c.dispatch(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, target)
}

// callRaw hits an endpoint that responds without the envelope, such as
// the activity feed and the websocket status routes.
func (c *Client) callRaw(ctx context.Context, method, fullURL string, target any) error {
	resp, err := c.dispatch(ctx, method, fullURL, nil)
	if err != nil {
		return err
	}
	return decodeBare(resp, target)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func decodeEnvelope(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("API error (status %d)", resp.StatusCode)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !env.Success {
		if env.Error != "" {
			return fmt.Errorf("%s", env.Error)
		}
		return fmt.Errorf("request failed (status %d)", resp.StatusCode)
	}

	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func decodeBare(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func pageQuery(page, limit int) string {
	return fmt.Sprintf("limit=%d&offset=%d", limit, (page-1)*limit)
}

// Auth

// Register creates an account. The endpoint returns the profile without
// a token, so the client signs in right after.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.LoginResponse, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var created struct {
		User models.User `json:"user"`
	}
	if err := c.call(ctx, http.MethodPost, "/auth/register", body, &created); err != nil {
		return nil, err
	}
	return c.Login(ctx, username, password)
}

// Login authenticates and stores the token for later requests.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var out models.LoginResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Catalog

func (c *Client) ListCourses(ctx context.Context, page, limit int) (*models.CourseListResponse, error) {
	var out models.CourseListResponse
	if err := c.call(ctx, http.MethodGet, "/courses?"+pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCoursesByCategory(ctx context.Context, category string, page, limit int) (*models.CourseListResponse, error) {
	path := fmt.Sprintf("/courses?categories=%s&%s", url.QueryEscape(category), pageQuery(page, limit))
	var out models.CourseListResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCourse retrieves the full course page: course, curriculum and stats.
func (c *Client) GetCourse(ctx context.Context, id string) (*models.CourseDetail, error) {
	var out models.CourseDetail
	if err := c.call(ctx, http.MethodGet, "/courses/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchCourses(ctx context.Context, query string, page, limit int) (*models.CourseListResponse, error) {
	path := fmt.Sprintf("/courses/search?q=%s&%s", url.QueryEscape(query), pageQuery(page, limit))
	var out models.CourseListResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTrending returns trending courses ranked by weekly score.
func (c *Client) GetTrending(ctx context.Context, limit int) ([]models.Course, error) {
	var ranked models.RankedCourseResponse
	path := fmt.Sprintf("/courses/trending?limit=%d", limit)
	if err := c.call(ctx, http.MethodGet, path, nil, &ranked); err != nil {
		return nil, err
	}
	courses := make([]models.Course, len(ranked.Data))
	for i, r := range ranked.Data {
		courses[i] = r.Course
	}
	return courses, nil
}

// Checkout and library

// Checkout purchases a course; free courses enroll without payment.
func (c *Client) Checkout(ctx context.Context, courseID string) (*models.CheckoutResponse, error) {
	var out models.CheckoutResponse
	path := "/courses/" + url.PathEscape(courseID) + "/checkout"
	if err := c.call(ctx, http.MethodPost, path, map[string]string{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetLibrary(ctx context.Context) ([]models.LibraryEntry, error) {
	var out struct {
		Data  []models.LibraryEntry `json:"data"`
		Total int                   `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, "/users/library", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Progress

// GetProgress returns progress for one course. The error contains
// "progress not found" when nothing has been completed yet.
func (c *Client) GetProgress(ctx context.Context, courseID string) (*models.CourseProgress, error) {
	var out models.CourseProgress
	if err := c.call(ctx, http.MethodGet, "/users/progress/"+url.PathEscape(courseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProgress sends a partial payload. The server merges it with
// stored progress so a single-section payload is safe.
func (c *Client) UpdateProgress(ctx context.Context, courseID string, sections []models.SectionProgress) (*models.CourseProgress, error) {
	body := models.UpdateProgressRequest{Sections: sections}
	var out models.CourseProgress
	if err := c.call(ctx, http.MethodPut, "/users/progress/"+url.PathEscape(courseID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reviews

func (c *Client) ListReviews(ctx context.Context, courseID string, page, limit int) (*models.ReviewListResponse, error) {
	path := fmt.Sprintf("/courses/%s/reviews?%s", url.PathEscape(courseID), pageQuery(page, limit))
	var out models.ReviewListResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateReview(ctx context.Context, courseID string, rating int, content string) (*models.ReviewResponse, error) {
	body := map[string]any{"course_id": courseID, "rating": rating, "content": content}
	var out models.ReviewResponse
	if err := c.call(ctx, http.MethodPost, "/courses/"+url.PathEscape(courseID)+"/reviews", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Activity and statistics

// GetRecentActivity returns the global feed. This endpoint responds
// without the envelope.
func (c *Client) GetRecentActivity(ctx context.Context, limit int) ([]models.ActivityResponse, error) {
	var out models.ActivityFeedResponse
	u := fmt.Sprintf("%s/activity/global?limit=%d", c.baseURL, limit)
	if err := c.callRaw(ctx, http.MethodGet, u, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) GetUserStatistics(ctx context.Context, userID string) (*models.UserStatistics, error) {
	var out models.UserStatistics
	if err := c.call(ctx, http.MethodGet, "/statistics/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTopCourses returns the leaderboard ranked by weekly score.
func (c *Client) GetTopCourses(ctx context.Context, limit int) (*models.RankedCourseResponse, error) {
	var out models.RankedCourseResponse
	path := fmt.Sprintf("/stats/top?limit=%d", limit)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMarketplaceStats returns the aggregate dashboard: top courses, busy
// rooms, recent events and the daily activity counts.
func (c *Client) GetMarketplaceStats(ctx context.Context) (*models.StatsResponse, error) {
	var out models.StatsResponse
	if err := c.call(ctx, http.MethodGet, "/stats/marketplace", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Study room status

// RoomStatus is the /ws/courses/:id/status payload.
type RoomStatus struct {
	CourseID    string                 `json:"course_id"`
	ClientCount int                    `json:"client_count"`
	Active      bool                   `json:"active"`
	Presence    []*models.UserPresence `json:"presence"`
}

// GetRoomStatus reports who is connected to a study room. The endpoint
// lives at the server root, not under /api/v1.
func (c *Client) GetRoomStatus(ctx context.Context, courseID string) (*RoomStatus, error) {
	var out RoomStatus
	u := fmt.Sprintf("%s/ws/courses/%s/status", c.rootURL, url.PathEscape(courseID))
	if err := c.callRaw(ctx, http.MethodGet, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

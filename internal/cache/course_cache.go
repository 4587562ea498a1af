// Package cache provides a Redis read-through layer over the course catalog.
// Detail pages are cached per course and invalidated on writes, list and
// search results just ride out their TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"coursehub/internal/core"
	"coursehub/pkg/models"
)

// CourseService wraps a core.CourseService with Redis caching for the
// hot catalog read paths. All cache operations are best-effort, a Redis
// outage degrades to plain database reads.
type CourseService struct {
	next core.CourseService
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCourseService creates a caching decorator around the course service
func NewCourseService(next core.CourseService, rdb *redis.Client, ttl time.Duration) *CourseService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CourseService{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
	}
}

func detailKey(id string) string {
	return "course:detail:" + id
}

func listKey(req models.CourseSearchRequest) string {
	return fmt.Sprintf("courses:list:%s:%s:%s:%s:%d:%d",
		req.Query, strings.Join(req.Categories, ","), req.Status, req.Level, req.Limit, req.Offset)
}

func searchKey(query string, limit, offset int) string {
	return fmt.Sprintf("courses:search:%s:%d:%d", query, limit, offset)
}

// Create delegates to the underlying service. Cached lists become stale
// until their TTL expires, which is acceptable for new courses.
func (s *CourseService) Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	return s.next.Create(ctx, req)
}

// GetByID is not cached, callers on this path want the current row
func (s *CourseService) GetByID(ctx context.Context, id string) (*models.Course, error) {
	return s.next.GetByID(ctx, id)
}

// GetDetail serves the course page from Redis when possible
func (s *CourseService) GetDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	key := detailKey(id)

	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var detail models.CourseDetail
		if json.Unmarshal([]byte(val), &detail) == nil {
			return &detail, nil
		}
	} else if err != redis.Nil {
		logrus.Debugf("redis get failed for %s: %v", key, err)
	}

	detail, err := s.next.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(detail); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}

	return detail, nil
}

// List serves filtered catalog pages from Redis when possible
func (s *CourseService) List(ctx context.Context, req models.CourseSearchRequest) (*models.CourseListResponse, error) {
	key := listKey(req)

	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var result models.CourseListResponse
		if json.Unmarshal([]byte(val), &result) == nil {
			return &result, nil
		}
	} else if err != redis.Nil {
		logrus.Debugf("redis get failed for %s: %v", key, err)
	}

	result, err := s.next.List(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}

	return result, nil
}

// Search serves full-text results from Redis when possible
func (s *CourseService) Search(ctx context.Context, query string, limit, offset int) (*models.CourseListResponse, error) {
	key := searchKey(query, limit, offset)

	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var result models.CourseListResponse
		if json.Unmarshal([]byte(val), &result) == nil {
			return &result, nil
		}
	} else if err != redis.Nil {
		logrus.Debugf("redis get failed for %s: %v", key, err)
	}

	result, err := s.next.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}

	return result, nil
}

// Update delegates and drops the cached detail page
func (s *CourseService) Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.Course, error) {
	course, err := s.next.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.rdb.Del(ctx, detailKey(id))
	return course, nil
}

// Delete delegates and drops the cached detail page
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, detailKey(id))
	return nil
}

// AddSection delegates and drops the cached detail page (curriculum changed)
func (s *CourseService) AddSection(ctx context.Context, courseID string, req models.CreateSectionRequest) (*models.CourseSection, error) {
	section, err := s.next.AddSection(ctx, courseID, req)
	if err != nil {
		return nil, err
	}
	s.rdb.Del(ctx, detailKey(courseID))
	return section, nil
}

// AddChapter delegates and drops the cached detail page (curriculum changed)
func (s *CourseService) AddChapter(ctx context.Context, courseID, sectionID string, req models.CreateChapterRequest) (*models.CourseChapter, error) {
	chapter, err := s.next.AddChapter(ctx, courseID, sectionID, req)
	if err != nil {
		return nil, err
	}
	s.rdb.Del(ctx, detailKey(courseID))
	return chapter, nil
}

package tcp

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"coursehub/internal/repository"
	"coursehub/pkg/logger"
	"coursehub/pkg/models"
	"coursehub/pkg/utils"
)

// EventType represents type of activity event (MUST match schema activity_feed.type)
type EventType string

const (
	EventTypeReview     EventType = "review"        // Matches schema: CHECK (type IN ('review', 'discussion', 'course_update', 'enrollment'))
	EventTypeDiscussion EventType = "discussion"    // Matches schema activity_feed.type
	EventTypeEnrollment EventType = "enrollment"    // Matches schema activity_feed.type
	EventTypeUpdate     EventType = "course_update" // Matches schema activity_feed.type
)

// StatsEvent represents a stats aggregation event (schema-aligned)
type StatsEvent struct {
	Type      EventType `json:"type"`       // Must match schema activity_feed.type
	CourseID  string    `json:"course_id"`  // Matches course_stats.course_id FK
	UserID    *string   `json:"user_id"`    // Nullable like activity_feed.user_id
	EventTime time.Time `json:"event_time"` // Timestamp for scoring
	Weight    int       `json:"weight"`     // Scoring weight (review=1, discussion=2, enrollment=3, update=5)
	Source    string    `json:"source"`     // "http", "websocket", "admin"
}

// ack is the framed response for each processed event.
type ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	maxFrameSize = 1024 // engagement events are small, anything bigger is garbage
	readTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Server aggregates engagement events sent by the other protocol
// surfaces over a length-prefixed TCP stream.
type Server struct {
	addr         string
	listener     net.Listener
	statsRepo    repository.StatsRepository
	activityRepo repository.ActivityRepository
	stop         chan struct{}
	stopped      chan struct{}
}

// NewServer creates a new TCP engagement aggregator server
func NewServer(host string, port int, statsRepo repository.StatsRepository, activityRepo repository.ActivityRepository) *Server {
	return &Server{
		addr:         fmt.Sprintf("%s:%d", host, port),
		statsRepo:    statsRepo,
		activityRepo: activityRepo,
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

// Start begins accepting aggregator connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("tcp listen failed on %s: %w", s.addr, err)
	}

	s.listener = listener
	logger.Infof("TCP engagement aggregator listening on %s", s.addr)

	go s.acceptLoop()
	return nil
}

// Stop closes the listener and waits for the accept loop to drain.
func (s *Server) Stop() {
	close(s.stop)
	if s.listener != nil {
		s.listener.Close()
	}

	select {
	case <-s.stopped:
		logger.Info("TCP engagement aggregator stopped")
	case <-time.After(5 * time.Second):
		logger.Warn("TCP engagement aggregator forced stop after timeout")
	}
}

func (s *Server) acceptLoop() {
	defer close(s.stopped)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Errorf("TCP accept error: %v", err)
			continue
		}

		go s.serveConn(conn)
	}
}

// serveConn reads framed events off one connection until the peer hangs
// up or sends garbage. Each event is acknowledged before the next frame
// is read.
func (s *Server) serveConn(conn net.Conn) {
	tag := utils.Tag("conn")
	peer := conn.RemoteAddr().String()
	logger.Debugf("TCP %s connected from %s", tag, peer)

	defer func() {
		conn.Close()
		logger.Debugf("TCP %s disconnected", tag)
	}()

	reader := bufio.NewReader(conn)
	ctx := context.Background()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		// The deadline resets per frame, so a quiet client is dropped
		// but an active one is not.
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		data, err := readFrame(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warnf("TCP %s read error: %v", tag, err)
			}
			return
		}

		var event StatsEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logger.Warnf("TCP %s parse error: %v", tag, err)
			s.respond(conn, ack{Status: "error", Message: fmt.Sprintf("invalid event format: %v", err)})
			continue
		}

		applyEventDefaults(&event)

		if err := validateEvent(&event); err != nil {
			logger.Warnf("TCP %s rejected event: %v", tag, err)
			s.respond(conn, ack{Status: "error", Message: err.Error()})
			continue
		}

		if err := s.processEvent(ctx, &event); err != nil {
			logger.Errorf("TCP %s processing error for %s event: %v", tag, event.Type, err)
			s.respond(conn, ack{Status: "error", Message: fmt.Sprintf("processing failed: %v", err)})
			continue
		}

		s.respond(conn, ack{Status: "success", Message: "event processed"})
	}
}

func applyEventDefaults(event *StatsEvent) {
	if event.EventTime.IsZero() {
		event.EventTime = time.Now()
	}
	if event.Source == "" {
		event.Source = "system"
	}
	if event.Weight == 0 {
		event.Weight = defaultWeight(event.Type)
	}
}

func defaultWeight(t EventType) int {
	switch t {
	case EventTypeDiscussion:
		return 2
	case EventTypeEnrollment:
		return 3
	case EventTypeUpdate:
		return 5
	default:
		return 1
	}
}

// validateEvent enforces the same bounds the schema does, so bad events
// are refused at the socket instead of surfacing as constraint errors.
func validateEvent(event *StatsEvent) error {
	switch event.Type {
	case EventTypeReview, EventTypeDiscussion, EventTypeEnrollment, EventTypeUpdate:
	default:
		return fmt.Errorf("invalid event type: %s (must be 'review', 'discussion', 'enrollment', or 'course_update')", event.Type)
	}

	if event.CourseID == "" {
		return fmt.Errorf("course_id is required")
	}

	if event.Weight < 1 || event.Weight > 10 {
		return fmt.Errorf("invalid weight: %d (must be 1-10)", event.Weight)
	}

	switch event.Source {
	case "http", "websocket", "admin", "system":
	default:
		return fmt.Errorf("invalid source: %s (must be 'http', 'websocket', 'admin', or 'system')", event.Source)
	}

	return nil
}

// processEvent records the event and folds it into the course counters.
func (s *Server) processEvent(ctx context.Context, event *StatsEvent) error {
	// The HTTP layer records its own feed rows, so only mirror events
	// arriving from the other sources.
	if event.Source != "http" {
		activity := &models.Activity{
			Type:      string(event.Type),
			UserID:    event.UserID,
			CourseID:  &event.CourseID,
			CreatedAt: event.EventTime,
		}

		if err := s.activityRepo.Create(ctx, activity); err != nil {
			return fmt.Errorf("failed to log activity: %w", err)
		}
	}

	activityEvent := &models.ActivityEvent{
		Type:      string(event.Type),
		CourseID:  &event.CourseID,
		UserID:    event.UserID,
		EventType: "create",
		Weight:    event.Weight,
		Source:    event.Source,
		Timestamp: event.EventTime,
	}

	if err := s.statsRepo.ProcessActivityEvent(ctx, activityEvent); err != nil {
		return fmt.Errorf("failed to update course stats: %w", err)
	}

	logger.TCP(string(event.Type), event.CourseID, event.Weight)
	return nil
}

func (s *Server) respond(conn net.Conn, a ack) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := writeFrame(conn, a); err != nil {
		logger.Warnf("TCP response write error: %v", err)
	}
}

// readFrame reads one length-prefixed message. The length prefix is a
// 4-byte big-endian count of the JSON payload bytes that follow.
func readFrame(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, fmt.Errorf("zero-length frame")
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes (max %d)", length, maxFrameSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func writeFrame(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame data: %w", err)
	}
	return nil
}

// SendStatsEvent delivers one engagement event to the aggregator and
// waits for the acknowledgment. The HTTP handlers and the study room
// hub use it for cross-protocol reporting.
func SendStatsEvent(addr string, event StatsEvent) error {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return fmt.Errorf("dial tcp: %w", err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(1 * time.Second))
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))

	if err := writeFrame(conn, event); err != nil {
		return err
	}

	data, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var response ack
	if err := json.Unmarshal(data, &response); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if response.Status != "success" {
		return fmt.Errorf("server error: %s", response.Message)
	}

	return nil
}

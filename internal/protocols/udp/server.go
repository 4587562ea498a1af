package udp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"coursehub/internal/repository"
	"coursehub/pkg/logger"
	"coursehub/pkg/models"
)

// Notification is the announcement packet broadcast to listeners.
type Notification struct {
	Message   string    `json:"message"`             // Matches notifications.message field
	Timestamp time.Time `json:"timestamp"`           // Matches notifications.created_at
	Type      string    `json:"type"`                // Routing hint (not stored)
	CourseID  *string   `json:"course_id,omitempty"` // Context only (not stored)
	Title     string    `json:"title,omitempty"`     // Display hint (not stored)
}

// Server broadcasts course announcements over UDP. It owns no client
// registry; packets go to the broadcast address and anyone listening on
// the port receives them.
type Server struct {
	addr             string
	conn             *net.UDPConn
	outbound         chan Notification
	stop             chan struct{}
	limiter          *rate.Limiter
	notificationRepo repository.NotificationRepository
	broadcastAddr    *net.UDPAddr

	sent    atomic.Uint64
	dropped atomic.Uint64
}

const (
	maxPacketSize    = 1024 // announcements must fit one packet
	packetsPerSecond = 100
	burstSize        = 50
	pollInterval     = 1 * time.Second
)

// NewServer creates a new UDP announcement server
func NewServer(host string, port int, notificationRepo repository.NotificationRepository) *Server {
	// All listeners share the port, so one broadcast address reaches them all
	broadcastAddr, _ := net.ResolveUDPAddr("udp", fmt.Sprintf("255.255.255.255:%d", port))

	return &Server{
		addr:             fmt.Sprintf("%s:%d", host, port),
		outbound:         make(chan Notification, 256),
		stop:             make(chan struct{}),
		limiter:          rate.NewLimiter(rate.Limit(packetsPerSecond), burstSize),
		notificationRepo: notificationRepo,
		broadcastAddr:    broadcastAddr,
	}
}

// Start opens the socket and begins the send and poll loops.
func (s *Server) Start() error {
	addr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolve udp addr: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen udp: %w", err)
	}

	if err := conn.SetWriteBuffer(maxPacketSize); err != nil {
		logger.Warnf("UDP: failed to set write buffer: %v", err)
	}

	s.conn = conn
	logger.Infof("UDP announcement server listening on %s (broadcast mode)", s.addr)

	go s.sendLoop()
	go s.pollOutbox()

	return nil
}

// Stop closes the socket and halts both loops.
func (s *Server) Stop() {
	close(s.stop)
	if s.conn != nil {
		s.conn.Close()
	}
	logger.Infof("UDP announcement server stopped (sent=%d dropped=%d)",
		s.sent.Load(), s.dropped.Load())
}

func (s *Server) sendLoop() {
	for {
		select {
		case notification := <-s.outbound:
			if err := s.send(notification); err != nil {
				logger.Errorf("UDP broadcast error: %v", err)
			}
		case <-s.stop:
			return
		}
	}
}

func (s *Server) send(notification Notification) error {
	if !s.limiter.Allow() {
		s.dropped.Add(1)
		return fmt.Errorf("rate limit exceeded")
	}

	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}

	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	// Oversized payloads would truncate into invalid JSON on the wire,
	// so they are dropped here instead.
	if len(data) > maxPacketSize {
		s.dropped.Add(1)
		return fmt.Errorf("notification too large (%d bytes)", len(data))
	}

	s.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
	if _, err := s.conn.WriteToUDP(data, s.broadcastAddr); err != nil {
		// Fire-and-forget, a failed send is not an error for the caller
		logger.Warnf("UDP send error (ignored): %v", err)
		return nil
	}

	s.sent.Add(1)
	logger.UDP(notification.Type, len(data))
	return nil
}

// pollOutbox watches the notifications table and queues new rows for
// broadcast. Rows written by any service flow through this single loop,
// so every announcement is sent exactly once.
func (s *Server) pollOutbox() {
	ctx := context.Background()

	// Seed the cursor at the newest stored row so a restart does not
	// replay the whole table.
	var lastID string
	if latest, err := s.notificationRepo.ListRecent(ctx, 1); err != nil {
		logger.Errorf("UDP outbox seed error: %v", err)
	} else if len(latest) > 0 {
		lastID = latest[0].ID
	}

	for {
		select {
		case <-s.stop:
			return
		case <-time.After(pollInterval):
			rows, err := s.notificationRepo.Since(ctx, lastID)
			if err != nil {
				logger.Errorf("UDP outbox poll error: %v", err)
				continue
			}

			for _, row := range rows {
				select {
				case s.outbound <- Notification{
					Message:   row.Message,
					Timestamp: row.CreatedAt,
					Type:      "system",
				}:
				default:
					s.dropped.Add(1)
					logger.Warn("UDP outbound channel full, dropping notification")
				}

				if row.ID > lastID {
					lastID = row.ID
				}
			}
		}
	}
}

// Broadcast records an announcement for delivery (fire-and-forget).
//
// The row is written to the notifications table and picked up by the
// poll loop, which is the single send path.
func (s *Server) Broadcast(notification Notification) {
	if notification.Message == "" {
		return
	}

	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}

	notif := &models.Notification{
		ID:        notificationID(notification.Timestamp),
		Message:   notification.Message,
		CreatedAt: notification.Timestamp,
	}

	if err := s.notificationRepo.Create(context.Background(), notif); err != nil {
		// Lost if the insert fails, acceptable for fire-and-forget
		logger.Errorf("UDP outbox write error: %v", err)
	}
}

// notificationID mints ids that sort in creation order, which the poll
// cursor's id comparison relies on.
func notificationID(ts time.Time) string {
	return fmt.Sprintf("notif-%d", ts.UnixNano())
}

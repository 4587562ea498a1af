package tui

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Announcement packets are capped server-side, one read buffer holds a
// whole packet.
const announcePacketSize = 1024

// announceTTL is how long the banner stays up.
const announceTTL = 8 * time.Second

// announcement mirrors the broadcast packet. Fields the banner does not
// show are left out, the decoder ignores them.
type announcement struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Title   string `json:"title"`
}

// announcementMsg carries one decoded broadcast packet.
type announcementMsg struct {
	note announcement
}

// announcementGoneMsg retires the banner posted at the given time. A
// newer banner has a newer timestamp and stays up.
type announcementGoneMsg struct {
	at time.Time
}

// listenAnnouncements binds the broadcast port. Failure is quiet:
// another client on the machine may already hold the port, and the TUI
// works fine without the banner.
func listenAnnouncements(port int) *net.UDPConn {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil
	}
	return conn
}

// waitAnnouncement blocks on the next broadcast packet. A read error
// ends the loop, which is what closing the conn on quit produces.
// Packets that fail to decode or carry no message are skipped.
func waitAnnouncement(conn *net.UDPConn) tea.Cmd {
	return func() tea.Msg {
		buf := make([]byte, announcePacketSize)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				return nil
			}
			var note announcement
			if err := json.Unmarshal(buf[:n], &note); err != nil {
				continue
			}
			if note.Message == "" {
				continue
			}
			return announcementMsg{note: note}
		}
	}
}

package testing

import (
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

// CapturedNotice is one server message received on a connection.
type CapturedNotice struct {
	Severity string // NOTICE, WARNING, INFO
	Message  string
}

// NoticeCapture collects PostgreSQL NOTICE messages raised while a test
// pool is in use. Target schemas can carry triggers that RAISE NOTICE
// during inserts; tests use the capture to assert loads neither drop nor
// choke on that chatter.
//
// RAISE NOTICE is non-transactional: messages reach the client
// immediately and survive rollbacks, so the capture also observes work
// from transactions that never commit.
//
// Thread-safe for concurrent use.
type NoticeCapture struct {
	notices []CapturedNotice
	mu      sync.Mutex
}

// NewNoticeCapture returns an empty capture.
func NewNoticeCapture() *NoticeCapture {
	return &NoticeCapture{}
}

// Handler returns a function suitable for pgx's OnNotice callback.
func (nc *NoticeCapture) Handler() func(*pgconn.PgConn, *pgconn.Notice) {
	return func(_ *pgconn.PgConn, n *pgconn.Notice) {
		if n == nil {
			return
		}

		nc.mu.Lock()
		defer nc.mu.Unlock()
		nc.notices = append(nc.notices, CapturedNotice{
			Severity: n.Severity,
			Message:  n.Message,
		})
	}
}

// Notices returns a copy of all captured notices in arrival order.
func (nc *NoticeCapture) Notices() []CapturedNotice {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	result := make([]CapturedNotice, len(nc.notices))
	copy(result, nc.notices)
	return result
}

// Messages returns just the message texts in arrival order.
func (nc *NoticeCapture) Messages() []string {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	result := make([]string, len(nc.notices))
	for i, n := range nc.notices {
		result[i] = n.Message
	}
	return result
}

// MessagesContaining returns the messages containing substr.
func (nc *NoticeCapture) MessagesContaining(substr string) []string {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	var result []string
	for _, n := range nc.notices {
		if strings.Contains(n.Message, substr) {
			result = append(result, n.Message)
		}
	}
	return result
}

// Count returns the number of captured notices.
func (nc *NoticeCapture) Count() int {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return len(nc.notices)
}

// Reset clears all captured notices.
func (nc *NoticeCapture) Reset() {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	nc.notices = nc.notices[:0]
}

package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

// Individually transient codes outside the wholly-transient classes.
// See the errcodes appendix: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeLockNotAvailable     = "55P03"
)

// transientMessages catches connection trouble surfaced as plain error
// strings by drivers, proxies, and poolers rather than as typed errors.
// Unresolvable hostnames and expired deadlines stay fatal: neither gets
// better on the next attempt.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"connection failure",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
	"connection pool exhausted",
}

// PostgreSQLErrorClassifier decides whether a connection or query error is
// worth retrying.
type PostgreSQLErrorClassifier struct{}

// NewPostgreSQLErrorClassifier returns the classifier the connection
// retry loop uses.
func NewPostgreSQLErrorClassifier() *PostgreSQLErrorClassifier {
	return &PostgreSQLErrorClassifier{}
}

// IsTransient reports whether err is temporary. Server errors are judged
// by SQLSTATE, everything else by network error type and message text.
func (c *PostgreSQLErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientPgCode(pgErr.Code)
	}

	return isTransientNetErr(err) || hasTransientMessage(err)
}

// transientPgCode treats class 08 (connection exception), class 53
// (insufficient resources), and class 57 (operator intervention) as
// transient wholesale, plus serialization failures, deadlocks, and lock
// timeouts.
func transientPgCode(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"),
		strings.HasPrefix(code, "53"),
		strings.HasPrefix(code, "57"):
		return true
	}

	switch code {
	case pgCodeSerializationFailure, pgCodeDeadlockDetected, pgCodeLockNotAvailable:
		return true
	}

	return false
}

func isTransientNetErr(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Temporary() || opErr.Timeout() {
			return true
		}
		// The server not being up yet and the server going away mid-dial
		// both deserve another attempt.
		for _, errno := range []syscall.Errno{
			syscall.ECONNREFUSED,
			syscall.ECONNRESET,
			syscall.ENETUNREACH,
			syscall.EHOSTUNREACH,
		} {
			if errors.Is(opErr.Err, errno) {
				return true
			}
		}
	}

	return false
}

func hasTransientMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

var _ pgseed.ErrorClassifier = (*PostgreSQLErrorClassifier)(nil)

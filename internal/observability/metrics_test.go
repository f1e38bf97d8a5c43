package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/auth/login", "POST", 200, 5*time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 200, 7*time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 401, time.Millisecond)
	m.RecordError("/auth/login", "POST", "AUTHENTICATION_FAILED")
	m.RecordAuthFailure("login")
	m.RecordAuthFailure("login")
	m.RecordAuthFailure("webhook")

	assert.Equal(t, int64(2), m.Requests()["/auth/login|POST|200"])
	assert.Equal(t, int64(1), m.Requests()["/auth/login|POST|401"])
	assert.Equal(t, int64(1), m.Errors()["/auth/login|POST|AUTHENTICATION_FAILED"])
	assert.Equal(t, int64(2), m.AuthFailures()["login"])
	assert.Equal(t, int64(1), m.AuthFailures()["webhook"])
}

func TestMetrics_SnapshotsAreCopies(t *testing.T) {
	m := NewMetrics()
	m.RecordAuthFailure("login")

	snap := m.AuthFailures()
	snap["login"] = 99

	assert.Equal(t, int64(1), m.AuthFailures()["login"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.RecordRequest("/x", "GET", 200, 0)
	m.RecordError("/x", "GET", "INTERNAL_ERROR")
	m.RecordAuthFailure("token")

	assert.Nil(t, m.Requests())
	assert.Nil(t, m.Errors())
	assert.Nil(t, m.AuthFailures())
}

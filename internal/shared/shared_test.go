package shared

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 41)
	assert.Equal(t, Pagination{Page: 1, PerPage: 20, Total: 41, TotalPages: 3}, p)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 1000, 450)
	assert.Equal(t, MaxPerPage, p.PerPage)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 400, p.Offset())

	assert.Zero(t, NewPagination(1, 10, 0).TotalPages)
}

func TestParseUserID(t *testing.T) {
	cases := map[string]struct {
		id int64
		ok bool
	}{
		" 42 ":  {42, true},
		"":      {0, false},
		"0":     {0, false},
		"-3":    {0, false},
		"alice": {0, false},
	}
	for in, want := range cases {
		id, ok := ParseUserID(in)
		assert.Equal(t, want.ok, ok, in)
		assert.Equal(t, want.id, id, in)
	}
}

func TestContextValues(t *testing.T) {
	ctx := ContextWithRequestID(ContextWithIdentity(context.Background(), " 7 "), "req-1")
	assert.Equal(t, "7", IdentityFromContext(ctx))
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, IdentityFromContext(context.Background()))
}

type capturePublisher struct {
	keys   []string
	events []SecurityEvent
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, key string, payload any) error {
	c.keys = append(c.keys, key)
	c.events = append(c.events, payload.(SecurityEvent))
	return c.err
}

func TestSecurityLogRecord(t *testing.T) {
	var buf bytes.Buffer
	pub := &capturePublisher{}
	log := NewSecurityLog(slog.New(slog.NewJSONHandler(&buf, nil)), pub)

	ctx := ContextWithRequestID(context.Background(), "req-9")
	log.Record(ctx, SecurityEvent{Kind: SecurityPermissionDenied, Identity: "5", Method: "roles.curd.create", Required: []string{"roles.edit"}})

	require.Len(t, pub.events, 1)
	assert.Equal(t, []string{SecurityPermissionDenied}, pub.keys)
	assert.Equal(t, "req-9", pub.events[0].RequestID)
	assert.False(t, pub.events[0].At.IsZero())
	assert.Contains(t, buf.String(), `"kind":"permission_denied"`)

	pub.err = errors.New("broker down")
	log.Record(ctx, SecurityEvent{Kind: SecurityAuthRequired, Method: "users.list.getData"})
	assert.Contains(t, buf.String(), "publish security event")

	var nilLog *SecurityLog
	nilLog.Record(ctx, SecurityEvent{Kind: SecurityAuthRequired})
	NewSecurityLog(nil, nil).Record(ctx, SecurityEvent{Kind: SecurityAuthRequired})
}

func TestAuditLoggerRejectsIncompleteEntries(t *testing.T) {
	var nilLogger *AuditLogger
	assert.Error(t, nilLogger.Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"}))
	assert.Error(t, NewAuditLogger(nil).Record(context.Background(), AuditLog{Action: "a"}))
}

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
)

type stubTimelineRepo struct {
	rows       []TimelineRow
	err        error
	lastFilter TimelineFilters
	lastLimit  int
	lastOffset int
}

func (s *stubTimelineRepo) Window(ctx context.Context, f TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	s.lastFilter, s.lastLimit, s.lastOffset = f, limit, offset
	if s.err != nil {
		return nil, s.err
	}
	if len(s.rows) > limit {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func entry(id int64, action string) TimelineRow {
	return TimelineRow{ID: id, At: time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC), ActorID: 1, Actor: "admin@example.com", Action: action, Entity: "roles", EntityID: "3"}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{entry(3, "roles.update"), entry(2, "roles.update"), entry(1, "roles.create")}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, PagingInfo{Page: 1, PageSize: 2, HasNext: true, NextPage: 2}, result.Paging)
	assert.Equal(t, 3, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)

	repo.rows = repo.rows[2:]
	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)
	assert.Equal(t, PagingInfo{Page: 2, PageSize: 2, PrevPage: 1}, result.Paging)
	assert.Equal(t, 2, repo.lastOffset)
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, result.Paging.PageSize)
	assert.Equal(t, maxPageSize+1, repo.lastLimit)
	assert.NotNil(t, result.Rows)

	result, err = svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, result.Paging.PageSize)
	assert.Equal(t, 1, result.Paging.Page)
}

func TestServiceTimelineRejectsInvertedRange(t *testing.T) {
	svc := NewService(&stubTimelineRepo{})
	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := svc.Timeline(context.Background(), TimelineFilters{From: from, To: from.Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestServiceTimelineErrors(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), TimelineFilters{})
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = NewService(&stubTimelineRepo{err: boom}).Timeline(context.Background(), TimelineFilters{})
	assert.ErrorIs(t, err, boom)
}

func TestListModelBindsFilters(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{entry(1, "roles.create")}}
	m := NewListModel(NewService(repo))

	rule := m.PermissionRequiredForMethod("getData")
	require.NotNil(t, rule)
	assert.Equal(t, []string{PermAuditView}, rule.Permissions)

	out, err := m.Methods()["getData"](context.Background(), rpc.NewParams(map[string]any{
		"entity": "roles",
		"from":   "2024-03-01T00:00:00Z",
	}), nil)
	require.NoError(t, err)
	assert.Len(t, out.(Result).Rows, 1)
	assert.Equal(t, "roles", repo.lastFilter.Entity)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), repo.lastFilter.From.UTC())

	_, err = m.Methods()["getData"](context.Background(), rpc.NewParams(map[string]any{"actorId": -1}), nil)
	assert.Error(t, err)
}

func TestManifestDeclaresMigrations(t *testing.T) {
	m := Manifest()
	assert.Equal(t, "audit", m.Code)
	require.NotNil(t, m.Migrations)
	assert.Equal(t, "audit", m.Migrations.Module)
	assert.Contains(t, m.Models, "audit.list")
}

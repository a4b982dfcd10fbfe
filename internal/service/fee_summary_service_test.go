package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type mockSummaryRepo struct {
	rows      []models.FeeSummaryRow
	lastScope repository.SummaryScope
	calls     int
}

func (m *mockSummaryRepo) SummaryRows(ctx context.Context, tenantID string, scope repository.SummaryScope) ([]models.FeeSummaryRow, error) {
	m.lastScope = scope
	m.calls++
	return m.rows, nil
}

type mockRecentRepo struct {
	recent []models.FeePaymentDetail
}

func (m *mockRecentRepo) Recent(ctx context.Context, tenantID, studentID string, limit int) ([]models.FeePaymentDetail, error) {
	return m.recent, nil
}

type mockSummaryCache struct {
	entries map[string][]byte
	deleted []string
}

func (m *mockSummaryCache) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *mockSummaryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = payload
	return nil
}

func (m *mockSummaryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	m.entries = make(map[string][]byte)
	return nil
}

func ptr(s string) *string { return &s }

func summaryRow(id, studentID string, final, paid int64, due time.Time) models.FeeSummaryRow {
	return models.FeeSummaryRow{
		AssignmentID: id,
		StudentID:    studentID,
		StudentName:  ptr("Student " + studentID),
		ClassID:      ptr("c1"),
		ClassName:    ptr("Grade 5A"),
		FeeName:      ptr("Tuition"),
		CategoryName: ptr("Tuition Fees"),
		CategoryCode: ptr("TUITION"),
		FinalAmount:  decimal.NewFromInt(final),
		PaidAmount:   decimal.NewFromInt(paid),
		DueDate:      due,
		Status:       models.FeeStatusPending,
	}
}

func newSummaryFixture(rows []models.FeeSummaryRow, cache *mockSummaryCache) (*FeeSummaryService, *mockSummaryRepo) {
	repo := &mockSummaryRepo{rows: rows}
	payments := &mockRecentRepo{}
	var c summaryCache
	if cache != nil {
		c = cache
	}
	svc := NewFeeSummaryService(repo, payments, c, time.Minute, 10, zap.NewNop()).
		WithClock(func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) })
	return svc, repo
}

func TestFeeSummarySchool(t *testing.T) {
	future := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
	past := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	rows := []models.FeeSummaryRow{
		summaryRow("a1", "st1", 1000, 1000, future),
		summaryRow("a2", "st2", 1000, 0, past),
	}
	svc, _ := newSummaryFixture(rows, nil)

	summary, cacheHit, err := svc.School(context.Background(), "t1", "2026-2027")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.True(t, summary.TotalExpected.Equal(decimal.NewFromInt(2000)))
	assert.True(t, summary.TotalCollected.Equal(decimal.NewFromInt(1000)))
	assert.True(t, summary.TotalOverdue.Equal(decimal.NewFromInt(1000)))
	assert.True(t, summary.TotalPending.Equal(decimal.Zero))
	assert.Equal(t, 50.0, summary.CollectionRate)
	assert.Equal(t, 2, summary.StudentCount)
	require.Len(t, summary.Classes, 1)
	assert.Equal(t, 2, summary.Classes[0].StudentCount)
}

func TestFeeSummaryDanglingCategoryLandsInOther(t *testing.T) {
	row := summaryRow("a1", "st1", 500, 0, time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC))
	row.CategoryCode = nil
	row.CategoryName = nil
	svc, _ := newSummaryFixture([]models.FeeSummaryRow{row}, nil)

	summary, _, err := svc.School(context.Background(), "t1", "2026-2027")
	require.NoError(t, err)
	require.Len(t, summary.Categories, 1)
	assert.Equal(t, "OTHER", summary.Categories[0].CategoryCode)
	assert.Equal(t, "Other", summary.Categories[0].CategoryName)
}

func TestFeeSummaryOverdueDerivedAtReadTime(t *testing.T) {
	// Stored status is pending but the due date has passed since the last
	// write; the read re-derives overdue.
	row := summaryRow("a1", "st1", 1000, 200, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	svc, _ := newSummaryFixture([]models.FeeSummaryRow{row}, nil)

	summary, _, err := svc.School(context.Background(), "t1", "2026-2027")
	require.NoError(t, err)
	assert.True(t, summary.TotalOverdue.Equal(decimal.NewFromInt(800)))
	assert.True(t, summary.TotalCollected.Equal(decimal.NewFromInt(200)))
}

func TestFeeSummaryOverpaidRowKeepsRawCollected(t *testing.T) {
	// A corrupt row paid past its final amount reports the raw total, so the
	// excess shows up in the collection rate instead of disappearing.
	row := summaryRow("a1", "st1", 1000, 1200, time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC))
	svc, _ := newSummaryFixture([]models.FeeSummaryRow{row}, nil)

	summary, _, err := svc.School(context.Background(), "t1", "2026-2027")
	require.NoError(t, err)
	assert.True(t, summary.TotalExpected.Equal(decimal.NewFromInt(1000)))
	assert.True(t, summary.TotalCollected.Equal(decimal.NewFromInt(1200)))
	assert.True(t, summary.TotalPending.Equal(decimal.Zero))
	assert.Equal(t, 120.0, summary.CollectionRate)
}

func TestFeeSummarySchoolCached(t *testing.T) {
	rows := []models.FeeSummaryRow{summaryRow("a1", "st1", 1000, 0, time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC))}
	cache := &mockSummaryCache{}
	svc, repo := newSummaryFixture(rows, cache)

	_, cacheHit, err := svc.School(context.Background(), "t1", "2026-2027")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 1, repo.calls)

	cached, cacheHit, err := svc.School(context.Background(), "t1", "2026-2027")
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, 1, repo.calls)
	assert.True(t, cached.TotalExpected.Equal(decimal.NewFromInt(1000)))
}

func TestFeeSummaryInvalidate(t *testing.T) {
	cache := &mockSummaryCache{}
	svc, repo := newSummaryFixture([]models.FeeSummaryRow{summaryRow("a1", "st1", 1000, 0, time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC))}, cache)

	_, _, err := svc.School(context.Background(), "t1", "2026-2027")
	require.NoError(t, err)

	svc.Invalidate(context.Background(), "t1")
	assert.Contains(t, cache.deleted, "fee_summary:t1:*")

	_, _, err = svc.School(context.Background(), "t1", "2026-2027")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestFeeSummaryClassScope(t *testing.T) {
	rows := []models.FeeSummaryRow{summaryRow("a1", "st1", 1000, 400, time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC))}
	svc, repo := newSummaryFixture(rows, nil)

	summary, _, err := svc.Class(context.Background(), "t1", "c1", "2026-2027")
	require.NoError(t, err)
	assert.Equal(t, "c1", repo.lastScope.ClassID)
	assert.Equal(t, "Grade 5A", summary.ClassName)
	require.Len(t, summary.Students, 1)
	assert.True(t, summary.Students[0].TotalPending.Equal(decimal.NewFromInt(600)))
}

func TestFeeSummaryStudentScope(t *testing.T) {
	rows := []models.FeeSummaryRow{summaryRow("a1", "st1", 1000, 1000, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))}
	svc, repo := newSummaryFixture(rows, nil)

	summary, _, err := svc.Student(context.Background(), "t1", "st1", "2026-2027")
	require.NoError(t, err)
	assert.Equal(t, "st1", repo.lastScope.StudentID)
	assert.Equal(t, "Student st1", summary.StudentName)
	assert.Equal(t, 100.0, summary.CollectionRate)
	assert.True(t, summary.TotalOverdue.Equal(decimal.Zero))
}

func TestFeeSummaryZeroExpectedRate(t *testing.T) {
	svc, _ := newSummaryFixture(nil, nil)

	summary, _, err := svc.School(context.Background(), "t1", "2026-2027")
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.CollectionRate)
	assert.Zero(t, summary.StudentCount)
}

func TestFeeSummaryExportCSV(t *testing.T) {
	rows := []models.FeeSummaryRow{summaryRow("a1", "st1", 1000, 400, time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC))}
	svc, _ := newSummaryFixture(rows, nil)

	payload, err := svc.ExportSchoolCSV(context.Background(), "t1", "2026-2027")
	require.NoError(t, err)
	body := string(payload)
	assert.Contains(t, body, "Grade 5A")
	assert.Contains(t, body, "TOTAL")
	assert.Contains(t, body, "1000.00")
}

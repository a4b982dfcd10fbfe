package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/dto"
	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/export"
)

type summaryAssignmentRepository interface {
	SummaryRows(ctx context.Context, tenantID string, scope repository.SummaryScope) ([]models.FeeSummaryRow, error)
}

type summaryPaymentRepository interface {
	Recent(ctx context.Context, tenantID, studentID string, limit int) ([]models.FeePaymentDetail, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// FeeSummaryService aggregates assignment rows into school, class and student
// rollups. Status and pending amounts are re-derived per row against the
// current date with the same functions the write paths use, so a row that
// crossed its due date since the last write still reports as overdue.
type FeeSummaryService struct {
	assignments summaryAssignmentRepository
	payments    summaryPaymentRepository
	cache       summaryCache
	csv         *export.CSVExporter
	logger      *zap.Logger
	cacheTTL    time.Duration
	recentLimit int
	now         func() time.Time
}

// NewFeeSummaryService constructs the summary aggregator. cache may be nil.
func NewFeeSummaryService(assignments summaryAssignmentRepository, payments summaryPaymentRepository, cache summaryCache, cacheTTL time.Duration, recentLimit int, logger *zap.Logger) *FeeSummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if recentLimit <= 0 {
		recentLimit = 10
	}
	return &FeeSummaryService{
		assignments: assignments,
		payments:    payments,
		cache:       cache,
		csv:         export.NewCSVExporter(),
		logger:      logger,
		cacheTTL:    cacheTTL,
		recentLimit: recentLimit,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Test hook.
func (s *FeeSummaryService) WithClock(now func() time.Time) *FeeSummaryService {
	s.now = now
	return s
}

// rollup is the shared accumulator behind every summary scope.
type rollup struct {
	totals     dto.FeeTotals
	students   map[string]struct{}
	categories map[string]*dto.CategoryBreakdown
	classes    map[string]*dto.ClassBreakdown
	perStudent map[string]*dto.StudentBreakdown
}

func newRollup() *rollup {
	return &rollup{
		students:   map[string]struct{}{},
		categories: map[string]*dto.CategoryBreakdown{},
		classes:    map[string]*dto.ClassBreakdown{},
		perStudent: map[string]*dto.StudentBreakdown{},
	}
}

func addTotals(t *dto.FeeTotals, expected, collected, pending, overdue decimal.Decimal) {
	t.TotalExpected = t.TotalExpected.Add(expected)
	t.TotalCollected = t.TotalCollected.Add(collected)
	t.TotalPending = t.TotalPending.Add(pending)
	t.TotalOverdue = t.TotalOverdue.Add(overdue)
}

func (r *rollup) add(row models.FeeSummaryRow, today time.Time) {
	snapshot := row.Snapshot()
	status := snapshot.DeriveStatus(today)
	outstanding := snapshot.PendingAmount()

	// Collected is the raw paid amount. A row paid past its final amount
	// inflates the collection rate rather than hiding money.
	collected := row.PaidAmount
	pending := decimal.Zero
	overdue := decimal.Zero
	if status == models.FeeStatusOverdue {
		overdue = outstanding
	} else {
		pending = outstanding
	}

	addTotals(&r.totals, row.FinalAmount, collected, pending, overdue)
	r.students[row.StudentID] = struct{}{}

	code, name := categoryOf(row)
	cat, ok := r.categories[code]
	if !ok {
		cat = &dto.CategoryBreakdown{CategoryCode: code, CategoryName: name}
		r.categories[code] = cat
	}
	addTotals(&cat.FeeTotals, row.FinalAmount, collected, pending, overdue)

	if row.ClassID != nil {
		cls, ok := r.classes[*row.ClassID]
		if !ok {
			cls = &dto.ClassBreakdown{ClassID: *row.ClassID, ClassName: stringOr(row.ClassName, "Unknown Class")}
			r.classes[*row.ClassID] = cls
		}
		addTotals(&cls.FeeTotals, row.FinalAmount, collected, pending, overdue)
	}

	st, ok := r.perStudent[row.StudentID]
	if !ok {
		st = &dto.StudentBreakdown{StudentID: row.StudentID, StudentName: stringOr(row.StudentName, "Unknown Student")}
		r.perStudent[row.StudentID] = st
	}
	addTotals(&st.FeeTotals, row.FinalAmount, collected, pending, overdue)
}

// categoryOf resolves the category bucket for a row. Dangling structure or
// category references land in the "other" bucket instead of being dropped.
func categoryOf(row models.FeeSummaryRow) (code, name string) {
	if row.CategoryCode == nil || *row.CategoryCode == "" {
		return "OTHER", "Other"
	}
	return *row.CategoryCode, stringOr(row.CategoryName, *row.CategoryCode)
}

func stringOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// collectionRate is collected/expected as a percentage rounded to two
// decimals; zero expected reports a zero rate, not a division error.
func collectionRate(t dto.FeeTotals) float64 {
	if !t.TotalExpected.IsPositive() {
		return 0
	}
	rate, _ := t.TotalCollected.Div(t.TotalExpected).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return rate
}

func (r *rollup) categoryList() []dto.CategoryBreakdown {
	out := make([]dto.CategoryBreakdown, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryCode < out[j].CategoryCode })
	return out
}

func (r *rollup) classList() []dto.ClassBreakdown {
	out := make([]dto.ClassBreakdown, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassName < out[j].ClassName })
	return out
}

func (r *rollup) studentList() []dto.StudentBreakdown {
	out := make([]dto.StudentBreakdown, 0, len(r.perStudent))
	for _, st := range r.perStudent {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentName < out[j].StudentName })
	return out
}

func paymentHistory(items []models.FeePaymentDetail) []dto.PaymentHistoryItem {
	out := make([]dto.PaymentHistoryItem, 0, len(items))
	for _, p := range items {
		out = append(out, dto.PaymentHistoryItem{
			PaymentID:     p.ID,
			ReceiptNumber: p.ReceiptNumber,
			StudentName:   stringOr(p.StudentName, "Unknown Student"),
			FeeName:       stringOr(p.FeeName, "Unknown Fee"),
			Amount:        p.Amount,
			Method:        string(p.Method),
			CollectorName: stringOr(p.CollectorName, ""),
			PaymentDate:   p.PaymentDate,
		})
	}
	return out
}

// School computes the tenant-wide rollup, served from cache when fresh. The
// second return reports whether the cache answered.
func (s *FeeSummaryService) School(ctx context.Context, tenantID, academicYear string) (*dto.SchoolFeeSummary, bool, error) {
	key := fmt.Sprintf("fee_summary:%s:school:%s", tenantID, academicYear)
	if s.cache != nil {
		var cached dto.SchoolFeeSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, true, nil
		}
	}

	rows, err := s.assignments.SummaryRows(ctx, tenantID, repository.SummaryScope{AcademicYear: academicYear})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load summary rows")
	}
	today := s.now()
	r := newRollup()
	for _, row := range rows {
		r.add(row, today)
	}
	for _, cat := range r.categories {
		cat.StudentCount = len(r.students)
	}
	recent, err := s.payments.Recent(ctx, tenantID, "", s.recentLimit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent payments")
	}

	summary := &dto.SchoolFeeSummary{
		AcademicYear:   academicYear,
		FeeTotals:      r.totals,
		CollectionRate: collectionRate(r.totals),
		StudentCount:   len(r.students),
		Categories:     r.categoryList(),
		Classes:        s.classListWithCounts(rows, r),
		RecentPayments: paymentHistory(recent),
		GeneratedAt:    today,
	}
	s.store(ctx, key, summary)
	return summary, false, nil
}

// classListWithCounts fills per-class student counts from the raw rows.
func (s *FeeSummaryService) classListWithCounts(rows []models.FeeSummaryRow, r *rollup) []dto.ClassBreakdown {
	perClass := map[string]map[string]struct{}{}
	for _, row := range rows {
		if row.ClassID == nil {
			continue
		}
		set, ok := perClass[*row.ClassID]
		if !ok {
			set = map[string]struct{}{}
			perClass[*row.ClassID] = set
		}
		set[row.StudentID] = struct{}{}
	}
	classes := r.classList()
	for i := range classes {
		classes[i].StudentCount = len(perClass[classes[i].ClassID])
	}
	return classes
}

// Class computes the per-class rollup.
func (s *FeeSummaryService) Class(ctx context.Context, tenantID, classID, academicYear string) (*dto.ClassFeeSummary, bool, error) {
	key := fmt.Sprintf("fee_summary:%s:class:%s:%s", tenantID, classID, academicYear)
	if s.cache != nil {
		var cached dto.ClassFeeSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, true, nil
		}
	}

	rows, err := s.assignments.SummaryRows(ctx, tenantID, repository.SummaryScope{ClassID: classID, AcademicYear: academicYear})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load summary rows")
	}
	today := s.now()
	r := newRollup()
	className := ""
	for _, row := range rows {
		r.add(row, today)
		if className == "" && row.ClassName != nil {
			className = *row.ClassName
		}
	}
	for _, cat := range r.categories {
		cat.StudentCount = len(r.students)
	}

	summary := &dto.ClassFeeSummary{
		ClassID:        classID,
		ClassName:      className,
		FeeTotals:      r.totals,
		CollectionRate: collectionRate(r.totals),
		StudentCount:   len(r.students),
		Categories:     r.categoryList(),
		Students:       r.studentList(),
		GeneratedAt:    today,
	}
	s.store(ctx, key, summary)
	return summary, false, nil
}

// Student computes the per-student rollup with recent payment history.
func (s *FeeSummaryService) Student(ctx context.Context, tenantID, studentID, academicYear string) (*dto.StudentFeeSummary, bool, error) {
	key := fmt.Sprintf("fee_summary:%s:student:%s:%s", tenantID, studentID, academicYear)
	if s.cache != nil {
		var cached dto.StudentFeeSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, true, nil
		}
	}

	rows, err := s.assignments.SummaryRows(ctx, tenantID, repository.SummaryScope{StudentID: studentID, AcademicYear: academicYear})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load summary rows")
	}
	today := s.now()
	r := newRollup()
	studentName := ""
	for _, row := range rows {
		r.add(row, today)
		if studentName == "" && row.StudentName != nil {
			studentName = *row.StudentName
		}
	}
	for _, cat := range r.categories {
		cat.StudentCount = len(r.students)
	}
	recent, err := s.payments.Recent(ctx, tenantID, studentID, s.recentLimit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent payments")
	}

	summary := &dto.StudentFeeSummary{
		StudentID:      studentID,
		StudentName:    studentName,
		FeeTotals:      r.totals,
		CollectionRate: collectionRate(r.totals),
		Categories:     r.categoryList(),
		RecentPayments: paymentHistory(recent),
		GeneratedAt:    today,
	}
	s.store(ctx, key, summary)
	return summary, false, nil
}

// Comprehensive bundles the school view with a per-class rollup for every
// class that has assignments, serving the admin reporting screen. The hit
// flag reflects the school-wide rollup.
func (s *FeeSummaryService) Comprehensive(ctx context.Context, tenantID, academicYear string) (*dto.ComprehensiveFeeSummary, bool, error) {
	school, cacheHit, err := s.School(ctx, tenantID, academicYear)
	if err != nil {
		return nil, false, err
	}
	detail := make([]dto.ClassFeeSummary, 0, len(school.Classes))
	for _, cls := range school.Classes {
		classSummary, _, err := s.Class(ctx, tenantID, cls.ClassID, academicYear)
		if err != nil {
			return nil, false, err
		}
		detail = append(detail, *classSummary)
	}
	return &dto.ComprehensiveFeeSummary{
		School:      *school,
		ClassDetail: detail,
		GeneratedAt: s.now(),
	}, cacheHit, nil
}

// ExportSchoolCSV renders the per-class breakdown of the school summary as a
// CSV document for download.
func (s *FeeSummaryService) ExportSchoolCSV(ctx context.Context, tenantID, academicYear string) ([]byte, error) {
	summary, _, err := s.School(ctx, tenantID, academicYear)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{
		Headers: []string{"Class", "Students", "Expected", "Collected", "Pending", "Overdue", "Collection Rate"},
	}
	for _, cls := range summary.Classes {
		rate := collectionRate(cls.FeeTotals)
		data.Rows = append(data.Rows, map[string]string{
			"Class":           cls.ClassName,
			"Students":        fmt.Sprintf("%d", cls.StudentCount),
			"Expected":        cls.TotalExpected.StringFixed(2),
			"Collected":       cls.TotalCollected.StringFixed(2),
			"Pending":         cls.TotalPending.StringFixed(2),
			"Overdue":         cls.TotalOverdue.StringFixed(2),
			"Collection Rate": fmt.Sprintf("%.2f%%", rate),
		})
	}
	data.Rows = append(data.Rows, map[string]string{
		"Class":           "TOTAL",
		"Students":        fmt.Sprintf("%d", summary.StudentCount),
		"Expected":        summary.TotalExpected.StringFixed(2),
		"Collected":       summary.TotalCollected.StringFixed(2),
		"Pending":         summary.TotalPending.StringFixed(2),
		"Overdue":         summary.TotalOverdue.StringFixed(2),
		"Collection Rate": fmt.Sprintf("%.2f%%", summary.CollectionRate),
	})
	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// Invalidate drops every cached summary for the tenant. Called after any fee
// write so cached rollups never outlive a payment by more than the TTL.
func (s *FeeSummaryService) Invalidate(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("fee_summary:%s:*", tenantID)); err != nil {
		s.logger.Warn("failed to invalidate fee summary cache", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func (s *FeeSummaryService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache fee summary", zap.String("key", key), zap.Error(err))
	}
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidyalink/vidyalink-api/internal/middleware"
	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/service"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/response"
)

// FeeHandler handles fee assignment, payment and summary endpoints.
type FeeHandler struct {
	assignments *service.FeeAssignmentService
	payments    *service.FeePaymentService
	summaries   *service.FeeSummaryService
	students    studentScopeChecker
}

// NewFeeHandler creates a new handler. summaries may be nil when the cache
// layer is disabled.
func NewFeeHandler(assignments *service.FeeAssignmentService, payments *service.FeePaymentService, summaries *service.FeeSummaryService, students studentScopeChecker) *FeeHandler {
	return &FeeHandler{assignments: assignments, payments: payments, summaries: summaries, students: students}
}

func (h *FeeHandler) invalidateSummaries(c *gin.Context, tenantID string) {
	if h.summaries != nil {
		h.summaries.Invalidate(c.Request.Context(), tenantID)
	}
}

// paymentInScope loads one payment and applies the parent ownership guard to
// the student it belongs to.
func (h *FeeHandler) paymentInScope(c *gin.Context, tenantID, id string) (*models.FeePaymentDetail, bool) {
	detail, err := h.payments.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if !ensureStudentScope(c, h.students, tenantID, detail.StudentID) {
		return nil, false
	}
	return detail, true
}

// summaryMeta reports cache-hit and timing metadata for summary responses.
func summaryMeta(c *gin.Context, cacheHit bool, start time.Time) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}

// Assign godoc
// @Summary Assign a fee structure to a student
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.AssignFeeRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/assignments [post]
func (h *FeeHandler) Assign(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.AssignFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	assignment, err := h.assignments.Assign(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateSummaries(c, tenantID)
	response.Created(c, assignment)
}

// StudentFees godoc
// @Summary List a student's fee assignments
// @Tags Fees
// @Produce json
// @Param student_id path string true "Student ID"
// @Param academic_year query string false "Academic year (YYYY-YYYY)"
// @Success 200 {object} response.Envelope
// @Router /fees/students/{student_id} [get]
func (h *FeeHandler) StudentFees(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if !ensureStudentScope(c, h.students, tenantID, c.Param("student_id")) {
		return
	}
	items, err := h.assignments.StudentFees(c.Request.Context(), tenantID, c.Param("student_id"), c.Query("academic_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ApplyDiscount godoc
// @Summary Apply a discount to a fee assignment
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.Discount true "Discount payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/assignments/{id}/discount [put]
func (h *FeeHandler) ApplyDiscount(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var discount service.Discount
	if err := c.ShouldBindJSON(&discount); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discount payload"))
		return
	}
	assignment, err := h.assignments.ApplyDiscount(c.Request.Context(), tenantID, c.Param("id"), discount)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateSummaries(c, tenantID)
	response.JSON(c, http.StatusOK, assignment, nil)
}

// CancelAssignment godoc
// @Summary Cancel a fee assignment
// @Description Cancelling is idempotent; an already cancelled assignment is returned unchanged
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body object true "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Router /fees/assignments/{id}/cancel [put]
func (h *FeeHandler) CancelAssignment(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	cancelledBy := ""
	if claims != nil {
		cancelledBy = claims.UserID
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancellation payload"))
		return
	}
	assignment, err := h.assignments.Cancel(c.Request.Context(), tenantID, c.Param("id"), cancelledBy, payload.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateSummaries(c, tenantID)
	response.JSON(c, http.StatusOK, assignment, nil)
}

// RecordPayment godoc
// @Summary Record a fee payment
// @Description Rejects overpayment; the receipt number comes from the tenant's atomic counter
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /fees/payments [post]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	collectedBy := ""
	if claims != nil {
		collectedBy = claims.UserID
	}
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	payment, assignment, err := h.payments.Record(c.Request.Context(), tenantID, collectedBy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateSummaries(c, tenantID)
	response.Created(c, gin.H{"payment": payment, "assignment": assignment})
}

// ListPayments godoc
// @Summary List fee payments
// @Tags Fees
// @Produce json
// @Param student_id query string false "Student filter"
// @Param assignment_id query string false "Assignment filter"
// @Param method query string false "Payment method filter"
// @Param from query string false "Paid date lower bound (YYYY-MM-DD)"
// @Param to query string false "Paid date upper bound (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /fees/payments [get]
func (h *FeeHandler) ListPayments(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	filter := models.FeePaymentFilter{
		StudentID:    c.Query("student_id"),
		AssignmentID: c.Query("assignment_id"),
		Method:       models.PaymentMethod(c.Query("method")),
		Page:         page,
		PageSize:     size,
	}
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.From = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.To = &t
		}
	}
	items, pagination, err := h.payments.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// GetPayment godoc
// @Summary Get one payment
// @Tags Fees
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/payments/{id} [get]
func (h *FeeHandler) GetPayment(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	detail, ok := h.paymentInScope(c, tenantID, c.Param("id"))
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Receipt godoc
// @Summary Download a payment receipt as PDF
// @Tags Fees
// @Produce application/pdf
// @Param id path string true "Payment ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /fees/payments/{id}/receipt [get]
func (h *FeeHandler) Receipt(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if _, ok := h.paymentInScope(c, tenantID, c.Param("id")); !ok {
		return
	}
	data, filename, err := h.payments.ReceiptPDF(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}

// ReceiptLink godoc
// @Summary Create a shareable signed link for a receipt
// @Description The link works without a session until the token expires
// @Tags Fees
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/payments/{id}/receipt-link [post]
func (h *FeeHandler) ReceiptLink(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if _, ok := h.paymentInScope(c, tenantID, c.Param("id")); !ok {
		return
	}
	token, expiresAt, err := h.payments.ReceiptLink(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"token": token, "expires_at": expiresAt}, nil)
}

// DownloadReceipt godoc
// @Summary Download an archived receipt via a signed token
// @Tags Fees
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /receipts/{token} [get]
func (h *FeeHandler) DownloadReceipt(c *gin.Context) {
	data, filename, err := h.payments.ArchivedReceipt(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}

// SchoolSummary godoc
// @Summary School-wide fee collection summary
// @Tags Fees
// @Produce json
// @Param academic_year query string false "Academic year (YYYY-YYYY)"
// @Success 200 {object} response.Envelope
// @Router /fees/summary/school [get]
func (h *FeeHandler) SchoolSummary(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.summaries.School(c.Request.Context(), tenantID, c.Query("academic_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, summaryMeta(c, cacheHit, start))
}

// ClassSummary godoc
// @Summary Per-class fee collection summary
// @Tags Fees
// @Produce json
// @Param class_id path string true "Class ID"
// @Param academic_year query string false "Academic year (YYYY-YYYY)"
// @Success 200 {object} response.Envelope
// @Router /fees/summary/class/{class_id} [get]
func (h *FeeHandler) ClassSummary(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.summaries.Class(c.Request.Context(), tenantID, c.Param("class_id"), c.Query("academic_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, summaryMeta(c, cacheHit, start))
}

// StudentSummary godoc
// @Summary Per-student fee summary with recent payments
// @Tags Fees
// @Produce json
// @Param student_id path string true "Student ID"
// @Param academic_year query string false "Academic year (YYYY-YYYY)"
// @Success 200 {object} response.Envelope
// @Router /fees/summary/student/{student_id} [get]
func (h *FeeHandler) StudentSummary(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if !ensureStudentScope(c, h.students, tenantID, c.Param("student_id")) {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.summaries.Student(c.Request.Context(), tenantID, c.Param("student_id"), c.Query("academic_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, summaryMeta(c, cacheHit, start))
}

// ComprehensiveSummary godoc
// @Summary School summary with per-class breakdowns
// @Tags Fees
// @Produce json
// @Param academic_year query string false "Academic year (YYYY-YYYY)"
// @Success 200 {object} response.Envelope
// @Router /fees/summary/comprehensive [get]
func (h *FeeHandler) ComprehensiveSummary(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.summaries.Comprehensive(c.Request.Context(), tenantID, c.Query("academic_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, summaryMeta(c, cacheHit, start))
}

// ExportSummaryCSV godoc
// @Summary Download the school fee summary as CSV
// @Tags Fees
// @Produce text/csv
// @Param academic_year query string false "Academic year (YYYY-YYYY)"
// @Success 200 {file} binary
// @Router /fees/summary/export [get]
func (h *FeeHandler) ExportSummaryCSV(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	data, err := h.summaries.ExportSchoolCSV(c.Request.Context(), tenantID, c.Query("academic_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=fee_summary.csv")
	c.Data(http.StatusOK, "text/csv", data)
}

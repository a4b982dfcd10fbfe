package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidyalink/vidyalink-api/internal/service"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/response"
)

// AttendanceHandler handles daily attendance endpoints.
type AttendanceHandler struct {
	service  *service.AttendanceService
	students studentScopeChecker
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService, students studentScopeChecker) *AttendanceHandler {
	return &AttendanceHandler{service: svc, students: students}
}

func parseDateParam(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, key+" query parameter is required"))
		return time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, key+" must use the YYYY-MM-DD format"))
		return time.Time{}, false
	}
	return date, true
}

// Mark godoc
// @Summary Mark attendance for a class
// @Description Upserts one record per student per day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance entries"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	markedBy := ""
	if claims != nil {
		markedBy = claims.UserID
	}
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	count, err := h.service.Mark(c.Request.Context(), tenantID, markedBy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"marked": count}, nil)
}

// ClassDay godoc
// @Summary Attendance for a class on a given day
// @Tags Attendance
// @Produce json
// @Param class_id path string true "Class ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/class/{class_id} [get]
func (h *AttendanceHandler) ClassDay(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	date, ok := parseDateParam(c, "date")
	if !ok {
		return
	}
	records, err := h.service.ClassDay(c.Request.Context(), tenantID, c.Param("class_id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// StudentRange godoc
// @Summary Attendance history for one student
// @Tags Attendance
// @Produce json
// @Param student_id path string true "Student ID"
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{student_id} [get]
func (h *AttendanceHandler) StudentRange(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if !ensureStudentScope(c, h.students, tenantID, c.Param("student_id")) {
		return
	}
	from, ok := parseDateParam(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(c, "to")
	if !ok {
		return
	}
	records, err := h.service.StudentRange(c.Request.Context(), tenantID, c.Param("student_id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/vidyalink/vidyalink-api/internal/middleware"
	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	"github.com/vidyalink/vidyalink-api/internal/service"
)

// Handlers bundles every route handler for registration.
type Handlers struct {
	Auth          *AuthHandler
	Tenants       *TenantHandler
	Users         *UserHandler
	Classes       *ClassHandler
	Students      *StudentHandler
	Attendance    *AttendanceHandler
	Homework      *HomeworkHandler
	Notes         *NoteHandler
	Leave         *LeaveHandler
	Notifications *NotificationHandler
	FeeCatalog    *FeeCatalogHandler
	FeeStructures *FeeStructureHandler
	Fees          *FeeHandler
	Metrics       *MetricsHandler
}

// RouterDeps carries the cross-cutting services the middleware chain needs.
type RouterDeps struct {
	Auth      *service.AuthService
	Metrics   *service.MetricsService
	AuditRepo *repository.UserRepository
	APIPrefix string
}

// RegisterRoutes mounts every API route under the configured prefix. Reads
// are open to all tenant roles; writes are restricted per resource, and
// mutating fee routes carry an audit trail.
func RegisterRoutes(r *gin.Engine, h Handlers, deps RouterDeps) {
	prefix := deps.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}

	superAdmin := string(models.RoleSuperAdmin)
	admin := string(models.RoleAdmin)
	teacher := string(models.RoleTeacher)
	parent := string(models.RoleParent)

	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.AuditRepo, action, resource)
	}

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())
	api.Use(middleware.Metrics(deps.Metrics))

	// Signed receipt links work without a session; the token carries auth.
	api.GET("/receipts/:token", h.Fees.DownloadReceipt)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)

		authed := auth.Group("")
		authed.Use(middleware.JWT(deps.Auth))
		authed.POST("/logout", h.Auth.Logout)
		authed.PUT("/password", audit(models.AuditActionPasswordChange, "user"), h.Auth.ChangePassword)
		authed.GET("/me", h.Auth.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(deps.Auth))

	tenants := protected.Group("/tenants", middleware.RBAC(superAdmin))
	{
		tenants.GET("", h.Tenants.List)
		tenants.GET("/:id", h.Tenants.Get)
		tenants.POST("", audit(models.AuditActionCreate, "tenant"), h.Tenants.Onboard)
		tenants.PUT("/:id", audit(models.AuditActionUpdate, "tenant"), h.Tenants.Update)
		tenants.DELETE("/:id", audit(models.AuditActionDelete, "tenant"), h.Tenants.Deactivate)
	}

	users := protected.Group("/users", middleware.RBAC(superAdmin, admin))
	{
		users.GET("", h.Users.List)
		users.GET("/:id", h.Users.Get)
		users.POST("", audit(models.AuditActionCreate, "user"), h.Users.Create)
		users.PUT("/:id", audit(models.AuditActionUpdate, "user"), h.Users.Update)
		users.DELETE("/:id", audit(models.AuditActionDelete, "user"), h.Users.Delete)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", h.Classes.List)
		classes.GET("/:id", h.Classes.Get)

		writes := classes.Group("", middleware.RBAC(superAdmin, admin))
		writes.POST("", audit(models.AuditActionCreate, "class"), h.Classes.Create)
		writes.PUT("/:id", audit(models.AuditActionUpdate, "class"), h.Classes.Update)
		writes.DELETE("/:id", audit(models.AuditActionDelete, "class"), h.Classes.Delete)
	}

	students := protected.Group("/students")
	{
		students.GET("", h.Students.List)
		students.GET("/:id", h.Students.Get)

		writes := students.Group("", middleware.RBAC(superAdmin, admin))
		writes.POST("", audit(models.AuditActionCreate, "student"), h.Students.Create)
		writes.PUT("/:id", audit(models.AuditActionUpdate, "student"), h.Students.Update)
		writes.PUT("/:id/class", audit(models.AuditActionUpdate, "student"), h.Students.AssignClass)
		writes.DELETE("/:id", audit(models.AuditActionDelete, "student"), h.Students.Delete)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.POST("", middleware.RBAC(superAdmin, admin, teacher), h.Attendance.Mark)
		attendance.GET("/class/:class_id", middleware.RBAC(superAdmin, admin, teacher), h.Attendance.ClassDay)
		attendance.GET("/student/:student_id", h.Attendance.StudentRange)
	}

	homework := protected.Group("/homework")
	{
		homework.GET("", h.Homework.List)
		homework.GET("/:id", h.Homework.Get)

		writes := homework.Group("", middleware.RBAC(superAdmin, admin, teacher))
		writes.POST("", h.Homework.Create)
		writes.PUT("/:id", h.Homework.Update)
		writes.DELETE("/:id", h.Homework.Delete)
	}

	notes := protected.Group("/notes")
	{
		notes.GET("", h.Notes.List)
		notes.GET("/:id", h.Notes.Get)

		writes := notes.Group("", middleware.RBAC(superAdmin, admin, teacher))
		writes.POST("", h.Notes.Create)
		writes.PUT("/:id", h.Notes.Update)
		writes.DELETE("/:id", h.Notes.Delete)
	}

	leave := protected.Group("/leave")
	{
		leave.GET("", h.Leave.List)
		leave.GET("/:id", h.Leave.Get)
		leave.POST("", middleware.RBAC(superAdmin, admin, teacher, parent), h.Leave.Apply)
		leave.PUT("/:id/decision", middleware.RBAC(superAdmin, admin, teacher), h.Leave.Decide)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Notifications.List)
		notifications.POST("/devices", h.Notifications.RegisterDevice)
		notifications.PUT("/:id/read", h.Notifications.MarkRead)
	}

	fees := protected.Group("/fees")
	{
		catalog := fees.Group("", middleware.RBAC(superAdmin, admin))
		catalog.GET("/frequencies", h.FeeCatalog.ListFrequencies)
		catalog.POST("/frequencies", audit(models.AuditActionCreate, "fee_frequency"), h.FeeCatalog.CreateFrequency)
		catalog.POST("/frequencies/init", audit(models.AuditActionCreate, "fee_frequency"), h.FeeCatalog.InitFrequencies)
		catalog.PUT("/frequencies/:id", audit(models.AuditActionUpdate, "fee_frequency"), h.FeeCatalog.UpdateFrequency)
		catalog.DELETE("/frequencies/:id", audit(models.AuditActionDelete, "fee_frequency"), h.FeeCatalog.DeleteFrequency)
		catalog.GET("/categories", h.FeeCatalog.ListCategories)
		catalog.POST("/categories", audit(models.AuditActionCreate, "fee_category"), h.FeeCatalog.CreateCategory)
		catalog.POST("/categories/init", audit(models.AuditActionCreate, "fee_category"), h.FeeCatalog.InitCategories)
		catalog.PUT("/categories/:id", audit(models.AuditActionUpdate, "fee_category"), h.FeeCatalog.UpdateCategory)
		catalog.DELETE("/categories/:id", audit(models.AuditActionDelete, "fee_category"), h.FeeCatalog.DeleteCategory)

		structures := fees.Group("/structures", middleware.RBAC(superAdmin, admin))
		structures.GET("", h.FeeStructures.List)
		structures.GET("/:id", h.FeeStructures.Get)
		structures.POST("", audit(models.AuditActionCreate, "fee_structure"), h.FeeStructures.Create)
		structures.PUT("/:id", audit(models.AuditActionUpdate, "fee_structure"), h.FeeStructures.Update)
		structures.DELETE("/:id", audit(models.AuditActionDelete, "fee_structure"), h.FeeStructures.Delete)

		assignments := fees.Group("/assignments", middleware.RBAC(superAdmin, admin))
		assignments.POST("", audit(models.AuditActionFeeAssignment, "fee_assignment"), h.Fees.Assign)
		assignments.PUT("/:id/discount", audit(models.AuditActionFeeAssignment, "fee_assignment"), h.Fees.ApplyDiscount)
		assignments.PUT("/:id/cancel", audit(models.AuditActionFeeAssignment, "fee_assignment"), h.Fees.CancelAssignment)

		fees.GET("/students/:student_id", h.Fees.StudentFees)

		payments := fees.Group("/payments")
		payments.POST("", middleware.RBAC(superAdmin, admin), audit(models.AuditActionFeePayment, "fee_payment"), h.Fees.RecordPayment)
		payments.GET("", middleware.RBAC(superAdmin, admin), h.Fees.ListPayments)
		payments.GET("/:id", h.Fees.GetPayment)
		payments.GET("/:id/receipt", h.Fees.Receipt)
		payments.POST("/:id/receipt-link", h.Fees.ReceiptLink)

		summary := fees.Group("/summary")
		summary.GET("/school", middleware.RBAC(superAdmin, admin), h.Fees.SchoolSummary)
		summary.GET("/comprehensive", middleware.RBAC(superAdmin, admin), h.Fees.ComprehensiveSummary)
		summary.GET("/export", middleware.RBAC(superAdmin, admin), h.Fees.ExportSummaryCSV)
		summary.GET("/class/:class_id", middleware.RBAC(superAdmin, admin, teacher), h.Fees.ClassSummary)
		summary.GET("/student/:student_id", h.Fees.StudentSummary)
	}
}

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/siga-ar/siga-api/internal/middleware"
	"github.com/siga-ar/siga-api/internal/models"
	"github.com/siga-ar/siga-api/internal/service"
	appErrors "github.com/siga-ar/siga-api/pkg/errors"
	"github.com/siga-ar/siga-api/pkg/response"
)

// EnrollmentHandler exposes course enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// enrollPayload is the wire request; the student defaults to the caller and
// may only be a third party for staff roles, mirroring the registrar desk.
type enrollPayload struct {
	SectionID int64 `json:"section_id"`
	StudentID int64 `json:"student_id,omitempty"`
}

// Create godoc
// @Summary Enroll a student into a section
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body enrollPayload true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Business-rule rejection with typed code"
// @Security BearerAuth
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload enrollPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	studentID := payload.StudentID
	switch {
	case claims.Role == models.RoleStudent:
		if studentID != 0 && studentID != claims.UserID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only enroll themselves"))
			return
		}
		studentID = claims.UserID
	case studentID == 0:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required for staff enrollment"))
		return
	}

	result, err := h.enrollments.Enroll(c.Request.Context(), service.EnrollCourseRequest{
		StudentID: studentID,
		SectionID: payload.SectionID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	var meta map[string]interface{}
	if result.Advisory != "" {
		meta = map[string]interface{}{"advisory": result.Advisory}
	}
	response.JSON(c, http.StatusCreated, result.Enrollment, nil, meta)
}

// List godoc
// @Summary List course enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query int false "Filter by student"
// @Param sectionId query int false "Filter by section"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.CourseEnrollmentFilter
	filter.StudentID, _ = strconv.ParseInt(c.Query("studentId"), 10, 64)
	filter.SectionID, _ = strconv.ParseInt(c.Query("sectionId"), 10, 64)
	filter.Status = models.CourseEnrollmentStatus(strings.ToUpper(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	// Students only see their own history.
	if claims.Role == models.RoleStudent {
		filter.StudentID = claims.UserID
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Withdraw godoc
// @Summary Withdraw a course enrollment
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/withdraw [put]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment id"))
		return
	}

	enrollment, err := h.enrollments.Withdraw(c.Request.Context(), id, claims.UserID, middleware.IsStaffRole(claims.Role))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skillforge/skillforge-api/internal/models"
	"github.com/skillforge/skillforge-api/internal/service"
	appErrors "github.com/skillforge/skillforge-api/pkg/errors"
	"github.com/skillforge/skillforge-api/pkg/response"
)

// CourseHandler exposes the public catalog and instructor course management
// endpoints.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary Browse the public course catalog
// @Tags Courses
// @Produce json
// @Param category query string false "Filter by category"
// @Param level query string false "Filter by level"
// @Param priceRange query string false "Price filter: free, min-max or min+"
// @Param search query string false "Full-text search"
// @Param sortBy query string false "Sort: newest, oldest, popular, rating, price-low, price-high"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var q models.ListCoursesQuery
	q.Category = c.Query("category")
	q.Level = c.Query("level")
	q.PriceRange = c.Query("priceRange")
	q.Search = c.Query("search")
	q.SortBy = c.Query("sortBy")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		q.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "12")); err == nil {
		q.Limit = limit
	}

	result, err := h.courses.ListCourses(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Courses, result.Pagination)
}

// Get godoc
// @Summary Get a single course with reviews
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	detail, err := h.courses.GetCourse(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.CreateCourse(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update a course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body models.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req models.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.UpdateCourse(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.DeleteCourse(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Course deleted successfully"}, nil)
}

// MyCourses godoc
// @Summary List the acting instructor's courses
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses/teacher/my-courses [get]
func (h *CourseHandler) MyCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.courses.ListMyCourses(c.Request.Context(), claimsFromContext(c), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Courses, result.Pagination)
}

// UpdateApproval godoc
// @Summary Moderate a course's approval and publication flags
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body models.UpdateApprovalRequest true "Moderation payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/approval [put]
func (h *CourseHandler) UpdateApproval(c *gin.Context) {
	var req models.UpdateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.UpdateApproval(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// AddSection godoc
// @Summary Add a section to a course
// @Tags Curriculum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body models.AddSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/sections [post]
func (h *CourseHandler) AddSection(c *gin.Context) {
	var req models.AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.courses.AddSection(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// UpdateSection godoc
// @Summary Update a section
// @Tags Curriculum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param sectionId path string true "Section ID"
// @Param payload body models.UpdateSectionRequest true "Section payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sections/{sectionId} [put]
func (h *CourseHandler) UpdateSection(c *gin.Context) {
	var req models.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.courses.UpdateSection(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sectionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// DeleteSection godoc
// @Summary Delete a section
// @Tags Curriculum
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sections/{sectionId} [delete]
func (h *CourseHandler) DeleteSection(c *gin.Context) {
	if err := h.courses.DeleteSection(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sectionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Section deleted successfully"}, nil)
}

// AddLesson godoc
// @Summary Add a lesson to a section
// @Tags Curriculum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param sectionId path string true "Section ID"
// @Param payload body models.AddLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/sections/{sectionId}/lessons [post]
func (h *CourseHandler) AddLesson(c *gin.Context) {
	var req models.AddLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.courses.AddLesson(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sectionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// UpdateLesson godoc
// @Summary Update a lesson
// @Tags Curriculum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param sectionId path string true "Section ID"
// @Param lessonId path string true "Lesson ID"
// @Param payload body models.UpdateLessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sections/{sectionId}/lessons/{lessonId} [put]
func (h *CourseHandler) UpdateLesson(c *gin.Context) {
	var req models.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.courses.UpdateLesson(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sectionId"), c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// DeleteLesson godoc
// @Summary Delete a lesson
// @Tags Curriculum
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param sectionId path string true "Section ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sections/{sectionId}/lessons/{lessonId} [delete]
func (h *CourseHandler) DeleteLesson(c *gin.Context) {
	if err := h.courses.DeleteLesson(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sectionId"), c.Param("lessonId")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Lesson deleted successfully"}, nil)
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/service"
)

// CourseHandler holds the catalog, enrollment and progress dependencies.
type CourseHandler struct {
	courseService     service.CourseService
	enrollmentService service.EnrollmentService
	progressService   service.ProgressService
	userService       service.UserService
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(
	courseService service.CourseService,
	enrollmentService service.EnrollmentService,
	progressService service.ProgressService,
	userService service.UserService,
) *CourseHandler {
	return &CourseHandler{
		courseService:     courseService,
		enrollmentService: enrollmentService,
		progressService:   progressService,
		userService:       userService,
	}
}

// --- DTOs ---

// CourseRequest defines the expected JSON for creating or updating a course.
type CourseRequest struct {
	Title            string   `json:"title" binding:"required"`
	Subtitle         string   `json:"subtitle"`
	Description      string   `json:"description" binding:"required"`
	Price            float64  `json:"price" binding:"min=0"`
	DiscountPrice    *float64 `json:"discountPrice" binding:"omitempty,min=0"`
	Category         string   `json:"category" binding:"required"`
	SubCategory      string   `json:"subCategory"`
	Level            string   `json:"level" binding:"omitempty,oneof=beginner intermediate advanced 'all levels'"`
	Language         string   `json:"language"`
	Thumbnail        string   `json:"thumbnail" binding:"omitempty,url"`
	Requirements     []string `json:"requirements"`
	WhatYouWillLearn []string `json:"whatYouWillLearn"`
	Tags             []string `json:"tags"`
}

// LectureRequest defines the expected JSON for adding or updating a lecture.
type LectureRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	VideoURL    string `json:"videoUrl" binding:"omitempty,url"`
	Duration    int    `json:"duration" binding:"min=0"` // seconds
	Order       int    `json:"order" binding:"min=0"`
	IsFree      bool   `json:"isFree"`
}

// ProgressRequest carries the partial lecture-progress update; absent fields
// are left untouched.
type ProgressRequest struct {
	Completed       *bool `json:"completed"`
	WatchedDuration *int  `json:"watchedDuration" binding:"omitempty,min=0"`
	QuizScore       *int  `json:"quizScore" binding:"omitempty,min=0,max=100"`
}

// ProgressResponse is the DTO for a progress record.
type ProgressResponse struct {
	CourseID          string     `json:"courseId"`
	OverallProgress   int        `json:"overallProgress"`
	CompletedLectures int        `json:"completedLectures"`
	TotalLectures     int        `json:"totalLectures"`
	IsCompleted       bool       `json:"isCompleted"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	LastAccessedAt    time.Time  `json:"lastAccessedAt"`

	Lectures []LectureProgressResponse `json:"lectures"`
}

type LectureProgressResponse struct {
	LectureID       string     `json:"lectureId"`
	Completed       bool       `json:"completed"`
	WatchedDuration int        `json:"watchedDuration"`
	LastWatchedAt   *time.Time `json:"lastWatchedAt,omitempty"`
	QuizScore       *int       `json:"quizScore,omitempty"`
}

func mapProgressToResponse(p *domain.Progress) ProgressResponse {
	resp := ProgressResponse{
		CourseID:          p.CourseID.Hex(),
		OverallProgress:   p.OverallProgress,
		CompletedLectures: p.CompletedLectures,
		TotalLectures:     p.TotalLectures,
		IsCompleted:       p.IsCompleted,
		CompletedAt:       p.CompletedAt,
		LastAccessedAt:    p.LastAccessedAt,
		Lectures:          make([]LectureProgressResponse, len(p.LectureProgress)),
	}
	for i, lp := range p.LectureProgress {
		resp.Lectures[i] = LectureProgressResponse{
			LectureID:       lp.LectureID.Hex(),
			Completed:       lp.Completed,
			WatchedDuration: lp.WatchedDuration,
			LastWatchedAt:   lp.LastWatchedAt,
			QuizScore:       lp.QuizScore,
		}
	}
	return resp
}

func (r CourseRequest) toInput() service.CourseInput {
	return service.CourseInput{
		Title:            r.Title,
		Subtitle:         r.Subtitle,
		Description:      r.Description,
		Price:            r.Price,
		DiscountPrice:    r.DiscountPrice,
		Category:         r.Category,
		SubCategory:      r.SubCategory,
		Level:            domain.CourseLevel(r.Level),
		Language:         r.Language,
		Thumbnail:        r.Thumbnail,
		Requirements:     r.Requirements,
		WhatYouWillLearn: r.WhatYouWillLearn,
		Tags:             r.Tags,
	}
}

func (r LectureRequest) toInput() service.LectureInput {
	return service.LectureInput{
		Title:       r.Title,
		Description: r.Description,
		VideoURL:    r.VideoURL,
		Duration:    r.Duration,
		Order:       r.Order,
		IsFree:      r.IsFree,
	}
}

// --- Handler Methods ---

// ListCourses returns the public catalog of published courses.
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseService.ListPublishedCourses(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list courses.")
		return
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	c.JSON(http.StatusOK, courses)
}

// GetCourse returns one course; paid lecture videos are hidden from
// non-enrolled viewers.
func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	viewerEnrolled := false
	if userID, err := getUserIDFromContext(c); err == nil {
		enrolled, err := h.enrollmentService.IsEnrolled(c.Request.Context(), userID, courseID)
		if err == nil {
			viewerEnrolled = enrolled
		}
		if role, err := getUserRoleFromContext(c); err == nil && role == domain.RoleAdmin {
			viewerEnrolled = true
		}
	}

	course, err := h.courseService.GetCourse(c.Request.Context(), courseID, viewerEnrolled)
	if err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load course.")
		}
		return
	}

	c.JSON(http.StatusOK, course)
}

// CreateCourse creates a draft course for the authenticated instructor.
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	instructorID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify instructor from token.")
		return
	}

	course, err := h.courseService.CreateCourse(c.Request.Context(), instructorID, req.toInput())
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusCreated, course)
}

// UpdateCourse modifies a course the instructor owns.
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	instructorID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify instructor from token.")
		return
	}

	course, err := h.courseService.UpdateCourse(c.Request.Context(), instructorID, courseID, req.toInput())
	if err != nil {
		h.mapCourseError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// PublishCourse makes a draft course enrollable.
func (h *CourseHandler) PublishCourse(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	instructorID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify instructor from token.")
		return
	}

	course, err := h.courseService.PublishCourse(c.Request.Context(), instructorID, courseID)
	if err != nil {
		h.mapCourseError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// GetMyCourses returns the instructor's own courses, drafts included.
func (h *CourseHandler) GetMyCourses(c *gin.Context) {
	instructorID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify instructor from token.")
		return
	}

	courses, err := h.courseService.GetInstructorCourses(c.Request.Context(), instructorID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list courses.")
		return
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	c.JSON(http.StatusOK, courses)
}

// GetEnrolledCourses returns the student's courses with progress.
func (h *CourseHandler) GetEnrolledCourses(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	courses, err := h.enrollmentService.GetEnrolledCourses(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list enrolled courses.")
		return
	}
	c.JSON(http.StatusOK, courses)
}

// AddLecture appends a lecture to an owned course.
func (h *CourseHandler) AddLecture(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	var req LectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	instructorID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify instructor from token.")
		return
	}

	course, err := h.courseService.AddLecture(c.Request.Context(), instructorID, courseID, req.toInput())
	if err != nil {
		h.mapCourseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// UpdateLecture modifies one lecture of an owned course.
func (h *CourseHandler) UpdateLecture(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}
	lectureID, err := primitive.ObjectIDFromHex(c.Param("lectureId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid lecture ID format.")
		return
	}

	var req LectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	instructorID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify instructor from token.")
		return
	}

	course, err := h.courseService.UpdateLecture(c.Request.Context(), instructorID, courseID, lectureID, req.toInput())
	if err != nil {
		h.mapCourseError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// RemoveLecture drops one lecture from an owned course.
func (h *CourseHandler) RemoveLecture(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}
	lectureID, err := primitive.ObjectIDFromHex(c.Param("lectureId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid lecture ID format.")
		return
	}

	instructorID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify instructor from token.")
		return
	}

	course, err := h.courseService.RemoveLecture(c.Request.Context(), instructorID, courseID, lectureID)
	if err != nil {
		h.mapCourseError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// DeleteCourse removes a course (admin only); completed payments are
// refunded, enrollment facts stay.
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	if err := h.courseService.DeleteCourse(c.Request.Context(), courseID); err != nil {
		h.mapCourseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}

// Enroll enrolls the authenticated user in a course.
func (h *CourseHandler) Enroll(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	course, err := h.enrollmentService.Enroll(c.Request.Context(), userID, courseID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCourseNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrCourseNotAvailable):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrAlreadyEnrolled):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrPaymentRequired):
			abortWithError(c, http.StatusPaymentRequired, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to enroll.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully enrolled in course", "course": course})
}

// RecordLectureProgress applies a partial update to one lecture's progress.
func (h *CourseHandler) RecordLectureProgress(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}
	lectureID, err := primitive.ObjectIDFromHex(c.Param("lectureId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid lecture ID format.")
		return
	}

	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	progress, err := h.progressService.RecordLectureProgress(c.Request.Context(), userID, courseID, lectureID, service.LectureUpdate{
		Completed:       req.Completed,
		WatchedDuration: req.WatchedDuration,
		QuizScore:       req.QuizScore,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotEnrolled):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrLectureNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrProgressConflict):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to update progress.")
		}
		return
	}

	c.JSON(http.StatusOK, mapProgressToResponse(progress))
}

// GetProgress returns the authenticated user's progress for a course.
func (h *CourseHandler) GetProgress(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	progress, err := h.progressService.GetProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		if errors.Is(err, service.ErrNotEnrolled) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load progress.")
		}
		return
	}

	c.JSON(http.StatusOK, mapProgressToResponse(progress))
}

// AddToWishlist bookmarks a course for the authenticated user.
func (h *CourseHandler) AddToWishlist(c *gin.Context) {
	h.mutateWishlist(c, h.userService.AddToWishlist, "Course added to wishlist")
}

// RemoveFromWishlist drops a bookmarked course.
func (h *CourseHandler) RemoveFromWishlist(c *gin.Context) {
	h.mutateWishlist(c, h.userService.RemoveFromWishlist, "Course removed from wishlist")
}

func (h *CourseHandler) mutateWishlist(c *gin.Context, op func(ctx context.Context, userID, courseID primitive.ObjectID) error, message string) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	if err := op(c.Request.Context(), userID, courseID); err != nil {
		if errors.Is(err, service.ErrCourseNotFound) || errors.Is(err, service.ErrUserNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to update wishlist.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *CourseHandler) mapCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotCourseOwner):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrLectureMissing):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCourseDeletionStarted):
		abortWithError(c, http.StatusInternalServerError, err.Error())
	default:
		abortWithError(c, http.StatusBadRequest, err.Error())
	}
}

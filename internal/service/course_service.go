package service

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/repository"
)

// --- Error Definitions ---
var (
	ErrNotCourseOwner        = errors.New("course does not belong to this instructor")
	ErrLectureMissing        = errors.New("lecture not found in course")
	ErrCourseDeletionStarted = errors.New("course deleted but related cleanup failed; safe to retry")
)

// The reason string recorded on bulk refunds triggered by a course deletion.
const courseDeletedRefundReason = "course deleted by administrator"

// CourseInput carries the instructor-editable catalog fields.
type CourseInput struct {
	Title            string
	Subtitle         string
	Description      string
	Price            float64
	DiscountPrice    *float64
	Category         string
	SubCategory      string
	Level            domain.CourseLevel
	Language         string
	Thumbnail        string
	Requirements     []string
	WhatYouWillLearn []string
	Tags             []string
}

// LectureInput carries the fields of one embedded lecture.
type LectureInput struct {
	Title       string
	Description string
	VideoURL    string
	Duration    int
	Order       int
	IsFree      bool
}

// CourseService owns the catalog: course CRUD, the embedded lecture list,
// and the derived totalDuration field, which is recomputed after every
// lecture mutation.
type CourseService interface {
	CreateCourse(ctx context.Context, instructorID primitive.ObjectID, input CourseInput) (*domain.Course, error)
	UpdateCourse(ctx context.Context, instructorID, courseID primitive.ObjectID, input CourseInput) (*domain.Course, error)
	PublishCourse(ctx context.Context, instructorID, courseID primitive.ObjectID) (*domain.Course, error)
	GetCourse(ctx context.Context, courseID primitive.ObjectID, viewerEnrolled bool) (*domain.Course, error)
	ListPublishedCourses(ctx context.Context) ([]domain.Course, error)
	GetInstructorCourses(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Course, error)

	AddLecture(ctx context.Context, instructorID, courseID primitive.ObjectID, input LectureInput) (*domain.Course, error)
	UpdateLecture(ctx context.Context, instructorID, courseID, lectureID primitive.ObjectID, input LectureInput) (*domain.Course, error)
	RemoveLecture(ctx context.Context, instructorID, courseID, lectureID primitive.ObjectID) (*domain.Course, error)

	DeleteCourse(ctx context.Context, courseID primitive.ObjectID) error
}

// --- Service Implementation ---

type courseService struct {
	courseRepo     repository.CourseRepository
	reviewRepo     repository.ReviewRepository
	paymentService PaymentService
}

// NewCourseService creates a new instance of courseService.
func NewCourseService(
	courseRepo repository.CourseRepository,
	reviewRepo repository.ReviewRepository,
	paymentService PaymentService,
) CourseService {
	return &courseService{
		courseRepo:     courseRepo,
		reviewRepo:     reviewRepo,
		paymentService: paymentService,
	}
}

// CreateCourse creates a draft course for the instructor.
func (s *courseService) CreateCourse(ctx context.Context, instructorID primitive.ObjectID, input CourseInput) (*domain.Course, error) {
	if input.Title == "" || input.Description == "" || input.Category == "" {
		return nil, errors.New("title, description and category are required")
	}
	if input.Price < 0 {
		return nil, errors.New("price cannot be negative")
	}

	course := &domain.Course{
		Title:            input.Title,
		Subtitle:         input.Subtitle,
		Description:      input.Description,
		Price:            input.Price,
		DiscountPrice:    input.DiscountPrice,
		Category:         input.Category,
		SubCategory:      input.SubCategory,
		Level:            input.Level,
		Language:         input.Language,
		Thumbnail:        input.Thumbnail,
		InstructorID:     instructorID,
		Status:           domain.CourseDraft,
		Requirements:     input.Requirements,
		WhatYouWillLearn: input.WhatYouWillLearn,
		Tags:             input.Tags,
	}
	if course.Level == "" {
		course.Level = domain.LevelBeginner
	}
	if course.Language == "" {
		course.Language = "English"
	}

	courseID, err := s.courseRepo.Create(ctx, course)
	if err != nil {
		return nil, err
	}
	course.ID = courseID
	return course, nil
}

// UpdateCourse modifies the catalog fields of a course the instructor owns.
func (s *courseService) UpdateCourse(ctx context.Context, instructorID, courseID primitive.ObjectID, input CourseInput) (*domain.Course, error) {
	course, err := s.getOwnedCourse(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}

	if input.Title != "" {
		course.Title = input.Title
	}
	course.Subtitle = input.Subtitle
	if input.Description != "" {
		course.Description = input.Description
	}
	if input.Price >= 0 {
		course.Price = input.Price
	}
	course.DiscountPrice = input.DiscountPrice
	if input.Category != "" {
		course.Category = input.Category
	}
	course.SubCategory = input.SubCategory
	if input.Level != "" {
		course.Level = input.Level
	}
	if input.Language != "" {
		course.Language = input.Language
	}
	if input.Thumbnail != "" {
		course.Thumbnail = input.Thumbnail
	}
	course.Requirements = input.Requirements
	course.WhatYouWillLearn = input.WhatYouWillLearn
	course.Tags = input.Tags

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// PublishCourse moves a course into the published status, making it
// enrollable.
func (s *courseService) PublishCourse(ctx context.Context, instructorID, courseID primitive.ObjectID) (*domain.Course, error) {
	course, err := s.getOwnedCourse(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}

	if len(course.Lectures) == 0 {
		return nil, errors.New("cannot publish a course without lectures")
	}

	course.Status = domain.CoursePublished
	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// GetCourse returns a course for viewing. Non-enrolled viewers see the
// lecture list but not the video URLs of paid lectures.
func (s *courseService) GetCourse(ctx context.Context, courseID primitive.ObjectID, viewerEnrolled bool) (*domain.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	if !viewerEnrolled {
		for i := range course.Lectures {
			if !course.Lectures[i].IsFree {
				course.Lectures[i].VideoURL = ""
			}
		}
	}
	return course, nil
}

// ListPublishedCourses returns the public catalog.
func (s *courseService) ListPublishedCourses(ctx context.Context) ([]domain.Course, error) {
	return s.courseRepo.ListPublished(ctx)
}

// GetInstructorCourses returns the instructor's own courses, drafts included.
func (s *courseService) GetInstructorCourses(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Course, error) {
	return s.courseRepo.GetByInstructorID(ctx, instructorID)
}

// AddLecture appends a lecture to the course and recomputes totalDuration.
func (s *courseService) AddLecture(ctx context.Context, instructorID, courseID primitive.ObjectID, input LectureInput) (*domain.Course, error) {
	if input.Title == "" {
		return nil, errors.New("lecture title is required")
	}

	course, err := s.getOwnedCourse(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}

	order := input.Order
	if order == 0 {
		order = len(course.Lectures) + 1
	}
	course.Lectures = append(course.Lectures, domain.Lecture{
		ID:          primitive.NewObjectID(),
		Title:       input.Title,
		Description: input.Description,
		VideoURL:    input.VideoURL,
		Duration:    input.Duration,
		Order:       order,
		IsFree:      input.IsFree,
	})

	return s.saveLectures(ctx, course)
}

// UpdateLecture modifies one embedded lecture and recomputes totalDuration.
func (s *courseService) UpdateLecture(ctx context.Context, instructorID, courseID, lectureID primitive.ObjectID, input LectureInput) (*domain.Course, error) {
	course, err := s.getOwnedCourse(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}

	lecture := course.Lecture(lectureID)
	if lecture == nil {
		return nil, ErrLectureMissing
	}

	if input.Title != "" {
		lecture.Title = input.Title
	}
	if input.Description != "" {
		lecture.Description = input.Description
	}
	if input.VideoURL != "" {
		lecture.VideoURL = input.VideoURL
	}
	if input.Duration > 0 {
		lecture.Duration = input.Duration
	}
	if input.Order > 0 {
		lecture.Order = input.Order
	}
	lecture.IsFree = input.IsFree

	return s.saveLectures(ctx, course)
}

// RemoveLecture drops one embedded lecture and recomputes totalDuration.
func (s *courseService) RemoveLecture(ctx context.Context, instructorID, courseID, lectureID primitive.ObjectID) (*domain.Course, error) {
	course, err := s.getOwnedCourse(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}

	found := false
	lectures := course.Lectures[:0]
	for _, l := range course.Lectures {
		if l.ID == lectureID {
			found = true
			continue
		}
		lectures = append(lectures, l)
	}
	if !found {
		return nil, ErrLectureMissing
	}
	course.Lectures = lectures

	return s.saveLectures(ctx, course)
}

// DeleteCourse removes a course (administrative): its reviews go with it and
// every completed payment is refunded with a reason. Enrollment facts and
// users' enrolledCourses are deliberately left untouched.
func (s *courseService) DeleteCourse(ctx context.Context, courseID primitive.ObjectID) error {
	if err := s.courseRepo.Delete(ctx, courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCourseNotFound
		}
		return err
	}

	if err := s.reviewRepo.DeleteByCourse(ctx, courseID); err != nil {
		log.Printf("WARN: deleting reviews for course %s failed: %v", courseID.Hex(), err)
		return ErrCourseDeletionStarted
	}

	refunded, err := s.paymentService.RefundForCourse(ctx, courseID, courseDeletedRefundReason)
	if err != nil {
		log.Printf("WARN: refunding payments for course %s failed: %v", courseID.Hex(), err)
		return ErrCourseDeletionStarted
	}
	if refunded > 0 {
		log.Printf("refunded %d payments for deleted course %s", refunded, courseID.Hex())
	}
	return nil
}

// saveLectures persists a mutated lecture list, then refreshes the derived
// totalDuration through the single dedicated writer.
func (s *courseService) saveLectures(ctx context.Context, course *domain.Course) (*domain.Course, error) {
	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}

	total := course.LectureDurationSum()
	if err := s.courseRepo.SetTotalDuration(ctx, course.ID, total); err != nil {
		return nil, err
	}
	course.TotalDuration = total
	return course, nil
}

func (s *courseService) getOwnedCourse(ctx context.Context, instructorID, courseID primitive.ObjectID) (*domain.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	if course.InstructorID != instructorID {
		return nil, ErrNotCourseOwner
	}
	return course, nil
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/service"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	userService service.UserService,
	courseService service.CourseService,
	enrollmentService service.EnrollmentService,
	progressService service.ProgressService,
	paymentService service.PaymentService,
	reviewService service.ReviewService,
) {
	authHandler := NewAuthHandler(authService, userService)
	courseHandler := NewCourseHandler(courseService, enrollmentService, progressService, userService)
	paymentHandler := NewPaymentHandler(paymentService)
	reviewHandler := NewReviewHandler(reviewService)

	authMiddleware := AuthMiddleware(jwtSecret)
	optionalAuth := OptionalAuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// Public catalog. The course detail route accepts an optional token
		// so enrolled viewers see full lecture videos.
		apiV1.GET("/courses", courseHandler.ListCourses)
		apiV1.GET("/courses/:id", optionalAuth, courseHandler.GetCourse)
		apiV1.GET("/courses/:id/reviews", reviewHandler.GetCourseReviews)
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)
		protected.GET("/me/courses", courseHandler.GetEnrolledCourses)
		protected.GET("/me/payments", paymentHandler.GetMyPayments)

		// --- Enrollment and learning ---
		protected.POST("/courses/:id/enroll", courseHandler.Enroll)
		protected.GET("/courses/:id/progress", courseHandler.GetProgress)
		protected.PUT("/courses/:id/lectures/:lectureId/progress", courseHandler.RecordLectureProgress)

		// --- Wishlist ---
		protected.POST("/courses/:id/wishlist", courseHandler.AddToWishlist)
		protected.DELETE("/courses/:id/wishlist", courseHandler.RemoveFromWishlist)

		// --- Reviews ---
		protected.POST("/courses/:id/reviews", reviewHandler.SubmitReview)
		protected.PUT("/reviews/:reviewId", reviewHandler.UpdateReview)
		protected.DELETE("/reviews/:reviewId", reviewHandler.DeleteReview)

		// --- Payments ---
		paymentGroup := protected.Group("/payments")
		{
			paymentGroup.POST("/intent", paymentHandler.CreateIntent)
			paymentGroup.POST("/:id/confirm", paymentHandler.Confirm)
			paymentGroup.POST("/free", paymentHandler.EnrollFree)
			paymentGroup.POST("/mock", paymentHandler.MockPurchase)
			paymentGroup.GET("/:id", paymentHandler.GetPayment)
		}

		// --- Instructor routes ---
		instructorGroup := protected.Group("/instructor")
		instructorGroup.Use(RoleMiddleware(domain.RoleInstructor, domain.RoleAdmin))
		{
			instructorGroup.GET("/courses", courseHandler.GetMyCourses)
			instructorGroup.POST("/courses", courseHandler.CreateCourse)
			instructorGroup.PUT("/courses/:id", courseHandler.UpdateCourse)
			instructorGroup.POST("/courses/:id/publish", courseHandler.PublishCourse)
			instructorGroup.POST("/courses/:id/lectures", courseHandler.AddLecture)
			instructorGroup.PUT("/courses/:id/lectures/:lectureId", courseHandler.UpdateLecture)
			instructorGroup.DELETE("/courses/:id/lectures/:lectureId", courseHandler.RemoveLecture)
		}

		// --- Admin routes ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.DELETE("/courses/:id", courseHandler.DeleteCourse)
		}
	}
}

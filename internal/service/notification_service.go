package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/skillforge-api/pkg/jobs"
	"github.com/skillforge/skillforge-api/pkg/mailer"
)

const jobTypeEnrollmentEmail = "enrollment_email"

// EnrollmentNotification carries everything needed for the welcome email.
type EnrollmentNotification struct {
	Email          string
	StudentName    string
	CourseTitle    string
	InstructorName string
}

// NotificationService delivers transactional emails through a background
// worker queue so request handlers never block on SMTP.
type NotificationService struct {
	queue  *jobs.Queue
	mailer mailer.Mailer
	logger *zap.Logger
}

func NewNotificationService(m mailer.Mailer, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		mailer: m,
		logger: logger,
	}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handleJob, cfg)
	return s
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyEnrollment enqueues a welcome email. Delivery is best effort and
// never affects the caller's outcome.
func (s *NotificationService) NotifyEnrollment(n EnrollmentNotification) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.New().String(),
		Type:    jobTypeEnrollmentEmail,
		Payload: n,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue enrollment email",
			zap.String("email", n.Email),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) handleJob(_ context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeEnrollmentEmail:
		n, ok := job.Payload.(EnrollmentNotification)
		if !ok {
			s.logger.Error("unexpected payload for enrollment email job", zap.String("job_id", job.ID))
			return nil
		}
		return s.sendEnrollmentEmail(n)
	default:
		s.logger.Warn("unknown job type", zap.String("type", job.Type))
		return nil
	}
}

func (s *NotificationService) sendEnrollmentEmail(n EnrollmentNotification) error {
	subject := fmt.Sprintf("You're enrolled in %s", n.CourseTitle)
	body := fmt.Sprintf(
		"Hi %s,\n\nYou are now enrolled in %q by %s. Head over to your learning dashboard to get started.\n\nHappy learning!",
		n.StudentName, n.CourseTitle, n.InstructorName,
	)
	return s.mailer.Send(n.Email, subject, body)
}

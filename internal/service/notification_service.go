package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/fault-service/internal/domain"
	"github.com/spec-kit/fault-service/internal/events"
	"github.com/spec-kit/fault-service/internal/repository"
)

// NotificationService turns fault lifecycle events into emails. Delivery is
// fire-and-forget: each recipient gets its own send, failures are logged
// and never surface to the request that raised the event.
type NotificationService struct {
	users    repository.UserRepository
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(users repository.UserRepository, notifier Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{users: users, notifier: notifier, logger: logger}
}

// HandleFaultCreated mails every admin about a new report.
func (s *NotificationService) HandleFaultCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.FaultCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s event", event.Type)
	}
	fault := payload.Fault

	admins, err := s.users.ListAdminEmails(ctx)
	if err != nil {
		s.logger.Warn("could not list admin emails", zap.Error(err))
		return nil
	}

	subject := fmt.Sprintf("New Fault Submitted: %s", fault.Location)
	body := fmt.Sprintf(
		"A new fault was reported.\n\nHostel: %s\nFloor: %s\nLocation: %s\nCategory: %s\nPriority: %s\n\n%s",
		fault.HostelName, fault.Floor, fault.Location, fault.Category, fault.Priority, fault.Description)
	for _, email := range admins {
		s.dispatch(email, subject, body)
	}
	return nil
}

// HandleFaultAssigned mails the assigned employee.
func (s *NotificationService) HandleFaultAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.FaultAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s event", event.Type)
	}

	assignee, err := s.users.GetByID(ctx, payload.AssigneeID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("could not load assignee for notification",
				zap.String("assignee_id", payload.AssigneeID), zap.Error(err))
		}
		return nil
	}

	fault := payload.Fault
	subject := fmt.Sprintf("New Task Assigned: %s", fault.Location)
	body := fmt.Sprintf(
		"Hi %s,\n\nYou have been assigned a new fault.\n\nHostel: %s\nFloor: %s\nLocation: %s\nCategory: %s\nPriority: %s\n\n%s",
		assignee.Name, fault.HostelName, fault.Floor, fault.Location, fault.Category, fault.Priority, fault.Description)
	s.dispatch(assignee.Email, subject, body)
	return nil
}

// HandleFaultStatusChanged mails the reporter and every admin when a fault
// reaches Resolved. Other transitions produce no mail.
func (s *NotificationService) HandleFaultStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.FaultStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s event", event.Type)
	}
	if payload.NewStatus != domain.FaultStatusResolved {
		return nil
	}
	fault := payload.Fault

	subject := fmt.Sprintf("Fault Resolved: %s", fault.Location)
	body := fmt.Sprintf(
		"The fault at %s (%s, floor %s) has been marked resolved.",
		fault.Location, fault.HostelName, fault.Floor)

	if fault.ReporterID != nil {
		if reporter, err := s.users.GetByID(ctx, *fault.ReporterID); err == nil {
			s.dispatch(reporter.Email, subject, body)
		} else if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("could not load reporter for notification",
				zap.String("reporter_id", *fault.ReporterID), zap.Error(err))
		}
	}

	admins, err := s.users.ListAdminEmails(ctx)
	if err != nil {
		s.logger.Warn("could not list admin emails", zap.Error(err))
		return nil
	}
	for _, email := range admins {
		s.dispatch(email, subject, body)
	}
	return nil
}

// dispatch sends one message on its own goroutine so SMTP latency never
// holds up the request that raised the event.
func (s *NotificationService) dispatch(to, subject, body string) {
	go func() {
		if err := s.notifier.Send(to, subject, body); err != nil {
			s.logger.Warn("email delivery failed",
				zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		}
	}()
}

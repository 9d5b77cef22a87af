package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/fault-service/internal/classifier"
	"github.com/spec-kit/fault-service/internal/domain"
	"github.com/spec-kit/fault-service/internal/events"
	"github.com/spec-kit/fault-service/internal/repository"
	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

// FaultService owns the fault lifecycle: creation, assignment, status
// transitions, comment threading and the read queries.
type FaultService struct {
	faults     repository.FaultRepository
	comments   repository.CommentRepository
	classifier classifier.Client
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// FaultDependencies bundles collaborators for the fault service.
type FaultDependencies struct {
	FaultRepo   repository.FaultRepository
	CommentRepo repository.CommentRepository
	Classifier  classifier.Client
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// FaultCreateInput describes a new fault report.
type FaultCreateInput struct {
	HostelName  string
	Floor       string
	Location    string
	Description string
	ImageURL    *string
}

// NewFaultService constructs the service.
func NewFaultService(deps FaultDependencies) *FaultService {
	return &FaultService{
		faults:     deps.FaultRepo,
		comments:   deps.CommentRepo,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create files a new fault report in Submitted state with no assignee.
// Classification is best-effort: any classifier failure falls back to the
// Low/General defaults and never blocks creation.
func (s *FaultService) Create(ctx context.Context, reporterID string, input FaultCreateInput) (*domain.Fault, error) {
	input.HostelName = strings.TrimSpace(input.HostelName)
	input.Floor = strings.TrimSpace(input.Floor)
	input.Location = strings.TrimSpace(input.Location)
	input.Description = strings.TrimSpace(input.Description)
	if input.HostelName == "" || input.Floor == "" || input.Location == "" || input.Description == "" {
		return nil, apperrors.NewValidationError("hostel_name, floor, location, description required", nil)
	}

	classification, err := s.classifier.Classify(ctx, input.Description)
	if err != nil {
		s.logger.Warn("classifier call failed, using defaults", zap.Error(err))
		classification = classifier.Defaults()
	}

	fault := &domain.Fault{
		ReporterID:  &reporterID,
		HostelName:  input.HostelName,
		Floor:       input.Floor,
		Location:    input.Location,
		Description: input.Description,
		Category:    classification.Category,
		Priority:    classification.Priority,
		Status:      domain.FaultStatusSubmitted,
		ImageURL:    input.ImageURL,
	}
	if err := s.faults.Create(ctx, fault); err != nil {
		return nil, apperrors.MapError(err)
	}

	detail, err := s.faults.GetDetail(ctx, fault.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventFaultCreated,
		FaultID: fault.ID,
		Payload: events.FaultCreatedPayload{Fault: *detail},
	})
	return fault, nil
}

// Assign binds a Submitted fault to the least busy specialized employee
// and moves it to In Progress. The repository serializes the whole
// read-check-write sequence against concurrent assignment attempts.
func (s *FaultService) Assign(ctx context.Context, faultID string) (*domain.FaultDetail, error) {
	employeeID, err := s.faults.AssignLeastBusy(ctx, faultID)
	if err != nil {
		var noEligible *repository.NoEligibleEmployeeError
		switch {
		case errors.Is(err, repository.ErrFaultNotAssignable):
			return nil, apperrors.NewAlreadyAssignedOrMissing(faultID)
		case errors.As(err, &noEligible):
			return nil, apperrors.NewNoEligibleEmployee(noEligible.Category)
		default:
			return nil, apperrors.MapError(err)
		}
	}

	detail, err := s.faults.GetDetail(ctx, faultID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventFaultAssigned,
		FaultID: faultID,
		Payload: events.FaultAssignedPayload{Fault: *detail, AssigneeID: employeeID},
	})
	return detail, nil
}

// UpdateStatus sets a fault to any of the four defined states. No
// transition matrix is enforced beyond the enum check: an employee or
// admin may move a fault out of a terminal state.
func (s *FaultService) UpdateStatus(ctx context.Context, faultID string, newStatus domain.FaultStatus) (*domain.FaultDetail, error) {
	if !domain.ValidFaultStatus(newStatus) {
		return nil, apperrors.NewInvalidStatus(string(newStatus))
	}

	fault, err := s.faults.GetByID(ctx, faultID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("fault", map[string]any{"fault_id": faultID})
		}
		return nil, apperrors.MapError(err)
	}
	oldStatus := fault.Status

	if err := s.faults.UpdateStatus(ctx, faultID, newStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("fault", map[string]any{"fault_id": faultID})
		}
		return nil, apperrors.MapError(err)
	}

	detail, err := s.faults.GetDetail(ctx, faultID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventFaultStatusChanged,
		FaultID: faultID,
		Payload: events.FaultStatusChangedPayload{
			Fault:     *detail,
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return detail, nil
}

// AddComment appends an immutable comment to a fault's thread.
func (s *FaultService) AddComment(ctx context.Context, faultID, authorID, text string) (*domain.CommentDetail, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text cannot be empty", nil)
	}

	if _, err := s.faults.GetByID(ctx, faultID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("fault", map[string]any{"fault_id": faultID})
		}
		return nil, apperrors.MapError(err)
	}

	comment := &domain.Comment{
		FaultID: faultID,
		UserID:  authorID,
		Body:    text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	detail, err := s.comments.GetDetail(ctx, comment.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventCommentAdded,
		FaultID: faultID,
		Payload: events.CommentAddedPayload{FaultID: faultID, Comment: *detail},
	})
	return detail, nil
}

// ListMyFaults returns faults reported by the given user, newest first.
func (s *FaultService) ListMyFaults(ctx context.Context, reporterID string) ([]domain.Fault, error) {
	faults, err := s.faults.ListByReporter(ctx, reporterID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return faults, nil
}

// ListAssigned returns faults assigned to the given employee.
func (s *FaultService) ListAssigned(ctx context.Context, employeeID string) ([]domain.FaultDetail, error) {
	faults, err := s.faults.ListByAssignee(ctx, employeeID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return faults, nil
}

// ListAll returns every fault with reporter names joined.
func (s *FaultService) ListAll(ctx context.Context) ([]domain.FaultDetail, error) {
	faults, err := s.faults.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return faults, nil
}

// GetFault returns one fault with reporter/assignee names joined.
func (s *FaultService) GetFault(ctx context.Context, faultID string) (*domain.FaultDetail, error) {
	detail, err := s.faults.GetDetail(ctx, faultID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("fault", map[string]any{"fault_id": faultID})
		}
		return nil, apperrors.MapError(err)
	}
	return detail, nil
}

// ListComments returns a fault's comments in ascending creation order.
func (s *FaultService) ListComments(ctx context.Context, faultID string) ([]domain.CommentDetail, error) {
	comments, err := s.comments.ListByFault(ctx, faultID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// Stats returns fault counts grouped by status, priority and category.
func (s *FaultService) Stats(ctx context.Context) (*domain.FaultStats, error) {
	stats, err := s.faults.Stats(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

// publishEvent emits exactly one event per successful mutation. Dispatch
// failures are deliberately discarded: connected clients reconcile via
// their next full-list fetch.
func (s *FaultService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

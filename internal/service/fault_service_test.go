package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/fault-service/internal/classifier"
	"github.com/spec-kit/fault-service/internal/domain"
	"github.com/spec-kit/fault-service/internal/events"
	"github.com/spec-kit/fault-service/internal/repository"
	apperrors "github.com/spec-kit/fault-service/pkg/util"
)

type mockFaultRepo struct {
	faults       map[string]domain.Fault
	nextID       int
	assignResult string
	assignErr    error
	assignCalls  int
}

func newMockFaultRepo() *mockFaultRepo {
	return &mockFaultRepo{faults: make(map[string]domain.Fault)}
}

func (m *mockFaultRepo) Create(_ context.Context, fault *domain.Fault) error {
	m.nextID++
	fault.ID = "fault-" + string(rune('0'+m.nextID))
	m.faults[fault.ID] = *fault
	return nil
}

func (m *mockFaultRepo) GetByID(_ context.Context, id string) (*domain.Fault, error) {
	fault, ok := m.faults[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &fault, nil
}

func (m *mockFaultRepo) GetDetail(_ context.Context, id string) (*domain.FaultDetail, error) {
	fault, ok := m.faults[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.FaultDetail{Fault: fault}, nil
}

func (m *mockFaultRepo) ListByReporter(_ context.Context, reporterID string) ([]domain.Fault, error) {
	var result []domain.Fault
	for _, fault := range m.faults {
		if fault.ReporterID != nil && *fault.ReporterID == reporterID {
			result = append(result, fault)
		}
	}
	return result, nil
}

func (m *mockFaultRepo) ListByAssignee(_ context.Context, employeeID string) ([]domain.FaultDetail, error) {
	var result []domain.FaultDetail
	for _, fault := range m.faults {
		if fault.AssignedToID != nil && *fault.AssignedToID == employeeID {
			result = append(result, domain.FaultDetail{Fault: fault})
		}
	}
	return result, nil
}

func (m *mockFaultRepo) ListAll(_ context.Context) ([]domain.FaultDetail, error) {
	result := make([]domain.FaultDetail, 0, len(m.faults))
	for _, fault := range m.faults {
		result = append(result, domain.FaultDetail{Fault: fault})
	}
	return result, nil
}

func (m *mockFaultRepo) UpdateStatus(_ context.Context, id string, status domain.FaultStatus) error {
	fault, ok := m.faults[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fault.Status = status
	m.faults[id] = fault
	return nil
}

func (m *mockFaultRepo) AssignLeastBusy(_ context.Context, faultID string) (string, error) {
	m.assignCalls++
	if m.assignErr != nil {
		return "", m.assignErr
	}
	fault, ok := m.faults[faultID]
	if ok {
		assignee := m.assignResult
		fault.AssignedToID = &assignee
		fault.Status = domain.FaultStatusInProgress
		m.faults[faultID] = fault
	}
	return m.assignResult, nil
}

func (m *mockFaultRepo) Stats(_ context.Context) (*domain.FaultStats, error) {
	return &domain.FaultStats{}, nil
}

type mockCommentRepo struct {
	comments map[string]domain.Comment
	nextID   int
}

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{comments: make(map[string]domain.Comment)}
}

func (m *mockCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	m.nextID++
	comment.ID = "comment-" + string(rune('0'+m.nextID))
	m.comments[comment.ID] = *comment
	return nil
}

func (m *mockCommentRepo) GetDetail(_ context.Context, id string) (*domain.CommentDetail, error) {
	comment, ok := m.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.CommentDetail{Comment: comment, AuthorName: "Author", AuthorRole: domain.RoleStudent}, nil
}

func (m *mockCommentRepo) ListByFault(_ context.Context, faultID string) ([]domain.CommentDetail, error) {
	var result []domain.CommentDetail
	for _, comment := range m.comments {
		if comment.FaultID == faultID {
			result = append(result, domain.CommentDetail{Comment: comment})
		}
	}
	return result, nil
}

type stubClassifier struct {
	result classifier.Classification
	err    error
	calls  int
}

func (s *stubClassifier) Classify(context.Context, string) (classifier.Classification, error) {
	s.calls++
	return s.result, s.err
}

type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) events() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.published...)
}

func newFaultService(faults *mockFaultRepo, comments *mockCommentRepo, cls classifier.Client, dispatcher events.Dispatcher) *FaultService {
	return NewFaultService(FaultDependencies{
		FaultRepo:   faults,
		CommentRepo: comments,
		Classifier:  cls,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
	})
}

func validInput() FaultCreateInput {
	return FaultCreateInput{
		HostelName:  "North Block",
		Floor:       "2",
		Location:    "Room 214",
		Description: "Tap keeps dripping",
	}
}

func TestFaultServiceCreateUsesClassification(t *testing.T) {
	repo := newMockFaultRepo()
	dispatcher := &recordingDispatcher{}
	cls := &stubClassifier{result: classifier.Classification{Priority: domain.FaultPriorityHigh, Category: "Plumbing"}}
	svc := newFaultService(repo, newMockCommentRepo(), cls, dispatcher)

	fault, err := svc.Create(context.Background(), "student-1", validInput())
	require.NoError(t, err)

	assert.Equal(t, domain.FaultStatusSubmitted, fault.Status)
	assert.Nil(t, fault.AssignedToID)
	assert.Equal(t, domain.FaultPriorityHigh, fault.Priority)
	assert.Equal(t, "Plumbing", fault.Category)
	assert.Equal(t, 1, cls.calls)

	published := dispatcher.events()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventFaultCreated, published[0].Type)
	assert.Equal(t, fault.ID, published[0].FaultID)
	assert.NotEmpty(t, published[0].ID)
}

func TestFaultServiceCreateClassifierFailureFallsBack(t *testing.T) {
	repo := newMockFaultRepo()
	dispatcher := &recordingDispatcher{}
	cls := &stubClassifier{err: errors.New("connection refused")}
	svc := newFaultService(repo, newMockCommentRepo(), cls, dispatcher)

	fault, err := svc.Create(context.Background(), "student-1", validInput())
	require.NoError(t, err)

	assert.Equal(t, domain.FaultPriorityLow, fault.Priority)
	assert.Equal(t, domain.CategoryGeneral, fault.Category)
	assert.Len(t, dispatcher.events(), 1)
}

func TestFaultServiceCreateRejectsBlankFields(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	svc := newFaultService(newMockFaultRepo(), newMockCommentRepo(), &stubClassifier{}, dispatcher)

	input := validInput()
	input.Description = "   "
	_, err := svc.Create(context.Background(), "student-1", input)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Empty(t, dispatcher.events())
}

func TestFaultServiceAssignPublishesEvent(t *testing.T) {
	repo := newMockFaultRepo()
	dispatcher := &recordingDispatcher{}
	svc := newFaultService(repo, newMockCommentRepo(), &stubClassifier{result: classifier.Classification{Priority: domain.FaultPriorityLow, Category: "Plumbing"}}, dispatcher)

	fault, err := svc.Create(context.Background(), "student-1", validInput())
	require.NoError(t, err)

	repo.assignResult = "employee-1"
	detail, err := svc.Assign(context.Background(), fault.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.FaultStatusInProgress, detail.Status)
	require.NotNil(t, detail.AssignedToID)
	assert.Equal(t, "employee-1", *detail.AssignedToID)

	published := dispatcher.events()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventFaultAssigned, published[1].Type)
	payload, ok := published[1].Payload.(events.FaultAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, "employee-1", payload.AssigneeID)
}

func TestFaultServiceAssignAlreadyAssigned(t *testing.T) {
	repo := newMockFaultRepo()
	repo.assignErr = repository.ErrFaultNotAssignable
	dispatcher := &recordingDispatcher{}
	svc := newFaultService(repo, newMockCommentRepo(), &stubClassifier{}, dispatcher)

	_, err := svc.Assign(context.Background(), "fault-1")

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_ASSIGNED_OR_MISSING", domainErr.Code)
	assert.Empty(t, dispatcher.events())
}

func TestFaultServiceAssignNoEligibleEmployee(t *testing.T) {
	repo := newMockFaultRepo()
	repo.assignErr = &repository.NoEligibleEmployeeError{Category: "Plumbing"}
	dispatcher := &recordingDispatcher{}
	svc := newFaultService(repo, newMockCommentRepo(), &stubClassifier{}, dispatcher)

	_, err := svc.Assign(context.Background(), "fault-1")

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NO_ELIGIBLE_EMPLOYEE", domainErr.Code)
	assert.Equal(t, "Plumbing", domainErr.Details["category"])
	assert.Empty(t, dispatcher.events())
}

func TestFaultServiceUpdateStatusRejectsUnknownValue(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	svc := newFaultService(newMockFaultRepo(), newMockCommentRepo(), &stubClassifier{}, dispatcher)

	_, err := svc.UpdateStatus(context.Background(), "fault-1", domain.FaultStatus("Done"))

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATUS", domainErr.Code)
	assert.Empty(t, dispatcher.events())
}

func TestFaultServiceUpdateStatusPublishesTransition(t *testing.T) {
	repo := newMockFaultRepo()
	dispatcher := &recordingDispatcher{}
	svc := newFaultService(repo, newMockCommentRepo(), &stubClassifier{err: errors.New("down")}, dispatcher)

	fault, err := svc.Create(context.Background(), "student-1", validInput())
	require.NoError(t, err)

	detail, err := svc.UpdateStatus(context.Background(), fault.ID, domain.FaultStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.FaultStatusResolved, detail.Status)

	published := dispatcher.events()
	require.Len(t, published, 2)
	payload, ok := published[1].Payload.(events.FaultStatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.FaultStatusSubmitted, payload.OldStatus)
	assert.Equal(t, domain.FaultStatusResolved, payload.NewStatus)
}

func TestFaultServiceUpdateStatusUnknownFault(t *testing.T) {
	svc := newFaultService(newMockFaultRepo(), newMockCommentRepo(), &stubClassifier{}, &recordingDispatcher{})

	_, err := svc.UpdateStatus(context.Background(), "missing", domain.FaultStatusResolved)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestFaultServiceAddComment(t *testing.T) {
	repo := newMockFaultRepo()
	comments := newMockCommentRepo()
	dispatcher := &recordingDispatcher{}
	svc := newFaultService(repo, comments, &stubClassifier{err: errors.New("down")}, dispatcher)

	fault, err := svc.Create(context.Background(), "student-1", validInput())
	require.NoError(t, err)

	comment, err := svc.AddComment(context.Background(), fault.ID, "student-1", "any update on this?")
	require.NoError(t, err)
	assert.Equal(t, fault.ID, comment.FaultID)

	published := dispatcher.events()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventCommentAdded, published[1].Type)
}

func TestFaultServiceAddCommentUnknownFault(t *testing.T) {
	svc := newFaultService(newMockFaultRepo(), newMockCommentRepo(), &stubClassifier{}, &recordingDispatcher{})

	_, err := svc.AddComment(context.Background(), "missing", "student-1", "hello")

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestFaultServiceAddCommentRejectsBlankBody(t *testing.T) {
	svc := newFaultService(newMockFaultRepo(), newMockCommentRepo(), &stubClassifier{}, &recordingDispatcher{})

	_, err := svc.AddComment(context.Background(), "fault-1", "student-1", "   ")

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

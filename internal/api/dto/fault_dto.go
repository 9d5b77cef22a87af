package dto

import (
	"time"

	"github.com/spec-kit/fault-service/internal/domain"
)

// CreateFaultRequest is the multipart form payload for a new report. The
// optional image arrives as a separate file part.
type CreateFaultRequest struct {
	HostelName  string `form:"hostel_name" json:"hostel_name" validate:"required"`
	Floor       string `form:"floor" json:"floor" validate:"required"`
	Location    string `form:"location" json:"location" validate:"required"`
	Description string `form:"description" json:"description" validate:"required"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Comment string `json:"comment" validate:"required"`
}

// FaultResponse is the unjoined fault record.
type FaultResponse struct {
	ID           string  `json:"id"`
	ReporterID   *string `json:"reporter_id"`
	AssignedToID *string `json:"assigned_to_id"`
	HostelName   string  `json:"hostel_name"`
	Floor        string  `json:"floor"`
	Location     string  `json:"location"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Priority     string  `json:"priority"`
	Status       string  `json:"status"`
	ImageURL     *string `json:"image_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FaultDetailResponse is the fault joined with display names; this is also
// the payload carried by realtime fault events.
type FaultDetailResponse struct {
	FaultResponse
	ReporterName         *string `json:"reporter_name"`
	ReporterRoom         *string `json:"reporter_room"`
	AssignedEmployeeName *string `json:"assigned_employee_name"`
}

// CommentResponse is a comment joined with its author.
type CommentResponse struct {
	ID         string    `json:"id"`
	FaultID    string    `json:"fault_id"`
	Comment    string    `json:"comment"`
	AuthorName string    `json:"author_name"`
	AuthorRole string    `json:"author_role"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCommentEvent is the realtime payload for a freshly added comment.
type NewCommentEvent struct {
	FaultID string          `json:"fault_id"`
	Comment CommentResponse `json:"comment"`
}

// StatsResponse bundles grouped fault counts.
type StatsResponse struct {
	StatusCounts   []LabelCount `json:"status_counts"`
	PriorityCounts []LabelCount `json:"priority_counts"`
	CategoryCounts []LabelCount `json:"category_counts"`
}

// LabelCount is one grouped count row.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FaultResponseFrom maps a domain fault.
func FaultResponseFrom(fault *domain.Fault) FaultResponse {
	return FaultResponse{
		ID:           fault.ID,
		ReporterID:   fault.ReporterID,
		AssignedToID: fault.AssignedToID,
		HostelName:   fault.HostelName,
		Floor:        fault.Floor,
		Location:     fault.Location,
		Description:  fault.Description,
		Category:     fault.Category,
		Priority:     string(fault.Priority),
		Status:       string(fault.Status),
		ImageURL:     fault.ImageURL,
		CreatedAt:    fault.CreatedAt,
		UpdatedAt:    fault.UpdatedAt,
	}
}

// FaultDetailResponseFrom maps a joined fault record.
func FaultDetailResponseFrom(detail *domain.FaultDetail) FaultDetailResponse {
	return FaultDetailResponse{
		FaultResponse:        FaultResponseFrom(&detail.Fault),
		ReporterName:         detail.ReporterName,
		ReporterRoom:         detail.ReporterRoom,
		AssignedEmployeeName: detail.AssignedEmployeeName,
	}
}

// CommentResponseFrom maps a joined comment record.
func CommentResponseFrom(comment *domain.CommentDetail) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		FaultID:    comment.FaultID,
		Comment:    comment.Body,
		AuthorName: comment.AuthorName,
		AuthorRole: string(comment.AuthorRole),
		CreatedAt:  comment.CreatedAt,
	}
}

// StatsResponseFrom maps grouped counts.
func StatsResponseFrom(stats *domain.FaultStats) StatsResponse {
	resp := StatsResponse{
		StatusCounts:   make([]LabelCount, 0, len(stats.StatusCounts)),
		PriorityCounts: make([]LabelCount, 0, len(stats.PriorityCounts)),
		CategoryCounts: make([]LabelCount, 0, len(stats.CategoryCounts)),
	}
	for _, item := range stats.StatusCounts {
		resp.StatusCounts = append(resp.StatusCounts, LabelCount{Label: string(item.Status), Count: item.Count})
	}
	for _, item := range stats.PriorityCounts {
		resp.PriorityCounts = append(resp.PriorityCounts, LabelCount{Label: string(item.Priority), Count: item.Count})
	}
	for _, item := range stats.CategoryCounts {
		resp.CategoryCounts = append(resp.CategoryCounts, LabelCount{Label: item.Category, Count: item.Count})
	}
	return resp
}

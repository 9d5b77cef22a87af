package domain

import "time"

// FaultStatus enumerates lifecycle states for fault reports.
type FaultStatus string

const (
	FaultStatusSubmitted  FaultStatus = "Submitted"
	FaultStatusInProgress FaultStatus = "In Progress"
	FaultStatusResolved   FaultStatus = "Resolved"
	FaultStatusRejected   FaultStatus = "Rejected"
)

// ValidFaultStatus reports whether the value is one of the four defined states.
func ValidFaultStatus(s FaultStatus) bool {
	switch s {
	case FaultStatusSubmitted, FaultStatusInProgress, FaultStatusResolved, FaultStatusRejected:
		return true
	}
	return false
}

// FaultPriority enumerates urgency levels produced by the classifier.
type FaultPriority string

const (
	FaultPriorityLow    FaultPriority = "Low"
	FaultPriorityMedium FaultPriority = "Medium"
	FaultPriorityHigh   FaultPriority = "High"
)

// CategoryGeneral is the fallback category applied when classification fails.
const CategoryGeneral = "General"

// Fault is the aggregate for a reported maintenance issue.
type Fault struct {
	ID           string
	ReporterID   *string
	AssignedToID *string
	HostelName   string
	Floor        string
	Location     string
	Description  string
	Category     string
	Priority     FaultPriority
	Status       FaultStatus
	ImageURL     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FaultDetail is a fault joined with the display names realtime and read
// endpoints carry alongside the raw record.
type FaultDetail struct {
	Fault
	ReporterName         *string
	ReporterRoom         *string
	AssignedEmployeeName *string
}

// StatusCount is a grouped fault count keyed by status.
type StatusCount struct {
	Status FaultStatus
	Count  int
}

// PriorityCount is a grouped fault count keyed by priority.
type PriorityCount struct {
	Priority FaultPriority
	Count    int
}

// CategoryCount is a grouped fault count keyed by category.
type CategoryCount struct {
	Category string
	Count    int
}

// FaultStats bundles the grouped counts served to the admin dashboard.
type FaultStats struct {
	StatusCounts   []StatusCount
	PriorityCounts []PriorityCount
	CategoryCounts []CategoryCount
}

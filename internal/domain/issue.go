package domain

import "time"

// IssueCategory enumerates maintenance categories a resident can report.
type IssueCategory string

const (
	CategoryPlumbing   IssueCategory = "plumbing"
	CategoryElectrical IssueCategory = "electrical"
	CategoryCarpentry  IssueCategory = "carpentry"
	CategoryPainting   IssueCategory = "painting"
	CategoryCleaning   IssueCategory = "cleaning"
	CategorySecurity   IssueCategory = "security"
	CategoryElevator   IssueCategory = "elevator"
	CategoryParking    IssueCategory = "parking"
	CategoryGarden     IssueCategory = "garden"
	CategoryOther      IssueCategory = "other"
)

// IssueCategories lists every valid category.
var IssueCategories = []IssueCategory{
	CategoryPlumbing, CategoryElectrical, CategoryCarpentry, CategoryPainting,
	CategoryCleaning, CategorySecurity, CategoryElevator, CategoryParking,
	CategoryGarden, CategoryOther,
}

// ValidCategory reports whether the category is part of the enumeration.
func ValidCategory(c IssueCategory) bool {
	for _, candidate := range IssueCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// IssuePriority enumerates reporting urgency.
type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
	PriorityUrgent IssuePriority = "urgent"
)

// ValidPriority reports whether the priority is part of the enumeration.
func ValidPriority(p IssuePriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IssueStatus enumerates assignment lifecycle states.
type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusAssigned   IssueStatus = "assigned"
	StatusInProgress IssueStatus = "in-progress"
	StatusResolved   IssueStatus = "resolved"
	StatusClosed     IssueStatus = "closed"
	StatusCancelled  IssueStatus = "cancelled"
)

// TimelineEntry is an immutable, append-only audit record. Entries are never
// reordered or deleted; insertion order is significant.
type TimelineEntry struct {
	ID        string
	IssueID   string
	Status    string
	Message   string
	ActorID   *string
	CreatedAt time.Time
}

// IssueLocation places the issue within the society.
type IssueLocation struct {
	FlatNumber string
	Building   string
	Area       string
}

// IssueCost carries estimated and recorded figures.
type IssueCost struct {
	Estimated *float64
	Actual    *float64
	Currency  string
}

// Issue is the aggregate for a reported maintenance problem. Status and
// AssignedTo are exclusively owned by the assignment state machine; Version
// backs the optimistic commit that keeps them consistent with the timeline.
type Issue struct {
	ID                  string
	ReportedBy          string
	AssignedTo          *string
	Title               string
	Description         string
	Category            IssueCategory
	Priority            IssuePriority
	Status              IssueStatus
	Location            IssueLocation
	Timeline            []TimelineEntry
	EstimatedCompletion *time.Time
	ActualCompletion    *time.Time
	Cost                IssueCost
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

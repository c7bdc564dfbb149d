package model

import "time"

type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectArchived   ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

// Project has at most one lead and a deduplicated set of contributors.
type Project struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	Status            ProjectStatus `json:"status"`
	TechStack         []string      `json:"tech_stack"`
	GithubRepo        string        `json:"github_repo"`
	DemoURL           string        `json:"demo_url"`
	Image             string        `json:"image"`
	LeadID            *int64        `json:"lead"`
	Lead              *UserSummary  `json:"lead_details"`
	ContributorIDs    []int64       `json:"contributors"`
	Contributors      []UserSummary `json:"contributors_details"`
	ContributorsCount int           `json:"contributors_count"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (p Project) HasContributor(userID int64) bool {
	for _, id := range p.ContributorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Involves reports whether the user leads or contributes to the project.
func (p Project) Involves(userID int64) bool {
	if p.LeadID != nil && *p.LeadID == userID {
		return true
	}
	return p.HasContributor(userID)
}

// ProjectFilter narrows project listings. Tech matches one tag of the
// tech stack exactly; MemberID keeps projects the user leads or contributes to.
type ProjectFilter struct {
	Status   ProjectStatus
	Tech     string
	MemberID int64
}

// UniqueIDs drops duplicates while keeping input order.
func UniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Package projects manages club projects and their contributor sets.
package projects

import (
	"context"
	"strings"
	"time"

	"clubhub/internal/apperr"
	"clubhub/internal/model"
	"clubhub/internal/policy"
)

type Repository interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id int64) (model.Project, error)
	UpdateProject(ctx context.Context, p model.Project) error
	DeleteProject(ctx context.Context, id int64) error
	ListProjects(ctx context.Context, f model.ProjectFilter) ([]model.Project, error)
	AddContributor(ctx context.Context, projectID, userID int64, at time.Time) (bool, error)
	RemoveContributor(ctx context.Context, projectID, userID int64, at time.Time) (bool, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, now func() time.Time) *Service {
	return &Service{repo: repo, now: now}
}

// Input is the create/update payload. For partial updates, absent keys keep
// their stored values; Lead accepts null to clear the lead.
type Input struct {
	Name         *string               `json:"name" binding:"omitempty,notblank,max=200"`
	Description  *string               `json:"description"`
	Status       *model.ProjectStatus  `json:"status" binding:"omitempty,oneof=planning in_progress completed archived"`
	TechStack    []string              `json:"tech_stack"`
	GithubRepo   *string               `json:"github_repo" binding:"omitempty,url"`
	DemoURL      *string               `json:"demo_url" binding:"omitempty,url"`
	Image        *string               `json:"image" binding:"omitempty,url"`
	Lead         model.Optional[int64] `json:"lead"`
	Contributors *[]int64              `json:"contributors"`
}

func (in Input) apply(p *model.Project) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.TechStack != nil {
		p.TechStack = model.CleanTags(in.TechStack)
	}
	if in.GithubRepo != nil {
		p.GithubRepo = *in.GithubRepo
	}
	if in.DemoURL != nil {
		p.DemoURL = *in.DemoURL
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Lead.Set {
		p.LeadID = in.Lead.Value
	}
	if in.Contributors != nil {
		p.ContributorIDs = model.UniqueIDs(*in.Contributors)
	}
}

func (s *Service) List(ctx context.Context, actor policy.Actor, f model.ProjectFilter) ([]model.Project, error) {
	if err := policy.Authorize(actor, policy.ProjectRead, policy.Resource{}); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Field("status", "invalid project status")
	}
	return s.repo.ListProjects(ctx, f)
}

func (s *Service) Get(ctx context.Context, actor policy.Actor, id int64) (model.Project, error) {
	if err := policy.Authorize(actor, policy.ProjectRead, policy.Resource{}); err != nil {
		return model.Project{}, err
	}
	return s.repo.GetProject(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor policy.Actor, in Input) (model.Project, error) {
	if err := policy.Authorize(actor, policy.ProjectWrite, policy.Resource{}); err != nil {
		return model.Project{}, err
	}
	if in.Name == nil {
		return model.Project{}, apperr.Field("name", "this field is required")
	}
	now := s.now()
	p := model.Project{Status: model.ProjectPlanning, CreatedAt: now, UpdatedAt: now}
	in.apply(&p)
	if err := s.repo.CreateProject(ctx, &p); err != nil {
		return model.Project{}, err
	}
	return s.repo.GetProject(ctx, p.ID)
}

// Update applies in to the project. A full update requires the same fields
// as create.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id int64, in Input, partial bool) (model.Project, error) {
	if err := policy.Authorize(actor, policy.ProjectWrite, policy.Resource{}); err != nil {
		return model.Project{}, err
	}
	if !partial && in.Name == nil {
		return model.Project{}, apperr.Field("name", "this field is required")
	}
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, err
	}
	in.apply(&p)
	p.UpdatedAt = s.now()
	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return model.Project{}, err
	}
	return s.repo.GetProject(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if err := policy.Authorize(actor, policy.ProjectWrite, policy.Resource{}); err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, id)
}

// Join adds the actor as a contributor.
func (s *Service) Join(ctx context.Context, actor policy.Actor, id int64) error {
	if err := policy.Authorize(actor, policy.ProjectJoin, policy.Resource{}); err != nil {
		return err
	}
	added, err := s.repo.AddContributor(ctx, id, actor.UserID, s.now())
	if err != nil {
		return err
	}
	if !added {
		return apperr.Conflict("you are already a contributor")
	}
	return nil
}

func (s *Service) Leave(ctx context.Context, actor policy.Actor, id int64) error {
	if err := policy.Authorize(actor, policy.ProjectJoin, policy.Resource{}); err != nil {
		return err
	}
	removed, err := s.repo.RemoveContributor(ctx, id, actor.UserID, s.now())
	if err != nil {
		return err
	}
	if !removed {
		return apperr.Conflict("you are not a contributor")
	}
	return nil
}

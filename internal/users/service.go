// Package users implements the user directory: accounts, profiles and the
// per-user views of projects, tasks and attendance.
package users

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"clubhub/internal/apperr"
	"clubhub/internal/model"
	"clubhub/internal/policy"
)

// Repository is the persistence the directory needs.
type Repository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByLogin(ctx context.Context, login string) (model.User, error)
	UpdateUser(ctx context.Context, u model.User) error
	SetLastLogin(ctx context.Context, id int64, at time.Time) error
	SetPassword(ctx context.Context, id int64, hash []byte, at time.Time) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error)
	ListProjects(ctx context.Context, f model.ProjectFilter) ([]model.Project, error)
	ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error)
	ListAttendance(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error)
}

var errBadCredentials = apperr.Unauthenticated("invalid credentials")

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, now func() time.Time) *Service {
	return &Service{repo: repo, now: now}
}

// Registration is the sign-up payload.
type Registration struct {
	Username        string   `json:"username" binding:"required,max=150,alphanum_"`
	Email           string   `json:"email" binding:"required,email,max=254"`
	Password        string   `json:"password" binding:"required,pwdpolicy"`
	PasswordConfirm string   `json:"password2" binding:"required,eqfield=Password"`
	FirstName       string   `json:"first_name" binding:"max=150"`
	LastName        string   `json:"last_name" binding:"max=150"`
	StudentID       string   `json:"student_id" binding:"max=20"`
	BatchYear       *int     `json:"batch_year" binding:"omitempty,min=1900,max=2100"`
	TechSkills      []string `json:"tech_skills"`
	SkillLevel      string   `json:"skill_level" binding:"omitempty,oneof=beginner intermediate advanced"`
}

// Register creates an active member account.
func (s *Service) Register(ctx context.Context, in Registration) (model.User, error) {
	now := s.now()
	u := model.User{
		Username:   strings.TrimSpace(in.Username),
		Email:      strings.TrimSpace(in.Email),
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		StudentID:  in.StudentID,
		BatchYear:  in.BatchYear,
		TechSkills: model.CleanTags(in.TechSkills),
		SkillLevel: in.SkillLevel,
		IsMember:   true,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if u.SkillLevel == "" {
		u.SkillLevel = model.SkillBeginner
	}
	if err := u.SetPassword(in.Password); err != nil {
		return model.User{}, errors.Wrap(err, "hash password")
	}
	if err := s.repo.CreateUser(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Authenticate checks credentials by username or email and records the login.
func (s *Service) Authenticate(ctx context.Context, login, password string) (model.User, error) {
	if login == "" || password == "" {
		return model.User{}, apperr.Validation("username and password are required")
	}
	u, err := s.repo.GetUserByLogin(ctx, login)
	if apperr.Is(err, apperr.KindNotFound) {
		return model.User{}, errBadCredentials
	}
	if err != nil {
		return model.User{}, err
	}
	if u.CheckPassword(password) != nil || !u.IsActive {
		return model.User{}, errBadCredentials
	}
	now := s.now()
	if err := s.repo.SetLastLogin(ctx, u.ID, now); err != nil {
		return model.User{}, err
	}
	u.LastLogin = &now
	return u, nil
}

func (s *Service) Profile(ctx context.Context, id int64) (model.User, error) {
	return s.repo.GetUser(ctx, id)
}

// ProfileInput holds the self-editable fields. Absent keys stay unchanged.
type ProfileInput struct {
	Email          *string  `json:"email" binding:"omitempty,email,max=254"`
	FirstName      *string  `json:"first_name" binding:"omitempty,max=150"`
	LastName       *string  `json:"last_name" binding:"omitempty,max=150"`
	StudentID      *string  `json:"student_id" binding:"omitempty,max=20"`
	BatchYear      *int     `json:"batch_year" binding:"omitempty,min=1900,max=2100"`
	Bio            *string  `json:"bio" binding:"omitempty,max=500"`
	Avatar         *string  `json:"avatar" binding:"omitempty,url"`
	GithubUsername *string  `json:"github_username" binding:"omitempty,max=100"`
	LinkedinURL    *string  `json:"linkedin_url" binding:"omitempty,url"`
	PortfolioURL   *string  `json:"portfolio_url" binding:"omitempty,url"`
	TechSkills     []string `json:"tech_skills"`
	SkillLevel     *string  `json:"skill_level" binding:"omitempty,oneof=beginner intermediate advanced"`
}

func (in ProfileInput) update() model.ProfileUpdate {
	return model.ProfileUpdate{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		StudentID:      in.StudentID,
		BatchYear:      in.BatchYear,
		Bio:            in.Bio,
		Avatar:         in.Avatar,
		GithubUsername: in.GithubUsername,
		LinkedinURL:    in.LinkedinURL,
		PortfolioURL:   in.PortfolioURL,
		TechSkills:     in.TechSkills,
		SkillLevel:     in.SkillLevel,
	}
}

// UpdateProfile applies a partial update of the caller's own profile. Points
// and role flags are not part of the input and can never change here.
func (s *Service) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (model.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	in.update().Apply(&u)
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	u.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return model.User{}, err
	}
	return s.repo.GetUser(ctx, id)
}

// SetAvatar stores an uploaded avatar URL on the user's profile.
func (s *Service) SetAvatar(ctx context.Context, id int64, url string) (model.User, error) {
	return s.UpdateProfile(ctx, id, ProfileInput{Avatar: &url})
}

type PasswordChange struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,pwdpolicy"`
}

func (s *Service) ChangePassword(ctx context.Context, id int64, in PasswordChange) error {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u.CheckPassword(in.OldPassword) != nil {
		return apperr.Field("old_password", "wrong password")
	}
	if err := u.SetPassword(in.NewPassword); err != nil {
		return errors.Wrap(err, "hash password")
	}
	return s.repo.SetPassword(ctx, id, u.PasswordHash, s.now())
}

// List returns active users matching f. Non-admins only see members.
func (s *Service) List(ctx context.Context, actor policy.Actor, f model.UserFilter) ([]model.User, error) {
	if !policy.Allowed(actor, policy.UserDirectory, policy.Resource{}) {
		f.MembersOnly = true
	}
	return s.repo.ListUsers(ctx, f)
}

// Get returns a user visible to the actor; hidden users are reported as not found.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id int64) (model.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if !u.IsActive && !actor.Admin {
		return model.User{}, apperr.NotFound("user not found")
	}
	if !u.IsMember && !policy.Allowed(actor, policy.UserDirectory, policy.Resource{}) && actor.UserID != u.ID {
		return model.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

// AdminUserInput is what an admin may change on any account.
type AdminUserInput struct {
	ProfileInput
	IsMember    *bool `json:"is_member"`
	IsClubAdmin *bool `json:"is_club_admin"`
	IsActive    *bool `json:"is_active"`
}

func (s *Service) AdminUpdate(ctx context.Context, actor policy.Actor, id int64, in AdminUserInput) (model.User, error) {
	if err := policy.Authorize(actor, policy.UserWrite, policy.Resource{}); err != nil {
		return model.User{}, err
	}
	revoking := (in.IsActive != nil && !*in.IsActive) || (in.IsClubAdmin != nil && !*in.IsClubAdmin)
	if actor.UserID == id && revoking {
		return model.User{}, apperr.Validation("you cannot revoke your own access")
	}
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	in.update().Apply(&u)
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	model.RoleUpdate{IsMember: in.IsMember, IsClubAdmin: in.IsClubAdmin, IsActive: in.IsActive}.Apply(&u)
	u.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return model.User{}, err
	}
	return s.repo.GetUser(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if err := policy.Authorize(actor, policy.UserWrite, policy.Resource{}); err != nil {
		return err
	}
	if actor.UserID == id {
		return apperr.Validation("you cannot delete your own account")
	}
	return s.repo.DeleteUser(ctx, id)
}

// Projects lists projects the user leads or contributes to.
func (s *Service) Projects(ctx context.Context, actor policy.Actor, id int64) ([]model.Project, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.ListProjects(ctx, model.ProjectFilter{MemberID: id})
}

func (s *Service) Tasks(ctx context.Context, actor policy.Actor, id int64) ([]model.Task, error) {
	if err := policy.Authorize(actor, policy.UserTasks, policy.Owned(id)); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, id); err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListTasks(ctx, model.TaskFilter{AssignedTo: id})
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range tasks {
		tasks[i] = tasks[i].Decorate(now)
	}
	return tasks, nil
}

func (s *Service) Attendance(ctx context.Context, actor policy.Actor, id int64) ([]model.Attendance, error) {
	if err := policy.Authorize(actor, policy.UserAttend, policy.Owned(id)); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListAttendance(ctx, model.AttendanceFilter{UserID: id})
}

// CreateAdmin creates a staff club-admin account, or promotes the existing
// account with that username.
func (s *Service) CreateAdmin(ctx context.Context, username, email, password string) (model.User, bool, error) {
	now := s.now()
	u, err := s.repo.GetUserByLogin(ctx, username)
	if err == nil && u.Username == username {
		u.IsStaff, u.IsClubAdmin, u.IsMember, u.IsActive = true, true, true, true
		u.UpdatedAt = now
		if err := s.repo.UpdateUser(ctx, u); err != nil {
			return model.User{}, false, err
		}
		if err := u.SetPassword(password); err != nil {
			return model.User{}, false, errors.Wrap(err, "hash password")
		}
		return u, false, s.repo.SetPassword(ctx, u.ID, u.PasswordHash, now)
	}
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return model.User{}, false, err
	}
	u = model.User{
		Username:    username,
		Email:       email,
		IsMember:    true,
		IsClubAdmin: true,
		IsStaff:     true,
		IsActive:    true,
		SkillLevel:  model.SkillBeginner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.SetPassword(password); err != nil {
		return model.User{}, false, errors.Wrap(err, "hash password")
	}
	if err := s.repo.CreateUser(ctx, &u); err != nil {
		return model.User{}, false, err
	}
	return u, true, nil
}

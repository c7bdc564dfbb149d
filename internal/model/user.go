package model

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Skill levels
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

// User is a club account with its profile and cumulative points.
type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	StudentID      string     `json:"student_id"`
	BatchYear      *int       `json:"batch_year"`
	Points         int        `json:"points"`
	IsMember       bool       `json:"is_member"`
	IsClubAdmin    bool       `json:"is_club_admin"`
	IsStaff        bool       `json:"is_staff"`
	IsActive       bool       `json:"is_active"`
	Avatar         string     `json:"avatar"`
	Bio            string     `json:"bio"`
	GithubUsername string     `json:"github_username"`
	LinkedinURL    string     `json:"linkedin_url"`
	PortfolioURL   string     `json:"portfolio_url"`
	TechSkills     []string   `json:"tech_skills"`
	SkillLevel     string     `json:"skill_level"`
	PasswordHash   []byte     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLogin      *time.Time `json:"last_login"`
}

func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	skills := u.TechSkills
	if skills == nil {
		skills = []string{}
	}
	p := plain(u)
	p.TechSkills = skills
	return json.Marshal(struct {
		plain
		FullName string `json:"full_name"`
		IsAdmin  bool   `json:"is_admin"`
	}{plain: p, FullName: u.FullName(), IsAdmin: u.IsAdmin()})
}

// FullName joins first and last name, falling back to nothing when both are empty.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user holds club-admin or staff rights.
func (u User) IsAdmin() bool {
	return u.IsClubAdmin || u.IsStaff
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Summary returns the nested representation used inside other resources.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName(),
		Avatar:   u.Avatar,
		Email:    u.Email,
	}
}

// UserSummary is the minimal user shape embedded in projects, tasks and attendance.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
	Email    string `json:"email"`
}

// ProfileUpdate holds the self-editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	StudentID      *string
	BatchYear      *int
	Bio            *string
	Avatar         *string
	GithubUsername *string
	LinkedinURL    *string
	PortfolioURL   *string
	TechSkills     []string
	SkillLevel     *string
}

// Apply copies the set fields onto u.
func (pu ProfileUpdate) Apply(u *User) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&u.FirstName, pu.FirstName)
	setStr(&u.LastName, pu.LastName)
	setStr(&u.StudentID, pu.StudentID)
	setStr(&u.Bio, pu.Bio)
	setStr(&u.Avatar, pu.Avatar)
	setStr(&u.GithubUsername, pu.GithubUsername)
	setStr(&u.LinkedinURL, pu.LinkedinURL)
	setStr(&u.PortfolioURL, pu.PortfolioURL)
	setStr(&u.SkillLevel, pu.SkillLevel)
	if pu.BatchYear != nil {
		by := *pu.BatchYear
		u.BatchYear = &by
	}
	if pu.TechSkills != nil {
		u.TechSkills = CleanTags(pu.TechSkills)
	}
}

// RoleUpdate holds the admin-only account flags. Nil means unchanged.
type RoleUpdate struct {
	IsMember    *bool
	IsClubAdmin *bool
	IsActive    *bool
}

func (ru RoleUpdate) Apply(u *User) {
	if ru.IsMember != nil {
		u.IsMember = *ru.IsMember
	}
	if ru.IsClubAdmin != nil {
		u.IsClubAdmin = *ru.IsClubAdmin
	}
	if ru.IsActive != nil {
		u.IsActive = *ru.IsActive
	}
}

// UserFilter narrows user listings. Search is a case-insensitive match on
// username, first name, last name or email.
type UserFilter struct {
	MembersOnly bool
	BatchYear   *int
	SkillLevel  string
	Search      string
}

// CleanTags trims tags, drops blanks and duplicates, and keeps input order.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

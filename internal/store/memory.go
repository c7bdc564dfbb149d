package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"clubhub/internal/model"
)

// Memory is a mutex-guarded in-process Store.
type Memory struct {
	mu         sync.RWMutex
	seq        map[string]int64
	users      map[int64]*model.User
	projects   map[int64]*model.Project
	events     map[int64]*model.Event
	attendance map[int64]*model.Attendance
	tasks      map[int64]*model.Task
}

func NewMemory() *Memory {
	return &Memory{
		seq:        make(map[string]int64),
		users:      make(map[int64]*model.User),
		projects:   make(map[int64]*model.Project),
		events:     make(map[int64]*model.Event),
		attendance: make(map[int64]*model.Attendance),
		tasks:      make(map[int64]*model.Task),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) nextID(table string) int64 {
	m.seq[table]++
	return m.seq[table]
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

// users

func (m *Memory) checkUnique(u model.User) error {
	for _, other := range m.users {
		if other.ID == u.ID {
			continue
		}
		if other.Username == u.Username {
			return errUsernameTaken
		}
		if strings.EqualFold(other.Email, u.Email) {
			return errEmailTaken
		}
	}
	return nil
}

func (m *Memory) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUnique(*u); err != nil {
		return err
	}
	u.ID = m.nextID("users")
	cp := *u
	cp.TechSkills = append([]string(nil), u.TechSkills...)
	m.users[u.ID] = &cp
	return nil
}

func (m *Memory) GetUser(_ context.Context, id int64) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if u, ok := m.users[id]; ok {
		return *u, nil
	}
	return model.User{}, errUserNotFound
}

func (m *Memory) GetUserByLogin(_ context.Context, login string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			return *u, nil
		}
	}
	return model.User{}, errUserNotFound
}

func (m *Memory) UpdateUser(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.users[u.ID]
	if !ok {
		return errUserNotFound
	}
	if err := m.checkUnique(u); err != nil {
		return err
	}
	// points and credentials have dedicated write paths
	u.Points = cur.Points
	u.PasswordHash = cur.PasswordHash
	u.LastLogin = cur.LastLogin
	u.CreatedAt = cur.CreatedAt
	u.TechSkills = append([]string(nil), u.TechSkills...)
	*cur = u
	return nil
}

func (m *Memory) SetLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return errUserNotFound
	}
	u.LastLogin = &at
	return nil
}

func (m *Memory) SetPassword(_ context.Context, id int64, hash []byte, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return errUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	return nil
}

// DeleteUser removes the user with the same cascade rules as the SQL schema.
func (m *Memory) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return errUserNotFound
	}
	delete(m.users, id)
	for tid, t := range m.tasks {
		if t.AssignedTo == id {
			delete(m.tasks, tid)
		}
	}
	for aid, a := range m.attendance {
		if a.UserID == id {
			delete(m.attendance, aid)
			continue
		}
		if a.MarkedBy != nil && *a.MarkedBy == id {
			a.MarkedBy = nil
		}
	}
	for _, p := range m.projects {
		if p.LeadID != nil && *p.LeadID == id {
			p.LeadID = nil
		}
		p.ContributorIDs = removeID(p.ContributorIDs, id)
	}
	return nil
}

func (m *Memory) ListUsers(_ context.Context, f model.UserFilter) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	res := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		if !u.IsActive || (f.MembersOnly && !u.IsMember) {
			continue
		}
		if f.BatchYear != nil && (u.BatchYear == nil || *u.BatchYear != *f.BatchYear) {
			continue
		}
		if f.SkillLevel != "" && u.SkillLevel != f.SkillLevel {
			continue
		}
		if search != "" && !containsFold(search, u.Username, u.FirstName, u.LastName, u.Email) {
			continue
		}
		res = append(res, *u)
	}
	sort.Slice(res, func(i, j int) bool {
		return newer(res[i].CreatedAt, res[j].CreatedAt, res[i].ID, res[j].ID)
	})
	return res, nil
}

func (m *Memory) summary(id int64) *model.UserSummary {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	s := u.Summary()
	return &s
}

// projects

func (m *Memory) checkUsers(ids ...int64) error {
	for _, id := range ids {
		if _, ok := m.users[id]; !ok {
			return errUserNotFound
		}
	}
	return nil
}

func (m *Memory) projectRefs(p model.Project) error {
	if p.LeadID != nil {
		if err := m.checkUsers(*p.LeadID); err != nil {
			return err
		}
	}
	return m.checkUsers(p.ContributorIDs...)
}

func (m *Memory) CreateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ContributorIDs = model.UniqueIDs(p.ContributorIDs)
	if err := m.projectRefs(*p); err != nil {
		return err
	}
	p.ID = m.nextID("projects")
	cp := cloneProject(*p)
	m.projects[p.ID] = &cp
	return nil
}

func (m *Memory) GetProject(_ context.Context, id int64) (model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return model.Project{}, errProjectNotFound
	}
	return m.decorateProject(*p), nil
}

func (m *Memory) decorateProject(p model.Project) model.Project {
	p = cloneProject(p)
	p.Lead = nil
	if p.LeadID != nil {
		p.Lead = m.summary(*p.LeadID)
	}
	p.Contributors = make([]model.UserSummary, 0, len(p.ContributorIDs))
	for _, id := range p.ContributorIDs {
		if s := m.summary(id); s != nil {
			p.Contributors = append(p.Contributors, *s)
		}
	}
	p.ContributorsCount = len(p.ContributorIDs)
	return p
}

func (m *Memory) UpdateProject(_ context.Context, p model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.projects[p.ID]
	if !ok {
		return errProjectNotFound
	}
	p.ContributorIDs = model.UniqueIDs(p.ContributorIDs)
	if err := m.projectRefs(p); err != nil {
		return err
	}
	p.CreatedAt = cur.CreatedAt
	*cur = cloneProject(p)
	return nil
}

func (m *Memory) DeleteProject(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return errProjectNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *Memory) ListProjects(_ context.Context, f model.ProjectFilter) ([]model.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tech := strings.ToLower(f.Tech)
	res := make([]model.Project, 0, len(m.projects))
	for _, p := range m.projects {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if tech != "" && !containsFold(tech, p.TechStack...) {
			continue
		}
		if f.MemberID != 0 && !p.Involves(f.MemberID) {
			continue
		}
		res = append(res, m.decorateProject(*p))
	}
	sort.Slice(res, func(i, j int) bool {
		return newer(res[i].CreatedAt, res[j].CreatedAt, res[i].ID, res[j].ID)
	})
	return res, nil
}

func (m *Memory) AddContributor(_ context.Context, projectID, userID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	if !ok {
		return false, errProjectNotFound
	}
	if err := m.checkUsers(userID); err != nil {
		return false, err
	}
	if p.HasContributor(userID) {
		return false, nil
	}
	p.ContributorIDs = append(p.ContributorIDs, userID)
	p.UpdatedAt = at
	return true, nil
}

func (m *Memory) RemoveContributor(_ context.Context, projectID, userID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	if !ok {
		return false, errProjectNotFound
	}
	if !p.HasContributor(userID) {
		return false, nil
	}
	p.ContributorIDs = removeID(p.ContributorIDs, userID)
	p.UpdatedAt = at
	return true, nil
}

// events

func (m *Memory) CreateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.nextID("events")
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *Memory) GetEvent(_ context.Context, id int64) (model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return model.Event{}, errEventNotFound
	}
	return m.decorateEvent(*e), nil
}

func (m *Memory) decorateEvent(e model.Event) model.Event {
	e.AttendanceCount = 0
	for _, a := range m.attendance {
		if a.EventID == e.ID && a.Status == model.AttendancePresent {
			e.AttendanceCount++
		}
	}
	return e
}

func (m *Memory) UpdateEvent(_ context.Context, e model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.events[e.ID]
	if !ok {
		return errEventNotFound
	}
	e.CreatedAt = cur.CreatedAt
	*cur = e
	return nil
}

func (m *Memory) DeleteEvent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return errEventNotFound
	}
	delete(m.events, id)
	for aid, a := range m.attendance {
		if a.EventID == id {
			delete(m.attendance, aid)
		}
	}
	return nil
}

func (m *Memory) ListEvents(_ context.Context, f model.EventFilter) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		if f.Type != "" && e.EventType != f.Type {
			continue
		}
		switch f.Time {
		case model.TimeUpcoming:
			if e.EventDate.Before(f.Now) {
				continue
			}
		case model.TimePast:
			if !e.EventDate.Before(f.Now) {
				continue
			}
		}
		res = append(res, m.decorateEvent(*e))
	}
	sort.Slice(res, func(i, j int) bool {
		return newer(res[i].EventDate, res[j].EventDate, res[i].ID, res[j].ID)
	})
	return res, nil
}

// attendance

func (m *Memory) findAttendance(userID, eventID int64) *model.Attendance {
	for _, a := range m.attendance {
		if a.UserID == userID && a.EventID == eventID {
			return a
		}
	}
	return nil
}

func (m *Memory) attendanceRefs(a model.Attendance) error {
	if _, ok := m.events[a.EventID]; !ok {
		return errEventNotFound
	}
	return m.checkUsers(a.UserID)
}

func (m *Memory) CreateAttendance(_ context.Context, a *model.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.attendanceRefs(*a); err != nil {
		return err
	}
	if m.findAttendance(a.UserID, a.EventID) != nil {
		return errAlreadyMarked
	}
	a.ID = m.nextID("attendance")
	cp := *a
	m.attendance[a.ID] = &cp
	return nil
}

func (m *Memory) MarkAttendance(_ context.Context, a model.Attendance) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.attendanceRefs(a); err != nil {
		return false, err
	}
	if m.findAttendance(a.UserID, a.EventID) != nil {
		return false, nil
	}
	a.ID = m.nextID("attendance")
	m.attendance[a.ID] = &a
	return true, nil
}

func (m *Memory) filterAttendance(f model.AttendanceFilter) []model.Attendance {
	var res []model.Attendance
	for _, a := range m.attendance {
		if f.UserID != 0 && a.UserID != f.UserID {
			continue
		}
		if f.EventID != 0 && a.EventID != f.EventID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		res = append(res, *a)
	}
	return res
}

func (m *Memory) ListAttendance(_ context.Context, f model.AttendanceFilter) ([]model.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := m.filterAttendance(f)
	for i := range res {
		a := &res[i]
		a.User = m.summary(a.UserID)
		if e, ok := m.events[a.EventID]; ok {
			s := e.Summary()
			a.Event = &s
		}
		if a.MarkedBy != nil {
			a.Marker = m.summary(*a.MarkedBy)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return newer(res[i].MarkedAt, res[j].MarkedAt, res[i].ID, res[j].ID)
	})
	if res == nil {
		res = []model.Attendance{}
	}
	return res, nil
}

func (m *Memory) CountAttendance(_ context.Context, f model.AttendanceFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.filterAttendance(f)), nil
}

// tasks

func (m *Memory) CreateTask(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUsers(t.AssignedTo); err != nil {
		return err
	}
	t.ID = m.nextID("tasks")
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *Memory) GetTask(_ context.Context, id int64) (model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, errTaskNotFound
	}
	return m.decorateTask(*t), nil
}

func (m *Memory) decorateTask(t model.Task) model.Task {
	t.Assignee = m.summary(t.AssignedTo)
	return t
}

func (m *Memory) UpdateTask(_ context.Context, t model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.tasks[t.ID]
	if !ok {
		return errTaskNotFound
	}
	if err := m.checkUsers(t.AssignedTo); err != nil {
		return err
	}
	// the verified state is only reachable through VerifyTask
	if cur.Status == model.TaskVerified && t.Status != model.TaskVerified {
		return errTaskState(cur.Status)
	}
	if t.Status == model.TaskVerified && cur.Status != model.TaskVerified {
		return errTaskState(cur.Status)
	}
	t.CreatedAt = cur.CreatedAt
	t.Assignee = nil
	*cur = t
	return nil
}

func (m *Memory) DeleteTask(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return errTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *Memory) ListTasks(_ context.Context, f model.TaskFilter) ([]model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if f.Match(*t) {
			res = append(res, m.decorateTask(*t))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return newer(res[i].CreatedAt, res[j].CreatedAt, res[i].ID, res[j].ID)
	})
	return res, nil
}

func (m *Memory) TransitionTask(_ context.Context, id int64, from []model.TaskStatus, to model.TaskStatus, link *string, at time.Time) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, errTaskNotFound
	}
	if !statusIn(t.Status, from) {
		return model.Task{}, errTaskState(t.Status)
	}
	t.Status = to
	if link != nil {
		t.SubmissionLink = *link
	}
	t.UpdatedAt = at
	return m.decorateTask(*t), nil
}

// VerifyTask moves a submitted task to verified and credits the assignee in
// one critical section.
func (m *Memory) VerifyTask(_ context.Context, id int64, at time.Time) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, errTaskNotFound
	}
	if t.Status != model.TaskSubmitted {
		return model.Task{}, errTaskState(t.Status)
	}
	t.Status = model.TaskVerified
	t.UpdatedAt = at
	if u, ok := m.users[t.AssignedTo]; ok {
		u.Points += t.Points
	}
	return m.decorateTask(*t), nil
}

// leaderboard

func (m *Memory) Standings(_ context.Context, q model.ScoreQuery) ([]model.Standing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := make(map[int64]int)
	if !q.Since.IsZero() {
		for _, t := range m.tasks {
			if t.Status.Done() && !t.UpdatedAt.Before(q.Since) {
				scores[t.AssignedTo] += t.Points
			}
		}
		for _, a := range m.attendance {
			if a.Status == model.AttendancePresent && !a.MarkedAt.Before(q.Since) {
				scores[a.UserID] += q.AttendancePoints
			}
		}
	}

	var standings []model.Standing
	for _, u := range m.users {
		if !u.IsActive || !u.IsMember {
			continue
		}
		points := u.Points
		if !q.Since.IsZero() {
			points = scores[u.ID]
		}
		standings = append(standings, model.NewStanding(*u, points))
	}
	return model.RankStandings(standings, q.Limit), nil
}

func cloneProject(p model.Project) model.Project {
	p.TechStack = append([]string(nil), p.TechStack...)
	p.ContributorIDs = append([]int64(nil), p.ContributorIDs...)
	p.Contributors = nil
	p.Lead = nil
	if p.LeadID != nil {
		id := *p.LeadID
		p.LeadID = &id
	}
	return p
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// containsFold reports whether any of values contains the lowercased needle.
func containsFold(needle string, values ...string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// newer orders by time descending with id descending as tie-break.
func newer(a, b time.Time, aID, bID int64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

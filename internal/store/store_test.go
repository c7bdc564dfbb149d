package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/apperr"
	"clubhub/internal/model"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s Store, username string) model.User {
	t.Helper()
	u := model.User{Username: username, Email: username + "@club.test", PasswordHash: []byte("hash"), IsActive: true, IsMember: true, CreatedAt: t0}
	require.NoError(t, s.CreateUser(context.Background(), &u))
	return u
}

func checkUserUniqueness(t *testing.T, s Store) {
	seedUser(t, s, "ada")

	dup := model.User{Username: "ada", Email: "other@club.test", PasswordHash: []byte("hash")}
	err := s.CreateUser(context.Background(), &dup)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "username", e.Fields[0].Field)

	dup = model.User{Username: "grace", Email: "ADA@club.test", PasswordHash: []byte("hash")}
	err = s.CreateUser(context.Background(), &dup)
	e, _ = apperr.As(err)
	require.NotNil(t, e)
	assert.Equal(t, "email", e.Fields[0].Field)

	got, err := s.GetUserByLogin(context.Background(), "Ada@Club.test")
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Username)
}

func checkVerifyTaskOnce(t *testing.T, s Store) {
	ctx := context.Background()
	u := seedUser(t, s, "ada")
	task := model.Task{Title: "docs", AssignedTo: u.ID, Status: model.TaskSubmitted, Points: 20}
	require.NoError(t, s.CreateTask(ctx, &task))

	got, err := s.VerifyTask(ctx, task.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, model.TaskVerified, got.Status)

	_, err = s.VerifyTask(ctx, task.ID, t0)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	u, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, u.Points)

	_, err = s.VerifyTask(ctx, 999, t0)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func checkUpdateTaskGuardsVerified(t *testing.T, s Store) {
	ctx := context.Background()
	u := seedUser(t, s, "ada")
	task := model.Task{Title: "docs", AssignedTo: u.ID, Status: model.TaskPending}
	require.NoError(t, s.CreateTask(ctx, &task))

	task.Status = model.TaskVerified
	assert.True(t, apperr.Is(s.UpdateTask(ctx, task), apperr.KindConflict))

	_, err := s.TransitionTask(ctx, task.ID, []model.TaskStatus{model.TaskInProgress}, model.TaskSubmitted, nil, t0)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func checkMarkAttendance(t *testing.T, s Store) {
	ctx := context.Background()
	u := seedUser(t, s, "ada")
	ev := model.Event{Title: "meetup", EventType: model.EventMeetup, EventDate: t0}
	require.NoError(t, s.CreateEvent(ctx, &ev))

	a := model.Attendance{UserID: u.ID, EventID: ev.ID, Status: model.AttendancePresent, MarkedAt: t0}
	created, err := s.MarkAttendance(ctx, a)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.MarkAttendance(ctx, a)
	require.NoError(t, err)
	assert.False(t, created)

	assert.True(t, apperr.Is(s.CreateAttendance(ctx, &a), apperr.KindConflict))

	got, err := s.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttendanceCount)
}

func checkDeleteUserCascades(t *testing.T, s Store) {
	ctx := context.Background()
	admin := seedUser(t, s, "admin")
	u := seedUser(t, s, "ada")

	ev := model.Event{Title: "meetup", EventType: model.EventMeetup, EventDate: t0}
	require.NoError(t, s.CreateEvent(ctx, &ev))
	a := model.Attendance{UserID: admin.ID, EventID: ev.ID, MarkedBy: &u.ID, Status: model.AttendancePresent, MarkedAt: t0}
	require.NoError(t, s.CreateAttendance(ctx, &a))
	task := model.Task{Title: "x", AssignedTo: u.ID, Status: model.TaskPending}
	require.NoError(t, s.CreateTask(ctx, &task))
	p := model.Project{Name: "site", Status: model.ProjectPlanning, LeadID: &u.ID, ContributorIDs: []int64{u.ID, admin.ID}}
	require.NoError(t, s.CreateProject(ctx, &p))

	require.NoError(t, s.DeleteUser(ctx, u.ID))

	_, err := s.GetTask(ctx, task.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	list, err := s.ListAttendance(ctx, model.AttendanceFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].MarkedBy)
	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LeadID)
	assert.Equal(t, []int64{admin.ID}, got.ContributorIDs)
}

func checkStandingsWindow(t *testing.T, s Store) {
	ctx := context.Background()
	a := seedUser(t, s, "ada")
	b := seedUser(t, s, "bob")

	old := model.Task{Title: "old", AssignedTo: a.ID, Status: model.TaskSubmitted, Points: 100}
	require.NoError(t, s.CreateTask(ctx, &old))
	_, err := s.VerifyTask(ctx, old.ID, t0.Add(-40*24*time.Hour))
	require.NoError(t, err)

	ev := model.Event{Title: "meetup", EventType: model.EventMeetup, EventDate: t0}
	require.NoError(t, s.CreateEvent(ctx, &ev))
	_, err = s.MarkAttendance(ctx, model.Attendance{UserID: b.ID, EventID: ev.ID, Status: model.AttendancePresent, MarkedAt: t0.Add(-time.Hour)})
	require.NoError(t, err)

	all, err := s.Standings(ctx, model.ScoreQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].UserID)
	assert.Equal(t, 100, all[0].Points)

	weekly, err := s.Standings(ctx, model.ScoreQuery{Since: t0.Add(-7 * 24 * time.Hour), AttendancePoints: 5, Limit: 10})
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	assert.Equal(t, b.ID, weekly[0].UserID)
	assert.Equal(t, 5, weekly[0].Points)
	assert.Equal(t, 0, weekly[1].Points)
	assert.Equal(t, 2, weekly[1].Rank)
}

func checkProjectContributors(t *testing.T, s Store) {
	ctx := context.Background()
	u := seedUser(t, s, "ada")
	p := model.Project{Name: "site", Status: model.ProjectPlanning, TechStack: []string{"Go", "React"}}
	require.NoError(t, s.CreateProject(ctx, &p))

	added, err := s.AddContributor(ctx, p.ID, u.ID, t0)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.AddContributor(ctx, p.ID, u.ID, t0)
	require.NoError(t, err)
	assert.False(t, added)

	list, err := s.ListProjects(ctx, model.ProjectFilter{Tech: "go", MemberID: u.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].ContributorsCount)

	removed, err := s.RemoveContributor(ctx, p.ID, u.ID, t0)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.RemoveContributor(ctx, p.ID, u.ID, t0)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.AddContributor(ctx, p.ID, 999, t0)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func checkConcurrentVerify(t *testing.T, s Store) {
	ctx := context.Background()
	u := seedUser(t, s, "ada")
	task := model.Task{Title: "docs", AssignedTo: u.ID, Status: model.TaskSubmitted, Points: 15}
	require.NoError(t, s.CreateTask(ctx, &task))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.VerifyTask(ctx, task.ID, t0); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	u, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, u.Points)
}

func checkMarkAttendanceMissingRefs(t *testing.T, s Store) {
	ctx := context.Background()
	u := seedUser(t, s, "ada")
	ev := model.Event{Title: "meetup", EventType: model.EventMeetup, EventDate: t0}
	require.NoError(t, s.CreateEvent(ctx, &ev))

	_, err := s.MarkAttendance(ctx, model.Attendance{UserID: 999, EventID: ev.ID, Status: model.AttendancePresent, MarkedAt: t0})
	require.Error(t, err)
	assert.Equal(t, "user not found", err.Error())

	_, err = s.MarkAttendance(ctx, model.Attendance{UserID: u.ID, EventID: 999, Status: model.AttendancePresent, MarkedAt: t0})
	require.Error(t, err)
	assert.Equal(t, "event not found", err.Error())
}

// backendChecks run against every Store implementation. Each check gets an
// empty store.
var backendChecks = []struct {
	name string
	fn   func(t *testing.T, s Store)
}{
	{"user uniqueness", checkUserUniqueness},
	{"verify task once", checkVerifyTaskOnce},
	{"concurrent verify", checkConcurrentVerify},
	{"update task guards verified", checkUpdateTaskGuardsVerified},
	{"mark attendance", checkMarkAttendance},
	{"mark attendance missing refs", checkMarkAttendanceMissingRefs},
	{"delete user cascades", checkDeleteUserCascades},
	{"standings window", checkStandingsWindow},
	{"project contributors", checkProjectContributors},
}

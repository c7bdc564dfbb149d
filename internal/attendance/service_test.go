package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/apperr"
	"clubhub/internal/model"
	"clubhub/internal/policy"
	"clubhub/internal/store"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, st *store.Memory, usernames ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(usernames))
	for _, name := range usernames {
		u := model.User{Username: name, Email: name + "@club.test", IsMember: true, IsActive: true}
		require.NoError(t, st.CreateUser(context.Background(), &u))
		ids = append(ids, u.ID)
	}
	return ids
}

// deletingRepo removes the event after the first successful mark.
type deletingRepo struct {
	*store.Memory
	marks int
}

func (r *deletingRepo) MarkAttendance(ctx context.Context, a model.Attendance) (bool, error) {
	created, err := r.Memory.MarkAttendance(ctx, a)
	r.marks++
	if r.marks == 1 {
		if delErr := r.Memory.DeleteEvent(ctx, a.EventID); delErr != nil {
			return false, delErr
		}
	}
	return created, err
}

func TestBulkMarkSkipsUnknownUsers(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ids := seed(t, st, "admin", "ada", "grace")
	ev := model.Event{Title: "Kickoff", EventType: model.EventMeetup, EventDate: now}
	require.NoError(t, st.CreateEvent(ctx, &ev))

	svc := NewService(st, nil, func() time.Time { return now })
	admin := policy.Actor{UserID: ids[0], Admin: true}

	res, err := svc.BulkMark(ctx, admin, BulkInput{Event: ev.ID, Users: []int64{ids[1], 999, ids[2], ids[1]}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, []int64{999}, res.Skipped)
	assert.Equal(t, "Marked attendance for 2 users", res.Detail)
}

func TestBulkMarkEventRemovedMidway(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ids := seed(t, st, "admin", "ada", "grace", "linus")
	ev := model.Event{Title: "Kickoff", EventType: model.EventMeetup, EventDate: now}
	require.NoError(t, st.CreateEvent(ctx, &ev))

	svc := NewService(&deletingRepo{Memory: st}, nil, func() time.Time { return now })
	admin := policy.Actor{UserID: ids[0], Admin: true}

	res, err := svc.BulkMark(ctx, admin, BulkInput{Event: ev.ID, Users: ids[1:]})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "event not found", err.Error())
	assert.Empty(t, res.Skipped)
}

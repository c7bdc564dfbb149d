package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"clubhub/internal/apperr"
	"clubhub/internal/model"
)

func TestAuthorize(t *testing.T) {
	admin := Actor{UserID: 1, Admin: true}
	member := Actor{UserID: 2}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		res    Resource
		allow  bool
	}{
		{"member reads projects", member, ProjectRead, Resource{}, true},
		{"member writes project", member, ProjectWrite, Resource{}, false},
		{"admin writes project", admin, ProjectWrite, Resource{}, true},
		{"member marks attendance", member, AttendanceAdd, Resource{}, false},
		{"admin marks attendance", admin, AttendanceAdd, Resource{}, true},
		{"assignee submits", member, TaskSubmit, Owned(2), true},
		{"admin submits for someone else", admin, TaskSubmit, Owned(2), false},
		{"other member submits", member, TaskSubmit, Owned(3), false},
		{"member verifies", member, TaskVerify, Owned(2), false},
		{"admin verifies", admin, TaskVerify, Owned(2), true},
		{"member views own tasks", member, UserTasks, Owned(2), true},
		{"member views other tasks", member, UserTasks, Owned(3), false},
		{"admin views other attendance", admin, UserAttend, Owned(3), true},
		{"owner only without owner", member, TaskSubmit, Resource{}, false},
		{"unknown action", admin, Action("nope"), Resource{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.actor, tc.action, tc.res)
			if tc.allow {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.Is(err, apperr.KindForbidden))
		})
	}
}

func TestActorFor(t *testing.T) {
	assert.True(t, ActorFor(model.User{ID: 1, IsStaff: true}).Admin)
	assert.True(t, ActorFor(model.User{ID: 1, IsClubAdmin: true}).Admin)
	assert.False(t, ActorFor(model.User{ID: 1, IsMember: true}).Admin)
}

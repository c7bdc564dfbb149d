// Package policy holds the single authorization table for the API.
package policy

import (
	"clubhub/internal/apperr"
	"clubhub/internal/model"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID int64
	Admin  bool
}

func ActorFor(u model.User) Actor {
	return Actor{UserID: u.ID, Admin: u.IsAdmin()}
}

// Resource identifies what an action targets. OwnerID is zero when the
// resource has no owner.
type Resource struct {
	OwnerID int64
}

// Owned returns a resource owned by userID.
func Owned(userID int64) Resource { return Resource{OwnerID: userID} }

type Action string

const (
	ProjectRead   Action = "project:read"
	ProjectWrite  Action = "project:write"
	ProjectJoin   Action = "project:join"
	EventRead     Action = "event:read"
	EventWrite    Action = "event:write"
	AttendanceAdd Action = "attendance:create"
	AttendanceAll Action = "attendance:list_all"
	TaskWrite     Action = "task:write"
	TaskReadAll   Action = "task:list_all"
	TaskSubmit    Action = "task:submit"
	TaskVerify    Action = "task:verify"
	UserWrite     Action = "user:write"
	UserDirectory Action = "user:directory_all"
	UserTasks     Action = "user:tasks"
	UserAttend    Action = "user:attendance"
)

// Rule decides whether an actor may act on a resource.
type Rule func(a Actor, r Resource) bool

func AnyUser(Actor, Resource) bool       { return true }
func AdminOnly(a Actor, _ Resource) bool { return a.Admin }
func OwnerOnly(a Actor, r Resource) bool { return r.OwnerID != 0 && a.UserID == r.OwnerID }

func OwnerOrAdmin(a Actor, r Resource) bool {
	return a.Admin || OwnerOnly(a, r)
}

var rules = map[Action]Rule{
	ProjectRead:   AnyUser,
	ProjectWrite:  AdminOnly,
	ProjectJoin:   AnyUser,
	EventRead:     AnyUser,
	EventWrite:    AdminOnly,
	AttendanceAdd: AdminOnly,
	AttendanceAll: AdminOnly,
	TaskWrite:     AdminOnly,
	TaskReadAll:   AdminOnly,
	TaskSubmit:    OwnerOnly,
	TaskVerify:    AdminOnly,
	UserWrite:     AdminOnly,
	UserDirectory: AdminOnly,
	UserTasks:     OwnerOrAdmin,
	UserAttend:    OwnerOrAdmin,
}

var messages = map[Action]string{
	TaskSubmit: "you can only submit your own tasks",
	UserTasks:  "you can only view your own tasks",
	UserAttend: "you can only view your own attendance",
}

// Allowed reports whether the action is permitted without building an error.
func Allowed(a Actor, action Action, r Resource) bool {
	rule, ok := rules[action]
	if !ok {
		return false
	}
	return rule(a, r)
}

// Authorize returns a forbidden error unless the action is permitted.
// Unknown actions are denied.
func Authorize(a Actor, action Action, r Resource) error {
	if Allowed(a, action, r) {
		return nil
	}
	if msg, ok := messages[action]; ok {
		return apperr.Forbidden(msg)
	}
	return apperr.Forbidden("you do not have permission to perform this action")
}

package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clubhub/internal/auth"
	"clubhub/internal/model"
	"clubhub/internal/users"
)

func (h *Handler) listUsers(c *gin.Context) {
	f := model.UserFilter{
		SkillLevel: c.Query("skill_level"),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	by, set, ok := h.queryInt(c, "batch_year")
	if !ok {
		return
	}
	if set {
		year := int(by)
		f.BatchYear = &year
	}
	list, err := h.Users.List(c.Request.Context(), auth.CurrentActor(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	u, err := h.Users.Get(c.Request.Context(), auth.CurrentActor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) adminUpdateUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var in users.AdminUserInput
	if !h.bind(c, &in) {
		return
	}
	u, err := h.Users.AdminUpdate(c.Request.Context(), auth.CurrentActor(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Users.Delete(c.Request.Context(), auth.CurrentActor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) userProjects(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	list, err := h.Users.Projects(c.Request.Context(), auth.CurrentActor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) userTasks(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	list, err := h.Users.Tasks(c.Request.Context(), auth.CurrentActor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) userAttendance(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	list, err := h.Users.Attendance(c.Request.Context(), auth.CurrentActor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) leaderboard(c *gin.Context) {
	limit, _, ok := h.queryInt(c, "limit")
	if !ok {
		return
	}
	period := model.Period(c.Query("period"))
	list, err := h.Leaderboard.Standings(c.Request.Context(), h.Now(), period, int(limit))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) dashboard(c *gin.Context) {
	v, err := h.Dashboard.View(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

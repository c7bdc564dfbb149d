package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clubhub/internal/auth"
	"clubhub/internal/model"
	"clubhub/internal/projects"
)

func (h *Handler) listProjects(c *gin.Context) {
	actor := auth.CurrentActor(c)
	f := model.ProjectFilter{
		Status: model.ProjectStatus(c.Query("status")),
		Tech:   strings.TrimSpace(c.Query("tech")),
	}
	if queryBool(c, "my_projects") {
		f.MemberID = actor.UserID
	}
	list, err := h.Projects.List(c.Request.Context(), actor, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getProject(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	p, err := h.Projects.Get(c.Request.Context(), auth.CurrentActor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) createProject(c *gin.Context) {
	var in projects.Input
	if !h.bind(c, &in) {
		return
	}
	p, err := h.Projects.Create(c.Request.Context(), auth.CurrentActor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) updateProject(partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c)
		if !ok {
			return
		}
		var in projects.Input
		if !h.bind(c, &in) {
			return
		}
		p, err := h.Projects.Update(c.Request.Context(), auth.CurrentActor(c), id, in, partial)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func (h *Handler) deleteProject(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Projects.Delete(c.Request.Context(), auth.CurrentActor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) joinProject(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Projects.Join(c.Request.Context(), auth.CurrentActor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	detail(c, http.StatusOK, "Successfully joined project")
}

func (h *Handler) leaveProject(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Projects.Leave(c.Request.Context(), auth.CurrentActor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	detail(c, http.StatusOK, "Successfully left project")
}

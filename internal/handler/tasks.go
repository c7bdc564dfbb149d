package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clubhub/internal/auth"
	"clubhub/internal/model"
	"clubhub/internal/tasks"
)

func (h *Handler) listTasks(c *gin.Context) {
	f := model.TaskFilter{Status: model.TaskStatus(c.Query("status"))}
	var ok bool
	if f.AssignedTo, _, ok = h.queryInt(c, "assigned_to"); !ok {
		return
	}
	list, err := h.Tasks.List(c.Request.Context(), auth.CurrentActor(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getTask(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	t, err := h.Tasks.Get(c.Request.Context(), auth.CurrentActor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) createTask(c *gin.Context) {
	var in tasks.Input
	if !h.bind(c, &in) {
		return
	}
	t, err := h.Tasks.Create(c.Request.Context(), auth.CurrentActor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) updateTask(partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c)
		if !ok {
			return
		}
		var in tasks.Input
		if !h.bind(c, &in) {
			return
		}
		t, err := h.Tasks.Update(c.Request.Context(), auth.CurrentActor(c), id, in, partial)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

func (h *Handler) deleteTask(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Tasks.Delete(c.Request.Context(), auth.CurrentActor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) startTask(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	t, err := h.Tasks.Start(c.Request.Context(), auth.CurrentActor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) submitTask(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var in tasks.SubmitInput
	if c.Request.ContentLength != 0 && !h.bind(c, &in) {
		return
	}
	t, err := h.Tasks.Submit(c.Request.Context(), auth.CurrentActor(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) verifyTask(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	v, err := h.Tasks.Verify(c.Request.Context(), auth.CurrentActor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

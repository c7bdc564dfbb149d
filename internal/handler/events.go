package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clubhub/internal/auth"
	"clubhub/internal/events"
	"clubhub/internal/model"
	"clubhub/internal/policy"
)

func (h *Handler) listEvents(c *gin.Context) {
	f := model.EventFilter{
		Type: model.EventType(c.Query("type")),
		Time: model.TimeBucket(c.Query("time")),
	}
	list, err := h.Events.List(c.Request.Context(), auth.CurrentActor(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getEvent(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	e, err := h.Events.Get(c.Request.Context(), auth.CurrentActor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) createEvent(c *gin.Context) {
	var in events.Input
	if !h.bind(c, &in) {
		return
	}
	e, err := h.Events.Create(c.Request.Context(), auth.CurrentActor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) updateEvent(partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c)
		if !ok {
			return
		}
		var in events.Input
		if !h.bind(c, &in) {
			return
		}
		e, err := h.Events.Update(c.Request.Context(), auth.CurrentActor(c), id, in, partial)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

func (h *Handler) deleteEvent(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Events.Delete(c.Request.Context(), auth.CurrentActor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) eventAttendees(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	list, err := h.Events.Attendees(c.Request.Context(), auth.CurrentActor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) uploadBanner(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	actor := auth.CurrentActor(c)
	// Check access and existence before sending anything upstream.
	if err := policy.Authorize(actor, policy.EventWrite, policy.Resource{}); err != nil {
		h.fail(c, err)
		return
	}
	if _, err := h.Events.Get(c.Request.Context(), actor, id); err != nil {
		h.fail(c, err)
		return
	}
	url, ok := h.upload(c)
	if !ok {
		return
	}
	e, err := h.Events.SetBanner(c.Request.Context(), actor, id, url)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

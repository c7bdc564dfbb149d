package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clubhub/internal/attendance"
	"clubhub/internal/auth"
	"clubhub/internal/model"
)

func (h *Handler) listAttendance(c *gin.Context) {
	f := model.AttendanceFilter{Status: model.AttendanceStatus(c.Query("status"))}
	var ok bool
	if f.UserID, _, ok = h.queryInt(c, "user"); !ok {
		return
	}
	if f.EventID, _, ok = h.queryInt(c, "event"); !ok {
		return
	}
	list, err := h.Attendance.List(c.Request.Context(), auth.CurrentActor(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) markAttendance(c *gin.Context) {
	var in attendance.MarkInput
	if !h.bind(c, &in) {
		return
	}
	a, err := h.Attendance.Mark(c.Request.Context(), auth.CurrentActor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) bulkMark(c *gin.Context) {
	var in attendance.BulkInput
	if !h.bind(c, &in) {
		return
	}
	res, err := h.Attendance.BulkMark(c.Request.Context(), auth.CurrentActor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

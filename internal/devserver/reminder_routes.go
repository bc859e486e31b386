package devserver

import (
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

var timeOfDay = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

type reminderRequest struct {
	Interval            int    `json:"interval"`
	StartTime           string `json:"startTime"`
	EndTime             string `json:"endTime"`
	NotificationMessage string `json:"notificationMessage"`
}

func (r reminderRequest) valid() bool {
	return r.Interval > 0 && timeOfDay.MatchString(r.StartTime) && timeOfDay.MatchString(r.EndTime)
}

type pauseRequest struct {
	Paused         bool    `json:"paused"`
	PauseStartTime *string `json:"pauseStartTime"`
	PauseEndTime   *string `json:"pauseEndTime"`
}

func validOptionalTime(value *string) bool {
	return value == nil || timeOfDay.MatchString(*value)
}

func (s *Server) PostReminder(c echo.Context) error {
	var req reminderRequest
	if err := c.Bind(&req); err != nil || !req.valid() {
		return c.JSON(http.StatusBadRequest, message("Invalid reminder settings"))
	}
	r, _ := s.data.updateReminder(currentUser(c), true, func(r *reminder) {
		*r = reminder{
			Interval:            req.Interval,
			StartTime:           req.StartTime,
			EndTime:             req.EndTime,
			NotificationMessage: req.NotificationMessage,
		}
	})
	return c.JSON(http.StatusCreated, map[string]any{"message": "Reminder created", "reminder": r})
}

func (s *Server) GetReminder(c echo.Context) error {
	r, found := s.data.reminder(currentUser(c))
	if !found {
		return c.JSON(http.StatusNotFound, message("Reminder not found"))
	}
	return c.JSON(http.StatusOK, map[string]any{"reminder": r})
}

func (s *Server) PutReminder(c echo.Context) error {
	var req reminderRequest
	if err := c.Bind(&req); err != nil || !req.valid() {
		return c.JSON(http.StatusBadRequest, message("Invalid reminder settings"))
	}
	r, found := s.data.updateReminder(currentUser(c), false, func(r *reminder) {
		r.Interval = req.Interval
		r.StartTime = req.StartTime
		r.EndTime = req.EndTime
		if req.NotificationMessage != "" {
			r.NotificationMessage = req.NotificationMessage
		}
	})
	if !found {
		return c.JSON(http.StatusNotFound, message("Reminder not found"))
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Reminder updated", "reminder": r})
}

// PutReminderPause pauses or resumes the reminder, the pause window is cleared on resume.
func (s *Server) PutReminderPause(c echo.Context) error {
	var req pauseRequest
	if err := c.Bind(&req); err != nil || !validOptionalTime(req.PauseStartTime) || !validOptionalTime(req.PauseEndTime) {
		return c.JSON(http.StatusBadRequest, message("Pause times must use the HH:MM format"))
	}
	r, found := s.data.updateReminder(currentUser(c), false, func(r *reminder) {
		r.Paused = req.Paused
		r.PauseStartTime = nil
		r.PauseEndTime = nil
		if req.Paused {
			r.PauseStartTime = req.PauseStartTime
			r.PauseEndTime = req.PauseEndTime
		}
	})
	if !found {
		return c.JSON(http.StatusNotFound, message("Reminder not found"))
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Reminder updated", "reminder": r})
}

func (s *Server) PutToggleSleepMode(c echo.Context) error {
	r, found := s.data.updateReminder(currentUser(c), false, func(r *reminder) {
		r.SleepMode = !r.SleepMode
	})
	if !found {
		return c.JSON(http.StatusNotFound, message("Reminder not found"))
	}
	return c.JSON(http.StatusOK, map[string]any{"sleepMode": r.SleepMode, "reminder": r})
}

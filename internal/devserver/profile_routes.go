package devserver

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sipwell/sipwell-client/internal/hydration"
)

func (s *Server) GetProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, s.data.profile(currentUser(c)))
}

// PutProfile changes the known profile fields, anything else in the body is ignored.
func (s *Server) PutProfile(c echo.Context) error {
	changes := map[string]any{}
	if err := c.Bind(&changes); err != nil {
		return c.JSON(http.StatusBadRequest, message("Invalid request body"))
	}
	return c.JSON(http.StatusOK, s.data.updateProfile(currentUser(c), changes))
}

type dayTotal struct {
	Date    string  `json:"date"`
	TotalMl float64 `json:"totalMl"`
	GoalMl  float64 `json:"goalMl"`
}

func (s *Server) goal(userID string) float64 {
	return hydration.DailyGoalMl(hydration.GoalInputsFromProfile(s.data.profile(userID)))
}

// dayTotals returns the totals of the last days, oldest first and ending today.
func (s *Server) dayTotals(userID string, days int) []dayTotal {
	goal := s.goal(userID)
	today := startOfDay(s.now())
	output := make([]dayTotal, 0, days)
	for i := days - 1; i >= 0; i-- {
		from := today.AddDate(0, 0, -i)
		logs := s.data.logsBetween(userID, from, from.AddDate(0, 0, 1))
		output = append(output, dayTotal{Date: from.Format(time.DateOnly), TotalMl: total(logs), GoalMl: goal})
	}
	return output
}

func (s *Server) GetWeekly(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"weekly": s.dayTotals(currentUser(c), 7)})
}

func (s *Server) GetMonthly(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"monthly": s.dayTotals(currentUser(c), 30)})
}

// GetStreak counts the consecutive days the goal was reached. Today only
// breaks the streak once it is over.
func (s *Server) GetStreak(c echo.Context) error {
	totals := s.dayTotals(currentUser(c), 365)
	streak := 0
	for i := len(totals) - 1; i >= 0; i-- {
		if totals[i].TotalMl >= totals[i].GoalMl {
			streak++
			continue
		}
		if i == len(totals)-1 {
			continue
		}
		break
	}
	return c.JSON(http.StatusOK, map[string]any{"streak": streak})
}

func (s *Server) GetHydrationScore(c echo.Context) error {
	today := s.dayTotals(currentUser(c), 1)[0]
	score := math.Min(100, math.Round(today.TotalMl/today.GoalMl*100))
	return c.JSON(http.StatusOK, map[string]any{"score": score, "totalMl": today.TotalMl, "goalMl": today.GoalMl})
}

func (s *Server) GetExport(c echo.Context) error {
	userID := currentUser(c)
	return c.JSON(http.StatusOK, map[string]any{
		"profile": s.data.profile(userID),
		"logs":    s.data.allLogs(userID),
		"goalMl":  s.goal(userID),
	})
}

package devserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type amountRequest struct {
	Amount float64 `json:"amount"`
}

// readAmount returns false when the body has no positive amount.
func readAmount(c echo.Context) (float64, bool) {
	var req amountRequest
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return 0, false
	}
	return req.Amount, true
}

func (s *Server) PostWater(c echo.Context) error {
	amount, ok := readAmount(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, message("Amount must be a positive number"))
	}
	log := waterLog{ID: uuid.NewString(), Amount: amount, LoggedAt: s.now().UTC()}
	s.data.addWaterLog(currentUser(c), log)
	return c.JSON(http.StatusCreated, map[string]any{"message": "Water logged", "log": log})
}

func (s *Server) GetDailyWater(c echo.Context) error {
	from := startOfDay(s.now())
	logs := s.data.logsBetween(currentUser(c), from, from.AddDate(0, 0, 1))
	return c.JSON(http.StatusOK, map[string]any{"logs": logs, "total": total(logs)})
}

func (s *Server) PutWater(c echo.Context) error {
	amount, ok := readAmount(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, message("Amount must be a positive number"))
	}
	log, found := s.data.updateWaterLog(currentUser(c), c.Param("id"), amount)
	if !found {
		return c.JSON(http.StatusNotFound, message("Water log not found"))
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Water log updated", "log": log})
}

func (s *Server) DeleteWater(c echo.Context) error {
	if !s.data.deleteWaterLog(currentUser(c), c.Param("id")) {
		return c.JSON(http.StatusNotFound, message("Water log not found"))
	}
	return c.JSON(http.StatusOK, message("Water log deleted"))
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func total(logs []waterLog) float64 {
	sum := 0.0
	for _, log := range logs {
		sum += log.Amount
	}
	return sum
}

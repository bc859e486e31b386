package hydration

import (
	"math"
	"strconv"
)

const MinimumDailyGoalMl float64 = 1500

// GoalInputs are the profile fields the daily goal depends on.
type GoalInputs struct {
	WeightKg  float64
	Age       int
	Activity  string
	Climate   string
	Pregnancy bool
}

// DailyGoalMl estimates the daily intake from the body weight, adjusted for
// activity, climate, pregnancy and age. It never goes below MinimumDailyGoalMl.
func DailyGoalMl(in GoalInputs) float64 {
	goal := in.WeightKg * 35
	switch in.Activity {
	case "high":
		goal += 700
	case "moderate":
		goal += 400
	}
	switch in.Climate {
	case "hot":
		goal += 500
	case "cold":
		goal -= 200
	}
	if in.Pregnancy {
		goal += 700
	}
	if in.Age > 55 {
		goal -= 200
	}
	return math.Max(goal, MinimumDailyGoalMl)
}

// GoalInputsFromProfile reads the goal inputs out of a profile document, numbers
// may be sent as strings.
func GoalInputsFromProfile(p Profile) GoalInputs {
	in := GoalInputs{}
	in.WeightKg, _ = number(p["weight"])
	age, _ := number(p["age"])
	in.Age = int(age)
	in.Activity, _ = p["activity"].(string)
	in.Climate, _ = p["climate"].(string)
	in.Pregnancy, _ = p["pregnancy"].(bool)
	return in
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

package feed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// receivePrefix marks the home side receiving goals
const receivePrefix = "受"

// handicapLabels maps the bookmaker's handicap wording to the goals given by the favourite
var handicapLabels = map[string]float64{
	"平手":     0,
	"平/半":    0.25,
	"平手/半球":  0.25,
	"半球":     0.5,
	"半/一":    0.75,
	"半球/一球":  0.75,
	"一球":     1,
	"一/球半":   1.25,
	"一球/球半":  1.25,
	"球半":     1.5,
	"球半/两":   1.75,
	"球半/两球":  1.75,
	"两球":     2,
	"两/两球半":  2.25,
	"两球/两球半": 2.25,
	"两球半":    2.5,
}

// ParseHandicap converts a handicap label into the line added to the home
// score. "半球" (home gives half a goal) is -0.5 and "受半球" (home receives
// half a goal) is +0.5. Plain numbers are taken as already signed lines.
func ParseHandicap(label string) (float64, error) {
	s := strings.TrimSpace(label)
	if s == "" {
		return 0, fmt.Errorf("empty handicap label")
	}

	receives := strings.HasPrefix(s, receivePrefix)
	s = strings.TrimPrefix(s, receivePrefix)

	goals, ok := handicapLabels[s]
	if !ok {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("unknown handicap label %q", label)
		}
		if receives {
			return abs(v), nil
		}
		return v, nil
	}

	if receives || goals == 0 {
		return goals, nil
	}
	return -goals, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind selects what a job does with the matches it picks up
type Kind string

const (
	KindPredict Kind = "predict"
	KindReview  Kind = "review"
)

// TimeOfDay is a wall-clock time in the scheduler's location
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: bad hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: bad minute", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Job is one daily pass. Window is the kickoff horizon ahead of now for
// predict jobs and the lookback behind now for review jobs.
type Job struct {
	Name    string
	Kind    Kind
	At      TimeOfDay
	Window  time.Duration
	Refresh bool // re-forecast even when the odds did not move
}

// DefaultJobs is the standard daily cadence
func DefaultJobs() []Job {
	return []Job{
		{Name: "morning-predict", Kind: KindPredict, At: TimeOfDay{8, 0}, Window: 48 * time.Hour},
		{Name: "midday-predict", Kind: KindPredict, At: TimeOfDay{14, 0}, Window: 48 * time.Hour},
		{Name: "closing-predict", Kind: KindPredict, At: TimeOfDay{22, 0}, Window: 3 * time.Hour, Refresh: true},
		{Name: "night-review", Kind: KindReview, At: TimeOfDay{3, 0}, Window: 24 * time.Hour},
		{Name: "morning-review", Kind: KindReview, At: TimeOfDay{10, 0}, Window: 72 * time.Hour},
	}
}

// Validate checks the job is runnable
func (j Job) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("job without name")
	}
	if j.Kind != KindPredict && j.Kind != KindReview {
		return fmt.Errorf("job %s: unknown kind %q", j.Name, j.Kind)
	}
	if j.Window <= 0 {
		return fmt.Errorf("job %s: window must be positive", j.Name)
	}
	if j.At.Hour < 0 || j.At.Hour > 23 || j.At.Minute < 0 || j.At.Minute > 59 {
		return fmt.Errorf("job %s: bad time of day %s", j.Name, j.At)
	}
	return nil
}

// Next returns the first occurrence of the job strictly after now, in now's location
func (j Job) Next(now time.Time) time.Time {
	y, m, d := now.Date()
	at := time.Date(y, m, d, j.At.Hour, j.At.Minute, 0, 0, now.Location())
	if !at.After(now) {
		at = time.Date(y, m, d+1, j.At.Hour, j.At.Minute, 0, 0, now.Location())
	}
	return at
}

// NextRun returns the earliest upcoming run time after now and every job due
// at that time, in list order. It returns a zero time when jobs is empty.
func NextRun(jobs []Job, now time.Time) (time.Time, []Job) {
	var (
		next time.Time
		due  []Job
	)
	for _, j := range jobs {
		at := j.Next(now)
		switch {
		case next.IsZero() || at.Before(next):
			next = at
			due = []Job{j}
		case at.Equal(next):
			due = append(due, j)
		}
	}
	return next, due
}

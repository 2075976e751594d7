// Package feed reads scraped fixtures and odds from the scraper's JSON feed
// and turns them into match records.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/football-predictor/internal/platform/http"
	"github.com/Alias1177/football-predictor/models"
)

// kickoffLayout is the scraper's local kickoff format
const kickoffLayout = "2006-01-02 15:04"

// Record is one fixture as published by the scraper. Odds arrive as strings
// and are empty when the bookmaker has not quoted the market.
type Record struct {
	MatchID   string `json:"match_id"`
	League    string `json:"league"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	MatchTime string `json:"match_time"`
	Status    int    `json:"status"`
	HomeScore string `json:"home_score"`
	AwayScore string `json:"away_score"`

	EuroCurrentWin  string `json:"euro_current_win"`
	EuroCurrentDraw string `json:"euro_current_draw"`
	EuroCurrentLose string `json:"euro_current_lose"`
	EuroInitialWin  string `json:"euro_initial_win"`
	EuroInitialDraw string `json:"euro_initial_draw"`
	EuroInitialLose string `json:"euro_initial_lose"`

	AsianCurrentHomeOdds string `json:"asian_current_home_odds"`
	AsianCurrentHandicap string `json:"asian_current_handicap"`
	AsianCurrentAwayOdds string `json:"asian_current_away_odds"`
	AsianInitialHomeOdds string `json:"asian_initial_home_odds"`
	AsianInitialHandicap string `json:"asian_initial_handicap"`
	AsianInitialAwayOdds string `json:"asian_initial_away_odds"`

	OUCurrentOverOdds  string `json:"ou_current_over_odds"`
	OUCurrentTotal     string `json:"ou_current_total"`
	OUCurrentUnderOdds string `json:"ou_current_under_odds"`
	OUInitialOverOdds  string `json:"ou_initial_over_odds"`
	OUInitialTotal     string `json:"ou_initial_total"`
	OUInitialUnderOdds string `json:"ou_initial_under_odds"`
}

// ToMatch converts the record. Kickoff times are read in loc. Unparseable
// markets are dropped rather than failing the whole record.
func (r Record) ToMatch(loc *time.Location, fetchedAt time.Time) (models.Match, error) {
	if r.MatchID == "" {
		return models.Match{}, fmt.Errorf("record without match_id")
	}
	kickoff, err := time.ParseInLocation(kickoffLayout, strings.TrimSpace(r.MatchTime), loc)
	if err != nil {
		return models.Match{}, fmt.Errorf("match %s: kickoff %q: %w", r.MatchID, r.MatchTime, err)
	}

	status := models.MatchStatus(r.Status)
	if status < models.StatusScheduled || status > models.StatusFinished {
		return models.Match{}, fmt.Errorf("match %s: unknown status %d", r.MatchID, r.Status)
	}

	m := models.Match{
		ID:        r.MatchID,
		League:    r.League,
		HomeTeam:  r.HomeTeam,
		AwayTeam:  r.AwayTeam,
		KickoffAt: kickoff.UTC(),
		Status:    status,
		UpdatedAt: fetchedAt.UTC(),
		Opening: snapshot(
			moneyline(r.EuroInitialWin, r.EuroInitialDraw, r.EuroInitialLose),
			handicap(r.AsianInitialHandicap, r.AsianInitialHomeOdds, r.AsianInitialAwayOdds),
			totals(r.OUInitialTotal, r.OUInitialOverOdds, r.OUInitialUnderOdds),
		),
		Current: snapshot(
			moneyline(r.EuroCurrentWin, r.EuroCurrentDraw, r.EuroCurrentLose),
			handicap(r.AsianCurrentHandicap, r.AsianCurrentHomeOdds, r.AsianCurrentAwayOdds),
			totals(r.OUCurrentTotal, r.OUCurrentOverOdds, r.OUCurrentUnderOdds),
		),
	}

	if status == models.StatusFinished {
		home, errH := strconv.Atoi(strings.TrimSpace(r.HomeScore))
		away, errA := strconv.Atoi(strings.TrimSpace(r.AwayScore))
		if errH == nil && errA == nil {
			m.FinalScore = &models.Score{Home: home, Away: away}
		}
	}

	return m, nil
}

func price(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func moneyline(win, draw, lose string) *models.Moneyline {
	h, okH := price(win)
	d, okD := price(draw)
	a, okA := price(lose)
	if !okH || !okD || !okA {
		return nil
	}
	return &models.Moneyline{Home: h, Draw: d, Away: a}
}

func handicap(label, home, away string) *models.HandicapOdds {
	line, err := ParseHandicap(label)
	if err != nil {
		return nil
	}
	h, okH := price(home)
	a, okA := price(away)
	if !okH || !okA {
		return nil
	}
	return &models.HandicapOdds{Line: line, Home: h, Away: a}
}

func totals(line, over, under string) *models.TotalsOdds {
	l, okL := price(line)
	o, okO := price(over)
	u, okU := price(under)
	if !okL || !okO || !okU {
		return nil
	}
	return &models.TotalsOdds{Line: l, Over: o, Under: u}
}

func snapshot(ml *models.Moneyline, ah *models.HandicapOdds, ou *models.TotalsOdds) *models.OddsSnapshot {
	if ml == nil && ah == nil && ou == nil {
		return nil
	}
	return &models.OddsSnapshot{Moneyline: ml, Handicap: ah, Totals: ou}
}

// Client fetches fixtures from the scraper
type Client struct {
	baseURL    string
	httpClient *httpClient.Client
	location   *time.Location
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new feed client
type ClientOptions struct {
	BaseURL         string
	Location        *time.Location
	RequestTimeout  time.Duration
	RequestsPerSec  float64
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new feed client
func NewClient(options ClientOptions) *Client {
	if options.Location == nil {
		options.Location = time.UTC
	}

	return &Client{
		baseURL: strings.TrimRight(options.BaseURL, "/"),
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetries:      options.MaxRetries,
			MaxRetryTimeout: options.MaxRetryTimeout,
		}),
		location: options.Location,
		logger:   log.With().Str("component", "feed_client").Logger(),
	}
}

// FetchMatches returns matches updated since the given time; a zero since fetches everything
func (c *Client) FetchMatches(ctx context.Context, since time.Time) ([]models.Match, error) {
	endpoint := c.baseURL + "/matches"
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	c.logger.Debug().Str("url", endpoint).Msg("Fetching matches")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	fetchedAt := time.Now()
	matches := make([]models.Match, 0, len(records))
	for _, r := range records {
		m, err := r.ToMatch(c.location, fetchedAt)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Skipping malformed record")
			continue
		}
		matches = append(matches, m)
	}

	c.logger.Info().Int("records", len(records)).Int("matches", len(matches)).Msg("Feed fetched")
	return matches, nil
}

package model

import (
	"sort"
	"time"
)

// Period selects the leaderboard window.
type Period string

const (
	PeriodAllTime Period = "all_time"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func (p Period) Valid() bool {
	return p == PeriodAllTime || p == PeriodWeekly || p == PeriodMonthly
}

// Window returns the lookback duration; zero means no window.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodWeekly:
		return 7 * 24 * time.Hour
	case PeriodMonthly:
		return 30 * 24 * time.Hour
	}
	return 0
}

// Standing is one leaderboard row. Points holds either the stored total or
// the windowed score depending on the period.
type Standing struct {
	Rank       int    `json:"rank"`
	UserID     int64  `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Avatar     string `json:"avatar"`
	Points     int    `json:"points"`
	BatchYear  *int   `json:"batch_year"`
	SkillLevel string `json:"skill_level"`
}

func NewStanding(u User, points int) Standing {
	return Standing{
		UserID:     u.ID,
		Username:   u.Username,
		FullName:   u.FullName(),
		Avatar:     u.Avatar,
		Points:     points,
		BatchYear:  u.BatchYear,
		SkillLevel: u.SkillLevel,
	}
}

// RankStandings orders by points descending then user id ascending, assigns
// 1-based row-number ranks and truncates to limit. Equal points still get
// distinct ranks. A non-positive limit keeps every row.
func RankStandings(standings []Standing, limit int) []Standing {
	out := make([]Standing, len(standings))
	copy(out, standings)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// ScoreQuery parameterizes a leaderboard read. A zero Since means all-time
// stored points; otherwise scores are recomputed from activity since then.
type ScoreQuery struct {
	Since            time.Time
	AttendancePoints int
	Limit            int
}

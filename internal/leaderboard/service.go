// Package leaderboard ranks members by points, all-time or over a window.
package leaderboard

import (
	"context"
	"time"

	"clubhub/internal/apperr"
	"clubhub/internal/model"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type Repository interface {
	Standings(ctx context.Context, q model.ScoreQuery) ([]model.Standing, error)
}

type Service struct {
	repo             Repository
	attendancePoints int
	defaultLimit     int
}

// NewService builds the engine. attendancePoints is the score each present
// attendance adds to windowed totals.
func NewService(repo Repository, attendancePoints, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Service{repo: repo, attendancePoints: attendancePoints, defaultLimit: defaultLimit}
}

// Standings returns ranked active members as of now. An empty period means
// all-time and a zero limit means the default; limits are clamped to
// [1, MaxLimit].
func (s *Service) Standings(ctx context.Context, now time.Time, period model.Period, limit int) ([]model.Standing, error) {
	if period == "" {
		period = model.PeriodAllTime
	}
	if !period.Valid() {
		return nil, apperr.Field("period", "must be one of all_time, weekly, monthly")
	}
	switch {
	case limit == 0:
		limit = s.defaultLimit
	case limit < 1:
		limit = 1
	case limit > MaxLimit:
		limit = MaxLimit
	}

	q := model.ScoreQuery{AttendancePoints: s.attendancePoints, Limit: limit}
	if w := period.Window(); w > 0 {
		q.Since = now.Add(-w)
	}
	return s.repo.Standings(ctx, q)
}

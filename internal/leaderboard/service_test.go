package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/apperr"
	"clubhub/internal/model"
)

type recordingRepo struct {
	got model.ScoreQuery
}

func (r *recordingRepo) Standings(_ context.Context, q model.ScoreQuery) ([]model.Standing, error) {
	r.got = q
	return []model.Standing{}, nil
}

func TestStandingsQuery(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		period    model.Period
		limit     int
		wantLimit int
		wantSince time.Time
	}{
		{"defaults", "", 0, 20, time.Time{}},
		{"all time", model.PeriodAllTime, 10, 10, time.Time{}},
		{"weekly", model.PeriodWeekly, 10, 10, now.Add(-7 * 24 * time.Hour)},
		{"monthly", model.PeriodMonthly, 10, 10, now.Add(-30 * 24 * time.Hour)},
		{"negative limit", "", -3, 1, time.Time{}},
		{"huge limit", "", 10000, MaxLimit, time.Time{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &recordingRepo{}
			svc := NewService(repo, 7, 20)
			_, err := svc.Standings(context.Background(), now, tc.period, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, tc.wantLimit, repo.got.Limit)
			assert.Equal(t, tc.wantSince, repo.got.Since)
			assert.Equal(t, 7, repo.got.AttendancePoints)
		})
	}
}

func TestStandingsRejectsUnknownPeriod(t *testing.T) {
	svc := NewService(&recordingRepo{}, 5, 0)
	_, err := svc.Standings(context.Background(), time.Now(), "yearly", 0)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, e.FieldMap(), "period")
}

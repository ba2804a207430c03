package services

import (
	"context"
	"math"
	"sort"
	"time"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/adapters/persistence/repositories"

	"golang.org/x/sync/errgroup"
)

// PerformanceService derives per-user statistics from the activity log
// and login sessions. Strictly read-only: it takes no locks and is safe
// to run while transitions keep appending entries.
type PerformanceService struct {
	historyRepo *repositories.HistoryRepository
	sessionRepo repositories.SessionRepository
}

// NewPerformanceService creates a new performance service
func NewPerformanceService(historyRepo *repositories.HistoryRepository, sessionRepo repositories.SessionRepository) *PerformanceService {
	return &PerformanceService{historyRepo: historyRepo, sessionRepo: sessionRepo}
}

// UserStats are one user's totals for the requested range
type UserStats struct {
	UserID        uint    `json:"user_id"`
	Username      string  `json:"username"`
	ActivityCount int64   `json:"activity_count"`
	ActiveDays    int     `json:"active_days"`
	AvgPerDay     float64 `json:"avg_per_day"`
	WorkHours     float64 `json:"work_hours"`
}

// Report is the full performance report for a date range
type Report struct {
	From  time.Time   `json:"from"`
	To    time.Time   `json:"to"`
	Users []UserStats `json:"users"`
}

// GetReport aggregates per-user statistics for [from, to). Activity
// entries and login sessions are fetched concurrently.
func (s *PerformanceService) GetReport(ctx context.Context, from, to time.Time) (*Report, error) {
	var (
		activities []*models.ActivityLog
		sessions   []*models.LoginSession
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		activities, err = s.historyRepo.ListActivityInRange(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		sessions, err = s.sessionRepo.ListInRange(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := make(map[uint]*UserStats)
	activeDays := make(map[uint]map[string]struct{})

	statFor := func(userID uint, username string) *UserStats {
		st, ok := stats[userID]
		if !ok {
			st = &UserStats{UserID: userID, Username: username}
			stats[userID] = st
			activeDays[userID] = make(map[string]struct{})
		}
		if st.Username == "" {
			st.Username = username
		}
		return st
	}

	for _, entry := range activities {
		username := ""
		if entry.User != nil {
			username = entry.User.Username
		}
		st := statFor(entry.UserID, username)
		st.ActivityCount++
		activeDays[entry.UserID][entry.CreatedAt.Format("2006-01-02")] = struct{}{}
	}

	for _, session := range sessions {
		st := statFor(session.UserID, "")
		st.WorkHours += sessionHours(session, from, to)
	}

	days := int(to.Sub(from).Hours() / 24)
	if days < 1 {
		days = 1
	}

	users := make([]UserStats, 0, len(stats))
	for userID, st := range stats {
		st.ActiveDays = len(activeDays[userID])
		st.AvgPerDay = round2(float64(st.ActivityCount) / float64(days))
		st.WorkHours = round2(st.WorkHours)
		users = append(users, *st)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].UserID < users[j].UserID
	})

	return &Report{From: from, To: to, Users: users}, nil
}

// sessionHours clips a login/logout pair to the report range. Sessions
// still open count until the end of the range.
func sessionHours(session *models.LoginSession, from, to time.Time) float64 {
	start := session.LoginAt
	if start.Before(from) {
		start = from
	}
	end := to
	if session.LogoutAt != nil && session.LogoutAt.Before(to) {
		end = *session.LogoutAt
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours()
}

// TopPerformers ranks users by activity count in the range
func (s *PerformanceService) TopPerformers(ctx context.Context, from, to time.Time, limit int) ([]UserStats, error) {
	report, err := s.GetReport(ctx, from, to)
	if err != nil {
		return nil, err
	}

	users := report.Users
	sort.Slice(users, func(i, j int) bool {
		if users[i].ActivityCount != users[j].ActivityCount {
			return users[i].ActivityCount > users[j].ActivityCount
		}
		return users[i].UserID < users[j].UserID
	})

	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

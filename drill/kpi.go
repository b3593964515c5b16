package drill

import (
	"context"
	"fmt"
	"math"
	"time"

	"drills-server/models"
)

const (
	// WeeklyGoal is the display target for attempts in the trailing week.
	WeeklyGoal = 150

	trailingWindow = 7 * 24 * time.Hour
	maxStreakDays  = 366
	dayKeyLayout   = "2006-01-02"
)

// KPIs aggregates the user's answered items into the dashboard figures.
func (s *Service) KPIs(ctx context.Context, userID string) (*models.KPIs, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	now := s.now().In(s.loc)
	today := startOfDay(now)

	daily, err := s.store.AnswerStats(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's answers: %w", err)
	}
	weekly, err := s.store.AnswerStats(ctx, userID, now.Add(-trailingWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count trailing answers: %w", err)
	}

	times, err := s.store.AnsweredTimes(ctx, userID, today.AddDate(0, 0, -(maxStreakDays-1)))
	if err != nil {
		return nil, fmt.Errorf("failed to load answer history: %w", err)
	}
	active := make(map[string]bool, len(times))
	for _, t := range times {
		active[t.In(s.loc).Format(dayKeyLayout)] = true
	}

	return &models.KPIs{
		MCQsToday:  daily.Attempted,
		WeeklyGoal: models.WeeklyGoal{Attempted: weekly.Attempted, Goal: WeeklyGoal},
		Accuracy7d: Accuracy(weekly),
		StreakDays: Streak(active, today),
	}, nil
}

// Accuracy is the rounded percentage of correct answers, or nil when nothing was attempted.
func Accuracy(stats models.AnswerStats) *int {
	if stats.Attempted <= 0 {
		return nil
	}
	pct := int(math.Round(float64(stats.Correct) * 100 / float64(stats.Attempted)))
	return &pct
}

// Streak counts consecutive active days going backward from today. Today must be active for
// the streak to be non-zero.
func Streak(activeDays map[string]bool, today time.Time) int {
	streak := 0
	for i := 0; i < maxStreakDays; i++ {
		if !activeDays[today.AddDate(0, 0, -i).Format(dayKeyLayout)] {
			break
		}
		streak++
	}
	return streak
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

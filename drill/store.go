package drill

import (
	"context"
	"errors"
	"time"

	"drills-server/db"
	"drills-server/models"
)

// Store is the persistence the drill core depends on. db.PostgresStore and db.SQLiteStore
// both satisfy it.
type Store interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetQuestion(ctx context.Context, questionID int) (*models.Question, error)

	SeenQuestionIDs(ctx context.Context, userID string) ([]int, error)
	SampleQuestionIDs(ctx context.Context, filter models.QuestionFilter) ([]int, error)
	CreateSession(ctx context.Context, session models.DrillSession, questionIDs []int) error
	GetSession(ctx context.Context, sessionID, userID string) (*models.DrillSession, error)
	NextUnansweredItem(ctx context.Context, sessionID string) (*models.DrillItem, error)
	ItemTotals(ctx context.Context, sessionID string) (models.ItemTotals, error)
	FinalizeSession(ctx context.Context, sessionID string, finishedAt time.Time, durationSec, score int) (bool, error)
	AnswerItem(ctx context.Context, answer models.ItemAnswer) (int, error)

	AnswerStats(ctx context.Context, userID string, since time.Time) (models.AnswerStats, error)
	AnsweredTimes(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
}

// translate maps store-level sentinels onto the drill taxonomy.
func translate(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

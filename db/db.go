package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drills-server/config"
	"drills-server/models"
)

// ErrNotFound is returned when a lookup or a conditional write matches no row.
var ErrNotFound = errors.New("not found")

// Store is the logical persistence contract shared by the PostgreSQL and SQLite backends.
type Store interface {
	Migrate(ctx context.Context) error
	Close() error

	// Question bank
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetQuestion(ctx context.Context, questionID int) (*models.Question, error)
	ImportSubject(ctx context.Context, subjectName string, questions []models.Question) (ImportResult, error)
	SetQuestionActive(ctx context.Context, questionID int, active bool) error

	// Drill sessions
	SeenQuestionIDs(ctx context.Context, userID string) ([]int, error)
	SampleQuestionIDs(ctx context.Context, filter models.QuestionFilter) ([]int, error)
	CreateSession(ctx context.Context, session models.DrillSession, questionIDs []int) error
	GetSession(ctx context.Context, sessionID, userID string) (*models.DrillSession, error)
	NextUnansweredItem(ctx context.Context, sessionID string) (*models.DrillItem, error)
	ListItems(ctx context.Context, sessionID string) ([]models.DrillItem, error)
	ItemTotals(ctx context.Context, sessionID string) (models.ItemTotals, error)
	FinalizeSession(ctx context.Context, sessionID string, finishedAt time.Time, durationSec, score int) (bool, error)
	AnswerItem(ctx context.Context, answer models.ItemAnswer) (int, error)

	// Progress
	AnswerStats(ctx context.Context, userID string, since time.Time) (models.AnswerStats, error)
	AnsweredTimes(ctx context.Context, userID string, since time.Time) ([]time.Time, error)

	// Administration
	SubjectStats(ctx context.Context) ([]models.SubjectStats, error)
	QuestionStats(ctx context.Context, subjectID *int) ([]models.QuestionStats, error)
	AdminTotals(ctx context.Context) (models.AdminTotals, error)
	LogError(ctx context.Context, entry models.ErrorLog)
	LogAdminEvent(ctx context.Context, actor, action, target, notes string)
	ListErrorLogs(ctx context.Context, limit int) ([]models.ErrorLog, error)
	ListAdminEvents(ctx context.Context, limit int) ([]models.AdminEvent, error)
}

// ImportResult reports what ImportSubject wrote.
type ImportResult struct {
	SubjectID int
	Inserted  int
	Skipped   int // Questions whose stem already exists in the bank
}

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := InitDB(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool), nil
	case "sqlite":
		store, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

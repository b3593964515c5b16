package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"drills-server/models"
	"drills-server/utils"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// InitDB initializes the PostgreSQL database connection pool
func InitDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Ping the database to verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL database!")
	return pool, nil
}

// NewPostgresStore wraps an initialized pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM subjects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer rows.Close()

	subjects := []models.Subject{}
	for rows.Next() {
		var subject models.Subject
		if err := rows.Scan(&subject.ID, &subject.Name); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

func (s *PostgresStore) GetQuestion(ctx context.Context, questionID int) (*models.Question, error) {
	var q models.Question
	err := s.pool.QueryRow(ctx, `
		SELECT id, subject_id, stem, topic, answer_index, rationale, source_refs, is_active, created_at
		FROM questions WHERE id = $1
	`, questionID).Scan(&q.ID, &q.SubjectID, &q.Stem, &q.Topic, &q.AnswerIndex, &q.Rationale, &q.SourceRefs, &q.IsActive, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch question %d: %w", questionID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT question_id, label, text, rationale FROM choices WHERE question_id = $1 ORDER BY label ASC
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query choices for question %d: %w", questionID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var c models.Choice
		if err := rows.Scan(&c.QuestionID, &c.Label, &c.Text, &c.Rationale); err != nil {
			return nil, fmt.Errorf("failed to scan choice for question %d: %w", questionID, err)
		}
		q.Choices = append(q.Choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &q, nil
}

// ImportSubject upserts the subject by name and inserts questions whose stem is new.
// The whole import is one transaction.
func (s *PostgresStore) ImportSubject(ctx context.Context, subjectName string, questions []models.Question) (ImportResult, error) {
	var result ImportResult
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback on error

	err = tx.QueryRow(ctx, `
		INSERT INTO subjects (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, subjectName).Scan(&result.SubjectID)
	if err != nil {
		return result, fmt.Errorf("failed to upsert subject %s: %w", subjectName, err)
	}

	for _, q := range questions {
		refs, err := json.Marshal(sourceRefsOrEmpty(q.SourceRefs))
		if err != nil {
			return result, fmt.Errorf("failed to marshal source refs: %w", err)
		}
		var questionID int
		err = tx.QueryRow(ctx, `
			INSERT INTO questions (subject_id, topic, stem, stem_hash, answer_index, rationale, source_refs, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, TRUE)
			ON CONFLICT (stem_hash) DO NOTHING
			RETURNING id
		`, result.SubjectID, q.Topic, q.Stem, utils.StemHash(q.Stem), q.AnswerIndex, q.Rationale, string(refs)).Scan(&questionID)
		if errors.Is(err, pgx.ErrNoRows) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to insert question %q: %w", q.Stem, err)
		}
		for _, c := range q.Choices {
			if _, err := tx.Exec(ctx, `
				INSERT INTO choices (question_id, label, text, rationale) VALUES ($1, $2, $3, $4)
			`, questionID, c.Label, c.Text, c.Rationale); err != nil {
				return result, fmt.Errorf("failed to insert choice %s for question %d: %w", c.Label, questionID, err)
			}
		}
		result.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("failed to commit import: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) SetQuestionActive(ctx context.Context, questionID int, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE questions SET is_active = $2 WHERE id = $1`, questionID, active)
	if err != nil {
		return fmt.Errorf("failed to update question %d: %w", questionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SeenQuestionIDs returns every question already served to the user in any session.
func (s *PostgresStore) SeenQuestionIDs(ctx context.Context, userID string) ([]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT di.question_id
		FROM drill_items di
		JOIN drill_sessions ds ON ds.id = di.session_id
		WHERE ds.user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen questions for %s: %w", userID, err)
	}
	defer rows.Close()

	seen := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seen question: %w", err)
		}
		seen = append(seen, id)
	}
	return seen, rows.Err()
}

// SampleQuestionIDs draws up to filter.Limit eligible question ids using the engine's RANDOM().
func (s *PostgresStore) SampleQuestionIDs(ctx context.Context, filter models.QuestionFilter) ([]int, error) {
	where := []string{"q.is_active = TRUE"}
	args := []any{}
	if filter.SubjectID != nil {
		args = append(args, *filter.SubjectID)
		where = append(where, fmt.Sprintf("q.subject_id = $%d", len(args)))
	}
	if len(filter.ExcludeIDs) > 0 {
		args = append(args, filter.ExcludeIDs)
		where = append(where, fmt.Sprintf("NOT (q.id = ANY($%d::int[]))", len(args)))
	}
	args = append(args, filter.Limit)
	query := fmt.Sprintf(`
		SELECT q.id
		FROM questions q
		WHERE %s
		ORDER BY RANDOM()
		LIMIT $%d
	`, strings.Join(where, " AND "), len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan sampled question: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateSession writes the session and all of its items atomically.
func (s *PostgresStore) CreateSession(ctx context.Context, session models.DrillSession, questionIDs []int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO drill_sessions (id, user_id, subject, total, started_at, duration_sec, score)
		VALUES ($1, $2, $3, $4, $5, 0, 0)
	`, session.ID, session.UserID, session.Subject, session.Total, session.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert drill session %s: %w", session.ID, err)
	}

	items := make([][]any, len(questionIDs))
	for i, questionID := range questionIDs {
		items[i] = []any{session.ID, i + 1, questionID} // order_index starts from 1
	}
	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"drill_items"},
		[]string{"session_id", "order_index", "question_id"},
		pgx.CopyFromRows(items),
	)
	if err != nil {
		return fmt.Errorf("failed to insert drill items for session %s: %w", session.ID, err)
	}
	if int(copied) != len(questionIDs) {
		return fmt.Errorf("drill item count mismatch for session %s: expected %d, got %d", session.ID, len(questionIDs), copied)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit drill session %s: %w", session.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID, userID string) (*models.DrillSession, error) {
	var sess models.DrillSession
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, subject, total, started_at, finished_at, duration_sec, score
		FROM drill_sessions WHERE id = $1 AND user_id = $2
	`, sessionID, userID).Scan(&sess.ID, &sess.UserID, &sess.Subject, &sess.Total, &sess.StartedAt, &sess.FinishedAt, &sess.DurationSec, &sess.Score)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drill session %s: %w", sessionID, err)
	}
	return &sess, nil
}

const pgItemColumns = `session_id, order_index, question_id, user_answer, is_correct, answered_at, elapsed_ms`

func scanPgItem(row pgx.Row) (models.DrillItem, error) {
	var item models.DrillItem
	err := row.Scan(&item.SessionID, &item.OrderIndex, &item.QuestionID, &item.UserAnswer, &item.IsCorrect, &item.AnsweredAt, &item.ElapsedMs)
	return item, err
}

func (s *PostgresStore) NextUnansweredItem(ctx context.Context, sessionID string) (*models.DrillItem, error) {
	item, err := scanPgItem(s.pool.QueryRow(ctx, `
		SELECT `+pgItemColumns+`
		FROM drill_items
		WHERE session_id = $1 AND answered_at IS NULL
		ORDER BY order_index ASC
		LIMIT 1
	`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next item for session %s: %w", sessionID, err)
	}
	return &item, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, sessionID string) ([]models.DrillItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgItemColumns+` FROM drill_items WHERE session_id = $1 ORDER BY order_index ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	items := []models.DrillItem{}
	for rows.Next() {
		item, err := scanPgItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item for session %s: %w", sessionID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ItemTotals(ctx context.Context, sessionID string) (models.ItemTotals, error) {
	var totals models.ItemTotals
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_correct),
		       COALESCE(SUM(elapsed_ms), 0),
		       COUNT(elapsed_ms)
		FROM drill_items WHERE session_id = $1
	`, sessionID).Scan(&totals.Total, &totals.Correct, &totals.ElapsedMsSum, &totals.ElapsedMsRows)
	if err != nil {
		return totals, fmt.Errorf("failed to total items for session %s: %w", sessionID, err)
	}
	return totals, nil
}

// FinalizeSession stamps the session as finished unless it already is. It reports whether
// this call did the finalization.
func (s *PostgresStore) FinalizeSession(ctx context.Context, sessionID string, finishedAt time.Time, durationSec, score int) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE drill_sessions SET finished_at = $2, duration_sec = $3, score = $4
		WHERE id = $1 AND finished_at IS NULL
	`, sessionID, finishedAt, durationSec, score)
	if err != nil {
		return false, fmt.Errorf("failed to finalize drill session %s: %w", sessionID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// AnswerItem records the answer on a still-unanswered slot and recomputes the session score
// in the same transaction. It returns the new score, or ErrNotFound when no slot matched.
func (s *PostgresStore) AnswerItem(ctx context.Context, answer models.ItemAnswer) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE drill_items
		SET user_answer = $4, is_correct = $5, elapsed_ms = $6, answered_at = $7
		WHERE session_id = $1 AND order_index = $2 AND question_id = $3 AND answered_at IS NULL
	`, answer.SessionID, answer.OrderIndex, answer.QuestionID, answer.UserAnswer, answer.IsCorrect, answer.ElapsedMs, answer.AnsweredAt)
	if err != nil {
		return 0, fmt.Errorf("failed to record answer for session %s, item %d: %w", answer.SessionID, answer.OrderIndex, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}

	var score int
	err = tx.QueryRow(ctx, `
		UPDATE drill_sessions
		SET score = (SELECT COUNT(*) FROM drill_items WHERE session_id = $1 AND is_correct)
		WHERE id = $1
		RETURNING score
	`, answer.SessionID).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute score for session %s: %w", answer.SessionID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit answer for session %s: %w", answer.SessionID, err)
	}
	return score, nil
}

func (s *PostgresStore) AnswerStats(ctx context.Context, userID string, since time.Time) (models.AnswerStats, error) {
	var stats models.AnswerStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE di.is_correct)
		FROM drill_items di
		JOIN drill_sessions ds ON ds.id = di.session_id
		WHERE ds.user_id = $1 AND di.answered_at IS NOT NULL AND di.answered_at >= $2
	`, userID, since).Scan(&stats.Attempted, &stats.Correct)
	if err != nil {
		return stats, fmt.Errorf("failed to count answers for %s: %w", userID, err)
	}
	return stats, nil
}

func (s *PostgresStore) AnsweredTimes(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT di.answered_at
		FROM drill_items di
		JOIN drill_sessions ds ON ds.id = di.session_id
		WHERE ds.user_id = $1 AND di.answered_at IS NOT NULL AND di.answered_at >= $2
		ORDER BY di.answered_at DESC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query answer times for %s: %w", userID, err)
	}
	defer rows.Close()

	times := []time.Time{}
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan answer time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (s *PostgresStore) SubjectStats(ctx context.Context) ([]models.SubjectStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.name,
		       COUNT(q.id) FILTER (WHERE q.is_active),
		       COUNT(q.id)
		FROM subjects s
		LEFT JOIN questions q ON q.subject_id = s.id
		GROUP BY s.id, s.name
		ORDER BY s.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject stats: %w", err)
	}
	defer rows.Close()

	stats := []models.SubjectStats{}
	for rows.Next() {
		var st models.SubjectStats
		if err := rows.Scan(&st.ID, &st.Name, &st.ActiveQuestions, &st.TotalQuestions); err != nil {
			return nil, fmt.Errorf("failed to scan subject stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// QuestionStats counts attempts and correct answers per question, optionally for one subject.
func (s *PostgresStore) QuestionStats(ctx context.Context, subjectID *int) ([]models.QuestionStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT q.id, s.name, q.topic, q.stem, q.is_active,
		       COUNT(di.answered_at),
		       COUNT(*) FILTER (WHERE di.is_correct)
		FROM questions q
		JOIN subjects s ON s.id = q.subject_id
		LEFT JOIN drill_items di ON di.question_id = q.id
		WHERE ($1::int IS NULL OR q.subject_id = $1)
		GROUP BY q.id, s.name
		ORDER BY q.id
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query question stats: %w", err)
	}
	defer rows.Close()

	stats := []models.QuestionStats{}
	for rows.Next() {
		var qs models.QuestionStats
		if err := rows.Scan(&qs.QuestionID, &qs.Subject, &qs.Topic, &qs.Stem, &qs.IsActive, &qs.TimesAttempted, &qs.CorrectCount); err != nil {
			return nil, fmt.Errorf("failed to scan question stats: %w", err)
		}
		stats = append(stats, qs)
	}
	return stats, rows.Err()
}

func (s *PostgresStore) AdminTotals(ctx context.Context) (models.AdminTotals, error) {
	var totals models.AdminTotals
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM subjects),
			(SELECT COUNT(*) FROM questions WHERE is_active),
			(SELECT COUNT(*) FROM drill_sessions),
			(SELECT COUNT(*) FROM drill_sessions WHERE finished_at IS NOT NULL)
	`).Scan(&totals.Subjects, &totals.ActiveQuestions, &totals.Sessions, &totals.FinishedSessions)
	if err != nil {
		return totals, fmt.Errorf("failed to compute admin totals: %w", err)
	}
	return totals, nil
}

// LogError adds an entry to the error_logs table
func (s *PostgresStore) LogError(ctx context.Context, entry models.ErrorLog) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO error_logs (source, subject, file_path, line_number, field_name, error_message, suggested_fix)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.Source, entry.Subject, entry.FilePath, entry.LineNumber, entry.FieldName, entry.ErrorMessage, entry.SuggestedFix)
	if err != nil {
		log.Printf("ERROR: Failed to log error to database: %v. Original error: %s", err, entry.ErrorMessage)
	}
}

// LogAdminEvent adds an entry to the admin_events table
func (s *PostgresStore) LogAdminEvent(ctx context.Context, actor, action, target, notes string) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admin_events (action, actor, target, notes) VALUES ($1, $2, $3, $4)
	`, action, actor, target, notes)
	if err != nil {
		log.Printf("ERROR: Failed to log admin event to database: %v. Event: %s by %s on %s", err, action, actor, target)
	}
}

func (s *PostgresStore) ListErrorLogs(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, timestamp, source, COALESCE(subject, ''), file_path, line_number, field_name, error_message, suggested_fix
		FROM error_logs ORDER BY timestamp DESC, id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query error logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ErrorLog{}
	for rows.Next() {
		var e models.ErrorLog
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Source, &e.Subject, &e.FilePath, &e.LineNumber, &e.FieldName, &e.ErrorMessage, &e.SuggestedFix); err != nil {
			return nil, fmt.Errorf("failed to scan error log: %w", err)
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

func (s *PostgresStore) ListAdminEvents(ctx context.Context, limit int) ([]models.AdminEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, timestamp, action, actor, COALESCE(target, ''), COALESCE(notes, '')
		FROM admin_events ORDER BY timestamp DESC, id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin events: %w", err)
	}
	defer rows.Close()

	events := []models.AdminEvent{}
	for rows.Next() {
		var ae models.AdminEvent
		if err := rows.Scan(&ae.ID, &ae.Timestamp, &ae.Action, &ae.Actor, &ae.Target, &ae.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan admin event: %w", err)
		}
		events = append(events, ae)
	}
	return events, rows.Err()
}

func sourceRefsOrEmpty(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"drills-server/models"
	"drills-server/utils"
)

// SQLiteStore implements Store on an embedded SQLite file. Timestamps are stored as unix
// milliseconds and booleans as 0/1; both are converted back at this boundary.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at dsn and applies the connection pragmas.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; transactions must not wait on a second connection.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	log.Printf("Opened SQLite database at %s", dsn)
	return &SQLiteStore{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// nullable turns an optional value into a driver argument, nil binding as NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteStore) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM subjects ORDER BY name`)
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

func (s *SQLiteStore) GetQuestion(ctx context.Context, questionID int) (*models.Question, error) {
	var (
		q         models.Question
		refs      string
		isActive  int
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, stem, topic, answer_index, rationale, source_refs, is_active, created_at
		FROM questions WHERE id = ?
	`, questionID).Scan(&q.ID, &q.SubjectID, &q.Stem, &q.Topic, &q.AnswerIndex, &q.Rationale, &refs, &isActive, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch question %d: %w", questionID, err)
	}
	if err := json.Unmarshal([]byte(refs), &q.SourceRefs); err != nil {
		return nil, fmt.Errorf("invalid source_refs on question %d: %w", questionID, err)
	}
	q.IsActive = isActive == 1
	q.CreatedAt = fromMillis(createdAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, label, text, rationale FROM choices WHERE question_id = ? ORDER BY label ASC
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

func (s *SQLiteStore) ImportSubject(ctx context.Context, subjectName string, questions []models.Question) (ImportResult, error) {
	var result ImportResult
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO subjects (name) VALUES (?)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id
	`, subjectName).Scan(&result.SubjectID)
	if err != nil {
		return result, fmt.Errorf("failed to upsert subject %s: %w", subjectName, err)
	}

	now := toMillis(time.Now())
	for _, q := range questions {
		refs, err := json.Marshal(sourceRefsOrEmpty(q.SourceRefs))
		if err != nil {
			return result, fmt.Errorf("failed to marshal source refs: %w", err)
		}
		var questionID int
		err = tx.QueryRowContext(ctx, `
			INSERT INTO questions (subject_id, topic, stem, stem_hash, answer_index, rationale, source_refs, is_active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
			ON CONFLICT (stem_hash) DO NOTHING
			RETURNING id
		`, result.SubjectID, q.Topic, q.Stem, utils.StemHash(q.Stem), q.AnswerIndex, q.Rationale, string(refs), now).Scan(&questionID)
		if errors.Is(err, sql.ErrNoRows) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to insert question %q: %w", q.Stem, err)
		}
		for _, c := range q.Choices {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO choices (question_id, label, text, rationale) VALUES (?, ?, ?, ?)
			`, questionID, c.Label, c.Text, c.Rationale); err != nil {
				return result, fmt.Errorf("failed to insert choice %s for question %d: %w", c.Label, questionID, err)
			}
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit import: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) SetQuestionActive(ctx context.Context, questionID int, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET is_active = ? WHERE id = ?`, boolToInt(active), questionID)
	if err != nil {
		return fmt.Errorf("failed to update question %d: %w", questionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SeenQuestionIDs(ctx context.Context, userID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT di.question_id
		FROM drill_items di
		JOIN drill_sessions ds ON ds.id = di.session_id
		WHERE ds.user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen questions for %s: %w", userID, err)
	}
	return scanIDs(rows)
}

func (s *SQLiteStore) SampleQuestionIDs(ctx context.Context, filter models.QuestionFilter) ([]int, error) {
	where := []string{"q.is_active = 1"}
	args := []any{}
	if filter.SubjectID != nil {
		where = append(where, "q.subject_id = ?")
		args = append(args, *filter.SubjectID)
	}
	if len(filter.ExcludeIDs) > 0 {
		placeholders := make([]string, len(filter.ExcludeIDs))
		for i, id := range filter.ExcludeIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, "q.id NOT IN ("+strings.Join(placeholders, ", ")+")")
	}
	args = append(args, filter.Limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id
		FROM questions q
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY RANDOM()
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]int, error) {
	defer rows.Close()
	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, session models.DrillSession, questionIDs []int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO drill_sessions (id, user_id, subject, total, started_at, duration_sec, score)
		VALUES (?, ?, ?, ?, ?, 0, 0)
	`, session.ID, session.UserID, session.Subject, session.Total, toMillis(session.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to insert drill session %s: %w", session.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO drill_items (session_id, order_index, question_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare drill item insert: %w", err)
	}
	defer stmt.Close()
	for i, questionID := range questionIDs {
		if _, err := stmt.ExecContext(ctx, session.ID, i+1, questionID); err != nil {
			return fmt.Errorf("failed to insert drill item %d for session %s: %w", i+1, session.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit drill session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID, userID string) (*models.DrillSession, error) {
	var (
		sess       models.DrillSession
		startedAt  int64
		finishedAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, subject, total, started_at, finished_at, duration_sec, score
		FROM drill_sessions WHERE id = ? AND user_id = ?
	`, sessionID, userID).Scan(&sess.ID, &sess.UserID, &sess.Subject, &sess.Total, &startedAt, &finishedAt, &sess.DurationSec, &sess.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drill session %s: %w", sessionID, err)
	}
	sess.StartedAt = fromMillis(startedAt)
	if finishedAt.Valid {
		t := fromMillis(finishedAt.Int64)
		sess.FinishedAt = &t
	}
	return &sess, nil
}

const sqliteItemColumns = `session_id, order_index, question_id, user_answer, is_correct, answered_at, elapsed_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteItem(row rowScanner) (models.DrillItem, error) {
	var (
		item       models.DrillItem
		userAnswer sql.NullInt64
		isCorrect  sql.NullInt64
		answeredAt sql.NullInt64
		elapsedMs  sql.NullInt64
	)
	if err := row.Scan(&item.SessionID, &item.OrderIndex, &item.QuestionID, &userAnswer, &isCorrect, &answeredAt, &elapsedMs); err != nil {
		return item, err
	}
	if userAnswer.Valid {
		v := int(userAnswer.Int64)
		item.UserAnswer = &v
	}
	if isCorrect.Valid {
		v := isCorrect.Int64 == 1
		item.IsCorrect = &v
	}
	if answeredAt.Valid {
		v := fromMillis(answeredAt.Int64)
		item.AnsweredAt = &v
	}
	if elapsedMs.Valid {
		v := int(elapsedMs.Int64)
		item.ElapsedMs = &v
	}
	return item, nil
}

func (s *SQLiteStore) NextUnansweredItem(ctx context.Context, sessionID string) (*models.DrillItem, error) {
	item, err := scanSQLiteItem(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteItemColumns+`
		FROM drill_items
		WHERE session_id = ? AND answered_at IS NULL
		ORDER BY order_index ASC
		LIMIT 1
	`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next item for session %s: %w", sessionID, err)
	}
	return &item, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, sessionID string) ([]models.DrillItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteItemColumns+` FROM drill_items WHERE session_id = ? ORDER BY order_index ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	items := []models.DrillItem{}
	for rows.Next() {
		item, err := scanSQLiteItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item for session %s: %w", sessionID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) ItemTotals(ctx context.Context, sessionID string) (models.ItemTotals, error) {
	var totals models.ItemTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_correct = 1),
		       COALESCE(SUM(elapsed_ms), 0),
		       COUNT(elapsed_ms)
		FROM drill_items WHERE session_id = ?
	`, sessionID).Scan(&totals.Total, &totals.Correct, &totals.ElapsedMsSum, &totals.ElapsedMsRows)
	if err != nil {
		return totals, fmt.Errorf("failed to total items for session %s: %w", sessionID, err)
	}
	return totals, nil
}

func (s *SQLiteStore) FinalizeSession(ctx context.Context, sessionID string, finishedAt time.Time, durationSec, score int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE drill_sessions SET finished_at = ?, duration_sec = ?, score = ?
		WHERE id = ? AND finished_at IS NULL
	`, toMillis(finishedAt), durationSec, score, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to finalize drill session %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) AnswerItem(ctx context.Context, answer models.ItemAnswer) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE drill_items
		SET user_answer = ?, is_correct = ?, elapsed_ms = ?, answered_at = ?
		WHERE session_id = ? AND order_index = ? AND question_id = ? AND answered_at IS NULL
	`, answer.UserAnswer, boolToInt(answer.IsCorrect), answer.ElapsedMs, toMillis(answer.AnsweredAt),
		answer.SessionID, answer.OrderIndex, answer.QuestionID)
	if err != nil {
		return 0, fmt.Errorf("failed to record answer for session %s, item %d: %w", answer.SessionID, answer.OrderIndex, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}

	var score int
	err = tx.QueryRowContext(ctx, `
		UPDATE drill_sessions
		SET score = (SELECT COUNT(*) FROM drill_items WHERE session_id = ?1 AND is_correct = 1)
		WHERE id = ?1
		RETURNING score
	`, answer.SessionID).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute score for session %s: %w", answer.SessionID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit answer for session %s: %w", answer.SessionID, err)
	}
	return score, nil
}

func (s *SQLiteStore) AnswerStats(ctx context.Context, userID string, since time.Time) (models.AnswerStats, error) {
	var stats models.AnswerStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE di.is_correct = 1)
		FROM drill_items di
		JOIN drill_sessions ds ON ds.id = di.session_id
		WHERE ds.user_id = ? AND di.answered_at IS NOT NULL AND di.answered_at >= ?
	`, userID, toMillis(since)).Scan(&stats.Attempted, &stats.Correct)
	if err != nil {
		return stats, fmt.Errorf("failed to count answers for %s: %w", userID, err)
	}
	return stats, nil
}

func (s *SQLiteStore) AnsweredTimes(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT di.answered_at
		FROM drill_items di
		JOIN drill_sessions ds ON ds.id = di.session_id
		WHERE ds.user_id = ? AND di.answered_at IS NOT NULL AND di.answered_at >= ?
		ORDER BY di.answered_at DESC
	`, userID, toMillis(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query answer times for %s: %w", userID, err)
	}
	defer rows.Close()

	times := []time.Time{}
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, fmt.Errorf("failed to scan answer time: %w", err)
		}
		times = append(times, fromMillis(ms))
	}
	return times, rows.Err()
}

func (s *SQLiteStore) SubjectStats(ctx context.Context) ([]models.SubjectStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name,
		       COUNT(q.id) FILTER (WHERE q.is_active = 1),
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

func (s *SQLiteStore) QuestionStats(ctx context.Context, subjectID *int) ([]models.QuestionStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, s.name, q.topic, q.stem, q.is_active,
		       COUNT(di.answered_at),
		       COUNT(*) FILTER (WHERE di.is_correct = 1)
		FROM questions q
		JOIN subjects s ON s.id = q.subject_id
		LEFT JOIN drill_items di ON di.question_id = q.id
		WHERE (?1 IS NULL OR q.subject_id = ?1)
		GROUP BY q.id, s.name
		ORDER BY q.id
	`, nullable(subjectID))
	if err != nil {
		return nil, fmt.Errorf("failed to query question stats: %w", err)
	}
	defer rows.Close()

	stats := []models.QuestionStats{}
	for rows.Next() {
		var (
			qs       models.QuestionStats
			isActive int
		)
		if err := rows.Scan(&qs.QuestionID, &qs.Subject, &qs.Topic, &qs.Stem, &isActive, &qs.TimesAttempted, &qs.CorrectCount); err != nil {
			return nil, fmt.Errorf("failed to scan question stats: %w", err)
		}
		qs.IsActive = isActive == 1
		stats = append(stats, qs)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) AdminTotals(ctx context.Context) (models.AdminTotals, error) {
	var totals models.AdminTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM subjects),
			(SELECT COUNT(*) FROM questions WHERE is_active = 1),
			(SELECT COUNT(*) FROM drill_sessions),
			(SELECT COUNT(*) FROM drill_sessions WHERE finished_at IS NOT NULL)
	`).Scan(&totals.Subjects, &totals.ActiveQuestions, &totals.Sessions, &totals.FinishedSessions)
	if err != nil {
		return totals, fmt.Errorf("failed to compute admin totals: %w", err)
	}
	return totals, nil
}

func (s *SQLiteStore) LogError(ctx context.Context, entry models.ErrorLog) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO error_logs (timestamp, source, subject, file_path, line_number, field_name, error_message, suggested_fix)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, toMillis(time.Now()), entry.Source, entry.Subject, nullable(entry.FilePath), nullable(entry.LineNumber), nullable(entry.FieldName), entry.ErrorMessage, nullable(entry.SuggestedFix))
	if err != nil {
		log.Printf("ERROR: Failed to log error to database: %v. Original error: %s", err, entry.ErrorMessage)
	}
}

func (s *SQLiteStore) LogAdminEvent(ctx context.Context, actor, action, target, notes string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_events (timestamp, action, actor, target, notes) VALUES (?, ?, ?, ?, ?)
	`, toMillis(time.Now()), action, actor, target, notes)
	if err != nil {
		log.Printf("ERROR: Failed to log admin event to database: %v. Event: %s by %s on %s", err, action, actor, target)
	}
}

func (s *SQLiteStore) ListErrorLogs(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, source, COALESCE(subject, ''), file_path, line_number, field_name, error_message, suggested_fix
		FROM error_logs ORDER BY timestamp DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query error logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ErrorLog{}
	for rows.Next() {
		var (
			e          models.ErrorLog
			ts         int64
			filePath   sql.NullString
			lineNumber sql.NullInt64
			fieldName  sql.NullString
			fix        sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.Source, &e.Subject, &filePath, &lineNumber, &fieldName, &e.ErrorMessage, &fix); err != nil {
			return nil, fmt.Errorf("failed to scan error log: %w", err)
		}
		e.Timestamp = fromMillis(ts)
		if filePath.Valid {
			e.FilePath = &filePath.String
		}
		if lineNumber.Valid {
			n := int(lineNumber.Int64)
			e.LineNumber = &n
		}
		if fieldName.Valid {
			e.FieldName = &fieldName.String
		}
		if fix.Valid {
			e.SuggestedFix = &fix.String
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) ListAdminEvents(ctx context.Context, limit int) ([]models.AdminEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, action, actor, COALESCE(target, ''), COALESCE(notes, '')
		FROM admin_events ORDER BY timestamp DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin events: %w", err)
	}
	defer rows.Close()

	events := []models.AdminEvent{}
	for rows.Next() {
		var (
			ae models.AdminEvent
			ts int64
		)
		if err := rows.Scan(&ae.ID, &ts, &ae.Action, &ae.Actor, &ae.Target, &ae.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan admin event: %w", err)
		}
		ae.Timestamp = fromMillis(ts)
		events = append(events, ae)
	}
	return events, rows.Err()
}

package drill

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drills-server/db"
	"drills-server/models"
)

const correctAnswer = 1

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func openTestStore(t *testing.T) *db.SQLiteStore {
	t.Helper()
	s, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newTestService(t *testing.T, opts ...Option) (*Service, *db.SQLiteStore, *testClock) {
	t.Helper()
	store := openTestStore(t)
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now), WithLocation(time.UTC)}, opts...)
	return NewService(store, opts...), store, clock
}

func seedSubject(t *testing.T, store *db.SQLiteStore, name string, n int) int {
	t.Helper()
	questions := make([]models.Question, n)
	for i := range questions {
		questions[i] = models.Question{
			Topic:       "General",
			Stem:        fmt.Sprintf("%s question %d?", name, i+1),
			AnswerIndex: correctAnswer,
			Rationale:   "B is right.",
			SourceRefs:  []string{name + " outline", "p. 12"},
			Choices: []models.Choice{
				{Label: "A", Text: "wrong", Rationale: "not this"},
				{Label: "B", Text: "right", Rationale: "this one"},
				{Label: "C", Text: "also wrong"},
			},
		}
	}
	res, err := store.ImportSubject(context.Background(), name, questions)
	require.NoError(t, err)
	require.Equal(t, n, res.Inserted)
	return res.SubjectID
}

// answerSession answers every item in order, the first `correct` of them correctly.
func answerSession(t *testing.T, svc *Service, sid, userID string, correct int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; ; i++ {
		next, err := svc.NextItem(ctx, sid, userID)
		require.NoError(t, err)
		if next.Done {
			return
		}
		answer := 0
		if i < correct {
			answer = correctAnswer
		}
		_, err = svc.SubmitAnswer(ctx, models.AnswerSubmission{
			SessionID:   sid,
			UserID:      userID,
			QuestionID:  next.Question.ID,
			OrderIndex:  next.Progress.Index,
			AnswerIndex: answer,
			ElapsedMs:   1000 + i*250,
		})
		require.NoError(t, err)
	}
}

func TestCreateSessionWritesItems(t *testing.T) {
	for _, length := range []int{1, 7, 200} {
		t.Run(fmt.Sprintf("length %d", length), func(t *testing.T) {
			svc, store, _ := newTestService(t)
			seedSubject(t, store, "Torts", length)

			sid, err := svc.CreateSession(context.Background(), "u1", "ALL", length)
			require.NoError(t, err)

			sess, err := store.GetSession(context.Background(), sid, "u1")
			require.NoError(t, err)
			assert.Equal(t, length, sess.Total)
			assert.Equal(t, "ALL", sess.Subject)
			assert.Equal(t, 0, sess.Score)
			assert.Nil(t, sess.FinishedAt)

			items, err := store.ListItems(context.Background(), sid)
			require.NoError(t, err)
			require.Len(t, items, length)
			seen := map[int]bool{}
			for i, item := range items {
				assert.Equal(t, i+1, item.OrderIndex)
				assert.Nil(t, item.UserAnswer)
				assert.Nil(t, item.IsCorrect)
				assert.Nil(t, item.AnsweredAt)
				assert.Nil(t, item.ElapsedMs)
				assert.False(t, seen[item.QuestionID], "question sampled twice")
				seen[item.QuestionID] = true
			}
		})
	}
}

func TestCreateSessionValidation(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedSubject(t, store, "Torts", 3)
	ctx := context.Background()

	tests := []struct {
		name     string
		userID   string
		selector string
		length   int
		wantErr  error
	}{
		{"no user", "", "ALL", 1, ErrUnauthorized},
		{"zero length", "u1", "ALL", 0, ErrInvalidLength},
		{"negative length", "u1", "ALL", -4, ErrInvalidLength},
		{"too long", "u1", "ALL", 201, ErrInvalidLength},
		{"word subject", "u1", "torts", 1, ErrInvalidSubject},
		{"zero subject", "u1", "0", 1, ErrInvalidSubject},
		{"negative subject", "u1", "-2", 1, ErrInvalidSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSession(ctx, tt.userID, tt.selector, tt.length)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	_, err := svc.CreateSession(ctx, "u1", "ALL", 500)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCreateSessionInsufficientPool(t *testing.T) {
	svc, store, _ := newTestService(t)
	tortsID := seedSubject(t, store, "Torts", 5)
	seedSubject(t, store, "Contracts", 4)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "u1", fmt.Sprint(tortsID), 6)
	require.ErrorIs(t, err, ErrInsufficientPool)
	var poolErr *InsufficientPoolError
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, 5, poolErr.Available)
	assert.Equal(t, 6, poolErr.Requested)

	_, err = svc.CreateSession(ctx, "u1", "all", 10)
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, 9, poolErr.Available)

	// Nothing was written for the failed attempts.
	seen, err := store.SeenQuestionIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestCreateSessionNeverRepeatsQuestions(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedSubject(t, store, "Torts", 6)
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, "u1", "ALL", 3)
	require.NoError(t, err)
	second, err := svc.CreateSession(ctx, "u1", "ALL", 3)
	require.NoError(t, err)

	firstItems, err := store.ListItems(ctx, first)
	require.NoError(t, err)
	secondItems, err := store.ListItems(ctx, second)
	require.NoError(t, err)
	used := map[int]bool{}
	for _, item := range append(firstItems, secondItems...) {
		assert.False(t, used[item.QuestionID], "question %d served twice", item.QuestionID)
		used[item.QuestionID] = true
	}

	var poolErr *InsufficientPoolError
	_, err = svc.CreateSession(ctx, "u1", "ALL", 1)
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, 0, poolErr.Available)

	// Another user still sees the whole bank.
	_, err = svc.CreateSession(ctx, "u2", "ALL", 6)
	require.NoError(t, err)
}

func TestNextItemPayload(t *testing.T) {
	ctx := context.Background()

	t.Run("answers withheld", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedSubject(t, store, "Torts", 2)
		sid, err := svc.CreateSession(ctx, "u1", "ALL", 2)
		require.NoError(t, err)

		next, err := svc.NextItem(ctx, sid, "u1")
		require.NoError(t, err)
		assert.False(t, next.Done)
		assert.Equal(t, models.Progress{Index: 1, Total: 2}, *next.Progress)
		require.Len(t, next.Question.Options, 3)
		assert.Equal(t, "A", next.Question.Options[0].Label)
		assert.Empty(t, next.Question.Options[0].Rationale)
		assert.Nil(t, next.Question.CorrectIndex)
		assert.Empty(t, next.Question.Explanation)
	})

	t.Run("answers revealed", func(t *testing.T) {
		svc, store, _ := newTestService(t, WithRevealAnswers(true))
		seedSubject(t, store, "Torts", 1)
		sid, err := svc.CreateSession(ctx, "u1", "ALL", 1)
		require.NoError(t, err)

		next, err := svc.NextItem(ctx, sid, "u1")
		require.NoError(t, err)
		require.NotNil(t, next.Question.CorrectIndex)
		assert.Equal(t, correctAnswer, *next.Question.CorrectIndex)
		assert.Equal(t, "B is right.", next.Question.Explanation)
		assert.Equal(t, "Torts outline; p. 12", next.Question.Source)
		assert.Equal(t, "not this", next.Question.Options[0].Rationale)
	})

	t.Run("foreign session", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seedSubject(t, store, "Torts", 1)
		sid, err := svc.CreateSession(ctx, "u1", "ALL", 1)
		require.NoError(t, err)

		_, err = svc.NextItem(ctx, sid, "u2")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = svc.NextItem(ctx, "missing", "u1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSubmitAnswerOnlyOnce(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedSubject(t, store, "Torts", 2)
	ctx := context.Background()

	sid, err := svc.CreateSession(ctx, "u1", "ALL", 2)
	require.NoError(t, err)
	next, err := svc.NextItem(ctx, sid, "u1")
	require.NoError(t, err)

	sub := models.AnswerSubmission{
		SessionID:   sid,
		UserID:      "u1",
		QuestionID:  next.Question.ID,
		OrderIndex:  1,
		AnswerIndex: correctAnswer,
		ElapsedMs:   -300,
	}
	res, err := svc.SubmitAnswer(ctx, sub)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, correctAnswer, res.CorrectIndex)
	assert.Equal(t, "B is right.", res.Explanation)
	assert.Equal(t, 1, res.Score)

	before, err := store.ListItems(ctx, sid)
	require.NoError(t, err)
	require.NotNil(t, before[0].ElapsedMs)
	assert.Equal(t, 0, *before[0].ElapsedMs)

	sub.AnswerIndex = 0
	_, err = svc.SubmitAnswer(ctx, sub)
	assert.ErrorIs(t, err, ErrNotFound)

	after, err := store.ListItems(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	sess, err := store.GetSession(ctx, sid, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Score)
}

func TestSubmitAnswerErrors(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedSubject(t, store, "Torts", 2)
	ctx := context.Background()

	sid, err := svc.CreateSession(ctx, "u1", "ALL", 2)
	require.NoError(t, err)
	next, err := svc.NextItem(ctx, sid, "u1")
	require.NoError(t, err)

	tests := []struct {
		name string
		sub  models.AnswerSubmission
		want error
	}{
		{"no user", models.AnswerSubmission{SessionID: sid, QuestionID: next.Question.ID, OrderIndex: 1}, ErrUnauthorized},
		{"foreign session", models.AnswerSubmission{SessionID: sid, UserID: "u2", QuestionID: next.Question.ID, OrderIndex: 1}, ErrNotFound},
		{"unknown question", models.AnswerSubmission{SessionID: sid, UserID: "u1", QuestionID: 98765, OrderIndex: 1}, ErrNotFound},
		{"mismatched slot", models.AnswerSubmission{SessionID: sid, UserID: "u1", QuestionID: next.Question.ID, OrderIndex: 2}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitAnswer(ctx, tt.sub)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestScoreTracksCorrectItems(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedSubject(t, store, "Torts", 5)
	ctx := context.Background()

	sid, err := svc.CreateSession(ctx, "u1", "ALL", 5)
	require.NoError(t, err)

	pattern := []bool{true, false, true, true, false}
	for i, right := range pattern {
		next, err := svc.NextItem(ctx, sid, "u1")
		require.NoError(t, err)
		answer := 2
		if right {
			answer = correctAnswer
		}
		res, err := svc.SubmitAnswer(ctx, models.AnswerSubmission{
			SessionID: sid, UserID: "u1", QuestionID: next.Question.ID, OrderIndex: i + 1, AnswerIndex: answer,
		})
		require.NoError(t, err)

		items, err := store.ListItems(ctx, sid)
		require.NoError(t, err)
		correct := 0
		for _, item := range items {
			if item.IsCorrect != nil && *item.IsCorrect {
				correct++
			}
		}
		assert.Equal(t, correct, res.Score)
	}
}

func TestFinalizationIsIdempotent(t *testing.T) {
	svc, store, clock := newTestService(t)
	seedSubject(t, store, "Torts", 3)
	ctx := context.Background()

	sid, err := svc.CreateSession(ctx, "u1", "ALL", 3)
	require.NoError(t, err)
	answerSession(t, svc, sid, "u1", 2)

	first, err := store.GetSession(ctx, sid, "u1")
	require.NoError(t, err)
	require.NotNil(t, first.FinishedAt)
	assert.True(t, first.FinishedAt.Equal(clock.now))
	assert.Equal(t, 2, first.Score)
	assert.Equal(t, 4, first.DurationSec) // 1000 + 1250 + 1500 ms

	clock.now = clock.now.Add(time.Hour)
	again, err := svc.NextItem(ctx, sid, "u1")
	require.NoError(t, err)
	assert.True(t, again.Done)
	assert.Equal(t, models.SessionSummary{Total: 3, Correct: 2, TotalTimeSec: 3.75, AvgTimeSec: 1.25}, *again.Summary)

	second, err := store.GetSession(ctx, sid, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEndToEndSession(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedSubject(t, store, "Torts", 4)
	seedSubject(t, store, "Contracts", 6)
	ctx := context.Background()

	sid, err := svc.CreateSession(ctx, "u1", "ALL", 10)
	require.NoError(t, err)
	answerSession(t, svc, sid, "u1", 6)

	done, err := svc.NextItem(ctx, sid, "u1")
	require.NoError(t, err)
	require.True(t, done.Done)
	assert.Equal(t, 10, done.Summary.Total)
	assert.Equal(t, 6, done.Summary.Correct)

	sess, err := store.GetSession(ctx, sid, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, sess.Score)
}

func TestKPIs(t *testing.T) {
	ctx := context.Background()

	t.Run("no activity", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		kpis, err := svc.KPIs(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 0, kpis.MCQsToday)
		assert.Nil(t, kpis.Accuracy7d)
		assert.Equal(t, 0, kpis.StreakDays)
		assert.Equal(t, models.WeeklyGoal{Attempted: 0, Goal: WeeklyGoal}, kpis.WeeklyGoal)
	})

	t.Run("today and yesterday", func(t *testing.T) {
		svc, store, clock := newTestService(t)
		seedSubject(t, store, "Torts", 10)
		today := clock.now

		clock.now = today.AddDate(0, 0, -8)
		old, err := svc.CreateSession(ctx, "u1", "ALL", 1)
		require.NoError(t, err)
		answerSession(t, svc, old, "u1", 1)

		clock.now = today.AddDate(0, 0, -1)
		yesterday, err := svc.CreateSession(ctx, "u1", "ALL", 2)
		require.NoError(t, err)
		answerSession(t, svc, yesterday, "u1", 1)

		clock.now = today
		current, err := svc.CreateSession(ctx, "u1", "ALL", 3)
		require.NoError(t, err)
		answerSession(t, svc, current, "u1", 2)

		kpis, err := svc.KPIs(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 3, kpis.MCQsToday)
		assert.Equal(t, 5, kpis.WeeklyGoal.Attempted)
		require.NotNil(t, kpis.Accuracy7d)
		assert.Equal(t, 60, *kpis.Accuracy7d)
		assert.Equal(t, 2, kpis.StreakDays)
	})

	t.Run("yesterday only", func(t *testing.T) {
		svc, store, clock := newTestService(t)
		seedSubject(t, store, "Torts", 2)
		today := clock.now

		clock.now = today.AddDate(0, 0, -1)
		sid, err := svc.CreateSession(ctx, "u1", "ALL", 2)
		require.NoError(t, err)
		answerSession(t, svc, sid, "u1", 0)

		clock.now = today
		kpis, err := svc.KPIs(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 0, kpis.MCQsToday)
		assert.Equal(t, 0, kpis.StreakDays)
		require.NotNil(t, kpis.Accuracy7d)
		assert.Equal(t, 0, *kpis.Accuracy7d)
	})

	t.Run("no user", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.KPIs(ctx, "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestStreak(t *testing.T) {
	today := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	days := func(offsets ...int) map[string]bool {
		m := map[string]bool{}
		for _, o := range offsets {
			m[today.AddDate(0, 0, -o).Format(dayKeyLayout)] = true
		}
		return m
	}

	tests := []struct {
		name   string
		active map[string]bool
		want   int
	}{
		{"empty", days(), 0},
		{"today only", days(0), 1},
		{"across year boundary", days(0, 1, 2, 3), 4},
		{"gap stops scan", days(0, 1, 3, 4), 2},
		{"missing today", days(1, 2), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streak(tt.active, today))
		})
	}

	all := map[string]bool{}
	for i := 0; i < 500; i++ {
		all[today.AddDate(0, 0, -i).Format(dayKeyLayout)] = true
	}
	assert.Equal(t, maxStreakDays, Streak(all, today))
}

func TestAccuracy(t *testing.T) {
	assert.Nil(t, Accuracy(models.AnswerStats{}))
	assert.Equal(t, 67, *Accuracy(models.AnswerStats{Attempted: 3, Correct: 2}))
	assert.Equal(t, 100, *Accuracy(models.AnswerStats{Attempted: 4, Correct: 4}))
}

func TestParseSubjectSelector(t *testing.T) {
	tests := []struct {
		raw       string
		wantID    *int
		canonical string
		wantErr   bool
	}{
		{"ALL", nil, "ALL", false},
		{"all", nil, "ALL", false},
		{"", nil, "ALL", false},
		{"12", intPtr(12), "12", false},
		{" 007 ", intPtr(7), "7", false},
		{"0", nil, "", true},
		{"Torts", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, canonical, err := ParseSubjectSelector(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSubject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.canonical, canonical)
		})
	}
}

func TestSubjectsPrependsAll(t *testing.T) {
	svc, store, _ := newTestService(t)
	tortsID := seedSubject(t, store, "Torts", 1)
	contractsID := seedSubject(t, store, "Contracts", 1)

	options, err := svc.Subjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.SubjectOption{
		{ID: "ALL", Name: "ALL Subjects"},
		{ID: fmt.Sprint(contractsID), Name: "Contracts"},
		{ID: fmt.Sprint(tortsID), Name: "Torts"},
	}, options)
}

func intPtr(i int) *int { return &i }

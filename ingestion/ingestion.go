package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"drills-server/db"
	"drills-server/models"
	"drills-server/utils"
)

const (
	sourceName     = "ingestion"
	subjectsDir    = "subjects"
	subjectYAML    = "subject.yaml"
	questionsCSV   = "questions.csv"
	maxChoices     = 5
	csvColumnCount = 5 + 2*maxChoices
)

var csvHeaders = []string{
	"topic", "stem", "answer", "rationale", "source_refs",
	"choice_a", "rationale_a",
	"choice_b", "rationale_b",
	"choice_c", "rationale_c",
	"choice_d", "rationale_d",
	"choice_e", "rationale_e",
}

// Store is what ingestion writes to.
type Store interface {
	ImportSubject(ctx context.Context, subjectName string, questions []models.Question) (db.ImportResult, error)
	LogError(ctx context.Context, entry models.ErrorLog)
	LogAdminEvent(ctx context.Context, actor, action, target, notes string)
}

var validate = validator.New()

type rowError struct {
	line    int
	field   string
	message string
	fix     string
}

// ProcessSubjectData reads subject.yaml and questions.csv from <bankPath>/subjects/<slug>,
// validates every row and imports the subject in one transaction. Any invalid row aborts the
// import; each problem is recorded in error_logs.
func ProcessSubjectData(ctx context.Context, store Store, slug, bankPath string) (db.ImportResult, error) {
	var result db.ImportResult
	subjectPath := filepath.Join(bankPath, subjectsDir, slug)
	yamlPath := filepath.Join(subjectPath, subjectYAML)
	csvPath := filepath.Join(subjectPath, questionsCSV)

	logErr := func(path string, e rowError) {
		entry := models.ErrorLog{
			Source:       sourceName,
			Subject:      slug,
			FilePath:     utils.StringPtr(path),
			LineNumber:   utils.IntPtr(e.line),
			FieldName:    utils.StringPtr(e.field),
			ErrorMessage: e.message,
			SuggestedFix: utils.StringPtr(e.fix),
		}
		store.LogError(ctx, entry)
	}

	// 1. Read subject.yaml
	yamlData, err := os.ReadFile(yamlPath)
	if err != nil {
		logErr(yamlPath, rowError{message: "Failed to read subject.yaml", fix: fmt.Sprintf("Ensure file exists and is readable: %v", err)})
		return result, fmt.Errorf("failed to read subject.yaml for %s: %w", slug, err)
	}
	var meta models.SubjectYAML
	if err := yaml.Unmarshal(yamlData, &meta); err != nil {
		logErr(yamlPath, rowError{message: "Failed to parse subject.yaml", fix: fmt.Sprintf("Ensure YAML format is correct: %v", err)})
		return result, fmt.Errorf("failed to unmarshal subject.yaml for %s: %w", slug, err)
	}
	if err := validate.Struct(meta); err != nil {
		logErr(yamlPath, rowError{message: "Incomplete subject.yaml", fix: "Both name and slug are required."})
		return result, fmt.Errorf("invalid subject.yaml for %s: %w", slug, err)
	}
	if meta.Slug != slug {
		logErr(yamlPath, rowError{field: "slug", message: "Mismatch between subject.yaml and directory name", fix: fmt.Sprintf("slug in YAML (%s) must match directory name (%s)", meta.Slug, slug)})
		return result, fmt.Errorf("slug mismatch in subject.yaml for %s", slug)
	}

	// 2. Read questions.csv
	csvFile, err := os.Open(csvPath)
	if err != nil {
		logErr(csvPath, rowError{message: "Failed to open questions.csv", fix: fmt.Sprintf("Ensure file exists and is readable: %v", err)})
		return result, fmt.Errorf("failed to open questions.csv for %s: %w", slug, err)
	}
	defer csvFile.Close()

	reader := csv.NewReader(csvFile)
	reader.FieldsPerRecord = -1 // column count is checked per row below
	rows, err := reader.ReadAll()
	if err != nil {
		logErr(csvPath, rowError{message: "Failed to read questions.csv", fix: fmt.Sprintf("Ensure CSV format is correct: %v", err)})
		return result, fmt.Errorf("failed to read all CSV rows for %s: %w", slug, err)
	}
	if len(rows) < 2 {
		logErr(csvPath, rowError{message: "Insufficient rows in questions.csv", fix: "A header row and at least one question row are required."})
		return result, fmt.Errorf("insufficient rows in questions.csv for %s", slug)
	}
	if e, ok := checkHeader(rows[0]); !ok {
		logErr(csvPath, e)
		return result, fmt.Errorf("invalid header in questions.csv for %s", slug)
	}

	// 3. Validate question rows
	var (
		questions []models.Question
		problems  []rowError
		stems     = make(map[string]int) // stem hash -> first line
	)
	for i, row := range rows[1:] {
		lineNum := i + 2
		q, errs := parseRow(row, lineNum)
		if len(errs) == 0 {
			hash := utils.StemHash(q.Stem)
			if first, dup := stems[hash]; dup {
				errs = append(errs, rowError{line: lineNum, field: "stem", message: "Duplicate question stem", fix: fmt.Sprintf("Stem repeats line %d; question stems must be unique.", first)})
			} else {
				stems[hash] = lineNum
			}
		}
		if len(errs) > 0 {
			problems = append(problems, errs...)
			continue
		}
		questions = append(questions, q)
	}
	if len(problems) > 0 {
		for _, p := range problems {
			logErr(csvPath, p)
		}
		return result, fmt.Errorf("%d validation errors in questions.csv for %s", len(problems), slug)
	}

	// 4. Persist
	result, err = store.ImportSubject(ctx, meta.Name, questions)
	if err != nil {
		logErr("", rowError{message: "Failed to import subject", fix: fmt.Sprintf("Database error: %v", err)})
		return result, fmt.Errorf("failed to import subject %s: %w", slug, err)
	}
	log.Printf("Ingested subject %s (%s): %d new questions, %d already present", slug, meta.Name, result.Inserted, result.Skipped)
	return result, nil
}

func checkHeader(header []string) (rowError, bool) {
	if len(header) != csvColumnCount {
		return rowError{line: 1, message: "Incorrect column count", fix: fmt.Sprintf("Expected %d columns, got %d", csvColumnCount, len(header))}, false
	}
	for i, want := range csvHeaders {
		got := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
		if got != want {
			return rowError{line: 1, field: want, message: "Unexpected header column", fix: fmt.Sprintf("Column %d must be %q, got %q", i+1, want, header[i])}, false
		}
	}
	return rowError{}, true
}

func parseRow(row []string, lineNum int) (models.Question, []rowError) {
	if len(row) != csvColumnCount {
		return models.Question{}, []rowError{{line: lineNum, message: "Incorrect column count", fix: fmt.Sprintf("Expected %d columns, got %d", csvColumnCount, len(row))}}
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	qr := models.QuestionRow{
		Topic:      row[0],
		Stem:       row[1],
		Answer:     strings.ToUpper(row[2]),
		Rationale:  row[3],
		SourceRefs: row[4],
	}
	gap := false
	for k := 0; k < maxChoices; k++ {
		text, rationale := row[5+2*k], row[6+2*k]
		if text == "" {
			if rationale != "" {
				gap = true
			}
			continue
		}
		if len(qr.Choices) != k {
			gap = true
		}
		qr.Choices = append(qr.Choices, models.ChoiceRow{Label: utils.IndexLabel(k), Text: text, Rationale: rationale})
	}

	var errs []rowError
	if err := validate.Struct(qr); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.Question{}, []rowError{{line: lineNum, message: "Validation failed", fix: err.Error()}}
		}
		for _, fe := range verrs {
			errs = append(errs, rowError{line: lineNum, field: fe.Field(), message: fmt.Sprintf("Invalid %s", strings.ToLower(fe.Field())), fix: suggestFix(fe)})
		}
	}
	if gap {
		errs = append(errs, rowError{line: lineNum, field: "choices", message: "Choices are not contiguous", fix: "Fill choices from choice_a onward without skipping columns."})
	}
	answerIndex := utils.LabelIndex(qr.Answer)
	if len(errs) == 0 && answerIndex >= len(qr.Choices) {
		errs = append(errs, rowError{line: lineNum, field: "answer", message: "Answer refers to a missing choice", fix: fmt.Sprintf("Answer %s needs a non-empty choice_%s.", qr.Answer, strings.ToLower(qr.Answer))})
	}
	if len(errs) > 0 {
		return models.Question{}, errs
	}

	q := models.Question{
		Topic:       qr.Topic,
		Stem:        qr.Stem,
		AnswerIndex: answerIndex,
		Rationale:   qr.Rationale,
		SourceRefs:  utils.ParseSourceRefs(qr.SourceRefs),
	}
	for _, c := range qr.Choices {
		q.Choices = append(q.Choices, models.Choice{Label: c.Label, Text: c.Text, Rationale: c.Rationale})
	}
	return q, nil
}

func suggestFix(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "oneof", "len":
		return "Answer must be a single letter from A to E."
	case "min":
		return "At least two choices are required."
	case "max":
		return fmt.Sprintf("At most %d choices are allowed.", maxChoices)
	default:
		return fmt.Sprintf("%s failed the %q check.", fe.Field(), fe.Tag())
	}
}

// SubjectSlugs lists the subject directories present in the bank.
func SubjectSlugs(bankPath string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(bankPath, subjectsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list bank subjects: %w", err)
	}
	var slugs []string
	for _, entry := range entries {
		if entry.IsDir() {
			slugs = append(slugs, entry.Name())
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

// ProcessAll ingests the given slugs, or every subject in the bank when none are given, and
// records one admin event per subject. Failures do not stop the remaining subjects.
func ProcessAll(ctx context.Context, store Store, bankPath, actor string, slugs ...string) error {
	if len(slugs) == 0 {
		var err error
		if slugs, err = SubjectSlugs(bankPath); err != nil {
			return err
		}
	}

	var errs []error
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := ProcessSubjectData(ctx, store, slug, bankPath)
		if err != nil {
			log.Printf("Error during ingestion for %s: %v", slug, err)
			store.LogAdminEvent(ctx, actor, "ingestion_failed", slug, fmt.Sprintf("Error: %v", err))
			errs = append(errs, err)
			continue
		}
		store.LogAdminEvent(ctx, actor, "ingestion_success", slug, fmt.Sprintf("%d new questions, %d skipped", res.Inserted, res.Skipped))
	}
	return errors.Join(errs...)
}

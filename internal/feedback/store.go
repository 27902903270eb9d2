// Package feedback persists user corrections in SQLite and turns them into
// training data for the ML-assist classifier.
package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/entity"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp            TEXT NOT NULL,
	document_text        TEXT NOT NULL,
	detected_institution TEXT,
	correct_institution  TEXT,
	detection_confidence REAL,
	extracted_data       TEXT,
	correct_data         TEXT,
	feedback_type        TEXT NOT NULL,
	user_comment         TEXT,
	processed            INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_feedback_processed ON feedback(processed);
CREATE INDEX IF NOT EXISTS idx_feedback_correct_institution ON feedback(correct_institution);
CREATE INDEX IF NOT EXISTS idx_feedback_timestamp ON feedback(timestamp);
`

// Store is the SQLite-backed feedback repository. Safe for concurrent use;
// database/sql serializes access to the single connection pool.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the feedback database at path and ensures the
// schema exists.
func NewStore(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewAppError("FEEDBACK_DB_OPEN", "opening feedback database", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, common.NewAppError("FEEDBACK_DB_SCHEMA", "creating feedback schema", err)
	}
	logger.Info("feedback store ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Submit validates and inserts one feedback record, returning its row id.
func (s *Store) Submit(ctx context.Context, record *entity.FeedbackRecord) (int64, error) {
	if strings.TrimSpace(record.DocumentText) == "" {
		return 0, common.NewAppError("FEEDBACK_EMPTY_TEXT", "document_text is required", common.ErrInvalidInput)
	}
	if !constants.IsValidFeedbackType(string(record.FeedbackType)) {
		return 0, common.NewAppError("FEEDBACK_BAD_TYPE",
			"unknown feedback type "+string(record.FeedbackType), common.ErrInvalidInput)
	}

	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	extracted, err := marshalMap(record.ExtractedData)
	if err != nil {
		return 0, err
	}
	correct, err := marshalMap(record.CorrectData)
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (
			timestamp, document_text, detected_institution, correct_institution,
			detection_confidence, extracted_data, correct_data,
			feedback_type, user_comment, processed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		ts.Format(time.RFC3339), record.DocumentText,
		record.DetectedInstitution, record.CorrectInstitution,
		record.DetectionConfidence, extracted, correct,
		string(record.FeedbackType), record.UserComment,
	)
	if err != nil {
		return 0, common.NewAppError("FEEDBACK_INSERT", "inserting feedback", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, common.WrapError(err, "reading feedback insert id")
	}
	s.logger.Info("feedback stored", "id", id, "type", record.FeedbackType)
	return id, nil
}

// Unprocessed returns records not yet consumed by retraining, oldest first.
// limit <= 0 means no limit.
func (s *Store) Unprocessed(ctx context.Context, limit int) ([]entity.FeedbackRecord, error) {
	query := selectColumns + ` WHERE processed = 0 ORDER BY timestamp ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryRecords(ctx, query, args...)
}

// MarkProcessed flips the processed flag on the given records.
func (s *Store) MarkProcessed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE feedback SET processed = 1 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return common.NewAppError("FEEDBACK_MARK", "marking feedback processed", err)
	}
	return nil
}

// Stats summarizes the feedback table.
type Stats struct {
	Total         int            `json:"total"`
	Processed     int            `json:"processed"`
	Unprocessed   int            `json:"unprocessed"`
	ByType        map[string]int `json:"by_type"`
	ByInstitution map[string]int `json:"by_institution"`
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByType:        make(map[string]int),
		ByInstitution: make(map[string]int),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(processed), 0) FROM feedback`).
		Scan(&stats.Total, &stats.Processed)
	if err != nil {
		return nil, common.NewAppError("FEEDBACK_STATS", "counting feedback", err)
	}
	stats.Unprocessed = stats.Total - stats.Processed

	if err := s.countInto(ctx, stats.ByType,
		`SELECT feedback_type, COUNT(*) FROM feedback GROUP BY feedback_type`); err != nil {
		return nil, err
	}
	if err := s.countInto(ctx, stats.ByInstitution, `
		SELECT correct_institution, COUNT(*) FROM feedback
		WHERE correct_institution IS NOT NULL GROUP BY correct_institution`); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) countInto(ctx context.Context, dest map[string]int, query string) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return common.NewAppError("FEEDBACK_STATS", "grouping feedback", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return common.WrapError(err, "scanning feedback stats")
		}
		dest[key] = count
	}
	return rows.Err()
}

// ProblematicCases returns corrections where detection was both wrong and
// overconfident enough to matter: detected institution differs from the
// correct one and confidence sat under maxConfidence.
func (s *Store) ProblematicCases(ctx context.Context, maxConfidence float64) ([]entity.FeedbackRecord, error) {
	return s.queryRecords(ctx, selectColumns+`
		WHERE detection_confidence < ?
		  AND detected_institution IS NOT NULL
		  AND correct_institution IS NOT NULL
		  AND detected_institution != correct_institution
		ORDER BY detection_confidence ASC`, maxConfidence)
}

// TrainingSamples converts every record carrying a correction label into the
// trainer's input shape.
func (s *Store) TrainingSamples(ctx context.Context) ([]entity.TrainingSample, error) {
	records, err := s.queryRecords(ctx, selectColumns+`
		WHERE correct_institution IS NOT NULL ORDER BY timestamp ASC`)
	if err != nil {
		return nil, err
	}
	samples := make([]entity.TrainingSample, 0, len(records))
	for _, r := range records {
		samples = append(samples, entity.TrainingSample{
			Text:                r.DocumentText,
			CorrectInstitution:  *r.CorrectInstitution,
			DetectedInstitution: r.DetectedInstitution,
			Confidence:          r.DetectionConfidence,
		})
	}
	return samples, nil
}

const selectColumns = `
	SELECT id, timestamp, document_text, detected_institution,
	       correct_institution, detection_confidence, extracted_data,
	       correct_data, feedback_type, user_comment, processed
	FROM feedback`

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]entity.FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewAppError("FEEDBACK_QUERY", "querying feedback", err)
	}
	defer rows.Close()

	var records []entity.FeedbackRecord
	for rows.Next() {
		var r entity.FeedbackRecord
		var ts, feedbackType string
		var extracted, correct sql.NullString
		var processed int
		if err := rows.Scan(&r.ID, &ts, &r.DocumentText, &r.DetectedInstitution,
			&r.CorrectInstitution, &r.DetectionConfidence, &extracted,
			&correct, &feedbackType, &r.UserComment, &processed); err != nil {
			return nil, common.WrapError(err, "scanning feedback row")
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			r.Timestamp = parsed
		}
		r.FeedbackType = constants.FeedbackType(feedbackType)
		r.Processed = processed != 0
		if r.ExtractedData, err = unmarshalMap(extracted); err != nil {
			return nil, err
		}
		if r.CorrectData, err = unmarshalMap(correct); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func marshalMap(m map[string]any) (*string, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, common.WrapError(err, "encoding feedback payload")
	}
	s := string(data)
	return &s, nil
}

func unmarshalMap(ns sql.NullString) (map[string]any, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, common.WrapError(err, "decoding feedback payload")
	}
	return m, nil
}

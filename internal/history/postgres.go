package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"medtriage/internal/triage"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, rec triage.HistoryRecord) error {
	symptomsJSON, err := json.Marshal(rec.Symptoms)
	if err != nil {
		return err
	}
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO triage_history (id, user_id, name, age, gender, symptoms, duration, result, chat_transcript, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.Name, rec.Age, string(rec.Gender), symptomsJSON, rec.Duration, resultJSON, rec.ChatTranscript, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, user_id, name, age, gender, symptoms, duration, result, chat_transcript, created_at FROM triage_history`

// List returns the user's records in insertion order.
func (s *PostgresStore) List(ctx context.Context, userID string) ([]triage.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := []triage.HistoryRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (triage.HistoryRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return triage.HistoryRecord{}, triage.ErrRecordNotFound
	}
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return triage.HistoryRecord{}, triage.ErrRecordNotFound
	}
	return rec, err
}

func (s *PostgresStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM triage_history WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveFeedback(ctx context.Context, f triage.Feedback) error {
	query := `INSERT INTO feedback (id, user_id, session_id, rating, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, query, f.ID, f.UserID, f.SessionID, f.Rating, f.CreatedAt); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (triage.HistoryRecord, error) {
	var rec triage.HistoryRecord
	var gender string
	var symptomsJSON, resultJSON []byte

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Name,
		&rec.Age,
		&gender,
		&symptomsJSON,
		&rec.Duration,
		&resultJSON,
		&rec.ChatTranscript,
		&rec.CreatedAt,
	)
	if err != nil {
		return rec, err
	}
	rec.Gender = triage.Gender(gender)

	if len(symptomsJSON) > 0 {
		if err := json.Unmarshal(symptomsJSON, &rec.Symptoms); err != nil {
			return rec, fmt.Errorf("failed to unmarshal symptoms: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
			return rec, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	return rec, nil
}

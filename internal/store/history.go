package store

import (
	"database/sql"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/minwoo/labpilot/internal/plan"
)

// HistoryStore persists handled requests and their per-step outcomes.
type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS requests (
			id TEXT PRIMARY KEY,
			query TEXT,
			status TEXT,
			answer TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS request_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT,
			step_index INTEGER,
			service_key TEXT,
			operation TEXT,
			outcome TEXT,
			error_kind TEXT,
			detail TEXT,
			elapsed_ms INTEGER
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &HistoryStore{DB: db}, nil
}

// RecordRequest stores one handled request with its step outcomes.
func (h *HistoryStore) RecordRequest(id, query, status, answer string, outcomes []plan.StepOutcome) error {
	if _, err := h.DB.Exec(
		`INSERT INTO requests (id, query, status, answer) VALUES (?, ?, ?, ?)`,
		id, query, status, answer,
	); err != nil {
		return err
	}

	for _, o := range outcomes {
		detail := o.Result.Message
		if o.Result.Outcome == plan.OutcomeSkipped {
			detail = o.Result.Reason
		}
		if _, err := h.DB.Exec(
			`INSERT INTO request_steps (request_id, step_index, service_key, operation, outcome, error_kind, detail, elapsed_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, o.Step.Index, o.Step.ServiceKey, o.Step.Operation,
			string(o.Result.Outcome), string(o.Result.ErrKind), detail,
			o.Result.Elapsed.Milliseconds(),
		); err != nil {
			return err
		}
	}
	return nil
}

// RequestRecord is one row of the request history.
type RequestRecord struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Status    string    `json:"status"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentRequests returns the latest handled requests, newest first.
func (h *HistoryStore) RecentRequests(limit int) ([]RequestRecord, error) {
	rows, err := h.DB.Query(
		`SELECT id, query, status, answer, created_at FROM requests ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RequestRecord
	for rows.Next() {
		var r RequestRecord
		if err := rows.Scan(&r.ID, &r.Query, &r.Status, &r.Answer, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// StepRecord is one recorded step outcome for a request.
type StepRecord struct {
	StepIndex  int    `json:"step_index"`
	ServiceKey string `json:"service_key"`
	Operation  string `json:"operation"`
	Outcome    string `json:"outcome"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Detail     string `json:"detail,omitempty"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

// RequestSteps returns the step outcomes recorded for one request.
func (h *HistoryStore) RequestSteps(requestID string) ([]StepRecord, error) {
	rows, err := h.DB.Query(
		`SELECT step_index, service_key, operation, outcome, error_kind, detail, elapsed_ms
		 FROM request_steps WHERE request_id = ? ORDER BY step_index`,
		requestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []StepRecord
	for rows.Next() {
		var r StepRecord
		if err := rows.Scan(&r.StepIndex, &r.ServiceKey, &r.Operation, &r.Outcome, &r.ErrorKind, &r.Detail, &r.ElapsedMS); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}

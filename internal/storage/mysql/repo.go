package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"alem_concierge/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) InsertLead(ctx context.Context, l domain.Lead) error {
	ids := l.ServiceIDs
	if ids == nil {
		ids = []int{}
	}
	svc, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	status := l.Status
	if status == "" {
		status = domain.LeadPending
	}
	_, err = r.db.ExecContext(ctx, insertLeadSQL,
		l.ID,
		l.SessionID,
		l.Name,
		l.Email,
		l.Phone,
		l.Arrival,
		l.Departure,
		l.Guests,
		string(svc),
		valStr(l.Notes),
		l.Budget,
		string(status),
		l.CreatedAt.UTC(),
	)
	return err
}

func (r *Repo) MarkDelivered(ctx context.Context, id string) error {
	return r.expectOne(r.db.ExecContext(ctx, markDeliveredSQL, id))
}

func (r *Repo) MarkAttempt(ctx context.Context, id string, status domain.LeadStatus, reason string) error {
	return r.expectOne(r.db.ExecContext(ctx, markAttemptSQL, string(status), valStr(reason), id))
}

func (r *Repo) expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) GetLead(ctx context.Context, id string) (domain.Lead, error) {
	l, err := scanLead(r.db.QueryRowContext(ctx, getLeadSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Lead{}, domain.ErrNotFound
	}
	return l, err
}

func (r *Repo) ListPending(ctx context.Context, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, listPendingSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanLead(s scanner) (domain.Lead, error) {
	var l domain.Lead
	var svcJSON []byte
	var notes, lastErr sql.NullString
	var status string
	if err := s.Scan(
		&l.ID, &l.SessionID,
		&l.Name, &l.Email, &l.Phone,
		&l.Arrival, &l.Departure, &l.Guests,
		&svcJSON, &notes, &l.Budget,
		&status, &l.Attempts, &lastErr,
		&l.CreatedAt,
	); err != nil {
		return domain.Lead{}, err
	}
	if len(svcJSON) > 0 {
		if err := json.Unmarshal(svcJSON, &l.ServiceIDs); err != nil {
			return domain.Lead{}, fmt.Errorf("lead %s service_ids: %w", l.ID, err)
		}
	}
	l.Status = domain.LeadStatus(status)
	l.Notes = notes.String
	l.LastError = lastErr.String
	l.CreatedAt = l.CreatedAt.UTC()
	return l, nil
}

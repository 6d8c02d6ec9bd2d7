package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a meeting does not exist.
var ErrNotFound = errors.New("not found")

// CreateMeeting inserts a new meeting. passcodeHash may be empty for
// meetings joinable without a passcode.
func (p *Postgres) CreateMeeting(ctx context.Context, name, passcodeHash string) (Meeting, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Meeting{}, errors.New("missing meeting name")
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO meetings (name, passcode_hash)
		VALUES ($1, $2)
		RETURNING id, name, passcode_hash, created_at
	`, name, passcodeHash)

	var m Meeting
	if err := row.Scan(&m.ID, &m.Name, &m.PasscodeHash, &m.CreatedAt); err != nil {
		return Meeting{}, err
	}
	p.log.Info("meeting.created", "id", m.ID, "name", m.Name)
	return m, nil
}

// GetMeeting fetches a meeting by ID.
func (p *Postgres) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, passcode_hash, created_at
		FROM meetings
		WHERE id = $1
	`, id)

	var m Meeting
	if err := row.Scan(&m.ID, &m.Name, &m.PasscodeHash, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Meeting{}, ErrNotFound
		}
		return Meeting{}, err
	}
	return m, nil
}

// AddParticipant records an admission. The participants table is an
// attendance log; liveness and roll uniqueness come from presence.
func (p *Postgres) AddParticipant(ctx context.Context, meetingID, name, roll string) (Participant, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO participants (meeting_id, name, roll)
		VALUES ($1, $2, $3)
		RETURNING id, meeting_id, name, roll, joined_at
	`, meetingID, name, roll)

	var pt Participant
	if err := row.Scan(&pt.ID, &pt.MeetingID, &pt.Name, &pt.Roll, &pt.JoinedAt); err != nil {
		return Participant{}, err
	}
	return pt, nil
}

// ListParticipants returns a meeting's attendance log, oldest first.
func (p *Postgres) ListParticipants(ctx context.Context, meetingID string) ([]Participant, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, meeting_id, name, roll, joined_at
		FROM participants
		WHERE meeting_id = $1
		ORDER BY joined_at
	`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var pt Participant
		if err := rows.Scan(&pt.ID, &pt.MeetingID, &pt.Name, &pt.Roll, &pt.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

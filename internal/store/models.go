package store

import "time"

type Meeting struct {
	ID           string
	Name         string
	PasscodeHash string // empty when the meeting is open
	CreatedAt    time.Time
}

type Participant struct {
	ID        string
	MeetingID string
	Name      string
	Roll      string
	JoinedAt  time.Time
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Ticket is one admission to one room, issued after the meeting and roll
// checks have passed. The relay trusts a valid ticket completely.
type Ticket struct {
	Room string
	Name string
	Roll string
}

// Tickets signs and verifies short-lived room admission tokens.
type Tickets struct {
	secret []byte
	ttl    time.Duration
}

// New creates a ticket signer/verifier.
func New(secret string, ttl time.Duration) *Tickets {
	return &Tickets{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token for one admitted participant.
func (t *Tickets) Sign(tk Ticket) (string, error) {
	if tk.Room == "" || tk.Name == "" {
		return "", errors.New("incomplete ticket")
	}
	claims := jwt.MapClaims{
		"room": tk.Room,
		"name": tk.Name,
		"roll": tk.Roll,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(t.ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.secret)
}

// Verify checks a token and returns the admission it grants.
func (t *Tickets) Verify(tok string) (Ticket, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Ticket{}, err
	}
	tk := Ticket{}
	tk.Room, _ = claims["room"].(string)
	tk.Name, _ = claims["name"].(string)
	tk.Roll, _ = claims["roll"].(string)
	if tk.Room == "" || tk.Name == "" {
		return Ticket{}, errors.New("incomplete ticket")
	}
	return tk, nil
}

// Package qrcode encodes a ticket's identity into the string printed on its
// QR code, and decodes scanned strings back into that identity.
//
// Wire format (ASCII, hyphen-delimited, exactly four fields):
//
//	EVENTKEY-<eventID>-<userID>-<ticketToken>
//
// ticketToken is a fresh 128-bit random value written as 32 lowercase hex
// characters. The code is a bearer token: its only security property is that
// the token cannot be guessed. Single use is enforced by the ticket ledger.
package qrcode

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Tag is the constant first field of every code.
const Tag = "EVENTKEY"

const delimiter = "-"

// ErrDelimiterInID is returned by Encode when an identifier contains the
// field delimiter, which would make the code impossible to decode.
var ErrDelimiterInID = errors.New("qrcode: identifier contains delimiter")

// Payload is the decoded content of a code.
type Payload struct {
	EventID  string
	UserID   string
	TicketID string
}

// Encode returns a new code for the given event and user. Every call yields a
// different code.
func Encode(eventID, userID string) (string, error) {
	if eventID == "" || userID == "" {
		return "", errors.New("qrcode: empty identifier")
	}
	if strings.Contains(eventID, delimiter) || strings.Contains(userID, delimiter) {
		return "", ErrDelimiterInID
	}
	return strings.Join([]string{Tag, eventID, userID, newToken()}, delimiter), nil
}

// Decode parses a scanned code. It returns false for anything that is not a
// well-formed four-field code; it never panics on arbitrary input.
func Decode(code string) (Payload, bool) {
	parts := strings.Split(code, delimiter)
	if len(parts) != 4 || parts[0] != Tag {
		return Payload{}, false
	}
	for _, p := range parts[1:] {
		if p == "" {
			return Payload{}, false
		}
	}
	return Payload{EventID: parts[1], UserID: parts[2], TicketID: parts[3]}, true
}

// newToken returns 128 bits from a random UUID as hex, so the token itself
// carries no delimiter.
func newToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

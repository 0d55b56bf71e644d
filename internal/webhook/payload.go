package webhook

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"inboxd/internal/domain"
)

// msisdnPattern is the E.164-like rule for sender and recipient: a mandatory
// "+" followed by 1-15 digits.
var msisdnPattern = regexp.MustCompile(`^\+\d{1,15}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		return msisdnPattern.MatchString(fl.Field().String())
	})
	return v
}

// Payload is the wire envelope of POST /webhook.
type Payload struct {
	MessageID string  `json:"message_id" validate:"required"`
	From      string  `json:"from" validate:"required,msisdn"`
	To        string  `json:"to" validate:"required,msisdn"`
	TS        string  `json:"ts" validate:"required"`
	Text      *string `json:"text" validate:"omitempty,max=4096"`
}

// ParsePayload parses and validates a verified webhook body. Structural and
// field-level failures are deliberately indistinguishable to the caller; all
// of them classify as one validation outcome.
func ParsePayload(body []byte) (domain.Message, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Message{}, fmt.Errorf("malformed body: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return domain.Message{}, fmt.Errorf("invalid payload: %w", err)
	}
	ts, err := ParseTimestamp(p.TS)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		MessageID: p.MessageID,
		From:      p.From,
		To:        p.To,
		TS:        ts,
		Text:      p.Text,
	}, nil
}

// timestampLayouts are tried in order. A trailing "Z" is equivalent to
// +00:00; offset-less date-times are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 date-time as used on the wire (webhook
// "ts" field and the /messages "since" query parameter).
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

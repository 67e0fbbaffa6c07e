package types

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the lifecycle state of a whitelist request
type Status int

// Known request statuses. StatusUnknown holds any value the backend sends
// that is not part of the lifecycle.
const (
	StatusUnknown Status = iota
	StatusPending
	StatusApproved
	StatusDenied
	StatusDeactivated
	StatusBanned
)

var statusNames = map[Status]string{
	StatusPending:     "Pending",
	StatusApproved:    "Approved",
	StatusDenied:      "Denied",
	StatusDeactivated: "Deactivated",
	StatusBanned:      "Banned",
}

// Statuses lists every known status in lifecycle order
var Statuses = []Status{StatusPending, StatusApproved, StatusDenied, StatusDeactivated, StatusBanned}

// ParseStatus maps a wire value to a Status. ok is false for unrecognized values.
func ParseStatus(s string) (Status, bool) {
	for status, name := range statusNames {
		if strings.EqualFold(s, name) {
			return status, true
		}
	}
	return StatusUnknown, false
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether processing of the request has concluded
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// MarshalJSON encodes the status as its wire string
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a wire string. Unrecognized values, including ones
// that are not strings at all, become StatusUnknown.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = StatusUnknown
		return nil
	}
	*s, _ = ParseStatus(raw)
	return nil
}

// MarshalBSONValue stores the status as its wire string
func (s Status) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(s.String())
}

// UnmarshalBSONValue reads the wire string stored by the backend
func (s *Status) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		*s = StatusUnknown
		return nil
	}
	*s, _ = ParseStatus(raw)
	return nil
}

// WhitelistRequest represent a whitelist request issued by the requester player
type WhitelistRequest struct {
	ID                 primitive.ObjectID     `bson:"_id" json:"_id"`
	Username           string                 `bson:"username" json:"username"`
	Email              string                 `bson:"email" json:"email"`
	Age                int64                  `bson:"age" json:"age"`
	Gender             string                 `bson:"gender" json:"gender"`
	Status             Status                 `bson:"status" json:"status"`
	Timestamp          time.Time              `bson:"timestamp" json:"timestamp"`
	ProcessedTimestamp time.Time              `bson:"processedTimestamp" json:"processedTimestamp"`
	Admin              string                 `bson:"admin" json:"admin,omitempty"`
	Note               string                 `bson:"note" json:"note,omitempty"`
	Info               map[string]interface{} `bson:"info" json:"info,omitempty"`
	Assignees          []string               `bson:"assignees" json:"assignees,omitempty"`
}

// UnmarshalJSON decodes a request leniently: timestamps that are missing or
// unparseable decode to the zero time instead of failing the whole record
func (r *WhitelistRequest) UnmarshalJSON(b []byte) error {
	type alias WhitelistRequest
	aux := struct {
		*alias
		Timestamp          json.RawMessage `json:"timestamp"`
		ProcessedTimestamp json.RawMessage `json:"processedTimestamp"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.Timestamp = parseTimestamp(aux.Timestamp)
	r.ProcessedTimestamp = parseTimestamp(aux.ProcessedTimestamp)
	return nil
}

// Submitted returns the submission time. ok is false when the record has none.
func (r WhitelistRequest) Submitted() (time.Time, bool) {
	return r.Timestamp, !r.Timestamp.IsZero()
}

// Processed returns the processing time. ok is false when the request is not processed yet.
func (r WhitelistRequest) Processed() (time.Time, bool) {
	return r.ProcessedTimestamp, !r.ProcessedTimestamp.IsZero()
}

func parseTimestamp(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Package validate checks incoming session records before processing.
//
// Validation is a pure function over the submitted record. A rejection is a
// terminal outcome for the session, distinct from a processing failure: the
// pipeline records it and never retries.
package validate

import (
	"fmt"

	"github.com/okian/dwell/internal/domain/model"
)

// Dwell time sanity bounds, in seconds.
const (
	defaultMinDwellSeconds = 10
	defaultMaxDwellSeconds = 7200
)

// Reason codes for session rejection.
type Reason string

const (
	ReasonMissingField        Reason = "missing_field"
	ReasonInvalidUserType     Reason = "invalid_user_type"
	ReasonUnrealisticDwell    Reason = "unrealistic_dwell_time"
	ReasonInvalidTimeSequence Reason = "invalid_time_sequence"
)

// Rejection describes why a session was rejected.
type Rejection struct {
	Code   Reason
	Detail string
}

func (r Rejection) String() string {
	if r.Detail == "" {
		return string(r.Code)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Detail)
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithDwellBounds overrides the accepted dwell time range in seconds.
func WithDwellBounds(minSeconds, maxSeconds float64) Option {
	return func(v *Validator) {
		if minSeconds > 0 && maxSeconds > minSeconds {
			v.minDwellSeconds = minSeconds
			v.maxDwellSeconds = maxSeconds
		}
	}
}

// Validator checks the presence, shape, and ranges of session fields.
type Validator struct {
	minDwellSeconds float64
	maxDwellSeconds float64
}

// New creates a Validator with default bounds.
func New(opts ...Option) *Validator {
	v := &Validator{
		minDwellSeconds: defaultMinDwellSeconds,
		maxDwellSeconds: defaultMaxDwellSeconds,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Validate checks a session record. It returns ok=true when the session may
// be processed, otherwise a Rejection naming the first failed rule.
func (v *Validator) Validate(s *model.Session) (bool, *Rejection) {
	if field, ok := missingField(s); !ok {
		return false, &Rejection{Code: ReasonMissingField, Detail: field}
	}

	if !model.ValidUserType(s.UserType) {
		return false, &Rejection{
			Code:   ReasonInvalidUserType,
			Detail: fmt.Sprintf("must be one of: %s, %s, %s", model.UserTypeFriend, model.UserTypeCarrier, model.UserTypeAdmin),
		}
	}

	// Absent dwellSeconds decodes to 0 and fails the lower bound.
	if s.DwellSeconds < v.minDwellSeconds || s.DwellSeconds > v.maxDwellSeconds {
		return false, &Rejection{Code: ReasonUnrealisticDwell}
	}

	// Server-assigned timestamps are unresolved at this point; ordering is
	// only checked when both ends are concrete.
	if s.StartTime.Pending || s.EndTime.Pending {
		return true, nil
	}

	if !s.StartTime.Time.Before(s.EndTime.Time) {
		return false, &Rejection{Code: ReasonInvalidTimeSequence}
	}

	return true, nil
}

// missingField returns the name of the first absent required field.
func missingField(s *model.Session) (string, bool) {
	switch {
	case s.BuildingID == "":
		return "building_id", false
	case s.StartTime == nil:
		return "start_time", false
	case s.EndTime == nil:
		return "end_time", false
	case s.UserID == "":
		return "user_id", false
	case s.UserType == "":
		return "user_type", false
	}
	return "", true
}

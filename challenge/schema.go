package challenge

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Cross-field failure messages
const (
	MsgEndBeforeStart  = "End date must be after start date"
	MsgMaxBelowMinimum = "Maximum participants must be greater than or equal to minimum participants"
)

const (
	fieldEndDate         = "end_date"
	fieldMaxParticipants = "max_participants"
)

// GoalInput is one goal of a challenge payload
type GoalInput struct {
	Type        string   `json:"type" validate:"required,oneof=play_time complete_games achieve_trophies review_games score_points reach_level"`
	Target      *float64 `json:"target" validate:"required,gt=0"`
	Description *string  `json:"description,omitempty"`
}

// RewardInput is one reward of a challenge payload
type RewardInput struct {
	Type        string  `json:"type" validate:"required,oneof=badge points title"`
	Name        string  `json:"name" validate:"required,min=1"`
	Description string  `json:"description" validate:"required,min=1"`
	BadgeID     *string `json:"badge_id,omitempty" validate:"omitnil,uuid"`
}

// CreateChallengeInput is a validated challenge creation payload
type CreateChallengeInput struct {
	Title           string        `json:"title" validate:"required,min=3,max=100"`
	Description     string        `json:"description" validate:"required,min=10"`
	Type            string        `json:"type" validate:"required,oneof=competitive collaborative"`
	StartDate       string        `json:"start_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndDate         string        `json:"end_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	MinParticipants *int          `json:"min_participants,omitempty" validate:"omitnil,gt=0"`
	MaxParticipants *int          `json:"max_participants,omitempty" validate:"omitnil,gt=0"`
	Goals           []GoalInput   `json:"goals" validate:"required,min=1,dive"`
	Rewards         []RewardInput `json:"rewards,omitempty" validate:"omitempty,dive"`
	Rules           []string      `json:"rules,omitempty"`
	CoverURL        *string       `json:"cover_url,omitempty" validate:"omitnil,url"`

	startAt time.Time
	endAt   time.Time
}

// StartTime returns the parsed start date of a validated payload
func (in *CreateChallengeInput) StartTime() time.Time { return in.startAt }

// EndTime returns the parsed end date of a validated payload
func (in *CreateChallengeInput) EndTime() time.Time { return in.endAt }

// UpdateChallengeInput is a validated partial update. It has no type field:
// the challenge type cannot change after creation and is dropped on decode.
type UpdateChallengeInput struct {
	Title           *string       `json:"title,omitempty" validate:"omitnil,min=3,max=100"`
	Description     *string       `json:"description,omitempty" validate:"omitnil,min=10"`
	StartDate       *string       `json:"start_date,omitempty" validate:"omitnil,datetime=2006-01-02T15:04:05Z07:00"`
	EndDate         *string       `json:"end_date,omitempty" validate:"omitnil,datetime=2006-01-02T15:04:05Z07:00"`
	MinParticipants *int          `json:"min_participants,omitempty" validate:"omitnil,gt=0"`
	MaxParticipants *int          `json:"max_participants,omitempty" validate:"omitnil,gt=0"`
	Goals           []GoalInput   `json:"goals,omitempty" validate:"omitempty,min=1,dive"`
	Rewards         []RewardInput `json:"rewards,omitempty" validate:"omitempty,dive"`
	Rules           []string      `json:"rules,omitempty"`
	CoverURL        *string       `json:"cover_url,omitempty" validate:"omitnil,url"`

	startAt *time.Time
	endAt   *time.Time
}

// StartTime returns the parsed start date, nil when the update leaves it unchanged
func (in *UpdateChallengeInput) StartTime() *time.Time { return in.startAt }

// EndTime returns the parsed end date, nil when the update leaves it unchanged
func (in *UpdateChallengeInput) EndTime() *time.Time { return in.endAt }

// IsEmpty reports whether the update carries no field at all
func (in *UpdateChallengeInput) IsEmpty() bool {
	return in.Title == nil && in.Description == nil && in.StartDate == nil && in.EndDate == nil &&
		in.MinParticipants == nil && in.MaxParticipants == nil && in.Goals == nil &&
		in.Rewards == nil && in.Rules == nil && in.CoverURL == nil
}

// FieldError is a single violated constraint
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every violated constraint of a payload
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		if fe.Field == "" {
			parts = append(parts, fe.Message)
			continue
		}
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether a failure was recorded for the given field path
func (v ValidationErrors) Has(field string) bool {
	for _, fe := range v {
		if fe.Field == field {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so paths match the request payload
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCreateChallenge decodes and validates a challenge creation payload.
// On failure the returned error is a ValidationErrors.
func ValidateCreateChallenge(payload []byte) (*CreateChallengeInput, error) {
	var in CreateChallengeInput
	if errs := decode(payload, &in); errs != nil {
		return nil, errs
	}

	if errs := structErrors(&in); errs != nil {
		return nil, errs
	}

	// Field rules passed, so both dates parse
	in.startAt, _ = time.Parse(time.RFC3339, in.StartDate)
	in.endAt, _ = time.Parse(time.RFC3339, in.EndDate)

	// Both refinements run so the caller sees every failure
	errs := CheckWindow(in.startAt, in.endAt)
	errs = append(errs, CheckParticipantBounds(in.MinParticipants, in.MaxParticipants)...)
	if len(errs) > 0 {
		return nil, errs
	}

	in.startAt = in.startAt.UTC()
	in.endAt = in.endAt.UTC()
	return &in, nil
}

// ValidateUpdateChallenge decodes and validates a partial challenge update.
// Cross-field rules only apply to fields present in the payload; callers merge
// with the stored challenge and check again with CheckWindow and CheckParticipantBounds.
func ValidateUpdateChallenge(payload []byte) (*UpdateChallengeInput, error) {
	var in UpdateChallengeInput
	if errs := decode(payload, &in); errs != nil {
		return nil, errs
	}

	if errs := structErrors(&in); errs != nil {
		return nil, errs
	}

	if in.StartDate != nil {
		t, _ := time.Parse(time.RFC3339, *in.StartDate)
		t = t.UTC()
		in.startAt = &t
	}
	if in.EndDate != nil {
		t, _ := time.Parse(time.RFC3339, *in.EndDate)
		t = t.UTC()
		in.endAt = &t
	}

	var errs ValidationErrors
	if in.startAt != nil && in.endAt != nil {
		errs = append(errs, CheckWindow(*in.startAt, *in.endAt)...)
	}
	errs = append(errs, CheckParticipantBounds(in.MinParticipants, in.MaxParticipants)...)
	if len(errs) > 0 {
		return nil, errs
	}

	return &in, nil
}

// CheckWindow validates that end is strictly after start
func CheckWindow(start, end time.Time) ValidationErrors {
	if end.After(start) {
		return nil
	}
	return ValidationErrors{{Field: fieldEndDate, Message: MsgEndBeforeStart}}
}

// CheckParticipantBounds validates max >= min when both bounds are set
func CheckParticipantBounds(min, max *int) ValidationErrors {
	if min == nil || max == nil || *max >= *min {
		return nil
	}
	return ValidationErrors{{Field: fieldMaxParticipants, Message: MsgMaxBelowMinimum}}
}

// decode unmarshals payload into dst, reporting malformed JSON and type
// mismatches as field errors
func decode(payload []byte, dst interface{}) ValidationErrors {
	err := json.Unmarshal(payload, dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return ValidationErrors{{Message: fmt.Sprintf("Expected object, received %s", typeErr.Value)}}
		}
		return ValidationErrors{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Expected %s, received %s", jsonKind(typeErr.Type), typeErr.Value),
		}}
	}

	return ValidationErrors{{Message: "Invalid JSON payload"}}
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Bool:
		return "boolean"
	default:
		return "object"
	}
}

// structErrors runs the field rules and converts failures into FieldErrors
func structErrors(in interface{}) ValidationErrors {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErrors{{Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe.Namespace()), Message: message(fe)})
	}
	return out
}

// fieldPath strips the struct name from a validator namespace,
// "CreateChallengeInput.goals[0].target" becomes "goals[0].target"
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Array must contain at least %s element(s)", fe.Param())
		}
		return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "max":
		return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
	case "gt":
		return "Number must be greater than " + fe.Param()
	case "oneof":
		return "Invalid enum value. Expected " + quoteOptions(fe.Param())
	case "datetime":
		return "Invalid datetime"
	case "url":
		return "Invalid url"
	case "uuid":
		return "Invalid uuid"
	default:
		return "Invalid value"
	}
}

func quoteOptions(param string) string {
	opts := strings.Fields(param)
	for i, o := range opts {
		opts[i] = "'" + o + "'"
	}
	return strings.Join(opts, " | ")
}

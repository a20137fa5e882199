package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"insurance-desk/internal/model"
)

var validate = newValidator()

var (
	panPattern        = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	ifscPattern       = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	gstinPattern      = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	vehicleRegPattern = regexp.MustCompile(`^[A-Z]{2}[ -]?[0-9]{1,2}[ -]?[A-Z]{0,3}[ -]?[0-9]{4}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "pan", matchString(panPattern))
	mustRegister(v, "ifsc", matchString(ifscPattern))
	mustRegister(v, "gstin", matchString(gstinPattern))
	mustRegister(v, "vehiclereg", matchString(vehicleRegPattern))
	if err := v.RegisterValidationCtx("notfuture", func(ctx context.Context, fl validator.FieldLevel) bool {
		d, ok := parseDate(fl.Field().String())
		return ok && !d.After(clockFrom(ctx)().UTC())
	}); err != nil {
		panic(fmt.Sprintf("register notfuture: %v", err))
	}
	return v
}

type clockKey struct{}

// withClock makes now the reference time for date rules run under ctx.
func withClock(ctx context.Context, now func() time.Time) context.Context {
	return context.WithValue(ctx, clockKey{}, now)
}

func clockFrom(ctx context.Context) func() time.Time {
	if now, ok := ctx.Value(clockKey{}).(func() time.Time); ok && now != nil {
		return now
	}
	return time.Now
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

func matchString(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(strings.ToUpper(fl.Field().String()))
	}
}

var ruleMessages = map[string]string{
	"email":      "must be a valid email address",
	"numeric":    "must contain digits only",
	"len":        "has the wrong length",
	"min":        "is too small",
	"max":        "is too large",
	"gt":         "must be greater than zero",
	"gte":        "is below the allowed minimum",
	"lte":        "is above the allowed maximum",
	"pan":        "must be a valid PAN",
	"ifsc":       "must be a valid IFSC code",
	"gstin":      "must be a valid GSTIN",
	"vehiclereg": "must be a valid vehicle registration number",
	"notfuture":  "cannot be in the future",
}

func ruleMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := ruleMessages[verrs[0].Tag()]; ok {
			return msg
		}
		return "failed " + verrs[0].Tag() + " check"
	}
	return "is invalid"
}

// checkField validates a single field value in isolation. Date rules such as
// notfuture compare against the clock carried by ctx. Reference data options
// are checked separately by the engine.
func checkField(ctx context.Context, f Field, fields map[string]interface{}) *FieldError {
	v, present := fields[f.Name]
	if !present || isEmpty(v) {
		if f.Required {
			return &FieldError{Field: f.Name, Code: model.CodeMissingField, Message: "is required"}
		}
		return nil
	}

	if msg := checkKind(f, v); msg != "" {
		return &FieldError{Field: f.Name, Code: model.CodeInvalidField, Message: msg}
	}

	if f.Rule != "" {
		if err := validate.VarCtx(ctx, v, f.Rule); err != nil {
			return &FieldError{Field: f.Name, Code: model.CodeInvalidField, Message: ruleMessage(err)}
		}
	}
	return nil
}

func checkKind(f Field, v interface{}) string {
	switch f.Kind {
	case KindNumber:
		if _, ok := v.(float64); !ok {
			return "must be a number"
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			return "must be yes or no"
		}
	case KindDate:
		s, ok := v.(string)
		if !ok {
			return "must be a date"
		}
		if _, ok := parseDate(s); !ok {
			return "must be a date in YYYY-MM-DD form"
		}
	case KindChoice:
		s, ok := v.(string)
		if !ok {
			return "must be one of the listed options"
		}
		if len(f.Options) > 0 && !contains(f.Options, s) {
			return "must be one of: " + strings.Join(f.Options, ", ")
		}
	default:
		if _, ok := v.(string); !ok {
			return "must be text"
		}
	}
	return ""
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// normalizeValue maps Go numeric types onto float64 so values compare the
// same way whether they came from JSON or from code.
func normalizeValue(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case string:
		return strings.TrimSpace(n)
	}
	return v
}

// parseDate parses "YYYY-MM-DD" without layout parsing and rejects dates
// that time.Date would normalise (e.g. 2024-02-31).
func parseDate(s string) (time.Time, bool) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return time.Time{}, false
	}
	for i, c := range []byte(s) {
		if i != 4 && i != 7 && (c < '0' || c > '9') {
			return time.Time{}, false
		}
	}
	y := int(s[0]-'0')*1000 + int(s[1]-'0')*100 + int(s[2]-'0')*10 + int(s[3]-'0')
	m := time.Month(int(s[5]-'0')*10 + int(s[6]-'0'))
	d := int(s[8]-'0')*10 + int(s[9]-'0')
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// ParseDate is exported for flow rules.
func ParseDate(s string) (time.Time, bool) {
	return parseDate(s)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

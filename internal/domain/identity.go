package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// identitySeparator joins normalized fields. The ASCII unit separator cannot appear
// in user input after trimming, so field boundaries never collide.
const identitySeparator = "\x1f"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Identity is the tuple defining "the same logical task" within a tenant.
type Identity struct {
	TenantID    string `json:"tenant_id" validate:"required,max=128"`
	Description string `json:"description" validate:"required,max=2000"`
	AssignedTo  string `json:"assigned_to" validate:"required,max=255"`
	GivenBy     string `json:"given_by" validate:"required,max=255"`
	ClientName  string `json:"client_name" validate:"max=255"`
	Deadline    string `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
}

// NewIdentity trims every field and validates the tuple.
// Returns *ValidationError naming the first offending field.
func NewIdentity(in Identity) (Identity, error) {
	id := Identity{
		TenantID:    strings.TrimSpace(in.TenantID),
		Description: strings.TrimSpace(in.Description),
		AssignedTo:  strings.TrimSpace(in.AssignedTo),
		GivenBy:     strings.TrimSpace(in.GivenBy),
		ClientName:  strings.TrimSpace(in.ClientName),
		Deadline:    strings.TrimSpace(in.Deadline),
	}

	if err := validate.Struct(id); err != nil {
		return Identity{}, toValidationError(err)
	}
	return id, nil
}

// Hash returns the identity hash of the tuple.
func (id Identity) Hash() string {
	return IdentityHash(id.TenantID, id.Description, id.AssignedTo, id.ClientName, id.Deadline, id.GivenBy)
}

// IdentityHash derives the canonical lookup key for a task.
//
// Every field is trimmed; description and client name are case folded. A missing
// client name and an empty one are the same identity. The result is a hex SHA-256
// digest: a lookup key, not a security primitive.
func IdentityHash(tenantID, description, assignedTo, clientName, deadline, givenBy string) string {
	key := strings.Join([]string{
		strings.TrimSpace(tenantID),
		NormalizeDescription(description),
		strings.TrimSpace(assignedTo),
		NormalizeClientName(clientName),
		strings.TrimSpace(deadline),
		strings.TrimSpace(givenBy),
	}, identitySeparator)

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// NormalizeDescription returns the form of a description used for identity comparison.
func NormalizeDescription(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeClientName returns the form of a client name used for identity comparison.
func NormalizeClientName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "identity", Reason: err.Error()}
	}

	fe := fieldErrs[0]
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "max":
		reason = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "datetime":
		reason = fmt.Sprintf("must be a date in %s format", fe.Param())
	default:
		reason = fmt.Sprintf("failed %q check", fe.Tag())
	}
	return &ValidationError{Field: fe.Field(), Reason: reason}
}

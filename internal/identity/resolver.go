package identity

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/you/mediahub/domain"
)

// ErrInvalidPhone is returned when a value does not parse as a valid number
var ErrInvalidPhone = errors.New("enter a valid phone number")

// Resolver classifies login identifiers without touching storage
type Resolver struct {
	region string
}

// NewResolver creates a resolver that parses national numbers in region
func NewResolver(defaultRegion string) *Resolver {
	return &Resolver{region: strings.ToUpper(defaultRegion)}
}

// Resolve applies, in order: "@" means email (lowercased), a valid phone
// number in the default region means phone (E.164), anything else is a
// trimmed username.
func (r *Resolver) Resolve(identifier string) domain.Identity {
	value := strings.TrimSpace(identifier)

	if strings.Contains(value, "@") {
		return domain.Identity{Field: domain.FieldEmail, Value: domain.NormalizeEmail(value)}
	}

	if phone, err := r.NormalizePhone(value); err == nil {
		return domain.Identity{Field: domain.FieldPhone, Value: phone}
	}

	return domain.Identity{Field: domain.FieldUsername, Value: value}
}

// NormalizePhone parses raw in the default region and formats it as E.164
func (r *Resolver) NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}
	num, err := phonenumbers.Parse(raw, r.region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

var _ domain.IdentityResolver = (*Resolver)(nil)

// Package gate decides whether a requester may use a premium capability.
package gate

import (
	"errors"
	"fmt"

	"github.com/sifan077/ShortcutURL/internal/app/model"
)

// Capability is a premium feature that can be requested on a link.
type Capability string

const (
	CustomAlias Capability = "custom_alias"
	Expiry      Capability = "expiry"
	Password    Capability = "password"
	Analytics   Capability = "analytics"
)

// ErrPremiumRequired is the marker every denial unwraps to. Clients use it to
// route the user to an upgrade flow.
var ErrPremiumRequired = errors.New("premium subscription required")

// DeniedError reports a single denied capability.
type DeniedError struct {
	Capability Capability
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s requires a premium subscription", e.Capability)
}

func (e *DeniedError) Unwrap() error {
	return ErrPremiumRequired
}

// TierOf returns the tier a requester is evaluated with. Anonymous requesters
// (nil account) are always free, whatever else the request carries.
func TierOf(account *model.Account) model.Tier {
	if account == nil {
		return model.TierFree
	}
	return account.Tier
}

// Evaluate returns nil when tier grants c, or a *DeniedError.
func Evaluate(tier model.Tier, c Capability) error {
	if allows(tier.Features(), c) {
		return nil
	}
	return &DeniedError{Capability: c}
}

// EvaluateAll evaluates every capability independently and joins the denials.
// It returns nil when all are granted.
func EvaluateAll(tier model.Tier, caps ...Capability) error {
	var errs []error
	for _, c := range caps {
		if err := Evaluate(tier, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Denied lists the capabilities denied in err, in the order they were evaluated.
func Denied(err error) []Capability {
	switch e := err.(type) {
	case nil:
		return nil
	case *DeniedError:
		return []Capability{e.Capability}
	case interface{ Unwrap() []error }:
		var out []Capability
		for _, inner := range e.Unwrap() {
			out = append(out, Denied(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return Denied(e.Unwrap())
	}
	return nil
}

func allows(f model.Features, c Capability) bool {
	switch c {
	case CustomAlias:
		return f.CustomAliases
	case Expiry:
		return f.Expiry
	case Password:
		return f.Passwords
	case Analytics:
		return f.Analytics
	default:
		return false
	}
}

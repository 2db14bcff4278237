package ownership

import (
	"strings"
	"time"

	"xdao.co/pxmark/passkey"
	"xdao.co/pxmark/record"
)

// Rule is an explicit, named validation rule.
//
// ID must be stable across versions. Apply must be deterministic and side-effect free.
type Rule struct {
	ID    string
	Apply func() error
}

// ValidateAll runs all rules in order and returns every violation.
func ValidateAll(rules []Rule) []error {
	var out []error
	for _, r := range rules {
		if r.Apply == nil {
			out = append(out, newError(KindInternal, "PXM-INT-001", "nil rule Apply"))
			continue
		}
		if err := r.Apply(); err != nil {
			out = append(out, err)
		}
	}
	return out
}

func validate(rules []Rule) error {
	if errs := ValidateAll(rules); len(errs) > 0 {
		return ValidationErrors(errs)
	}
	return nil
}

func ownerRequired(owner string) Rule {
	return Rule{ID: "PXM-VAL-001", Apply: func() error {
		if strings.TrimSpace(owner) == "" {
			return newError(KindValidation, "PXM-VAL-001", "Owner field is required.")
		}
		return nil
	}}
}

func passkeyRequired(secret string, required bool, msg string) Rule {
	return Rule{ID: "PXM-VAL-002", Apply: func() error {
		if required && secret == "" {
			return newError(KindValidation, "PXM-VAL-002", msg)
		}
		return nil
	}}
}

func passkeyConfirmed(secret, confirm, msg string) Rule {
	return Rule{ID: "PXM-VAL-003", Apply: func() error {
		if !passkey.Matches(secret, confirm) {
			return newError(KindValidation, "PXM-VAL-003", msg)
		}
		return nil
	}}
}

func timestampLayout(ts string) Rule {
	return Rule{ID: "PXM-VAL-004", Apply: func() error {
		if ts == "" {
			return nil
		}
		if _, err := time.Parse(record.TimeLayout, ts); err != nil {
			return wrapError(KindValidation, "PXM-VAL-004", "Date/time must use the "+record.TimeLayout+" layout.", err)
		}
		return nil
	}}
}

// EmbedRules are the input rules for EmbedNew, in evaluation order.
func EmbedRules(req EmbedRequest, requirePasskey bool) []Rule {
	return []Rule{
		ownerRequired(req.Owner),
		passkeyRequired(req.Passkey, requirePasskey, "Passkey is required for security."),
		passkeyConfirmed(req.Passkey, req.Confirm, "Passkeys do not match."),
		timestampLayout(req.Timestamp),
	}
}

// ResellRules are the input rules for Resell, in evaluation order. The new
// owner may be left empty.
func ResellRules(req ResellRequest, requirePasskey bool) []Rule {
	return []Rule{
		passkeyRequired(req.NewPasskey, requirePasskey, "New passkey is required."),
		passkeyConfirmed(req.NewPasskey, req.Confirm, "New passkeys do not match."),
	}
}

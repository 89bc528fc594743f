// Package contact classifies login contacts and canonicalizes phone numbers.
package contact

import (
	"strings"
	"unicode"

	"goodfit/internal/model"
)

// Kind is the classification of a contact string.
type Kind int

const (
	KindPhone Kind = iota
	KindEmail
)

func (k Kind) String() string {
	if k == KindEmail {
		return "email"
	}
	return "phone"
}

// Classify treats any string containing "@" as an email and everything else
// as a phone number. No further syntax checks happen here.
func Classify(contact string) Kind {
	if strings.Contains(contact, "@") {
		return KindEmail
	}
	return KindPhone
}

// NormalizePhone reduces raw to digits and prefixes the Russian country code.
// A leading 7 or 8 is replaced by +7; any other digit string gets +7
// prepended as is. Empty input gives "".
func NormalizePhone(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return ""
	}
	if digits[0] == '7' || digits[0] == '8' {
		return "+7" + digits[1:]
	}
	return "+7" + digits
}

// ToContact converts a user-supplied string into the address a code is sent
// to, normalizing phones.
func ToContact(raw string) model.Contact {
	raw = strings.TrimFunc(raw, unicode.IsSpace)
	if Classify(raw) == KindEmail {
		return model.Contact{Email: strings.ToLower(raw)}
	}
	return model.Contact{Phone: NormalizePhone(raw)}
}

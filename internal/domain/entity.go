package domain

import (
	"strings"
	"unicode"
)

// EntityType enumerates the kinds of intelligence the extractor harvests.
type EntityType string

// Entity types.
const (
	EntityPaymentHandle EntityType = "payment_handle"
	EntityBankAccount   EntityType = "bank_account"
	EntityRoutingCode   EntityType = "routing_code"
	EntityPhone         EntityType = "phone"
	EntityURL           EntityType = "url"
	EntityCrypto        EntityType = "crypto"
	EntityTaxID         EntityType = "tax_id"
	EntityBiometricID   EntityType = "biometric_id"
	EntityName          EntityType = "name"
	EntityOrganization  EntityType = "organization"
)

// EntityTypes lists every entity type.
var EntityTypes = []EntityType{
	EntityPaymentHandle,
	EntityBankAccount,
	EntityRoutingCode,
	EntityPhone,
	EntityURL,
	EntityCrypto,
	EntityTaxID,
	EntityBiometricID,
	EntityName,
	EntityOrganization,
}

// CoreEntityTypes are the categories whose collection drives extraction progress.
var CoreEntityTypes = []EntityType{
	EntityPaymentHandle,
	EntityBankAccount,
	EntityPhone,
	EntityURL,
}

// NormalizeValue returns the canonical form of v for type t.
// Applying it to its own output returns the same value.
func NormalizeValue(t EntityType, v string) string {
	v = strings.TrimSpace(v)
	switch t {
	case EntityPhone:
		d := digitsOnly(v)
		if len(d) > 10 {
			d = d[len(d)-10:]
		}
		return d
	case EntityBankAccount, EntityBiometricID:
		return digitsOnly(v)
	case EntityPaymentHandle:
		return strings.ToLower(v)
	case EntityCrypto:
		// Hex addresses ignore case; base58 and bech32 keep it.
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			return strings.ToLower(v)
		}
		return v
	case EntityRoutingCode, EntityTaxID:
		return strings.ToUpper(v)
	case EntityURL:
		return normalizeURL(v)
	default:
		return strings.ToLower(strings.Join(strings.Fields(v), " "))
	}
}

func normalizeURL(v string) string {
	v = strings.ToLower(v)
	for {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(v, "https://"), "http://")
		if trimmed == v {
			break
		}
		v = trimmed
	}
	return strings.TrimRight(v, "/")
}

func digitsOnly(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanValue tidies a raw match for display without collapsing it to its key.
func CleanValue(t EntityType, v string) string {
	v = strings.TrimSpace(v)
	switch t {
	case EntityPhone:
		return strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) || r == '+' {
				return r
			}
			return -1
		}, v)
	case EntityBankAccount, EntityBiometricID:
		return digitsOnly(v)
	case EntityPaymentHandle:
		return strings.ToLower(v)
	case EntityRoutingCode, EntityTaxID:
		return strings.ToUpper(v)
	default:
		return v
	}
}

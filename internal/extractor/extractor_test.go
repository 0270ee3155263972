package extractor

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/domain"
)

func newExtractor() *Extractor {
	return New(config.DefaultTuning().Extractor)
}

func TestExtractPrizeHandle(t *testing.T) {
	r := newExtractor().Extract("Congratulations! You won Rs.50000. Send Rs.500 fee to prize@upi", 2)

	want := []domain.ExtractionItem{{
		Type:       domain.EntityPaymentHandle,
		Value:      "prize@upi",
		Normalized: "prize@upi",
		Confidence: 0.92,
		Validated:  true,
		Turn:       3,
		Method:     methodRegex,
	}}
	opts := cmpopts.IgnoreFields(domain.ExtractionItem{}, "Raw", "Snippet")
	if diff := cmp.Diff(want, r.Items, opts); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractDropsBareAccountNumbers(t *testing.T) {
	e := newExtractor()
	for _, msg := range []string{
		"Reference 4829103746 noted",
		"My number is 123456789012",
	} {
		r := e.Extract(msg, 0)
		_, found := r.First(domain.EntityBankAccount)
		assert.False(t, found, msg)
	}
}

func TestExtractBankDetailsWithContext(t *testing.T) {
	r := newExtractor().Extract("Transfer to account number 123456789012 at SBIN0001234", 0)

	acct, ok := r.First(domain.EntityBankAccount)
	require.True(t, ok)
	assert.Equal(t, "123456789012", acct.Normalized)
	assert.InDelta(t, 0.78, acct.Confidence, 1e-9)
	assert.Equal(t, methodValidated, acct.Method)

	ifsc, ok := r.First(domain.EntityRoutingCode)
	require.True(t, ok)
	assert.Equal(t, "SBIN0001234", ifsc.Value)

	_, ok = r.First(domain.EntityBiometricID)
	assert.False(t, ok, "aadhaar needs its own keywords")
	assert.Contains(t, r.Targets, domain.EntityBankAccount)
	assert.Contains(t, r.Targets, domain.EntityRoutingCode)
}

func TestExtractDeduplicatesPhoneFormats(t *testing.T) {
	r := newExtractor().Extract("Call me at +91 98765 43210 or 9876543210", 0)

	var phones []domain.ExtractionItem
	for _, it := range r.Items {
		if it.Type == domain.EntityPhone {
			phones = append(phones, it)
		}
	}
	require.Len(t, phones, 1)
	assert.Equal(t, "9876543210", phones[0].Normalized)
	assert.InDelta(t, 0.88, phones[0].Confidence, 1e-9)
	assert.True(t, r.Context.ContactRequest)
}

func TestExtractNamesAndOrganizations(t *testing.T) {
	r := newExtractor().Extract("Hello, my name is Rahul Sharma calling from State Bank", 0)

	name, ok := r.First(domain.EntityName)
	require.True(t, ok)
	assert.Equal(t, "Rahul Sharma", name.Value)
	assert.InDelta(t, 0.75, name.Confidence, 1e-9)

	var orgs []string
	for _, it := range r.Items {
		if it.Type == domain.EntityOrganization {
			orgs = append(orgs, it.Value)
			assert.InDelta(t, 0.70, it.Confidence, 1e-9)
		}
	}
	assert.Contains(t, orgs, "State Bank")
	assert.Contains(t, r.Targets, domain.EntityName)
}

func TestExtractSkipsHonorifics(t *testing.T) {
	r := newExtractor().Extract("Hello, I am Customer", 0)
	_, ok := r.First(domain.EntityName)
	assert.False(t, ok)
}

func TestExtractRejectsConsumerMail(t *testing.T) {
	r := newExtractor().Extract("mail me at ravi@gmail.com", 0)
	_, ok := r.First(domain.EntityPaymentHandle)
	assert.False(t, ok)
}

func TestExtractURLVariants(t *testing.T) {
	r := newExtractor().Extract("Click https://Secure-KYC.example.com/login/ or bit.ly/x7Yz9 or visit claim-now.xyz", 0)

	var got []string
	for _, it := range r.Items {
		if it.Type == domain.EntityURL {
			got = append(got, it.Normalized)
		}
	}
	assert.Contains(t, got, "secure-kyc.example.com/login")
	assert.Contains(t, got, "bit.ly/x7yz9")
	assert.Contains(t, got, "claim-now.xyz")
	assert.True(t, r.Context.Link)
	assert.Contains(t, r.Targets, domain.EntityURL)
}

func TestExtractNormalizedValuesAreStable(t *testing.T) {
	msg := "Pay to Win.Big@PayTM or upi://pay?pa=x@ybl, call +91-9876543210, PAN abcde1234f, " +
		"aadhaar 1234-5678-9012 to verify, wallet 0x52908400098527886E0F7030069857D2E4169EE7"
	r := newExtractor().Extract(msg, 0)
	require.NotEmpty(t, r.Items)

	seen := map[string]bool{}
	for _, it := range r.Items {
		assert.Equal(t, it.Normalized, Normalize(it.Type, it.Normalized), "%s not idempotent", it.Type)
		k := string(it.Type) + "|" + it.Normalized
		assert.False(t, seen[k], "duplicate %s", k)
		seen[k] = true
		assert.GreaterOrEqual(t, it.Confidence, 0.0)
		assert.LessOrEqual(t, it.Confidence, 1.0)
	}
	assert.True(t, seen["tax_id|ABCDE1234F"])
	assert.True(t, seen["biometric_id|123456789012"])
}

func TestExtractEmptyAndHostileInput(t *testing.T) {
	e := newExtractor()
	assert.Empty(t, e.Extract("", 0).Items)
	assert.Empty(t, e.Extract("nothing to see here", 0).Items)
	assert.NotPanics(t, func() { e.Extract(strings.Repeat("9@", 50000), 0) })
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "...cdefgh...", snippet("abcdefghij", 4, 6, 2))
	assert.Equal(t, "abcdef...", snippet("abcdefghij", 0, 2, 4))
	assert.Equal(t, "héllo", snippet("héllo", 1, 3, 10))
}

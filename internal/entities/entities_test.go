package entities

import (
	"strings"
	"testing"
)

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func TestPaymentHandles(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []string
		notWant []string
	}{
		{"standard handle", "Pay to scammer@ybl for immediate resolution.", []string{"scammer@ybl"}, nil},
		{"multiple handles", "Pay to user1@okaxis or user2@paytm", []string{"user1@okaxis", "user2@paytm"}, nil},
		{"gmail ignored", "Contact us at support@gmail.com", nil, []string{"support@gmail"}},
		{"custom mail domain ignored", "Write to help@examplecorp.co today", nil, []string{"help@examplecorp"}},
		{"handle at end of sentence", "Send it to fraud@upi.", []string{"fraud@upi"}, nil},
		{"empty", "", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PaymentHandles(tt.text)
			for _, w := range tt.want {
				if !contains(got, w) {
					t.Errorf("PaymentHandles(%q) = %v, missing %q", tt.text, got, w)
				}
			}
			for _, nw := range tt.notWant {
				if contains(got, nw) {
					t.Errorf("PaymentHandles(%q) = %v, should not contain %q", tt.text, got, nw)
				}
			}
			if tt.text == "" && len(got) != 0 {
				t.Errorf("expected empty result, got %v", got)
			}
		})
	}
}

func TestBankAccounts(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"twelve digits", "Transfer to account 123456789012", []string{"123456789012"}},
		{"eighteen digits", "Account: 123456789012345678", []string{"123456789012345678"}},
		{"short numbers ignored", "PIN: 1234, Code: 12345678", []string{}},
		{"mobile number ignored", "Call 9876543210", []string{}},
		{"leading zero ignored", "Ref 0123456789", []string{}},
		{"ten digits not mobile shaped", "Acct 1234567890", []string{"1234567890"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BankAccounts(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("BankAccounts(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("BankAccounts(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestURLs(t *testing.T) {
	got := URLs("Click http://example.com/verify or visit https://secure-bank.com/login?id=123&ref=scam now")
	if !contains(got, "http://example.com/verify") {
		t.Errorf("missing http url in %v", got)
	}
	if !contains(got, "https://secure-bank.com/login?id=123&ref=scam") {
		t.Errorf("missing https url in %v", got)
	}
	if len(URLs("no links here")) != 0 {
		t.Error("expected no urls")
	}
}

func TestPhoneNumbers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "Call 9876543210 now", "9876543210"},
		{"country code", "Call +91 9876543210", "9876543210"},
		{"country code unspaced", "Call +919876543210", "9876543210"},
		{"country code dashed", "Call +91-98765-43210", "9876543210"},
		{"five five split", "Dial 98765 43210", "9876543210"},
		{"four three three split", "Ring 9876-543-210", "9876543210"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PhoneNumbers(tt.text)
			if !contains(got, tt.want) {
				t.Errorf("PhoneNumbers(%q) = %v, want %q", tt.text, got, tt.want)
			}
		})
	}

	if got := PhoneNumbers("Account 123456789012345"); len(got) != 0 {
		t.Errorf("phone carved out of a longer digit run: %v", got)
	}
}

func TestExtract_DeduplicatesAndCounts(t *testing.T) {
	text := "Pay scam@upi or scam@upi. Call 9876543210 or 9876543210. " +
		"Account 123456789012, again 123456789012. Link http://x.io/a http://x.io/a"

	got := Extract(text)

	sets := map[string][]string{
		"handles":  got.PaymentHandles,
		"accounts": got.BankAccounts,
		"urls":     got.URLs,
		"phones":   got.PhoneNumbers,
	}
	total := 0
	for name, set := range sets {
		seen := map[string]bool{}
		for _, v := range set {
			if seen[v] {
				t.Errorf("%s has duplicate %q", name, v)
			}
			seen[v] = true
		}
		total += len(set)
	}
	if got.Count() != total {
		t.Errorf("Count() = %d, want %d", got.Count(), total)
	}
	if got.Count() != 4 {
		t.Errorf("expected 4 distinct entities, got %d: %+v", got.Count(), got)
	}

	withCode := Extract("Call +919876543210")
	if len(withCode.BankAccounts) != 0 {
		t.Errorf("country-coded phone also reported as account: %v", withCode.BankAccounts)
	}
	if withCode.Count() != 1 {
		t.Errorf("Count() = %d for one phone number, want 1: %+v", withCode.Count(), withCode)
	}
	merged := Merge(withCode, Extract("Call 9876543210"))
	if merged.Count() != 1 {
		t.Errorf("both spellings of one number counted %d times: %+v", merged.Count(), merged)
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	got := Extract("")
	if got.Count() != 0 {
		t.Errorf("expected empty set, got %+v", got)
	}
	if got.PaymentHandles == nil || got.URLs == nil {
		t.Error("empty sets should be non-nil for stable JSON")
	}
}

func TestMerge_IdempotentAndCommutative(t *testing.T) {
	a := Extract("Pay scam@upi, call 9876543210")
	b := Extract("Visit http://bad.example/x and use 123456789012 or scam@upi")

	ab := Merge(a, b)
	if !Merge(ab, b).Equal(ab) {
		t.Error("merge is not idempotent")
	}
	if !Merge(a, b).Equal(Merge(b, a)) {
		t.Error("merge is not commutative")
	}
	if ab.Count() != 4 {
		t.Errorf("expected 4 entities after merge, got %d", ab.Count())
	}
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	a := Set{PaymentHandles: []string{"a@upi"}}
	merged := Merge(a, Set{})
	merged.PaymentHandles[0] = "changed@upi"
	if a.PaymentHandles[0] != "a@upi" {
		t.Error("merge result aliases its input")
	}
}

func TestClone(t *testing.T) {
	orig := Extract("scam@upi 9876543210")
	c := orig.Clone()
	c.PhoneNumbers[0] = "0000000000"
	if orig.PhoneNumbers[0] != "9876543210" {
		t.Error("clone shares backing array")
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("hello\x00 world\x07\n\tok"); got != "hello world\n\tok" {
		t.Errorf("Sanitize() = %q", got)
	}
	// Full-width digits fold to ASCII so extraction sees them.
	if got := Sanitize("９８７６５４３２１０"); got != "9876543210" {
		t.Errorf("Sanitize() did not fold full-width digits: %q", got)
	}
	long := strings.Repeat("a", MaxTextLength+50)
	if got := Sanitize(long); len([]rune(got)) != MaxTextLength {
		t.Errorf("expected length cap %d, got %d", MaxTextLength, len([]rune(got)))
	}
}

func TestMask(t *testing.T) {
	got := Mask("Pay scam@upi or account 123456789012, call 9876543210")
	for _, leak := range []string{"scam@", "123456789012", "9876543210"} {
		if strings.Contains(got, leak) {
			t.Errorf("Mask() leaked %q: %s", leak, got)
		}
	}
	if !strings.Contains(got, "@upi") || !strings.Contains(got, "3210") {
		t.Errorf("Mask() removed too much: %s", got)
	}
}

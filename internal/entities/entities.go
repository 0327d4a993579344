package entities

import (
	"regexp"
	"sort"
	"strings"
)

// Set holds the identifiers extracted from a piece of text. Each field is a
// sorted, deduplicated set.
type Set struct {
	PaymentHandles []string `json:"upi_ids"`
	BankAccounts   []string `json:"bank_accounts"`
	URLs           []string `json:"urls"`
	PhoneNumbers   []string `json:"phone_numbers"`
}

var (
	handlePattern  = regexp.MustCompile(`(?i)\b[a-z0-9._-]+@[a-z]{2,}\b`)
	accountPattern = regexp.MustCompile(`\b\d{9,18}\b`)
	urlPattern     = regexp.MustCompile(`(?i)https?://(?:[-\w.]|%[\da-f]{2})+[/\w\-.?=&#%]*`)
	phonePattern   = regexp.MustCompile(`(?:\+91[\s-]?)?(?:\d{10}|\d{5}[\s-]\d{5}|\d{4}[\s-]\d{3}[\s-]\d{3})`)
	separators     = strings.NewReplacer(" ", "", "-", "", "\t", "")
)

const countryCode = "+91"

// Mail providers and domain suffixes that mark an address as email, not a payment handle.
var mailMarkers = []string{"gmail", "yahoo", "hotmail", "outlook", ".com", ".in", ".org"}

// Extract runs every extractor over text and returns the combined set.
func Extract(text string) Set {
	return Set{
		PaymentHandles: PaymentHandles(text),
		BankAccounts:   BankAccounts(text),
		URLs:           URLs(text),
		PhoneNumbers:   PhoneNumbers(text),
	}
}

// PaymentHandles returns user@provider style handles, skipping email addresses.
func PaymentHandles(text string) []string {
	var out []string
	for _, loc := range handlePattern.FindAllStringIndex(text, -1) {
		m := text[loc[0]:loc[1]]
		if isMailLike(m, text[loc[1]:]) {
			continue
		}
		out = append(out, m)
	}
	return normalize(out)
}

func isMailLike(match, rest string) bool {
	lower := strings.ToLower(match)
	for _, marker := range mailMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	// user@example.co: the match stops at the dot, the domain continues.
	return len(rest) > 1 && rest[0] == '.' && isLetter(rest[1])
}

// BankAccounts returns 9-18 digit runs that do not look like a mobile number.
// Digits that belong to a phone number, such as +91 followed by a mobile
// number, are not reported again as an account.
func BankAccounts(text string) []string {
	phones := phoneSpans(text)
	var out []string
	for _, loc := range accountPattern.FindAllStringIndex(text, -1) {
		m := text[loc[0]:loc[1]]
		if strings.HasPrefix(m, "0") || IsLikelyPhone(m) || within(loc, phones) {
			continue
		}
		out = append(out, m)
	}
	return normalize(out)
}

// URLs returns http and https links.
func URLs(text string) []string {
	return normalize(urlPattern.FindAllString(text, -1))
}

// PhoneNumbers returns phone numbers with separators and the +91 country
// code stripped, so both spellings of one number count once.
func PhoneNumbers(text string) []string {
	var out []string
	for _, loc := range phoneSpans(text) {
		clean := separators.Replace(text[loc[0]:loc[1]])
		out = append(out, strings.TrimPrefix(clean, countryCode))
	}
	return normalize(out)
}

// phoneSpans returns the byte ranges of phone numbers that are not carved
// out of a longer digit run.
func phoneSpans(text string) [][]int {
	var spans [][]int
	for _, loc := range phonePattern.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && isDigit(text[loc[0]-1]) {
			continue
		}
		if loc[1] < len(text) && isDigit(text[loc[1]]) {
			continue
		}
		if len(separators.Replace(text[loc[0]:loc[1]])) >= 10 {
			spans = append(spans, loc)
		}
	}
	return spans
}

func within(loc []int, spans [][]int) bool {
	for _, s := range spans {
		if loc[0] >= s[0] && loc[1] <= s[1] {
			return true
		}
	}
	return false
}

// IsLikelyPhone reports whether number is shaped like a 10 digit mobile number.
func IsLikelyPhone(number string) bool {
	clean := separators.Replace(number)
	return len(clean) == 10 && strings.ContainsRune("6789", rune(clean[0]))
}

// Merge returns the per-field union of a and b. Neither input is modified.
func Merge(a, b Set) Set {
	return Set{
		PaymentHandles: union(a.PaymentHandles, b.PaymentHandles),
		BankAccounts:   union(a.BankAccounts, b.BankAccounts),
		URLs:           union(a.URLs, b.URLs),
		PhoneNumbers:   union(a.PhoneNumbers, b.PhoneNumbers),
	}
}

// Count is the total number of identifiers across all four sets.
func (s Set) Count() int {
	return len(s.PaymentHandles) + len(s.BankAccounts) + len(s.URLs) + len(s.PhoneNumbers)
}

// Clone returns a deep copy.
func (s Set) Clone() Set {
	return Set{
		PaymentHandles: clone(s.PaymentHandles),
		BankAccounts:   clone(s.BankAccounts),
		URLs:           clone(s.URLs),
		PhoneNumbers:   clone(s.PhoneNumbers),
	}
}

// Equal reports whether both sets hold the same identifiers.
func (s Set) Equal(o Set) bool {
	return equal(s.PaymentHandles, o.PaymentHandles) &&
		equal(s.BankAccounts, o.BankAccounts) &&
		equal(s.URLs, o.URLs) &&
		equal(s.PhoneNumbers, o.PhoneNumbers)
}

func union(a, b []string) []string {
	all := make([]string, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return normalize(all)
}

// normalize sorts and dedups. It always returns a non-nil slice so JSON
// encodes empty sets as [].
func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func equal(a, b []string) bool {
	a, b = normalize(a), normalize(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// Package behavior scores the manipulation techniques in a message. Its
// output complements the classifier verdict and is never used to decide
// engagement.
package behavior

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Keywords commonly found in scam messages, grouped by theme.
var suspiciousKeywords = []string{
	// urgency
	"urgent", "immediately", "act now", "don't delay", "limited time",
	"expire", "deadline", "last chance", "final notice",
	// authority
	"bank", "police", "government", "official", "authorized",
	"rbi", "income tax", "customs",
	// payment
	"pay", "transfer", "upi", "account", "fee", "charge",
	"fine", "penalty", "refund", "prize", "lottery", "winner",
	// action
	"click", "verify", "confirm", "update", "download",
	"call", "contact", "reply",
	// threat
	"blocked", "suspended", "closed", "legal", "arrest",
	"court", "lawsuit", "action",
}

var sentenceBreak = regexp.MustCompile(`[.!?]+`)

// TextSignals are surface features of a message.
type TextSignals struct {
	WordCount          int      `json:"word_count"`
	SentenceCount      int      `json:"sentence_count"`
	AvgSentenceLength  float64  `json:"avg_sentence_length"`
	ExclamationCount   int      `json:"exclamation_count"`
	QuestionCount      int      `json:"question_count"`
	CapsRatio          float64  `json:"caps_ratio"`
	SuspiciousKeywords []string `json:"suspicious_keywords"`
	ScamLikelihood     float64  `json:"scam_likelihood"`
}

// AnalyzeText computes TextSignals for text. Keyword matching is by
// substring, so "pay" also fires on "payment".
func AnalyzeText(text string) TextSignals {
	s := TextSignals{
		WordCount:          len(strings.Fields(text)),
		ExclamationCount:   strings.Count(text, "!"),
		QuestionCount:      strings.Count(text, "?"),
		SuspiciousKeywords: []string{},
	}

	words := 0
	for _, sentence := range sentenceBreak.Split(text, -1) {
		if strings.TrimSpace(sentence) == "" {
			continue
		}
		s.SentenceCount++
		words += len(strings.Fields(sentence))
	}
	if s.SentenceCount > 0 {
		s.AvgSentenceLength = round(float64(words)/float64(s.SentenceCount), 2)
	}

	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 0 {
		s.CapsRatio = round(float64(upper)/float64(letters), 3)
	}

	lower := strings.ToLower(text)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			s.SuspiciousKeywords = append(s.SuspiciousKeywords, kw)
		}
	}

	s.ScamLikelihood = scamLikelihood(s)
	return s
}

// scamLikelihood is a supplementary 0-1 score, never the primary verdict.
func scamLikelihood(s TextSignals) float64 {
	score := math.Min(float64(len(s.SuspiciousKeywords))/5, 1) * 0.4
	if s.ExclamationCount > 2 {
		score += 0.1
	}
	if s.CapsRatio > 0.3 {
		score += 0.1
	}
	if s.AvgSentenceLength < 5 && s.SentenceCount > 2 {
		score += 0.1
	}
	return round(math.Min(score, 1), 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Package fingerprint derives a strategy profile describing the pressure,
// impersonation, payment and redirection tactics in a scam message.
package fingerprint

import (
	"math"
	"sort"
	"strings"
)

const (
	maxUrgencyPhrases = 10
	genericSummary    = "Direct payment request without advanced social-engineering patterns"
)

// Analyze fingerprints text. voice may be nil when the input was not audio.
// The result depends only on its inputs.
func Analyze(text string, voice *VoiceSignals) Profile {
	phrases := urgencyPhrases(text)
	p := Profile{
		UrgencyScore:        urgencyScore(len(phrases), voice),
		AuthorityClaims:     authorityClaims(text),
		PaymentEscalation:   paymentEscalation(text),
		ChannelSwitchIntent: channelSwitch(text),
		UrgencyPhrases:      phrases,
	}
	if len(p.UrgencyPhrases) > maxUrgencyPhrases {
		p.UrgencyPhrases = p.UrgencyPhrases[:maxUrgencyPhrases]
	}
	p.StrategySummary = summarize(p)
	return p
}

// IsGenericSummary reports whether summary is the fallback sentence used
// when no tactic was detected.
func IsGenericSummary(summary string) bool {
	return strings.Contains(summary, "Direct payment request")
}

// urgencyPhrases returns the distinct urgency matches, folded to lower case
// so the result does not depend on the casing of the input.
func urgencyPhrases(text string) []string {
	seen := make(map[string]bool)
	phrases := []string{}
	for _, re := range urgencyCatalog {
		for _, m := range re.FindAllString(text, -1) {
			m = strings.ToLower(m)
			if seen[m] {
				continue
			}
			seen[m] = true
			phrases = append(phrases, m)
		}
	}
	sort.Strings(phrases)
	return phrases
}

func urgencyScore(distinct int, voice *VoiceSignals) float64 {
	score := math.Min(float64(distinct)/5, 1) * 0.6

	if voice != nil {
		if voice.SpeechRate > 160 {
			score += 0.15
		}
		if voice.SpeechRate > 200 {
			score += 0.1
		}
		if voice.RepetitionDetected {
			score += 0.1
		}
		for _, ind := range voice.UrgencyIndicators {
			if ind == IndicatorContinuousSpeech {
				score += 0.05
				break
			}
		}
	}

	return round2(clamp(score))
}

func authorityClaims(text string) []Authority {
	claims := []Authority{}
	for _, rule := range authorityCatalog {
		if rule.pattern.MatchString(text) {
			claims = append(claims, rule.authority)
		}
	}
	return claims
}

// paymentEscalation needs two distinct payment categories; one is not enough.
func paymentEscalation(text string) bool {
	matched := 0
	for _, re := range paymentCatalog {
		if re.MatchString(text) {
			matched++
		}
	}
	return matched >= 2
}

func channelSwitch(text string) Channel {
	for _, rule := range channelCatalog {
		if rule.pattern.MatchString(text) {
			return rule.channel
		}
	}
	return ChannelNone
}

func summarize(p Profile) string {
	var parts []string

	switch {
	case p.UrgencyScore > 0.7:
		parts = append(parts, "High-pressure urgency tactics detected")
	case p.UrgencyScore > 0.4:
		parts = append(parts, "Moderate urgency indicators present")
	}

	if len(p.AuthorityClaims) > 0 {
		names := make([]string, len(p.AuthorityClaims))
		for i, a := range p.AuthorityClaims {
			names[i] = a.String()
		}
		parts = append(parts, "Impersonates: "+strings.Join(names, ", "))
	}

	if p.PaymentEscalation {
		parts = append(parts, "Contains payment/financial demands")
	}

	if p.ChannelSwitchIntent != ChannelNone {
		parts = append(parts, "Attempts to redirect to "+p.ChannelSwitchIntent.String())
	}

	if len(parts) == 0 {
		return genericSummary
	}
	return strings.Join(parts, ". ") + "."
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

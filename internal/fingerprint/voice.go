package fingerprint

import "strings"

// Voice urgency indicators as produced by the acoustic analyzer.
const (
	IndicatorFastSpeech        = "fast_speech"
	IndicatorVeryFastSpeech    = "very_fast_speech"
	IndicatorContinuousSpeech  = "continuous_speech"
	IndicatorRepetitivePhrases = "repetitive_phrases"
)

// DetectRepetition reports whether any three-word sequence occurs at least
// twice in transcript. Transcripts under six words never qualify.
func DetectRepetition(transcript string) bool {
	words := strings.Fields(strings.ToLower(transcript))
	if len(words) < 6 {
		return false
	}
	counts := make(map[string]int)
	for i := 0; i+3 <= len(words); i++ {
		tg := strings.Join(words[i:i+3], " ")
		counts[tg]++
		if counts[tg] >= 2 {
			return true
		}
	}
	return false
}

// NormalizeVoice fills in the indicators that follow from the speech rate and
// the transcript, keeping any supplied by the caller. It returns nil for nil.
func NormalizeVoice(v *VoiceSignals, transcript string) *VoiceSignals {
	if v == nil {
		return nil
	}
	out := &VoiceSignals{
		SpeechRate:         round2(v.SpeechRate),
		RepetitionDetected: v.RepetitionDetected || DetectRepetition(transcript),
	}
	have := make(map[string]bool)
	add := func(ind string) {
		if !have[ind] {
			have[ind] = true
			out.UrgencyIndicators = append(out.UrgencyIndicators, ind)
		}
	}
	if out.SpeechRate > 160 {
		add(IndicatorFastSpeech)
	}
	if out.SpeechRate > 200 {
		add(IndicatorVeryFastSpeech)
	}
	for _, ind := range v.UrgencyIndicators {
		add(ind)
	}
	if out.RepetitionDetected {
		add(IndicatorRepetitivePhrases)
	}
	return out
}

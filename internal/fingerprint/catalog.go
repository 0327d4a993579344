package fingerprint

import "regexp"

var urgencyCatalog = compileAll(
	`\b(immediate(?:ly)?|urgent(?:ly)?|right now|act now|don't delay)\b`,
	`\b(limited time|expires? today|last chance|final warning)\b`,
	`\b(within \d+ (?:hour|minute|day)s?|before midnight)\b`,
	`\b(hurry|quick(?:ly)?|fast|asap|emergency)\b`,
	`\b(account (?:will be |is being )?(?:blocked|suspended|closed|frozen))\b`,
	`\b(legal action|police|arrest|court|lawsuit)\b`,
	`\b(verify now|confirm now|update now|click now)\b`,
)

type authorityRule struct {
	authority Authority
	pattern   *regexp.Regexp
}

// Output order of authority claims follows this table.
var authorityCatalog = []authorityRule{
	{AuthorityRBI, compile(`\b(rbi|reserve bank|central bank)\b`)},
	{AuthorityPolice, compile(`\b(police|cop|officer|crime branch|cyber (?:cell|crime))\b`)},
	{AuthorityBank, compile(`\b(bank (?:manager|officer|executive)|(?:hdfc|icici|sbi|axis) bank)\b`)},
	{AuthorityGovernment, compile(`\b(government|ministry|income tax|it department|gst)\b`)},
	{AuthorityTelecom, compile(`\b(airtel|jio|vodafone|bsnl|telecom|trai)\b`)},
	{AuthorityTechCompany, compile(`\b(microsoft|google|apple|amazon|facebook|meta)\b`)},
	{AuthorityCustoms, compile(`\b(customs|import|export|parcel|courier)\b`)},
}

type channelRule struct {
	channel Channel
	pattern *regexp.Regexp
}

// Priority order: the first matching channel wins.
var channelCatalog = []channelRule{
	{ChannelWhatsApp, compile(`\b(whatsapp|wa\.me|whats app)\b`)},
	{ChannelTelegram, compile(`\b(telegram|t\.me)\b`)},
	{ChannelDirectCall, compile(`(\bcall (?:me|us|this number|back|now|on|at)\b|\bcall \+?\d|\bphone\b|\bdial\b)`)},
	{ChannelEmail, compile(`\b(email|mail us|send mail)\b`)},
	{ChannelWebsite, compile(`\b(visit|go to|click|website|link)\b`)},
}

var paymentCatalog = compileAll(
	`\b(pay(?:ment)?|transfer|send money|deposit)\b`,
	`\b(upi|gpay|paytm|phonepe|bhim)\b`,
	`\b(bank account|account number|ifsc)\b`,
	`\b(fee|charge|fine|penalty|tax)\b`,
	`\b(refund|cashback|prize|reward|lottery)\b`,
)

func compile(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = compile(e)
	}
	return out
}

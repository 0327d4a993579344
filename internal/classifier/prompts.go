package classifier

const systemPrompt = `You are an expert scam detection system protecting people in India from phone, SMS and chat fraud. You answer with a single JSON object and nothing else.`

const classificationPrompt = `Analyze the following message and determine if it is a scam.

MESSAGE TO ANALYZE:
%s

Analyze for these scam indicators:
1. Urgency or pressure tactics ("immediately", "urgent", "act now")
2. Requests for personal/financial information:
   - Credit/debit card numbers (16 digits, CVV, expiry)
   - Bank account details, PIN, passwords
   - OTP, verification codes
   - Personal documents (Aadhaar, PAN)
3. Suspicious links or contact methods
4. Impersonation of authority figures (bank, police, government)
5. Too-good-to-be-true offers
6. Payment demands or threats of account blocking
7. Requests to switch communication channels

CRITICAL: Any request for card numbers, CVV, PIN, OTP, or banking credentials is HIGH RISK scam.

Respond ONLY with valid JSON in this exact format:
{
    "is_scam": true/false,
    "confidence": 0.0-1.0,
    "scam_type": "card_fraud" | "bank_impersonation" | "upi_fraud" | "phishing" | "lottery_scam" | "tech_support_scam" | "investment_scam" | "romance_scam" | "job_scam" | "government_impersonation" | null,
    "reasoning": "Brief explanation of classification"
}

For card/banking credential requests: is_scam=true, confidence=0.9+, scam_type="card_fraud"`

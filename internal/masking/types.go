package masking

// Entity type names shared by recognizers and the operator table.
const (
	EntityDefault       = "DEFAULT"
	EntityPerson        = "PERSON"
	EntityPhoneNumber   = "PHONE_NUMBER"
	EntityEmailAddress  = "EMAIL_ADDRESS"
	EntityUSSSN         = "US_SSN"
	EntityUSITIN        = "US_ITIN"
	EntityUSPassport    = "US_PASSPORT"
	EntityUSLicense     = "US_DRIVER_LICENSE"
	EntityDateTime      = "DATE_TIME"
	EntityLocation      = "LOCATION"
	EntityOrganization  = "ORGANIZATION"
	EntityIPAddress     = "IP_ADDRESS"
	EntityURL           = "URL"
	EntityCreditCard    = "CREDIT_CARD"
	EntityMRN           = "MEDICAL_RECORD_NUMBER"
	EntityZipCode       = "ZIP_CODE"
	EntityVehicleVIN    = "VEHICLE_VIN"
	EntityLicensePlate  = "LICENSE_PLATE"
	EntityHealthPlanID  = "HEALTH_PLAN_ID"
	EntityDeviceID      = "DEVICE_IDENTIFIER"
)

// Detection is a single recognizer's claim that text[Start:End) is an
// instance of EntityType. Invariant: 0 <= Start < End <= len(text).
type Detection struct {
	EntityType     string  `json:"entity_type"`
	Start          int     `json:"start"`
	End            int     `json:"end"`
	Score          float64 `json:"score"`
	RecognizerName string  `json:"recognizer_name"`
}

// Len returns the span length in bytes.
func (d Detection) Len() int { return d.End - d.Start }

// overlaps reports whether two detections share any character position.
func (d Detection) overlaps(other Detection) bool {
	return d.Start < other.End && other.Start < d.End
}

// Entity is one piece of PHI that was found and masked. Text is sliced from
// the ORIGINAL input at [Start:End), never from the masked output.
type Entity struct {
	Text       string  `json:"text"`
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// Result is the terminal output of Deidentify. It is constructed once per
// call and never mutated afterwards. Failed is set only by the pipeline's
// failure path; callers must check it rather than compare MaskedText to
// FailedText, because that string is legal input. It stays off the wire.
type Result struct {
	MaskedText    string   `json:"masked_text"`
	EntitiesFound []Entity `json:"entities_found"`
	Failed        bool     `json:"-"`
}

// FailedText is the sentinel masked text returned when any part of the
// pipeline fails. The original text must never leak into a partial result.
const FailedText = "[PROCESSING FAILED]"

// TypeCounts aggregates EntitiesFound by entity type. Used by the audit
// store and event hub, which must never see the underlying text.
func (r *Result) TypeCounts() map[string]int {
	if len(r.EntitiesFound) == 0 {
		return nil
	}
	counts := make(map[string]int, 4)
	for _, e := range r.EntitiesFound {
		counts[e.EntityType]++
	}
	return counts
}

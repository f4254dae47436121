package domain

// Warning codes for degraded but usable results.
const (
	WarningSchemaUnavailable      = "SCHEMA_UNAVAILABLE"
	WarningMixedSplitApproximated = "MIXED_SPLIT_APPROXIMATED"
	WarningNoParticipants         = "NO_PARTICIPANTS"
	WarningCashboxCountMissing    = "CASHBOX_COUNT_MISSING"
	WarningCashboxDiscrepancy     = "CASHBOX_DISCREPANCY"
)

// Warning reports a degradation that was recovered locally.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

package domain

// ChangeType classifies the revenue effect of an invoice update
type ChangeType string

const (
	ChangeNone                 ChangeType = "none"
	ChangeEligibleToIneligible ChangeType = "eligible-to-ineligible"
	ChangeIneligibleToEligible ChangeType = "ineligible-to-eligible"
	ChangeEligibleStatus       ChangeType = "eligible-status-change"
	ChangeEligibleAmount       ChangeType = "eligible-amount-change"

	// ChangePeriodMove marks an update whose date moved the invoice to another
	// period. DetectChange never returns it.
	ChangePeriodMove ChangeType = "period-move"
)

// DetectChange compares two snapshots of the same invoice.
// A status change is checked before an amount change, so an update that
// changes both is classified as a status change.
func DetectChange(previous, current InvoiceSnapshot) ChangeType {
	prevEligible := IsEligible(previous.Status)
	currEligible := IsEligible(current.Status)

	switch {
	case prevEligible && !currEligible:
		return ChangeEligibleToIneligible
	case !prevEligible && currEligible:
		return ChangeIneligibleToEligible
	case prevEligible && currEligible && previous.Status != current.Status:
		return ChangeEligibleStatus
	case prevEligible && currEligible && previous.Amount != current.Amount:
		return ChangeEligibleAmount
	default:
		return ChangeNone
	}
}

package ledger

// Flag identifies which fraud rule fired for a transaction.
type Flag string

const (
	FlagHighAmount            Flag = "HIGH_AMOUNT"
	FlagOddTime               Flag = "ODD_TIME"
	FlagTooManyAcrossMerchant Flag = "TOO_MANY_ACROSS_MERCHANT"
	FlagTooManySameMerchant   Flag = "TOO_MANY_SAME_MERCHANT"
	FlagFraudulentMerchant    Flag = "FRAUDULENT_MERCHANT"
)

func (f Flag) String() string {
	return string(f)
}

// IsValid checks if the flag is a known rule tag.
func (f Flag) IsValid() bool {
	switch f {
	case FlagHighAmount, FlagOddTime, FlagTooManyAcrossMerchant,
		FlagTooManySameMerchant, FlagFraudulentMerchant:
		return true
	default:
		return false
	}
}

// FlagStrings converts a flag set to plain strings, preserving order.
// Used for logging and metric attributes.
func FlagStrings(flags []Flag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}

package types

// TransactionStatus is the confirmation state of a submitted transaction.
type TransactionStatus string

const (
	// TxConfirmed is a transaction mined with status 0x1.
	TxConfirmed TransactionStatus = "confirmed"
	// TxReverted is a transaction mined with status 0x0.
	TxReverted TransactionStatus = "reverted"
	// TxPending is a transaction without a receipt when polling gave up.
	TxPending TransactionStatus = "pending"
)

// Verdict classifies the buy/sell round trip of a honeypot probe.
type Verdict string

const (
	// VerdictNormal is a round-trip loss below 5%.
	VerdictNormal Verdict = "normal"
	// VerdictModerate is a loss between 5% and 20%.
	VerdictModerate Verdict = "moderate"
	// VerdictHigh is a loss above 20% and up to 50%.
	VerdictHigh Verdict = "high"
	// VerdictHoneypot is a loss above 50% or a sell that reverts.
	VerdictHoneypot Verdict = "honeypot"
	// VerdictUnknown means no pool could be found to probe.
	VerdictUnknown Verdict = "unknown"
)

// RiskLevel buckets the safety risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

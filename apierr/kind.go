package apierr

// Kind is the error taxonomy shared by the pipeline, the retry coordinator
// and the notifier.
type Kind string

const (
	KindNetwork        Kind = "NETWORK"
	KindTimeout        Kind = "TIMEOUT"
	KindAuthentication Kind = "AUTHENTICATION"
	KindAuthorization  Kind = "AUTHORIZATION"
	KindValidation     Kind = "VALIDATION"
	KindClient         Kind = "CLIENT"
	KindServer         Kind = "SERVER"
	KindUnknown        Kind = "UNKNOWN"
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{
	KindNetwork,
	KindTimeout,
	KindAuthentication,
	KindAuthorization,
	KindValidation,
	KindClient,
	KindServer,
	KindUnknown,
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Severity ranks how loudly a failure is surfaced.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

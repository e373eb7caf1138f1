package enums

import "fmt"

// AuditResult describes the outcome recorded on an audit log row.
type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
	AuditResultDenied  AuditResult = "denied"
)

var validAuditResults = []AuditResult{
	AuditResultSuccess,
	AuditResultFailure,
	AuditResultDenied,
}

// IsValid reports whether the value matches the audit result enum.
func (a AuditResult) IsValid() bool {
	for _, candidate := range validAuditResults {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditResult converts the raw string to AuditResult.
func ParseAuditResult(value string) (AuditResult, error) {
	for _, candidate := range validAuditResults {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit result %q", value)
}

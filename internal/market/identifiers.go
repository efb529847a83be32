// Package market defines the vocabulary shared by every feature package:
// market identifiers, half-open periods, resolutions, observation qualities,
// business processes and the CIM-dialect envelope codec.
package market

import (
	"fmt"
)

// GSRN is the 18-digit global identifier of a metering point.
type GSRN string

// ParseGSRN validates length, digit content and the GS1 check digit.
func ParseGSRN(s string) (GSRN, error) {
	if len(s) != 18 {
		return "", fmt.Errorf("gsrn %q: want 18 digits, got %d", s, len(s))
	}
	if !allDigits(s) {
		return "", fmt.Errorf("gsrn %q: must be digits only", s)
	}
	if !gs1CheckOK(s) {
		return "", fmt.Errorf("gsrn %q: check digit mismatch", s)
	}
	return GSRN(s), nil
}

func (g GSRN) String() string { return string(g) }

// GLN is the 13-digit grid-participant identifier of a market actor
// (supplier, grid company, market operator).
type GLN string

// ParseGLN validates length, digit content and the GS1 check digit.
func ParseGLN(s string) (GLN, error) {
	if len(s) != 13 {
		return "", fmt.Errorf("gln %q: want 13 digits, got %d", s, len(s))
	}
	if !allDigits(s) {
		return "", fmt.Errorf("gln %q: must be digits only", s)
	}
	if !gs1CheckOK(s) {
		return "", fmt.Errorf("gln %q: check digit mismatch", s)
	}
	return GLN(s), nil
}

func (g GLN) String() string { return string(g) }

// CPR is a 10-digit personal number.
type CPR string

// ParseCPR validates length and digit content. The modulus-11 check is
// deliberately not enforced; numbers issued since 2007 may not satisfy it.
func ParseCPR(s string) (CPR, error) {
	if len(s) != 10 || !allDigits(s) {
		return "", fmt.Errorf("cpr: want 10 digits")
	}
	return CPR(s), nil
}

func (c CPR) String() string { return string(c) }

// CVR is an 8-digit company number.
type CVR string

// ParseCVR validates length and digit content.
func ParseCVR(s string) (CVR, error) {
	if len(s) != 8 || !allDigits(s) {
		return "", fmt.Errorf("cvr %q: want 8 digits", s)
	}
	return CVR(s), nil
}

func (c CVR) String() string { return string(c) }

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// gs1CheckOK verifies the trailing GS1 mod-10 check digit. Weights
// alternate 3,1 from the rightmost payload digit.
func gs1CheckOK(s string) bool {
	sum := 0
	triple := true
	for i := len(s) - 2; i >= 0; i-- {
		d := int(s[i] - '0')
		if triple {
			d *= 3
		}
		sum += d
		triple = !triple
	}
	return (10-sum%10)%10 == int(s[len(s)-1]-'0')
}

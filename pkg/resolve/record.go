package resolve

import (
	"fmt"
	"strings"
)

// Status is the outcome of mapping an identifier to an installable package.
type Status int

const (
	StatusUnknown Status = iota
	StatusOK
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(v string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "OK":
		return StatusOK, nil
	case "SKIPPED":
		return StatusSkipped, nil
	case "UNKNOWN", "":
		return StatusUnknown, nil
	default:
		return StatusUnknown, fmt.Errorf("unknown resolution status %q", v)
	}
}

// Resolution is a tagged variant: OK carries the package name, SKIPPED
// carries the reason, UNKNOWN may carry the derived but unverified candidate.
// Fields are unexported so a value can only be built by the constructors.
type Resolution struct {
	status Status
	pkg    string
	reason string
}

// OK returns a verified resolution to pkg.
func OK(pkg string) Resolution {
	return Resolution{status: StatusOK, pkg: pkg}
}

// Skipped returns a curated skip. An empty reason is replaced so the
// reason is always present.
func Skipped(reason string) Resolution {
	if strings.TrimSpace(reason) == "" {
		reason = "unsupported on target platform"
	}
	return Resolution{status: StatusSkipped, reason: reason}
}

// Unknown returns an untested resolution. candidate may be empty when no
// package name could be derived.
func Unknown(candidate string) Resolution {
	return Resolution{status: StatusUnknown, pkg: candidate}
}

func (r Resolution) Status() Status { return r.status }

// Package returns the resolved name for OK, the candidate for UNKNOWN and
// false for SKIPPED or when nothing was derived.
func (r Resolution) Package() (string, bool) {
	if r.status == StatusSkipped || r.pkg == "" {
		return "", false
	}
	return r.pkg, true
}

// Reason returns the skip reason; ok is false unless the status is SKIPPED.
func (r Resolution) Reason() (string, bool) {
	if r.status != StatusSkipped {
		return "", false
	}
	return r.reason, true
}

func (r Resolution) String() string {
	switch r.status {
	case StatusOK:
		return "OK(" + r.pkg + ")"
	case StatusSkipped:
		return "SKIPPED(" + r.reason + ")"
	default:
		return "UNKNOWN(" + r.pkg + ")"
	}
}

// Domain is the scientific area a tool belongs to.
type Domain string

const (
	DomainBio   Domain = "bio"
	DomainML    Domain = "ml"
	DomainChem  Domain = "chem"
	DomainOther Domain = "other"
)

// ParseDomain maps free text to a Domain, defaulting to other.
func ParseDomain(v string) Domain {
	switch Domain(strings.ToLower(strings.TrimSpace(v))) {
	case DomainBio:
		return DomainBio
	case DomainML:
		return DomainML
	case DomainChem:
		return DomainChem
	default:
		return DomainOther
	}
}

// ToolRecord is one discovered repository and how it resolved.
type ToolRecord struct {
	Identifier string
	Domain     Domain
	Resolution Resolution
}

// Org returns the owner part of the identifier.
func (t ToolRecord) Org() string {
	org, _, _ := SplitIdentifier(t.Identifier)
	return org
}

// SplitIdentifier splits "org/name". ok is false unless both parts are
// present and there are exactly two.
func SplitIdentifier(id string) (org, name string, ok bool) {
	parts := strings.Split(strings.TrimSpace(id), "/")
	if len(parts) != 2 {
		return "", "", false
	}
	org = strings.TrimSpace(parts[0])
	name = strings.TrimSpace(parts[1])
	if org == "" || name == "" {
		return "", "", false
	}
	return org, name, true
}

package models

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PolicyKind identifies one method of confirming two resources are equal
type PolicyKind string

const (
	// PolicyContentLength compares the declared remote length with the local size
	PolicyContentLength PolicyKind = "content-length"
	// PolicyETag issues a conditional request with a caller-supplied token
	PolicyETag PolicyKind = "etag"
	// PolicyPartialHash digests the head and tail regions on both sides
	PolicyPartialHash PolicyKind = "partial-hash"
	// PolicyStreamHash digests the streamed remote body
	PolicyStreamHash PolicyKind = "stream-hash"
	// PolicyStreamBufferCompare compares the remote stream chunk by chunk
	PolicyStreamBufferCompare PolicyKind = "stream-buffer-compare"
	// PolicyDownloadBuffer downloads the body and compares bytes
	PolicyDownloadBuffer PolicyKind = "download-buffer"
	// PolicyDownloadHash downloads the body and compares digests
	PolicyDownloadHash PolicyKind = "download-hash"
)

// PolicyKinds lists every kind in escalating cost order
var PolicyKinds = []PolicyKind{
	PolicyContentLength,
	PolicyETag,
	PolicyPartialHash,
	PolicyStreamHash,
	PolicyStreamBufferCompare,
	PolicyDownloadBuffer,
	PolicyDownloadHash,
}

// Valid reports whether k is a known kind
func (k PolicyKind) Valid() bool {
	for _, known := range PolicyKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Policy is a comparison policy descriptor.
// ETag is only meaningful for PolicyETag.
type Policy struct {
	Kind PolicyKind `yaml:"kind" json:"kind"`
	ETag string     `yaml:"etag,omitempty" json:"etag,omitempty"`
}

// NewPolicy returns a policy without parameters
func NewPolicy(kind PolicyKind) Policy {
	return Policy{Kind: kind}
}

// ETagPolicy returns an etag policy expecting token
func ETagPolicy(token string) Policy {
	return Policy{Kind: PolicyETag, ETag: token}
}

// DefaultPolicies returns the full escalation list.
// etag is left out because it needs a caller-supplied token.
func DefaultPolicies() []Policy {
	return []Policy{
		NewPolicy(PolicyContentLength),
		NewPolicy(PolicyPartialHash),
		NewPolicy(PolicyStreamHash),
		NewPolicy(PolicyStreamBufferCompare),
		NewPolicy(PolicyDownloadBuffer),
		NewPolicy(PolicyDownloadHash),
	}
}

// ParsePolicy parses "kind" or "etag=<token>"
func ParsePolicy(s string) (Policy, error) {
	s = strings.TrimSpace(s)
	kind, token, hasToken := strings.Cut(s, "=")
	p := Policy{Kind: PolicyKind(strings.ToLower(strings.TrimSpace(kind)))}

	if !p.Kind.Valid() {
		return Policy{}, &ValidationError{
			Field:   "policy",
			Message: fmt.Sprintf("unknown policy %q (valid: %s)", kind, kindList()),
		}
	}
	if hasToken {
		if p.Kind != PolicyETag {
			return Policy{}, &ValidationError{
				Field:   "policy",
				Message: fmt.Sprintf("policy %s does not take a parameter", p.Kind),
			}
		}
		p.ETag = strings.TrimSpace(token)
	}
	return p, nil
}

// ParsePolicies parses a list of policy strings
func ParsePolicies(values []string) ([]Policy, error) {
	policies := make([]Policy, 0, len(values))
	for _, v := range values {
		p, err := ParsePolicy(v)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

func kindList() string {
	names := make([]string, len(PolicyKinds))
	for i, k := range PolicyKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// String returns the text form accepted by ParsePolicy
func (p Policy) String() string {
	if p.Kind == PolicyETag && p.ETag != "" {
		return string(p.Kind) + "=" + p.ETag
	}
	return string(p.Kind)
}

// Validate checks the kind. An etag policy without a token is accepted here
// and rejected by the engine when it is evaluated.
func (p Policy) Validate() error {
	if !p.Kind.Valid() {
		return &ValidationError{Field: "policy", Message: fmt.Sprintf("unknown policy %q", p.Kind)}
	}
	if p.Kind != PolicyETag && p.ETag != "" {
		return &ValidationError{Field: "policy", Message: fmt.Sprintf("policy %s does not take an etag", p.Kind)}
	}
	return nil
}

// UnmarshalYAML accepts either the text form or a {kind, etag} mapping
func (p *Policy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParsePolicy(node.Value)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}

	type plain Policy
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*p = Policy(raw)
	return p.Validate()
}

// MarshalYAML writes the compact text form
func (p Policy) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// ConfirmationMode decides what a passing policy means
type ConfirmationMode string

const (
	// ConfirmFirstSuccess stops at the first policy that confirms equality
	ConfirmFirstSuccess ConfirmationMode = "first-success"
	// ConfirmAll runs every policy. Equality holds when at least one policy
	// confirms and none fails; inconclusive outcomes are tolerated.
	ConfirmAll ConfirmationMode = "all"
)

// LocalMethod selects how two local files are compared
type LocalMethod string

const (
	// LocalAuto picks text or binary comparison from the file extension
	LocalAuto LocalMethod = "auto"
	// LocalDigest compares digests
	LocalDigest LocalMethod = "digest"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

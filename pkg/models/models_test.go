package models

import (
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

// ============== Policy Tests ==============

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"content-length", NewPolicy(PolicyContentLength), false},
		{" Partial-Hash ", NewPolicy(PolicyPartialHash), false},
		{"etag", Policy{Kind: PolicyETag}, false},
		{"etag=\"abc123\"", ETagPolicy("\"abc123\""), false},
		{"etag=", Policy{Kind: PolicyETag}, false},
		{"stream-hash=abc", Policy{}, true},
		{"md5", Policy{}, true},
		{"", Policy{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("error type = %T, want *ValidationError", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPolicyStringRoundTrip(t *testing.T) {
	for _, p := range append(DefaultPolicies(), ETagPolicy("v1")) {
		parsed, err := ParsePolicy(p.String())
		if err != nil {
			t.Fatalf("ParsePolicy(%q) error = %v", p.String(), err)
		}
		if parsed != p {
			t.Errorf("round trip of %q = %+v", p.String(), parsed)
		}
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := (Policy{Kind: "bogus"}).Validate(); err == nil {
		t.Error("unknown kind should not validate")
	}
	if err := (Policy{Kind: PolicyStreamHash, ETag: "x"}).Validate(); err == nil {
		t.Error("etag on non-etag policy should not validate")
	}
	if err := (Policy{Kind: PolicyETag}).Validate(); err != nil {
		t.Errorf("etag without token should validate, got %v", err)
	}
}

func TestPolicyYAML(t *testing.T) {
	doc := `
policies:
  - content-length
  - etag=abc
  - kind: etag
    etag: def
  - kind: download-hash
`
	var out struct {
		Policies []Policy `yaml:"policies"`
	}
	if err := yaml.Unmarshal([]byte(doc), &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := []Policy{
		NewPolicy(PolicyContentLength),
		ETagPolicy("abc"),
		ETagPolicy("def"),
		NewPolicy(PolicyDownloadHash),
	}
	if len(out.Policies) != len(want) {
		t.Fatalf("got %d policies, want %d", len(out.Policies), len(want))
	}
	for i := range want {
		if out.Policies[i] != want[i] {
			t.Errorf("policy %d = %+v, want %+v", i, out.Policies[i], want[i])
		}
	}

	t.Run("Invalid", func(t *testing.T) {
		if err := yaml.Unmarshal([]byte("policies: [nope]"), &out); err == nil {
			t.Error("unknown policy should fail to unmarshal")
		}
	})

	t.Run("Marshal", func(t *testing.T) {
		data, err := yaml.Marshal(struct {
			Policies []Policy `yaml:"policies"`
		}{[]Policy{ETagPolicy("abc")}})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != "policies:\n    - etag=abc\n" {
			t.Errorf("Marshal() = %q", data)
		}
	})
}

func TestDefaultPolicies(t *testing.T) {
	policies := DefaultPolicies()
	if len(policies) == 0 {
		t.Fatal("default policy list must not be empty")
	}
	for _, p := range policies {
		if p.Kind == PolicyETag {
			t.Error("default list must not contain an etag policy without a token")
		}
	}
	if policies[0].Kind != PolicyContentLength {
		t.Errorf("first default policy = %s, want cheapest (content-length)", policies[0].Kind)
	}
	if policies[len(policies)-1].Kind != PolicyDownloadHash {
		t.Errorf("last default policy = %s, want download-hash", policies[len(policies)-1].Kind)
	}
}

// ============== Report Tests ==============

func TestStatusExitCode(t *testing.T) {
	tests := []struct {
		status Status
		want   int
	}{
		{StatusMatch, 0},
		{StatusMismatch, 1},
		{StatusError, 2},
		{Status("unknown"), 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.ExitCode(); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReportConfirmed(t *testing.T) {
	r := &Report{Policies: []PolicyResult{
		{Outcome: OutcomeInconclusive},
		{Outcome: OutcomeConfirmed},
		{Outcome: OutcomeConfirmed},
	}}
	if r.Confirmed() != 2 {
		t.Errorf("Confirmed() = %d, want 2", r.Confirmed())
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "hashing.partial_chunk_size", Message: "must be positive"}
	if err.Error() != "hashing.partial_chunk_size: must be positive" {
		t.Errorf("Error() = %q", err.Error())
	}
}

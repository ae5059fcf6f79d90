package platform

import (
	"net/url"
	"path"
	"strings"
)

// Resource identifies one side of a comparison: a local path or an http(s) URL
type Resource struct {
	Raw    string
	Remote bool
}

// ParseResource classifies s. The check is purely syntactic: a string is
// remote iff it starts with http:// or https://, ignoring case.
func ParseResource(s string) Resource {
	lower := strings.ToLower(s)
	remote := strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
	if remote {
		return Resource{Raw: s, Remote: true}
	}
	return Resource{Raw: s}
}

// IsRemote reports whether s names an http(s) resource
func IsRemote(s string) bool {
	return ParseResource(s).Remote
}

// String returns the raw identifier
func (r Resource) String() string {
	return r.Raw
}

// Path returns the local path, normalized. Empty for remote resources.
func (r Resource) Path() string {
	if r.Remote {
		return ""
	}
	return NormalizePath(r.Raw)
}

// BaseName returns the last path element, used to name downloaded artifacts.
// For URLs the query and fragment are ignored.
func (r Resource) BaseName() string {
	if !r.Remote {
		return path.Base(strings.ReplaceAll(r.Raw, `\`, "/"))
	}

	u, err := url.Parse(r.Raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "remote"
	}
	return path.Base(u.Path)
}

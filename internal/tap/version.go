package tap

// VersionSet is the static {supported, deprecated} API version table the
// dispatch shell validates declared api_version strings against (spec.md
// §4.8). Deprecated versions still work but attach a warning; anything
// outside both sets is a VersionError.
type VersionSet struct {
	Supported  []string
	Deprecated []string
}

// DefaultVersionSet is the table a freshly configured service starts with.
func DefaultVersionSet() VersionSet {
	return VersionSet{
		Supported:  []string{"0.0"},
		Deprecated: nil,
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Check validates apiVersion, returning (deprecated, error). deprecated is
// true when the version is accepted but listed as deprecated; the RPC
// shells then add a deprecation warning string to the result.
func (vs VersionSet) Check(apiVersion string) (deprecated bool, err error) {
	if contains(vs.Deprecated, apiVersion) {
		return true, nil
	}
	if contains(vs.Supported, apiVersion) {
		return false, nil
	}
	return false, NewError(VersionError, "unsupported api_version: "+apiVersion)
}

package digest

// Result is the digest of a local file, or the fact that the file is absent.
// The zero value is absent.
type Result struct {
	value   string
	present bool
}

// Present returns a result carrying a computed digest.
func Present(value string) Result {
	return Result{value: value, present: true}
}

// Absent returns a result for a file that does not exist.
func Absent() Result {
	return Result{}
}

// IsPresent reports whether the file existed and was hashed.
func (r Result) IsPresent() bool {
	return r.present
}

// Value returns the digest and whether it is present.
func (r Result) Value() (string, bool) {
	return r.value, r.present
}

// Matches reports whether the result equals the expected hex digest.
// An absent result or an empty expectation never matches.
func (r Result) Matches(expected string) bool {
	return r.present && Equal(r.value, expected)
}

func (r Result) String() string {
	if !r.present {
		return "<absent>"
	}
	return r.value
}

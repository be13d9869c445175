package domain

// SubjectType differentiates the clients allowed to call the agent.
type SubjectType string

const (
	// SubjectApp is the UI client driving check-ins.
	SubjectApp SubjectType = "APP"
	// SubjectPlatform is the OS-side bridge pushing location state.
	SubjectPlatform SubjectType = "PLATFORM"
)

// Valid reports whether s is a known subject.
func (s SubjectType) Valid() bool {
	return s == SubjectApp || s == SubjectPlatform
}

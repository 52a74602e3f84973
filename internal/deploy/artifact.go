package deploy

// Kind identifies what an artifact is.
type Kind int

const (
	KindDashboard Kind = iota
	KindTheme
)

func (k Kind) String() string {
	if k == KindTheme {
		return "theme"
	}
	return "dashboard"
}

// Artifact is one file to deploy.
type Artifact struct {
	Kind       Kind
	Label      string // "dashboard", "staging theme", ...
	LocalPath  string
	RemotePath string

	// Content holds the transformed bytes in stage mode. When nil the local
	// file is uploaded as-is.
	Content []byte
}

// InMemory reports whether the artifact is uploaded from Content.
func (a Artifact) InMemory() bool {
	return a.Content != nil
}

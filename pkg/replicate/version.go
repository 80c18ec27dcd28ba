package replicate

import (
	"strings"
)

// VersionRef identifies what a prediction runs against. Either ID is set,
// or Owner and Name are set, or all three.
type VersionRef struct {
	Owner string
	Name  string
	ID    string
}

// ParseVersion accepts "owner/name:id", "owner/name" and a bare "id".
func ParseVersion(s string) (VersionRef, error) {
	invalid := &InvalidVersionError{Version: s}
	model, id, hasID := strings.Cut(s, ":")
	if hasID && (id == "" || strings.ContainsAny(id, ":/")) {
		return VersionRef{}, invalid
	}
	if !strings.Contains(model, "/") {
		// A bare version ID cannot also carry a ":" suffix
		if hasID || model == "" {
			return VersionRef{}, invalid
		}
		return VersionRef{ID: model}, nil
	}
	owner, name, _ := strings.Cut(model, "/")
	if owner == "" || name == "" || strings.Contains(name, "/") {
		return VersionRef{}, invalid
	}
	return VersionRef{Owner: owner, Name: name, ID: id}, nil
}

// IsModel reports whether the reference names a model without a pinned
// version, which runs the model's latest version.
func (v VersionRef) IsModel() bool {
	return v.ID == "" && v.Owner != ""
}

func (v VersionRef) String() string {
	switch {
	case v.Owner == "":
		return v.ID
	case v.ID == "":
		return v.Owner + "/" + v.Name
	default:
		return v.Owner + "/" + v.Name + ":" + v.ID
	}
}

package pipeline

import "errors"

// ErrCollaboratorUnavailable is returned when a required external
// collaborator (the catalog provider) cannot serve a run. The wrapping
// message names the collaborator.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

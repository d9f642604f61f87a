package grid

import (
	"errors"
	"fmt"
	"strings"
)

// PayloadKind tags what a drag gesture is carrying.
type PayloadKind string

const (
	// PayloadProject is a project chip from the palette; dropping it creates
	// a percent allocation.
	PayloadProject PayloadKind = "project"
	// PayloadWorkItem is a work item chip; dropping it creates a unit
	// allocation. The wire form carries the owning project id as well.
	PayloadWorkItem PayloadKind = "workitem"
	// PayloadAlloc, PayloadUnit and PayloadAdhoc are existing bars on the
	// grid; dropping one moves the record it names.
	PayloadAlloc PayloadKind = "alloc"
	PayloadUnit  PayloadKind = "unit"
	PayloadAdhoc PayloadKind = "adhoc"
)

var ErrBadPayload = errors.New("malformed drag payload")

// Payload is the typed form of a drag identifier such as "project:pr-1" or
// "workitem:pr-1:wi-2". It is parsed once when the gesture arrives and
// carried structurally from there on.
type Payload struct {
	Kind PayloadKind
	// ProjectId is set for work item payloads only.
	ProjectId string
	Id        string
}

// ParsePayload converts the wire form into a Payload. Unknown kinds, missing
// segments and empty ids all return ErrBadPayload.
func ParsePayload(s string) (Payload, error) {
	parts := strings.Split(s, ":")
	switch PayloadKind(parts[0]) {
	case PayloadProject, PayloadAlloc, PayloadUnit, PayloadAdhoc:
		if len(parts) != 2 || parts[1] == "" {
			return Payload{}, fmt.Errorf("%w: %q", ErrBadPayload, s)
		}
		return Payload{Kind: PayloadKind(parts[0]), Id: parts[1]}, nil
	case PayloadWorkItem:
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return Payload{}, fmt.Errorf("%w: %q", ErrBadPayload, s)
		}
		return Payload{Kind: PayloadWorkItem, ProjectId: parts[1], Id: parts[2]}, nil
	default:
		return Payload{}, fmt.Errorf("%w: %q", ErrBadPayload, s)
	}
}

// String renders the wire form, the inverse of ParsePayload.
func (p Payload) String() string {
	if p.Kind == PayloadWorkItem {
		return fmt.Sprintf("%s:%s:%s", p.Kind, p.ProjectId, p.Id)
	}
	return fmt.Sprintf("%s:%s", p.Kind, p.Id)
}

// IsRecord reports whether the payload names an existing allocation rather
// than a palette chip.
func (p Payload) IsRecord() bool {
	return p.Kind == PayloadAlloc || p.Kind == PayloadUnit || p.Kind == PayloadAdhoc
}

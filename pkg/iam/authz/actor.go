package authz

import (
	"encoding/json"
	"fmt"
)

// Actor classifies an executor relative to an object.
type Actor int

const (
	Nobody Actor = iota
	Other
	NoMatter
	Admin
	Moderator
	ResourceOwner
	ContainerOwner
)

var actorNames = map[Actor]string{
	Nobody:         "Nobody",
	Other:          "Other",
	NoMatter:       "NoMatter",
	Admin:          "Admin",
	Moderator:      "Moderator",
	ResourceOwner:  "ResourceOwner",
	ContainerOwner: "ContainerOwner",
}

func (a Actor) String() string {
	if name, ok := actorNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Actor(%d)", int(a))
}

func (a Actor) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// IsStaff reports whether the actor holds a global role that bypasses ownership.
func (a Actor) IsStaff() bool {
	return a == Admin || a == Moderator
}

// Outcome is the result of the role stage.
type Outcome int

const (
	Deny Outcome = iota
	Allow
	// Defer hands the decision to the resource's ownership policy.
	Defer
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "Allow"
	case Defer:
		return "Defer"
	default:
		return "Deny"
	}
}

// Operation is what the executor wants to do with an object.
type Operation string

const (
	OpCreate Operation = "create"
	OpGet    Operation = "get"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

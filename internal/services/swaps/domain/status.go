package domain

import "strings"

// Status is the lifecycle state of a swap request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Role identifies which side of a swap a user is on.
type Role int

const (
	RoleNone Role = iota
	RoleRequester
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleRequester:
		return "requester"
	case RoleResponder:
		return "responder"
	default:
		return "none"
	}
}

// directTransitions lists the statuses reachable through Workflow.Transition
// and the only role allowed to request each one. Completed is absent: it is
// reached exclusively by a rating submission.
var directTransitions = map[Status]map[Status]Role{
	StatusPending: {
		StatusAccepted:  RoleResponder,
		StatusRejected:  RoleResponder,
		StatusCancelled: RoleRequester,
	},
}

// ParseStatus normalizes a raw status value. Unknown values return false.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled, StatusCompleted:
		return status, true
	default:
		return "", false
	}
}

// RequiredRole returns the role allowed to request the direct transition.
func RequiredRole(from, to Status) (Role, bool) {
	role, ok := directTransitions[from][to]
	return role, ok
}

// RoleOf reports which side of the swap userID is on.
func RoleOf(requesterID, responderID, userID string) Role {
	if userID == "" {
		return RoleNone
	}
	switch userID {
	case requesterID:
		return RoleRequester
	case responderID:
		return RoleResponder
	default:
		return RoleNone
	}
}

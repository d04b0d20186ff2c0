// Package policy is the access decision core: a declarative
// (resource, action, role) table consulted through one lookup, plus
// helpers that apply the target record or list filter. It performs no
// I/O; callers are responsible for resolving the target first, so
// that a missing record surfaces as not-found before a role denial.
package policy

import (
	"errors"
	"fmt"

	"github.com/salesops/leadhub/internal/domain/lead"
	"github.com/salesops/leadhub/internal/domain/user"
)

type Resource string

const (
	ResourceLead     Resource = "lead"
	ResourceUser     Resource = "user"
	ResourceDistrict Resource = "district"
)

type Action string

const (
	ActionCreate       Action = "create"
	ActionList         Action = "list"
	ActionRead         Action = "read"
	ActionUpdate       Action = "update"
	ActionUpdateStatus Action = "update_status"
	ActionDelete       Action = "delete"
	ActionExport       Action = "export"
)

// Effect is the outcome of a table lookup before any target context
// is applied.
type Effect uint8

const (
	// Deny refuses the action outright.
	Deny Effect = iota
	// Allow grants the action with no further checks.
	Allow
	// AllowSelf grants the action only when the target record is the
	// actor's own (user updates).
	AllowSelf
	// AllowAssigned grants the action only when the target lead is
	// assigned to the actor.
	AllowAssigned
	// AllowMine grants list-style actions under a forced
	// assigned_to == actor scope.
	AllowMine
)

// Actor is the authenticated user a decision is made for.
type Actor struct {
	ID   string
	Role user.Role
}

var ErrForbidden = errors.New("forbidden")

// rules reproduces the role table exactly. A missing entry is a Deny.
var rules = map[Resource]map[Action]map[user.Role]Effect{
	ResourceUser: {
		ActionCreate: {
			user.RoleAdmin: Allow,
		},
		ActionList: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
			user.RoleSales:   Allow,
		},
		ActionRead: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
			user.RoleSales:   Allow,
		},
		ActionUpdate: {
			user.RoleAdmin:   Allow,
			user.RoleManager: AllowSelf,
			user.RoleSales:   AllowSelf,
		},
		ActionDelete: {
			user.RoleAdmin: Allow,
		},
	},
	ResourceLead: {
		ActionCreate: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
			user.RoleSales:   Allow,
		},
		ActionList: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
			user.RoleSales:   AllowMine,
		},
		ActionRead: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
			user.RoleSales:   AllowAssigned,
		},
		ActionUpdate: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
			user.RoleSales:   AllowAssigned,
		},
		ActionUpdateStatus: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
			user.RoleSales:   AllowAssigned,
		},
		ActionDelete: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
		},
		ActionExport: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
			user.RoleSales:   AllowMine,
		},
	},
	ResourceDistrict: {
		ActionCreate: {
			user.RoleAdmin: Allow,
		},
		ActionList: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
			user.RoleSales:   Allow,
		},
		ActionRead: {
			user.RoleAdmin:   Allow,
			user.RoleManager: Allow,
			user.RoleSales:   Allow,
		},
		ActionDelete: {
			user.RoleAdmin: Allow,
		},
	},
}

// Decide returns the raw table effect for a role. Unknown
// combinations deny.
func Decide(role user.Role, res Resource, act Action) Effect {
	byAction, ok := rules[res]
	if !ok {
		return Deny
	}

	byRole, ok := byAction[act]
	if !ok {
		return Deny
	}

	return byRole[role]
}

// CheckUser decides an action against a target user id. AllowSelf
// resolves against the actor's own id.
func CheckUser(a Actor, act Action, targetID string) error {
	switch Decide(a.Role, ResourceUser, act) {
	case Allow:
		return nil
	case AllowSelf:
		if targetID == a.ID {
			return nil
		}
		return deny("can only modify own account")
	default:
		return deny("role may not " + string(act) + " users")
	}
}

// CheckLead decides a record-level action against a concrete lead.
// The caller must have established that the lead exists.
func CheckLead(a Actor, act Action, l lead.Lead) error {
	switch Decide(a.Role, ResourceLead, act) {
	case Allow:
		return nil
	case AllowAssigned:
		if l.AssignedToMatches(a.ID) {
			return nil
		}
		return deny("lead is not assigned to you")
	default:
		return deny("role may not " + string(act) + " leads")
	}
}

// CheckDistrict decides a district action; districts carry no
// per-record ownership.
func CheckDistrict(a Actor, act Action) error {
	if Decide(a.Role, ResourceDistrict, act) == Allow {
		return nil
	}
	return deny("role may not " + string(act) + " districts")
}

// LeadScope intersects a caller-supplied list filter with the role
// scope for the given list-style action (ActionList or ActionExport).
// For a sales actor the assigned_to filter is pinned to the actor;
// any caller-supplied assignee is silently ignored.
func LeadScope(a Actor, act Action, f lead.ListFilter) (lead.ListFilter, error) {
	switch Decide(a.Role, ResourceLead, act) {
	case Allow:
		return f, nil
	case AllowMine:
		self := a.ID
		f.AssignedTo = &self
		return f, nil
	default:
		return lead.ListFilter{}, deny("role may not " + string(act) + " leads")
	}
}

func deny(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

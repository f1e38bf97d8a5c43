package auth

import (
	"fmt"

	"github.com/spec-kit/ticket-service/internal/domain"
)

// Authorizer evaluates role-based permission checks against a static matrix
// built once at construction and immutable afterwards.
type Authorizer struct {
	matrix map[domain.Role]map[domain.Permission]struct{}
}

// RoleAssignmentResult collects every rule the assignment violates.
type RoleAssignmentResult struct {
	OK     bool
	Errors []string
}

// NewAuthorizer builds the role→permission matrix.
func NewAuthorizer() *Authorizer {
	ticketAll := []domain.Permission{
		{Resource: domain.ResourceTicket, Action: domain.ActionCreate},
		{Resource: domain.ResourceTicket, Action: domain.ActionRead},
		{Resource: domain.ResourceTicket, Action: domain.ActionUpdate},
		{Resource: domain.ResourceTicket, Action: domain.ActionDelete},
		{Resource: domain.ResourceTicket, Action: domain.ActionAssign},
		{Resource: domain.ResourceTicket, Action: domain.ActionComment},
	}
	customerAll := []domain.Permission{
		{Resource: domain.ResourceCustomer, Action: domain.ActionCreate},
		{Resource: domain.ResourceCustomer, Action: domain.ActionRead},
		{Resource: domain.ResourceCustomer, Action: domain.ActionUpdate},
		{Resource: domain.ResourceCustomer, Action: domain.ActionDelete},
	}

	grants := map[domain.Role][]domain.Permission{
		domain.RoleAdmin: concat(ticketAll, customerAll, []domain.Permission{
			{Resource: domain.ResourceTechnician, Action: domain.ActionManage},
			{Resource: domain.ResourceAccount, Action: domain.ActionManage},
			{Resource: domain.ResourceReport, Action: domain.ActionRead},
			{Resource: domain.ResourceTimeRecord, Action: domain.ActionRead},
			{Resource: domain.ResourceTimeRecord, Action: domain.ActionWrite},
			{Resource: domain.ResourceSettings, Action: domain.ActionManage},
			{Resource: domain.ResourceIntegration, Action: domain.ActionManage},
		}),
		domain.RoleManager: concat(ticketAll, customerAll, []domain.Permission{
			{Resource: domain.ResourceTechnician, Action: domain.ActionManage},
			{Resource: domain.ResourceAccount, Action: domain.ActionManage},
			{Resource: domain.ResourceReport, Action: domain.ActionRead},
			{Resource: domain.ResourceTimeRecord, Action: domain.ActionRead},
			{Resource: domain.ResourceTimeRecord, Action: domain.ActionWrite},
		}),
		domain.RoleTechnician: {
			{Resource: domain.ResourceTicket, Action: domain.ActionCreate},
			{Resource: domain.ResourceTicket, Action: domain.ActionRead},
			{Resource: domain.ResourceTicket, Action: domain.ActionUpdate},
			{Resource: domain.ResourceTicket, Action: domain.ActionComment},
			{Resource: domain.ResourceCustomer, Action: domain.ActionRead},
			{Resource: domain.ResourceTimeRecord, Action: domain.ActionRead},
			{Resource: domain.ResourceTimeRecord, Action: domain.ActionWrite},
		},
		domain.RoleReadOnly: {
			{Resource: domain.ResourceTicket, Action: domain.ActionRead},
			{Resource: domain.ResourceCustomer, Action: domain.ActionRead},
			{Resource: domain.ResourceReport, Action: domain.ActionRead},
		},
	}

	matrix := make(map[domain.Role]map[domain.Permission]struct{}, len(grants))
	for role, perms := range grants {
		set := make(map[domain.Permission]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		matrix[role] = set
	}
	return &Authorizer{matrix: matrix}
}

// HasPermission reports whether the role may perform action on resource.
func (a *Authorizer) HasPermission(role domain.Role, resource domain.Resource, action domain.Action) bool {
	set, ok := a.matrix[role]
	if !ok {
		return false
	}
	_, granted := set[domain.Permission{Resource: resource, Action: action}]
	return granted
}

// AccessibleResources returns every resource the role holds any grant on.
func (a *Authorizer) AccessibleResources(role domain.Role) []domain.Resource {
	seen := make(map[domain.Resource]struct{})
	var resources []domain.Resource
	for perm := range a.matrix[role] {
		if _, dup := seen[perm.Resource]; dup {
			continue
		}
		seen[perm.Resource] = struct{}{}
		resources = append(resources, perm.Resource)
	}
	return resources
}

// ActionsFor returns the actions the role holds on one resource.
func (a *Authorizer) ActionsFor(role domain.Role, resource domain.Resource) []domain.Action {
	var actions []domain.Action
	for perm := range a.matrix[role] {
		if perm.Resource == resource {
			actions = append(actions, perm.Action)
		}
	}
	return actions
}

// CanManage is the hard gate for destructive actions against another account:
// administrators manage everyone, managers manage technicians and read-only
// accounts, every other pair is false.
func (a *Authorizer) CanManage(actor, target domain.Role) bool {
	switch actor {
	case domain.RoleAdmin:
		return target.Valid()
	case domain.RoleManager:
		return target == domain.RoleTechnician || target == domain.RoleReadOnly
	default:
		return false
	}
}

// CanAccessOwnResource narrows a general grant on self-scoped resources to the
// owning account unless the actor holds a managing role. Administrators always
// pass.
func (a *Authorizer) CanAccessOwnResource(role domain.Role, resource domain.Resource, action domain.Action, ownerID, actorID string) bool {
	if !a.HasPermission(role, resource, action) {
		return false
	}
	if !resource.SelfScoped() {
		return true
	}
	if role == domain.RoleAdmin || role == domain.RoleManager {
		return true
	}
	return ownerID != "" && ownerID == actorID
}

// ValidateRoleAssignment is the advisory business-rule gate for granting or
// revoking roles. It collects every violated rule; CanManage remains the hard
// boolean for destructive actions.
func (a *Authorizer) ValidateRoleAssignment(assigner, target domain.Role, current *domain.Role) RoleAssignmentResult {
	var errs []string

	if !target.Valid() {
		errs = append(errs, fmt.Sprintf("unknown role %q", string(target)))
	}

	switch assigner {
	case domain.RoleAdmin:
		// Administrators may grant or revoke anything.
	case domain.RoleManager:
		if target == domain.RoleAdmin || target == domain.RoleManager {
			errs = append(errs, "managers may only assign technician or read-only roles")
		}
		if current != nil && (*current == domain.RoleAdmin || *current == domain.RoleManager) {
			errs = append(errs, "managers may not change administrator or manager roles")
		}
	default:
		errs = append(errs, "role cannot assign roles")
	}

	if target == domain.RoleAdmin && assigner != domain.RoleAdmin {
		errs = append(errs, "only an administrator may grant the administrator role")
	}
	if current != nil && *current == domain.RoleAdmin && assigner != domain.RoleAdmin {
		errs = append(errs, "only an administrator may revoke the administrator role")
	}

	return RoleAssignmentResult{OK: len(errs) == 0, Errors: dedupe(errs)}
}

func concat(sets ...[]domain.Permission) []domain.Permission {
	var out []domain.Permission
	for _, set := range sets {
		out = append(out, set...)
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

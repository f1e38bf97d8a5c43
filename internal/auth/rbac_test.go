package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-service/internal/domain"
)

func TestAuthorizer_HasPermission(t *testing.T) {
	authorizer := NewAuthorizer()

	tests := []struct {
		name     string
		role     domain.Role
		resource domain.Resource
		action   domain.Action
		want     bool
	}{
		{"admin_settings_manage", domain.RoleAdmin, domain.ResourceSettings, domain.ActionManage, true},
		{"admin_ticket_delete", domain.RoleAdmin, domain.ResourceTicket, domain.ActionDelete, true},
		{"manager_ticket_assign", domain.RoleManager, domain.ResourceTicket, domain.ActionAssign, true},
		{"manager_settings_manage", domain.RoleManager, domain.ResourceSettings, domain.ActionManage, false},
		{"manager_integration_manage", domain.RoleManager, domain.ResourceIntegration, domain.ActionManage, false},
		{"technician_ticket_update", domain.RoleTechnician, domain.ResourceTicket, domain.ActionUpdate, true},
		{"technician_ticket_delete", domain.RoleTechnician, domain.ResourceTicket, domain.ActionDelete, false},
		{"technician_ticket_assign", domain.RoleTechnician, domain.ResourceTicket, domain.ActionAssign, false},
		{"technician_customer_update", domain.RoleTechnician, domain.ResourceCustomer, domain.ActionUpdate, false},
		{"read_only_ticket_read", domain.RoleReadOnly, domain.ResourceTicket, domain.ActionRead, true},
		{"read_only_ticket_create", domain.RoleReadOnly, domain.ResourceTicket, domain.ActionCreate, false},
		{"read_only_report_read", domain.RoleReadOnly, domain.ResourceReport, domain.ActionRead, true},
		{"unknown_role", domain.Role("SUPERUSER"), domain.ResourceTicket, domain.ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authorizer.HasPermission(tt.role, tt.resource, tt.action))
		})
	}
}

func TestAuthorizer_CanManage_AllPairs(t *testing.T) {
	authorizer := NewAuthorizer()

	managed := map[domain.Role][]domain.Role{
		domain.RoleAdmin:      {domain.RoleAdmin, domain.RoleManager, domain.RoleTechnician, domain.RoleReadOnly},
		domain.RoleManager:    {domain.RoleTechnician, domain.RoleReadOnly},
		domain.RoleTechnician: {},
		domain.RoleReadOnly:   {},
	}

	for _, actor := range domain.AllRoles() {
		for _, target := range domain.AllRoles() {
			want := false
			for _, allowed := range managed[actor] {
				if allowed == target {
					want = true
				}
			}
			assert.Equal(t, want, authorizer.CanManage(actor, target),
				"actor=%s target=%s", actor, target)
		}
	}

	assert.False(t, authorizer.CanManage(domain.RoleAdmin, domain.Role("SUPERUSER")))
}

func TestAuthorizer_CanAccessOwnResource(t *testing.T) {
	authorizer := NewAuthorizer()

	tests := []struct {
		name     string
		role     domain.Role
		resource domain.Resource
		action   domain.Action
		ownerID  string
		actorID  string
		want     bool
	}{
		{"technician_own_time_record", domain.RoleTechnician, domain.ResourceTimeRecord, domain.ActionWrite, "t-1", "t-1", true},
		{"technician_other_time_record", domain.RoleTechnician, domain.ResourceTimeRecord, domain.ActionWrite, "t-2", "t-1", false},
		{"manager_other_time_record", domain.RoleManager, domain.ResourceTimeRecord, domain.ActionWrite, "t-2", "m-1", true},
		{"admin_other_time_record", domain.RoleAdmin, domain.ResourceTimeRecord, domain.ActionWrite, "t-2", "a-1", true},
		{"no_grant_at_all", domain.RoleReadOnly, domain.ResourceTimeRecord, domain.ActionWrite, "r-1", "r-1", false},
		{"non_self_scoped_passes", domain.RoleTechnician, domain.ResourceTicket, domain.ActionRead, "t-2", "t-1", true},
		{"empty_owner_denied", domain.RoleTechnician, domain.ResourceTimeRecord, domain.ActionWrite, "", "t-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := authorizer.CanAccessOwnResource(tt.role, tt.resource, tt.action, tt.ownerID, tt.actorID)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorizer_ValidateRoleAssignment(t *testing.T) {
	authorizer := NewAuthorizer()
	admin := domain.RoleAdmin
	technician := domain.RoleTechnician

	tests := []struct {
		name     string
		assigner domain.Role
		target   domain.Role
		current  *domain.Role
		ok       bool
		contains string
	}{
		{"admin_grants_admin", domain.RoleAdmin, domain.RoleAdmin, nil, true, ""},
		{"admin_demotes_admin", domain.RoleAdmin, domain.RoleTechnician, &admin, true, ""},
		{"manager_grants_technician", domain.RoleManager, domain.RoleTechnician, nil, true, ""},
		{"manager_grants_read_only", domain.RoleManager, domain.RoleReadOnly, &technician, true, ""},
		{"manager_grants_manager", domain.RoleManager, domain.RoleManager, nil, false,
			"managers may only assign technician or read-only roles"},
		{"manager_grants_admin", domain.RoleManager, domain.RoleAdmin, nil, false,
			"only an administrator may grant the administrator role"},
		{"manager_demotes_admin", domain.RoleManager, domain.RoleTechnician, &admin, false,
			"only an administrator may revoke the administrator role"},
		{"technician_assigns", domain.RoleTechnician, domain.RoleReadOnly, nil, false,
			"role cannot assign roles"},
		{"read_only_assigns", domain.RoleReadOnly, domain.RoleReadOnly, nil, false,
			"role cannot assign roles"},
		{"unknown_target", domain.RoleAdmin, domain.Role("SUPERUSER"), nil, false,
			`unknown role "SUPERUSER"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := authorizer.ValidateRoleAssignment(tt.assigner, tt.target, tt.current)
			assert.Equal(t, tt.ok, result.OK)
			if tt.contains != "" {
				assert.Contains(t, result.Errors, tt.contains)
			} else {
				assert.Empty(t, result.Errors)
			}
		})
	}
}

func TestAuthorizer_ValidateRoleAssignment_CollectsAllViolations(t *testing.T) {
	authorizer := NewAuthorizer()
	admin := domain.RoleAdmin

	// A manager touching an administrator account trips both the target rule
	// and the current-role rule.
	result := authorizer.ValidateRoleAssignment(domain.RoleManager, domain.RoleAdmin, &admin)
	assert.False(t, result.OK)
	assert.GreaterOrEqual(t, len(result.Errors), 3)
}

func TestAuthorizer_AccessibleResources(t *testing.T) {
	authorizer := NewAuthorizer()

	readOnly := authorizer.AccessibleResources(domain.RoleReadOnly)
	assert.ElementsMatch(t, []domain.Resource{
		domain.ResourceTicket, domain.ResourceCustomer, domain.ResourceReport,
	}, readOnly)

	admin := authorizer.AccessibleResources(domain.RoleAdmin)
	assert.Contains(t, admin, domain.ResourceSettings)
	assert.Contains(t, admin, domain.ResourceIntegration)
}

func TestAuthorizer_ActionsFor(t *testing.T) {
	authorizer := NewAuthorizer()

	actions := authorizer.ActionsFor(domain.RoleTechnician, domain.ResourceTicket)
	assert.ElementsMatch(t, []domain.Action{
		domain.ActionCreate, domain.ActionRead, domain.ActionUpdate, domain.ActionComment,
	}, actions)

	assert.Empty(t, authorizer.ActionsFor(domain.RoleReadOnly, domain.ResourceSettings))
}

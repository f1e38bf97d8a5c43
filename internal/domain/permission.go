package domain

// Resource identifies a protected resource class.
type Resource string

// Action identifies an operation on a resource.
type Action string

const (
	ResourceTicket      Resource = "ticket"
	ResourceCustomer    Resource = "customer"
	ResourceTechnician  Resource = "technician"
	ResourceAccount     Resource = "account"
	ResourceReport      Resource = "report"
	ResourceTimeRecord  Resource = "time_record"
	ResourceSettings    Resource = "settings"
	ResourceIntegration Resource = "integration"
)

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionAssign  Action = "assign"
	ActionComment Action = "comment"
	ActionManage  Action = "manage"
	ActionWrite   Action = "write"
)

// Permission pairs a resource with an action.
type Permission struct {
	Resource Resource
	Action   Action
}

// selfScopedResources are narrowed to the owning account unless the actor
// holds a managing role.
var selfScopedResources = map[Resource]bool{
	ResourceTimeRecord: true,
}

// SelfScoped reports whether a general grant on the resource is still
// restricted to records the actor owns.
func (r Resource) SelfScoped() bool {
	return selfScopedResources[r]
}

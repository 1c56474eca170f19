package models

// Capability names an action a role may be granted
type Capability string

const (
	CapMenuView       Capability = "menu:view_all"
	CapMenuWrite      Capability = "menu:write"
	CapMenuDelete     Capability = "menu:delete"
	CapOrderPlace     Capability = "order:place"
	CapOrderViewAll   Capability = "order:view_all"
	CapOrderManage    Capability = "order:manage"
	CapPaymentViewAll Capability = "payment:view_all"
	CapPaymentRefund  Capability = "payment:refund"
	CapStaffCounter   Capability = "staff:counter"
	CapUserAdmin      Capability = "user:admin"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapMenuView, CapMenuWrite, CapMenuDelete,
		CapOrderPlace, CapOrderViewAll, CapOrderManage,
		CapPaymentViewAll, CapPaymentRefund,
		CapStaffCounter, CapUserAdmin,
	},
	RoleStaff: {
		CapMenuView, CapMenuWrite,
		CapOrderPlace, CapOrderViewAll, CapOrderManage,
		CapPaymentViewAll,
		CapStaffCounter,
	},
	RoleStudent:   {CapOrderPlace},
	RoleTeacher:   {CapOrderPlace},
	RoleProfessor: {CapOrderPlace},
}

// Can reports whether role holds capability
func Can(role Role, capability Capability) bool {
	for _, granted := range roleCapabilities[role] {
		if granted == capability {
			return true
		}
	}
	return false
}

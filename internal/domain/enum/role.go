package enum

// Roles carried in access tokens.
const (
	RoleCustomer   = "customer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

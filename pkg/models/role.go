package models

// Permission resources.
const (
	ResourceBooks      = "books"
	ResourceCategories = "categories"
	ResourceRequests   = "requests"
	ResourceActivity   = "activity"
)

// Permission operations.
const (
	OperationRead     = "read"
	OperationWrite    = "write"
	OperationSubmit   = "submit"
	OperationModerate = "moderate"
)

// Role names.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var rolePermissions = map[string]map[string][]string{
	RoleAdmin: {
		ResourceBooks:      {OperationRead, OperationWrite},
		ResourceCategories: {OperationRead, OperationWrite},
		ResourceRequests:   {OperationRead, OperationSubmit, OperationModerate},
		ResourceActivity:   {OperationRead, OperationWrite},
	},
	RoleUser: {
		ResourceBooks:      {OperationRead},
		ResourceCategories: {OperationRead},
		ResourceRequests:   {OperationSubmit},
		ResourceActivity:   {OperationRead, OperationWrite},
	},
}

// RoleHasPermission reports whether role grants operation on resource.
func RoleHasPermission(role, resource, operation string) bool {
	for _, op := range rolePermissions[role][resource] {
		if op == operation {
			return true
		}
	}
	return false
}

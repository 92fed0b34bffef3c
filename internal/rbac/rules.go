package rbac

// RolePermissions is the default policy.
//
//	viewer  - reads participants, results, forecasts and reports
//	trainer - additionally records results, manages participants, exports reports
//	admin   - everything, including user management and model retraining
var RolePermissions = map[string][]string{
	"viewer": {
		"participant:view",
		"result:view",
		"forecast:view",
		"report:view",
		"user:change_password",
	},
	"trainer": {
		"participant:*",
		"result:*",
		"forecast:view",
		"report:*",
		"users:list",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}

// Permissions catalogues every permission a route checks.
var Permissions = []string{
	"participant:view", "participant:create", "participant:update", "participant:export",
	"result:view", "result:create", "result:update",
	"forecast:view", "model:train",
	"report:view", "report:export",
	"users:list", "users:create", "users:update", "user:change_password",
	"audit:view",
}

// Roles known to the policy.
func Roles() []string { return []string{"admin", "trainer", "viewer"} }

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

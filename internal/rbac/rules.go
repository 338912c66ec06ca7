package rbac

// Simple default policy. Students drive their own exam sessions and
// progress; admins get everything (back-office CRUD, email, analytics).
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"session:start",
		"session:answer",
		"session:navigate",
		"session:submit",
		"module:complete",
		"attempt:view-own",
		"certificate:view",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}

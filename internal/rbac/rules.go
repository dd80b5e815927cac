package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"rubric:view",
		"question:view",
		"submission:create",
		"submission:view-own",
		"result:view-own",
	},
	"grader": {
		"rubric:create",
		"rubric:view",
		"question:create",
		"question:view",
		"submission:view",
		"submission:view-own",
		"eval:run",
		"fusion:view",
		"result:view",
		"result:view-own",
	},
	"admin": {
		"*", // everything
	},
}

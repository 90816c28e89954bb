package models

const (
	RoleStudent             = "STUDENT"
	RoleTeacher             = "TEACHER"
	RoleParent              = "PARENT"
	RolePrincipal           = "PRINCIPAL"
	RoleAdministrator       = "ADMINISTRATOR"
	RoleFinanceOfficer      = "FINANCE_OFFICER"
	RoleRegistrar           = "REGISTRAR"
	RoleManagement          = "MANAGEMENT"
	RoleAcademicCoordinator = "ACADEMIC_COORDINATOR"
	RoleCounselor           = "COUNSELOR"
	RoleLibrarian           = "LIBRARIAN"
	RoleITAdmin             = "IT_ADMIN"
)

var AllRoles = []string{
	RoleStudent, RoleTeacher, RoleParent, RolePrincipal, RoleAdministrator, RoleFinanceOfficer,
	RoleRegistrar, RoleManagement, RoleAcademicCoordinator, RoleCounselor, RoleLibrarian, RoleITAdmin,
}

func IsKnownRole(name string) bool {
	for _, r := range AllRoles {
		if r == name {
			return true
		}
	}
	return false
}

func perm(key, resource string, action Action, sensitive bool) Permission {
	return Permission{Key: key, Resource: resource, Action: action, IsSensitive: sensitive}
}

// PermissionCatalog is the seeded API-level permission set, in seed order.
var PermissionCatalog = []Permission{
	perm("AUTH:LOGIN", "AUTH", ActionRead, false),

	perm("USER:READ_SELF", "USER", ActionRead, false),
	perm("USER:UPDATE_SELF", "USER", ActionUpdate, false),
	perm("USER:CREATE", "USER", ActionCreate, true),
	perm("USER:READ", "USER", ActionRead, true),
	perm("USER:UPDATE", "USER", ActionUpdate, true),
	perm("USER:DELETE", "USER", ActionDelete, true),

	perm("ROLE:READ", "ROLE", ActionRead, false),
	perm("ROLE:ASSIGN", "ROLE", ActionUpdate, true),

	perm("SYSTEM:READ", "SYSTEM", ActionRead, false),
	perm("SYSTEM:UPDATE", "SYSTEM", ActionUpdate, true),
	perm("AUDIT:READ", "AUDIT", ActionRead, true),
	perm("AUDIT:EXPORT", "AUDIT", ActionExport, true),

	perm("LESSON:CREATE", "LESSON", ActionCreate, false),
	perm("LESSON:READ", "LESSON", ActionRead, false),
	perm("LESSON:APPROVE", "LESSON", ActionApprove, true),
	perm("ATTENDANCE:MARK", "ATTENDANCE", ActionUpdate, false),
	perm("ATTENDANCE:READ", "ATTENDANCE", ActionRead, false),
	perm("ASSIGNMENT:CREATE", "ASSIGNMENT", ActionCreate, false),
	perm("ASSIGNMENT:SUBMIT", "ASSIGNMENT", ActionCreate, false),
	perm("ASSIGNMENT:GRADE", "ASSIGNMENT", ActionUpdate, false),
	perm("EXAM:CREATE", "EXAM", ActionCreate, false),
	perm("EXAM:EVALUATE", "EXAM", ActionUpdate, false),
	perm("EXAM:APPROVE", "EXAM", ActionApprove, true),
	perm("REPORTCARD:READ", "REPORTCARD", ActionRead, false),
	perm("REPORTCARD:GENERATE", "REPORTCARD", ActionExport, true),

	perm("STUDENT:CREATE", "STUDENT", ActionCreate, true),
	perm("STUDENT:UPDATE", "STUDENT", ActionUpdate, true),
	perm("STUDENT:READ_SELF", "STUDENT", ActionRead, false),
	perm("STUDENT:READ_CLASS", "STUDENT", ActionRead, false),
	perm("STUDENT:READ_ALL", "STUDENT", ActionRead, true),
	perm("ADMISSION:CREATE", "ADMISSION", ActionCreate, true),
	perm("ADMISSION:UPDATE", "ADMISSION", ActionUpdate, true),

	perm("FEE:READ", "FEE", ActionRead, true),
	perm("FEE:CREATE", "FEE", ActionCreate, true),
	perm("FEE:RECONCILE", "FEE", ActionUpdate, true),
	perm("PAYMENT:PROCESS", "PAYMENT", ActionCreate, true),

	perm("CASE:CREATE", "COUNSELING", ActionCreate, true),
	perm("CASE:READ", "COUNSELING", ActionRead, true),
	perm("CASE:UPDATE", "COUNSELING", ActionUpdate, true),

	perm("LIBRARY:CREATE", "LIBRARY", ActionCreate, false),
	perm("LIBRARY:UPDATE", "LIBRARY", ActionUpdate, false),
	perm("LIBRARY:ISSUE", "LIBRARY", ActionUpdate, false),
	perm("LIBRARY:RETURN", "LIBRARY", ActionUpdate, false),

	perm("MESSAGE:SEND", "MESSAGE", ActionCreate, false),
	perm("MESSAGE:READ", "MESSAGE", ActionRead, false),
	perm("ANNOUNCEMENT:CREATE", "ANNOUNCEMENT", ActionCreate, false),
	perm("ANNOUNCEMENT:READ", "ANNOUNCEMENT", ActionRead, false),

	perm("COMPLIANCE:READ", "COMPLIANCE", ActionRead, true),
}

type RoleSeed struct {
	Code        string
	Name        string
	Permissions []string
}

var RoleCatalog = []RoleSeed{
	{Code: "R01", Name: RoleStudent, Permissions: []string{
		"AUTH:LOGIN", "USER:READ_SELF", "USER:UPDATE_SELF", "STUDENT:READ_SELF", "ATTENDANCE:READ",
		"ASSIGNMENT:SUBMIT", "LESSON:READ", "REPORTCARD:READ", "ANNOUNCEMENT:READ", "MESSAGE:READ",
	}},
	{Code: "R02", Name: RoleTeacher, Permissions: []string{
		"AUTH:LOGIN", "USER:READ_SELF", "USER:UPDATE_SELF", "LESSON:CREATE", "LESSON:READ",
		"ATTENDANCE:MARK", "ASSIGNMENT:CREATE", "ASSIGNMENT:GRADE", "EXAM:CREATE", "EXAM:EVALUATE",
		"STUDENT:READ_CLASS", "MESSAGE:SEND", "MESSAGE:READ", "ANNOUNCEMENT:CREATE", "ANNOUNCEMENT:READ",
	}},
	{Code: "R03", Name: RoleParent, Permissions: []string{
		"AUTH:LOGIN", "USER:READ_SELF", "USER:UPDATE_SELF", "STUDENT:READ_SELF", "ATTENDANCE:READ",
		"FEE:READ", "PAYMENT:PROCESS", "REPORTCARD:READ", "MESSAGE:SEND", "MESSAGE:READ", "ANNOUNCEMENT:READ",
	}},
	{Code: "R04", Name: RolePrincipal, Permissions: []string{
		"AUTH:LOGIN", "USER:READ_SELF", "STUDENT:READ_ALL", "LESSON:APPROVE", "EXAM:APPROVE",
		"REPORTCARD:GENERATE", "AUDIT:READ", "AUDIT:EXPORT", "COMPLIANCE:READ", "ANNOUNCEMENT:CREATE",
		"ANNOUNCEMENT:READ",
	}},
	{Code: "R05", Name: RoleAdministrator, Permissions: []string{
		"AUTH:LOGIN", "USER:CREATE", "USER:READ", "USER:UPDATE", "USER:DELETE", "ROLE:READ",
		"ROLE:ASSIGN", "SYSTEM:READ", "SYSTEM:UPDATE", "AUDIT:READ", "AUDIT:EXPORT",
	}},
	{Code: "R06", Name: RoleFinanceOfficer, Permissions: []string{
		"AUTH:LOGIN", "USER:READ_SELF", "FEE:READ", "FEE:CREATE", "FEE:RECONCILE", "PAYMENT:PROCESS",
		"AUDIT:READ",
	}},
	{Code: "R07", Name: RoleRegistrar, Permissions: []string{
		"AUTH:LOGIN", "USER:READ_SELF", "ADMISSION:CREATE", "ADMISSION:UPDATE", "STUDENT:CREATE",
		"STUDENT:UPDATE", "STUDENT:READ_ALL", "COMPLIANCE:READ",
	}},
	{Code: "R08", Name: RoleManagement, Permissions: []string{
		"AUTH:LOGIN", "AUDIT:READ", "AUDIT:EXPORT", "FEE:READ", "COMPLIANCE:READ",
	}},
	{Code: "R09", Name: RoleAcademicCoordinator, Permissions: []string{
		"AUTH:LOGIN", "LESSON:READ", "LESSON:APPROVE", "EXAM:CREATE", "STUDENT:READ_CLASS",
		"REPORTCARD:GENERATE",
	}},
	{Code: "R10", Name: RoleCounselor, Permissions: []string{
		"AUTH:LOGIN", "CASE:CREATE", "CASE:READ", "CASE:UPDATE", "STUDENT:READ_CLASS",
	}},
	{Code: "R11", Name: RoleLibrarian, Permissions: []string{
		"AUTH:LOGIN", "LIBRARY:CREATE", "LIBRARY:UPDATE", "LIBRARY:ISSUE", "LIBRARY:RETURN",
		"STUDENT:READ_CLASS",
	}},
	{Code: "R12", Name: RoleITAdmin, Permissions: []string{
		"AUTH:LOGIN", "SYSTEM:READ", "SYSTEM:UPDATE", "AUDIT:READ",
	}},
}

// CodeForRole maps a role name to its seeded code ("" when unknown).
func CodeForRole(name string) string {
	for _, r := range RoleCatalog {
		if r.Name == name {
			return r.Code
		}
	}
	return ""
}

package analyzer

// Document lifecycle hooks of Frappe/ERPNext controllers.
var lifecycleHooks = map[string]struct{}{
	"validate":        {},
	"before_validate": {},
	"after_validate":  {},
	"on_submit":       {},
	"before_submit":   {},
	"on_cancel":       {},
	"on_update":       {},
	"after_insert":    {},
	"before_save":     {},
	"on_trash":        {},
	"after_delete":    {},
}

// ClassifyHook returns name when it is a lifecycle hook, "" otherwise.
func ClassifyHook(name string) string {
	if _, ok := lifecycleHooks[name]; ok {
		return name
	}
	return ""
}

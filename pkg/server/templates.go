package server

import (
	"github.com/yosida95/uritemplate/v3"
)

// matchTemplates tests uri against the compiled templates in registration
// order and returns the first match with its extracted variables.
// resources/read consults concrete resources before calling this, so
// exact URIs always win over templates.
func matchTemplates(entries []templateEntry, uri string) (templateEntry, map[string]string, bool) {
	for _, entry := range entries {
		values := entry.compiled.Match(uri)
		if values == nil {
			continue
		}
		return entry, extractVariables(entry.compiled, values), true
	}
	return templateEntry{}, nil, false
}

// extractVariables flattens matched template values to strings. RFC 6570
// list and map values have no place in resource URIs and are skipped.
func extractVariables(tmpl *uritemplate.Template, values uritemplate.Values) map[string]string {
	params := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		value := values.Get(name)
		if value.Valid() && value.T == uritemplate.ValueTypeString {
			params[name] = value.String()
		}
	}
	return params
}

// Package template resolves the variables a Mailjet template requires and
// checks dispatch payloads against them before any send is attempted.
package template

import (
	"regexp"
	"sort"

	"notification-dispatcher/internal/models"
)

var (
	scalarVarPattern = regexp.MustCompile(`\{\{\s*var:([a-zA-Z0-9_.]+)`)
	ifVarPattern     = regexp.MustCompile(`\{%\s*if\s+var:([a-zA-Z0-9_.]+)`)
	forVarPattern    = regexp.MustCompile(`\{%\s*for\s+([a-zA-Z0-9_]+)\s+in\s+var:([a-zA-Z0-9_.]+)`)
)

// ScrapeVariables extracts the template-language variable references from a
// rendered template body. Loop variables contribute a group keyed by the
// list name; everything else is a scalar path.
func ScrapeVariables(content string) models.TemplateVariables {
	scalars := make(map[string]struct{})
	groups := make(map[string]map[string]struct{})
	loopVars := make(map[string]string)

	for _, m := range forVarPattern.FindAllStringSubmatch(content, -1) {
		loopVars[m[1]] = m[2]
		if _, ok := groups[m[2]]; !ok {
			groups[m[2]] = make(map[string]struct{})
		}
	}

	for _, m := range scalarVarPattern.FindAllStringSubmatch(content, -1) {
		scalars[m[1]] = struct{}{}
	}
	for _, m := range ifVarPattern.FindAllStringSubmatch(content, -1) {
		scalars[m[1]] = struct{}{}
	}

	// Attribute access on a loop variable belongs to the group it iterates.
	for loopVar, groupName := range loopVars {
		attrPattern := regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(loopVar) + `\.([a-zA-Z0-9_]+)`)
		for _, m := range attrPattern.FindAllStringSubmatch(content, -1) {
			groups[groupName][m[1]] = struct{}{}
		}
	}

	out := models.TemplateVariables{Groups: make(map[string][]string, len(groups))}
	for name := range scalars {
		out.Scalars = append(out.Scalars, name)
	}
	sort.Strings(out.Scalars)
	for name, attrs := range groups {
		list := make([]string, 0, len(attrs))
		for attr := range attrs {
			list = append(list, attr)
		}
		sort.Strings(list)
		out.Groups[name] = list
	}
	return out
}

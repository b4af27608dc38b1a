package template

import (
	"sort"
	"strconv"
	"strings"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"
)

// FlattenVariables turns a nested variable payload into a set of dot-joined
// paths. Numeric list indexes collapse to 0 so that any populated element
// satisfies a required group attribute.
func FlattenVariables(variables map[string]interface{}) map[string]struct{} {
	paths := make(map[string]struct{})
	flattenInto(paths, "", variables)
	return paths
}

func flattenInto(paths map[string]struct{}, prefix string, value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, child := range v {
			flattenInto(paths, joinPath(prefix, key), child)
		}
	case []interface{}:
		for i, child := range v {
			index := strconv.Itoa(i)
			if i > 0 {
				index = "0"
			}
			flattenInto(paths, joinPath(prefix, index), child)
		}
	default:
		if prefix != "" {
			paths[prefix] = struct{}{}
		}
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// VerifyRequiredFields checks that every variable the template references is
// present in the payload. The returned error carries the full list of
// missing paths.
func VerifyRequiredFields(required models.TemplateVariables, variables map[string]interface{}) error {
	provided := FlattenVariables(variables)

	var missing []string
	for _, name := range required.Scalars {
		if _, ok := provided[name]; !ok {
			missing = append(missing, name)
		}
	}
	for group, attrs := range required.Groups {
		for _, attr := range attrs {
			path := group + ".0." + attr
			if _, ok := provided[path]; !ok {
				missing = append(missing, path)
			}
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.NewMissingVariablesError("missing: " + strings.Join(missing, ", "))
	}
	return nil
}

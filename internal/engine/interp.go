package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/talkweave/engine/pkg/api"
	"github.com/tidwall/gjson"
)

var interpPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Interpolate replaces {{name}} and {{name.path.into.value}} references
// with variable values. Unresolved references become the empty string
func Interpolate(text string, vars api.Vars) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return interpPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := interpPattern.FindStringSubmatch(m)
		if len(sub) != 2 {
			return ""
		}
		return resolveRef(sub[1], vars)
	})
}

func resolveRef(ref string, vars api.Vars) string {
	name, path, _ := strings.Cut(ref, ".")
	v, ok := vars.Get(api.Name(name))
	if !ok || v == nil {
		return ""
	}
	if path == "" {
		return v.String()
	}

	data, err := json.Marshal(v.Value)
	if err != nil {
		return ""
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return ""
	}
	if res.Type == gjson.JSON {
		return res.Raw
	}
	return res.String()
}

package ingest

import (
	"encoding/json"
	"strings"
)

// tryJSONLine probes a line for a JSON object carrying the configured
// message and time fields. Returns the extracted timestamp text and message
// body when both are present; ok is false for plain-text lines and JSON
// objects missing either field.
func tryJSONLine(line string, timeFields, msgFields []string) (tsText, body string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return "", "", false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil || len(obj) == 0 {
		return "", "", false
	}
	flat := flattenJSON(obj)

	tsText, ok = lookupField(flat, timeFields)
	if !ok {
		return "", "", false
	}
	body, ok = lookupField(flat, msgFields)
	if !ok {
		return "", "", false
	}
	return tsText, strings.TrimSpace(body), true
}

// flattenJSON collapses nested objects into a single level, joining key
// paths with underscores.
func flattenJSON(obj map[string]any) map[string]string {
	flat := make(map[string]string, len(obj))
	type frame struct {
		prefix string
		node   map[string]any
	}
	stack := []frame{{node: obj}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for k, v := range f.node {
			key := k
			if f.prefix != "" {
				key = f.prefix + "_" + k
			}
			switch val := v.(type) {
			case map[string]any:
				stack = append(stack, frame{prefix: key, node: val})
			case string:
				flat[key] = val
			case json.Number:
				flat[key] = val.String()
			case float64:
				flat[key] = trimFloat(val)
			case bool:
				if val {
					flat[key] = "true"
				} else {
					flat[key] = "false"
				}
			}
		}
	}
	return flat
}

func lookupField(flat map[string]string, names []string) (string, bool) {
	for _, name := range names {
		if v, ok := flat[name]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func trimFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

package interpolate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedEnvironment is returned when override text is neither a YAML
// mapping nor a list of KEY=VALUE entries
var ErrMalformedEnvironment = errors.New("malformed environment overrides")

// tokenPattern matches ${NAME} and $NAME
var tokenPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Expand replaces $NAME and ${NAME} tokens with values from vars.
// Tokens without a mapping are left exactly as written.
func Expand(template string, vars map[string]string) string {
	if !strings.Contains(template, "$") {
		return template
	}

	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		m := tokenPattern.FindStringSubmatch(token)
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if v, ok := vars[name]; ok {
			return v
		}
		return token
	})
}

// entryStart matches a comma separated part that opens a new KEY=VALUE entry
var entryStart = regexp.MustCompile(`^\s*[A-Za-z_][A-Za-z0-9_.]*\s*=`)

// ParseEnvironment turns override text into an environment mapping.
//
// Two forms are accepted. A YAML mapping keeps scalar types:
//
//	DEBUG: true
//	WORKERS: 4
//
// Text that is not a mapping, or whose keys contain '=', is read as KEY=VALUE
// entries separated by newlines or commas, and every value is a string. A
// comma only starts a new entry when the next part looks like NAME=, so
// JAVA_OPTS=-Xms1g,-Xmx2g stays one value. Empty text yields an empty mapping.
func ParseEnvironment(text string) (map[string]any, error) {
	env := make(map[string]any)
	if strings.TrimSpace(text) == "" {
		return env, nil
	}

	if mapping, ok := yamlMapping(text); ok {
		for k, v := range mapping {
			env[k] = v
		}
		return env, nil
	}

	for _, line := range strings.Split(text, "\n") {
		for _, entry := range splitEntries(line) {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			key, value, found := strings.Cut(entry, "=")
			key = strings.TrimSpace(key)
			if !found || key == "" {
				return nil, fmt.Errorf("%w: entry %q should be KEY=VALUE", ErrMalformedEnvironment, entry)
			}
			env[key] = strings.TrimSpace(value)
		}
	}
	return env, nil
}

// yamlMapping reports text as a mapping only when no key holds an '='
func yamlMapping(text string) (map[string]any, bool) {
	var mapping map[string]any
	if err := yaml.Unmarshal([]byte(text), &mapping); err != nil || mapping == nil {
		return nil, false
	}
	for k := range mapping {
		if strings.Contains(k, "=") {
			return nil, false
		}
	}
	return mapping, true
}

// splitEntries splits a line on commas, dropping blank parts and folding
// parts that do not open a new entry back into the previous one
func splitEntries(line string) []string {
	var entries []string
	for _, part := range strings.Split(line, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if len(entries) > 0 && !entryStart.MatchString(part) {
			entries[len(entries)-1] += "," + part
			continue
		}
		entries = append(entries, part)
	}
	return entries
}

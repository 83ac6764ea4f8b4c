package shell

import (
	"regexp"
	"strings"
)

// Quote escapes a string for safe use in shell commands.
// e.g. "it's" becomes 'it'\''s'
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// placeholderRegex matches {name}, {name:raw} and {name:-default}.
var placeholderRegex = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)(?:(:raw)|:-([^}]*))?\}`)

// Expand substitutes placeholders in a command line with values from vars.
//
//   - {name}          - shell-quoted value
//   - {name:raw}      - value used as-is
//   - {name:-default} - shell-quoted value, or default when name is not in vars
//
// Placeholders preceded by '$' are shell parameter expansions (${HOME}) and are
// left alone, as is any {name} not present in vars and without a default, so
// that awk programs and brace groups survive.
func Expand(line string, vars map[string]string) string {
	matches := placeholderRegex.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return line
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > 0 && line[start-1] == '$' {
			continue
		}

		name := line[m[2]:m[3]]
		raw := m[4] >= 0
		hasDefault := m[6] >= 0

		val, ok := vars[name]
		if !ok {
			if !hasDefault {
				continue
			}
			val = line[m[6]:m[7]]
		}

		b.WriteString(line[last:start])
		if raw {
			b.WriteString(val)
		} else {
			b.WriteString(Quote(val))
		}
		last = end
	}
	b.WriteString(line[last:])

	return b.String()
}

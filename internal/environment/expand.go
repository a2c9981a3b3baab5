package environment

import "regexp"

// varPattern matches {$NAME} references. Names follow the usual
// identifier grammar; anything else is left in place verbatim.
var varPattern = regexp.MustCompile(`\{\$([A-Za-z_][A-Za-z0-9_]*)\}`)

// Expand replaces {$NAME} references in s.
//
// Lookup order: special variables first, then the environment being
// built. Unresolved references expand to the empty string. The ambient
// process environment is deliberately never consulted — in closed mode
// only seeded variables are present in current, so unknown references
// produce empty strings instead of leaking ambient values.
func Expand(s string, current, special map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := special[name]; ok {
			return v
		}
		if v, ok := current[name]; ok {
			return v
		}
		return ""
	})
}

package scrape

import (
	"strings"

	"github.com/matzehuels/decrepit/pkg/errors"
)

// Vars returns the template variables for a release argument. An empty
// release yields no variables, any other value is bound to "release".
func Vars(release string) map[string]string {
	if release == "" {
		return map[string]string{}
	}
	return map[string]string{"release": release}
}

// Expand replaces {name} placeholders in tmpl with values from vars.
// "{{" and "}}" produce literal braces. A placeholder without a value, an
// unterminated placeholder or a lone "}" is a SCRAPE_ERROR.
func Expand(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", errors.New(errors.ErrCodeScrape, "unterminated placeholder in %q", tmpl)
			}
			name := tmpl[i+1 : i+1+end]
			v, ok := vars[name]
			if !ok {
				return "", errors.New(errors.ErrCodeScrape, "no value for {%s} in %q", name, tmpl)
			}
			b.WriteString(v)
			i += end + 1
		case c == '}':
			return "", errors.New(errors.ErrCodeScrape, "single '}' in %q", tmpl)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

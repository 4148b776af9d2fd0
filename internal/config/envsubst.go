package config

import (
	"fmt"
	"os"
	"strings"
)

// Resolve expands a single `${VAR}` or `${VAR:-default}` reference in s.
// Config values (api_key, api_base_url, proxy) are allowed to reference
// environment variables this way so credentials never need to live in the
// config file itself. A reference to an unset variable with no default is
// an error; plain strings with no `${...}` are returned unchanged.
func Resolve(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "${")
		if start == -1 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end == -1 {
			return "", fmt.Errorf("config: unterminated ${ in %q", s)
		}
		end += start

		b.WriteString(rest[:start])

		ref := rest[start+2 : end]
		name, def, hasDefault := strings.Cut(ref, ":-")

		val, ok := os.LookupEnv(name)
		switch {
		case ok:
			b.WriteString(val)
		case hasDefault:
			b.WriteString(def)
		default:
			return "", fmt.Errorf("config: environment variable %q is not set and %q has no default", name, ref)
		}

		rest = rest[end+1:]
	}

	return b.String(), nil
}

// resolveProvider expands env references in a provider's credential and
// network fields in place.
func resolveProvider(p *Provider) error {
	var err error
	if p.APIKey, err = Resolve(p.APIKey); err != nil {
		return fmt.Errorf("provider %s: %w", p.Name, err)
	}
	if p.APIBase, err = Resolve(p.APIBase); err != nil {
		return fmt.Errorf("provider %s: %w", p.Name, err)
	}
	if p.Proxy, err = Resolve(p.Proxy); err != nil {
		return fmt.Errorf("provider %s: %w", p.Name, err)
	}
	return nil
}

package generator

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

//go:embed am/*.am
var templateFS embed.FS

var (
	guardRE = regexp.MustCompile(`^\?(!?)([A-Z][A-Z0-9_]*)\?`)
	keyRE   = regexp.MustCompile(`%([A-Z][A-Z0-9_]*)%`)

	templateMu    sync.Mutex
	templateCache = make(map[string]string)
)

// Keys are the %KEY% substitutions of a template.
type Keys map[string]string

// Flags are the ?FLAG? line guards of a template. A line guarded by ?FLAG?
// is kept only when the flag is set; ?!FLAG? keeps it only when unset.
type Flags map[string]bool

func loadTemplate(name string) (string, error) {
	templateMu.Lock()
	defer templateMu.Unlock()
	if t, ok := templateCache[name]; ok {
		return t, nil
	}
	data, err := templateFS.ReadFile("am/" + name + ".am")
	if err != nil {
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	templateCache[name] = string(data)
	return string(data), nil
}

// expandTemplate reads the named template and applies flags and keys.
// "##" lines are template comments and never reach the output. Every key
// and flag a template uses must be supplied.
func expandTemplate(name string, keys Keys, flags Flags) (string, error) {
	text, err := loadTemplate(name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		if strings.HasPrefix(line, "##") {
			continue
		}
		keep := true
		for {
			m := guardRE.FindStringSubmatch(line)
			if m == nil {
				break
			}
			on, ok := flags[m[2]]
			if !ok {
				return "", fmt.Errorf("template %s: flag %s not set", name, m[2])
			}
			if on == (m[1] == "!") {
				keep = false
			}
			line = line[len(m[0]):]
		}
		if !keep {
			continue
		}

		var missing string
		line = keyRE.ReplaceAllStringFunc(line, func(k string) string {
			v, ok := keys[k[1:len(k)-1]]
			if !ok {
				missing = k
			}
			return v
		})
		if missing != "" {
			return "", fmt.Errorf("template %s: key %s not set", name, missing)
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
	return b.String(), nil
}

package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var varPattern = regexp.MustCompile(`\$(\w+)|\$\{([^}]+)\}`)

// ExpandVars expands $VAR and ${VAR} tokens in text.
//
// Lookup order per variable:
//
//  1. the env mapping (callers pass OS environment merged over .env values)
//  2. a file named exactly <VAR> inside secretsDir, with a single trailing
//     newline stripped (container orchestrators mount secrets as files and
//     do not set environment variables)
//
// Unknown variables are left unchanged. Expansion never fails.
func ExpandVars(text string, env map[string]string, secretsDir string) string {
	return varPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		if name == "" {
			return match
		}

		if v, ok := env[name]; ok {
			return v
		}

		path := filepath.Join(secretsDir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			raw, err := os.ReadFile(path)
			if err == nil {
				return strings.TrimSuffix(string(raw), "\n")
			}
		}

		return match
	})
}

package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// applyEnvFiles seeds the process environment from the first-party env
// files. Variables already present in the environment always win; the
// files only fill gaps.
func applyEnvFiles() {
	seen := map[string]struct{}{}
	for _, path := range envFileCandidates() {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		applyEnvFile(abs)
	}
}

func envFileCandidates() []string {
	var out []string
	if explicit := strings.TrimSpace(os.Getenv("PLEDGEGATE_ENV_FILE")); explicit != "" {
		out = append(out, explicit)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return out
	}
	return append(out,
		filepath.Join(home, ".config", "pledgegate", "env"),
		filepath.Join(home, ".pledgegate", "env"),
		filepath.Join(home, ".pledgegate", ".env"),
	)
}

func applyEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := parseEnvLine(sc.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
}

// parseEnvLine understands `KEY=VALUE`, `export KEY=VALUE`, comments and
// optional single or double quotes around the value.
func parseEnvLine(line string) (key, val string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, val, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	val = strings.TrimSpace(val)
	if len(val) >= 2 {
		if q := val[0]; (q == '"' || q == '\'') && val[len(val)-1] == q {
			val = val[1 : len(val)-1]
		}
	}
	return key, val, true
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/inkwell-md/inkwell/pkg/types"
)

// Defaults applied after all sources merge.
const (
	DefaultAdapter    = "markdown"
	DefaultDebounceMs = 300
)

// DefaultExtensions is the allow-list used when none is configured.
var DefaultExtensions = []string{".md", ".mdx"}

// Load loads configuration from multiple sources (priority order):
//  1. Global config (~/.config/inkwell/)
//  2. Project config (inkwell.json[c], .inkwell/inkwell.json[c])
//  3. INKWELL_CONFIG file
//  4. INKWELL_CONFIG_CONTENT inline JSON
//  5. Environment variables (highest priority)
//
// A .env file in the project directory is loaded first so it can feed
// both env overrides and {env:...} interpolation.
func Load(directory string) (*types.Config, error) {
	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	} else {
		_ = godotenv.Load()
	}

	config := &types.Config{}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config
	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "inkwell.json"), globalPath)
	loadOnce(filepath.Join(globalPath, "inkwell.jsonc"), globalPath)

	// 2. Project config
	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".inkwell")
		loadOnce(filepath.Join(directory, "inkwell.json"), directory)
		loadOnce(filepath.Join(directory, "inkwell.jsonc"), directory)
		loadOnce(filepath.Join(projectConfigDir, "inkwell.json"), projectConfigDir)
		loadOnce(filepath.Join(projectConfigDir, "inkwell.jsonc"), projectConfigDir)
	}

	// 3. INKWELL_CONFIG file override
	if configPath := os.Getenv("INKWELL_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	// 4. INKWELL_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("INKWELL_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig types.Config
		if err := json.Unmarshal([]byte(configContent), &inlineConfig); err == nil {
			mergeConfig(config, &inlineConfig)
		}
	}

	// 5. Environment variables
	applyEnvOverrides(config)

	applyDefaults(config)
	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply interpolation
	data = interpolate(data, baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	// Handle {env:VAR_NAME} placeholders
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	// Handle {file:path} placeholders
	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			home := os.Getenv("HOME")
			filePath = filepath.Join(home, filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		// Escape for JSON string
		escaped := strings.ReplaceAll(strings.TrimRight(string(content), "\n"), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")

		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target. Scalars replace when
// set, rules accumulate across layers, sections replace wholesale.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Dev {
		target.Dev = true
	}
	if len(source.Extensions) > 0 {
		target.Extensions = source.Extensions
	}
	if len(source.Roots) > 0 {
		target.Roots = source.Roots
	}
	if source.DebounceMs > 0 {
		target.DebounceMs = source.DebounceMs
	}
	if source.Adapter != "" {
		target.Adapter = source.Adapter
	}
	if len(source.Rules) > 0 {
		target.Rules = append(target.Rules, source.Rules...)
	}
	if source.Preview != nil {
		target.Preview = source.Preview
	}
	if source.Watch != nil {
		target.Watch = source.Watch
	}
}

// applyEnvOverrides applies INKWELL_* environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	if v := os.Getenv("INKWELL_DEV"); v != "" {
		if dev, err := strconv.ParseBool(v); err == nil {
			config.Dev = dev
		}
	}
	if v := os.Getenv("INKWELL_ADAPTER"); v != "" {
		config.Adapter = v
	}
	if v := os.Getenv("INKWELL_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			config.DebounceMs = ms
		}
	}
	if v := os.Getenv("INKWELL_EXTENSIONS"); v != "" {
		config.Extensions = splitList(v)
	}
	if v := os.Getenv("INKWELL_ROOTS"); v != "" {
		config.Roots = splitList(v)
	}
}

func applyDefaults(config *types.Config) {
	if len(config.Extensions) == 0 {
		config.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if config.DebounceMs == 0 {
		config.DebounceMs = DefaultDebounceMs
	}
	if config.Adapter == "" {
		config.Adapter = DefaultAdapter
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigDir returns the config directory to use.
// Prefers INKWELL_CONFIG_DIR, then the XDG location.
func GetConfigDir() string {
	if dir := os.Getenv("INKWELL_CONFIG_DIR"); dir != "" {
		return dir
	}
	return GetPaths().Config
}

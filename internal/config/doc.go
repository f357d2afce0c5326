// Package config provides configuration loading, merging, and path management for inkwell.
//
// # Configuration Loading
//
// The Load function searches for and merges configuration from multiple
// sources in priority order:
//
//  1. Global config (~/.config/inkwell/)
//  2. Project config (inkwell.json/inkwell.jsonc and
//     .inkwell/inkwell.json/.inkwell/inkwell.jsonc)
//  3. INKWELL_CONFIG file
//  4. INKWELL_CONFIG_CONTENT inline JSON
//  5. Environment variables
//
// Later sources override earlier ones; environment variables have the
// highest precedence. A project .env file is loaded first (godotenv)
// so it can feed both interpolation and the INKWELL_* overrides.
//
// # Supported Formats
//
// Both JSON and JSONC (JSON with Comments) are accepted:
//   - inkwell.json - Standard JSON configuration
//   - inkwell.jsonc - JSON with comments, processed using tidwall/jsonc
//
// # Variable Interpolation
//
// Configuration files support two types of variable interpolation:
//   - {env:VAR_NAME} - Expands to environment variable values
//   - {file:path} - Expands to file contents (properly escaped for JSON)
//
// File paths in {file:path} placeholders may be absolute, relative to
// the config file's directory, or ~/ expanded. This is the usual way to
// keep longer front-matter rules in their own files:
//
//	{
//	  "rules": [
//	    "{file:rules/title.expr}"
//	  ],
//	  "extensions": [".md", ".mdx"]
//	}
//
// # Environment Variable Overrides
//
//   - INKWELL_DEV - Enable or disable development mode ("true"/"false")
//   - INKWELL_ADAPTER - Default adapter ID
//   - INKWELL_DEBOUNCE_MS - Preview debounce window in milliseconds
//   - INKWELL_EXTENSIONS - Comma-separated extension allow-list
//   - INKWELL_ROOTS - Comma-separated content roots
//   - INKWELL_CONFIG - Path to a specific config file
//   - INKWELL_CONFIG_CONTENT - Inline JSON configuration
//   - INKWELL_CONFIG_DIR - Override the config directory location
//
// # Path Management
//
// Paths follows the XDG Base Directory Specification:
//   - Data: ~/.local/share/inkwell (XDG_DATA_HOME), logs under logs/
//   - Config: ~/.config/inkwell (XDG_CONFIG_HOME)
//
// On Windows, these paths are adapted to use APPDATA as appropriate.
package config

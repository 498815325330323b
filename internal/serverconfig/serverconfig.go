// Package serverconfig defines ServerConfig, the static description of one
// language server, and the single canonical built-in table.
package serverconfig

// Config is the static description of one language server: identifier,
// recognized extensions, LSP language identifiers, spawn command, and
// root-marker search list.
type Config struct {
	ID            string            `mapstructure:"id" json:"id"`
	Extensions    []string          `mapstructure:"extensions" json:"extensions"`
	LanguageIDs   []string          `mapstructure:"languageIds" json:"languageIds"`
	Command       string            `mapstructure:"command" json:"command"`
	Args          []string          `mapstructure:"args" json:"args"`
	Env           map[string]string `mapstructure:"env" json:"env,omitempty"`
	InitOptions   map[string]any    `mapstructure:"initializationOptions" json:"initializationOptions,omitempty"`
	RootMarkers   []string          `mapstructure:"rootMarkers" json:"rootMarkers"`
}

// ExtensionMatch reports whether ext (including leading dot) is recognized
// by this server.
func (c Config) ExtensionMatch(ext string) bool {
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// LanguageIDFor returns the LSP language id for ext, falling back to
// "plaintext" when this config declares no language ids for it.
func (c Config) LanguageIDFor(ext string) string {
	for i, e := range c.Extensions {
		if e == ext && i < len(c.LanguageIDs) {
			return c.LanguageIDs[i]
		}
	}
	if len(c.LanguageIDs) > 0 {
		return c.LanguageIDs[0]
	}
	return "plaintext"
}

// Builtins returns the canonical built-in server table. Callers must not
// mutate the returned slice's Config values in place; Merge returns copies.
func Builtins() []Config {
	return []Config{
		{
			ID:          "typescript",
			Extensions:  []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"},
			LanguageIDs: []string{"typescript", "typescriptreact", "javascript", "javascriptreact", "javascript", "javascript"},
			Command:     "typescript-language-server",
			Args:        []string{"--stdio"},
			RootMarkers: []string{"package.json", "tsconfig.json"},
		},
		{
			ID:          "python",
			Extensions:  []string{".py", ".pyi"},
			LanguageIDs: []string{"python", "python"},
			Command:     "pyright-langserver",
			Args:        []string{"--stdio"},
			RootMarkers: []string{"pyproject.toml", "setup.py", "*.cfg"},
		},
		{
			ID:          "go",
			Extensions:  []string{".go"},
			LanguageIDs: []string{"go"},
			Command:     "gopls",
			Args:        []string{"serve"},
			RootMarkers: []string{"go.mod", "go.sum"},
		},
		{
			ID:          "rust",
			Extensions:  []string{".rs"},
			LanguageIDs: []string{"rust"},
			Command:     "rust-analyzer",
			Args:        nil,
			RootMarkers: []string{"Cargo.toml"},
		},
		{
			ID:          "clangd",
			Extensions:  []string{".c", ".h", ".cc", ".cpp", ".hpp"},
			LanguageIDs: []string{"c", "c", "cpp", "cpp", "cpp"},
			Command:     "clangd",
			Args:        nil,
			RootMarkers: []string{"compile_commands.json", "CMakeLists.txt"},
		},
	}
}

// Merge overlays user-defined entries onto the built-in table: a user entry
// whose ID matches a built-in overrides that built-in's fields entirely;
// other built-ins are kept unchanged, and user entries with a new ID are
// appended.
func Merge(builtins, user []Config) []Config {
	result := make([]Config, 0, len(builtins)+len(user))
	byID := make(map[string]int, len(builtins))
	for _, b := range builtins {
		byID[b.ID] = len(result)
		result = append(result, b)
	}
	for _, u := range user {
		if idx, ok := byID[u.ID]; ok {
			result[idx] = u
			continue
		}
		byID[u.ID] = len(result)
		result = append(result, u)
	}
	return result
}

// Find returns the config whose Extensions contains ext, or false.
func Find(configs []Config, ext string) (Config, bool) {
	for _, c := range configs {
		if c.ExtensionMatch(ext) {
			return c, true
		}
	}
	return Config{}, false
}

// FindByID returns the config with the given ID, or false.
func FindByID(configs []Config, id string) (Config, bool) {
	for _, c := range configs {
		if c.ID == id {
			return c, true
		}
	}
	return Config{}, false
}

// IDs returns every configured server id, for fuzzy "did you mean"
// suggestions when an id is unrecognized.
func IDs(configs []Config) []string {
	ids := make([]string, len(configs))
	for i, c := range configs {
		ids[i] = c.ID
	}
	return ids
}

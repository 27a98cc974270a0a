package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// glossMCPEntry is the MCP server configuration for the gloss binary.
var glossMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "gloss",
  "args": ["-serve-mcp"]
}`)

// starterConfig is the gloss.yml written by init. Commented keys keep
// their defaults.
const starterConfig = `# gloss project configuration.
endpoint: http://localhost:8700/rpc

# locale: en
# tokenLimit: 6000
# groupTokenLimit: 2000
# maxConcurrency: 4

# graphPath: .gloss/graph
# cachePath: .gloss/cache.db

# Restrict annotation to these languages. All supported when unset.
# languages: [sql, go, python, rust, typescript]

# Directories skipped during file discovery, on top of the defaults.
# excludeDirs: [generated]
`

// runInit writes a starter gloss.yml and registers the MCP server entry in
// the project's .mcp.json.
func runInit(flags cliFlags, args []string) error {
	sub := flag.NewFlagSet("init", flag.ContinueOnError)
	force := sub.Bool("force", false, "overwrite existing files")
	if err := sub.Parse(args); err != nil {
		return err
	}

	abs, err := filepath.Abs(flags.ProjectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	cfgPath := filepath.Join(abs, "gloss.yml")
	if _, err := os.Stat(cfgPath); err == nil && !*force {
		fmt.Printf("  skipped %s (exists, use -force to overwrite)\n", dotRelative(abs, cfgPath))
	} else {
		if err := os.WriteFile(cfgPath, []byte(starterConfig), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", cfgPath, err)
		}
		fmt.Printf("  created %s\n", dotRelative(abs, cfgPath))
	}

	if err := mergeMCPConfig(filepath.Join(abs, ".mcp.json"), *force); err != nil {
		return err
	}

	fmt.Println("\nSetup complete. Point endpoint at your annotator and run 'gloss annotate <path>'.")
	return nil
}

// mergeMCPConfig creates or merges the gloss entry into .mcp.json.
func mergeMCPConfig(mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["gloss"]; exists && !force {
		fmt.Printf("  skipped .mcp.json gloss entry (exists, use -force to overwrite)\n")
		return nil
	}

	cfg.MCPServers["gloss"] = glossMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Printf("  %s .mcp.json with gloss MCP server\n", action)
	return nil
}

// dotRelative returns a display path relative to the project root, prefixed
// with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}

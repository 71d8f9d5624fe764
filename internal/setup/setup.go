// Package setup registers the clinic MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultServerName is the key the server is registered under in mcpServers.
const DefaultServerName = "clinic-assessment"

// ClientConfig is the subset of a desktop client's config file that lists
// MCP servers. Other top-level keys are preserved on save.
type ClientConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`

	extra map[string]json.RawMessage
}

// ServerEntry describes how the client launches one MCP server.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls Register.
type Options struct {
	Name       string
	BinaryPath string
	ConfigFile string // passed to the server as --config
	LogLevel   string // exported as CLINIC_LOGGING_LEVEL
}

// Status reports whether the server is registered in a client config.
type Status struct {
	ConfigPath string
	Registered bool
	Entry      ServerEntry
	Issues     []string
}

// ClientConfigPath returns the desktop client's config file for this OS.
func ClientConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClientConfig reads path. A missing file yields an empty config.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{MCPServers: make(map[string]ServerEntry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read client config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.extra); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	if raw, ok := cfg.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.extra, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]ServerEntry)
	}
	return cfg, nil
}

// SaveClientConfig writes cfg to path, creating the directory if needed.
func SaveClientConfig(path string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]any, len(cfg.extra)+1)
	for k, v := range cfg.extra {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal client config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write client config: %w", err)
	}
	return nil
}

// Register adds or replaces the server entry in the client config at path
// and returns the entry written.
func Register(path string, opts Options) (ServerEntry, error) {
	cfg, err := LoadClientConfig(path)
	if err != nil {
		return ServerEntry{}, err
	}

	binary := opts.BinaryPath
	if binary == "" {
		binary, err = os.Executable()
		if err != nil {
			return ServerEntry{}, fmt.Errorf("could not determine server binary: %w", err)
		}
	}
	if abs, err := filepath.Abs(binary); err == nil {
		binary = abs
	}

	entry := ServerEntry{Command: binary}
	if opts.ConfigFile != "" {
		configFile, err := filepath.Abs(opts.ConfigFile)
		if err != nil {
			return ServerEntry{}, fmt.Errorf("invalid config path: %w", err)
		}
		entry.Args = append(entry.Args, "--config", configFile)
	}
	entry.Args = append(entry.Args, "mcp")
	if opts.LogLevel != "" {
		entry.Env = map[string]string{"CLINIC_LOGGING_LEVEL": opts.LogLevel}
	}

	name := opts.Name
	if name == "" {
		name = DefaultServerName
	}
	cfg.MCPServers[name] = entry

	if err := SaveClientConfig(path, cfg); err != nil {
		return ServerEntry{}, err
	}
	return entry, nil
}

// Check inspects the client config at path for the named server.
func Check(path, name string) (*Status, error) {
	if name == "" {
		name = DefaultServerName
	}
	cfg, err := LoadClientConfig(path)
	if err != nil {
		return nil, err
	}

	status := &Status{ConfigPath: path}
	entry, ok := cfg.MCPServers[name]
	if !ok {
		status.Issues = append(status.Issues, fmt.Sprintf("server %q is not registered", name))
		return status, nil
	}
	status.Registered = true
	status.Entry = entry

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	case info.Mode()&0o111 == 0:
		status.Issues = append(status.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}
	return status, nil
}

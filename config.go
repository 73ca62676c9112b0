package wolo

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// file
	Debug          bool
	ListenPort     string
	ManagementPort string
	ServiceURL     string
	APIPrefix      string
	RequestTimeout int
	ViewRoot       string
	FileServers    map[string]string
	// runtime
	States []State
}

func (c *Config) String() string {
	return fmt.Sprintf("%+v", *c)
}

func (c *Config) setDefaults() {
	c.Debug = false
	c.ListenPort = "8080"
	c.ManagementPort = "8081"
	c.ServiceURL = "http://localhost:8000"
	c.APIPrefix = "/api"
	c.RequestTimeout = 30
	c.ViewRoot = "views"
	c.FileServers = make(map[string]string)
}

// Parse decodes a JSON config over the defaults.
func (c *Config) Parse(b []byte) error {
	c.setDefaults()
	if 0 < len(b) {
		err := json.Unmarshal(b, &c)
		if err != nil {
			return err
		}
	}
	return c.resolvePaths()
}

// ParseTOML decodes a TOML config over the defaults.
func (c *Config) ParseTOML(b []byte) error {
	c.setDefaults()
	_, err := toml.Decode(string(b), c)
	if err != nil {
		return err
	}
	return c.resolvePaths()
}

func (c *Config) resolvePaths() error {
	who, err := user.Current()
	if err != nil {
		return err
	}
	c.ViewRoot, err = c.ResolveUserDir(who.HomeDir, c.ViewRoot)
	if err != nil {
		return err
	}
	for key, val := range c.FileServers {
		c.FileServers[key], err = c.ResolveUserDir(who.HomeDir, val)
		if err != nil {
			return err
		}
	}
	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout %d", c.RequestTimeout)
	}
	return nil
}

func (c *Config) ResolveUserDir(homeDir, path string) (string, error) {
	result := path
	if strings.HasPrefix(path, "~/") {
		result = filepath.Join(homeDir, path[2:])
	}
	return filepath.Abs(result)
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// LoadConfig reads a config file, choosing the decoder by extension.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = cfg.ParseTOML(b)
	default:
		err = cfg.Parse(b)
	}
	return cfg, err
}

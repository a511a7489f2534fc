// Package serviceconfig loads the YAML file that configures one run of
// the generator: the service name recorded in the client file, how (or
// whether) to emit an object-manager-aware proxy, and the Go package name.
// Output file paths are command-line flags, not configuration.
package serviceconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ObjectManagerConfig configures object-manager-aware proxy generation.
type ObjectManagerConfig struct {
	// Name is the Go type name to use for the generated object-manager
	// proxy. If empty, no object manager proxy is generated.
	Name string `yaml:"name"`
	// ObjectPath is the D-Bus path of the remote ObjectManager instance.
	ObjectPath string `yaml:"object_path"`
}

// Config is the top-level generation configuration.
type Config struct {
	// ServiceName, if set, is emitted into the generated client file as
	// the DefaultServiceName constant. Generated proxy constructors take
	// only a connection and an object path and do not use it.
	ServiceName string `yaml:"service_name"`
	// ObjectManager configures object-manager-aware proxy generation.
	ObjectManager ObjectManagerConfig `yaml:"object_manager"`
	// PackageName is the Go package name emitted at the top of generated
	// files, overriding the --package command-line flag (default "dbusgen").
	PackageName string `yaml:"package_name"`
}

// Load reads and parses the YAML file at path into a Config.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("serviceconfig: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("serviceconfig: parsing %s: %w", path, err)
	}
	return &c, nil
}

// Package config loads the YAML configuration of osmada: the tags
// importance used for main tags, the patchers applied on import and the
// named workflows.
//
//	tags_importance: [railway=station, "amenity=*"]
//	tags_importance_file: tags.txt
//	patchers: [FixRemoveOperationMetadata]
//	workflows:
//	  gare_standard:
//	    - {type: import, class: AdiffImporter}
//	    - {type: filter, class: IgnoreUsers, params: [{file: users.txt}]}
//	    - {type: export, class: AnalyzedCSVExporter}
//
// A parameter of the form {file: path} is replaced by the list of values of
// that flat file. Relative paths are resolved against the directory of the
// configuration file.
package config

import (
	"bufio"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/osmada/osmada/pattern"
)

// ConfigurationError is returned for invalid configurations and invalid
// workflow definitions.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return "configuration error: " + e.Reason + ": " + e.Err.Error()
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Cause() error  { return e.Err }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// Errorf returns a *ConfigurationError.
func Errorf(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

const (
	StepImport = "import"
	StepFilter = "filter"
	StepExport = "export"
)

type StepSpec struct {
	Type   string        `yaml:"type"`
	Class  string        `yaml:"class"`
	Params []interface{} `yaml:"params"`
}

func (s StepSpec) String() string {
	return s.Type + ":" + s.Class
}

type Config struct {
	TagsImportance     []string `yaml:"tags_importance"`
	TagsImportanceFile string   `yaml:"tags_importance_file"`

	// Patchers lists the patchers applied after each import. All known
	// patchers are applied if nil.
	Patchers  []string              `yaml:"patchers"`
	Workflows map[string][]StepSpec `yaml:"workflows"`

	// Importance is the parsed TagsImportance, followed by the patterns
	// of TagsImportanceFile.
	Importance []pattern.Compound `yaml:"-"`

	dir string
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: "reading " + path, Err: err}
	}
	return parse(b, filepath.Dir(path))
}

// Parse reads a configuration. Relative file names are resolved against the
// working directory.
func Parse(b []byte) (*Config, error) {
	return parse(b, ".")
}

func parse(b []byte, dir string) (*Config, error) {
	conf := &Config{dir: dir}
	if err := yaml.UnmarshalStrict(b, conf); err != nil {
		return nil, &ConfigurationError{Reason: "parsing YAML", Err: err}
	}

	importance := conf.TagsImportance
	if conf.TagsImportanceFile != "" {
		lines, err := ReadFlatFile(conf.Path(conf.TagsImportanceFile))
		if err != nil {
			return nil, err
		}
		importance = append(append([]string{}, importance...), lines...)
	}
	for _, s := range importance {
		c, err := pattern.ParseCompound(s)
		if err != nil {
			return nil, &ConfigurationError{Reason: "invalid tags_importance", Err: err}
		}
		conf.Importance = append(conf.Importance, c)
	}

	for name, steps := range conf.Workflows {
		if len(steps) == 0 {
			return nil, Errorf("workflow %s has no steps", name)
		}
		for i := range steps {
			if err := conf.prepareStep(&steps[i]); err != nil {
				return nil, &ConfigurationError{Reason: fmt.Sprintf("workflow %s step #%d", name, i+1), Err: err}
			}
		}
	}
	return conf, nil
}

func (c *Config) prepareStep(s *StepSpec) error {
	switch s.Type {
	case StepImport, StepFilter, StepExport:
	default:
		return Errorf("unknown step type %q", s.Type)
	}
	if s.Class == "" {
		return Errorf("missing class of %s step", s.Type)
	}
	for i, p := range s.Params {
		path, ok := fileParam(p)
		if !ok {
			continue
		}
		lines, err := ReadFlatFile(c.Path(path))
		if err != nil {
			return err
		}
		values := make([]interface{}, len(lines))
		for j, l := range lines {
			values[j] = l
		}
		s.Params[i] = values
	}
	return nil
}

// fileParam returns the path of a {file: path} parameter.
func fileParam(p interface{}) (string, bool) {
	m, ok := p.(map[interface{}]interface{})
	if !ok || len(m) != 1 {
		return "", false
	}
	path, ok := m["file"].(string)
	return path, ok
}

// Path resolves path relative to the directory of the configuration file.
func (c *Config) Path(path string) string {
	if filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// WorkflowNames returns the sorted names of all workflows.
func (c *Config) WorkflowNames() []string {
	names := make([]string, 0, len(c.Workflows))
	for name := range c.Workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadFlatFile reads one value per line. Empty lines are ignored, line
// endings are stripped.
func ReadFlatFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: "reading flat file", Err: err}
	}
	defer f.Close()

	var values []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		values = append(values, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigurationError{Reason: "reading flat file " + path, Err: err}
	}
	return values, nil
}

package workflow

import (
	"fmt"
	"sort"

	"github.com/osmada/osmada/analysis"
	"github.com/osmada/osmada/config"
	"github.com/osmada/osmada/exporter"
	"github.com/osmada/osmada/filter"
	"github.com/osmada/osmada/importer"
	"github.com/osmada/osmada/patch"
	"github.com/osmada/osmada/pattern"
)

// Env is passed to all step factories.
type Env struct {
	// Reports gives access to the memoized analysis reports of the run.
	Reports  analysis.Reports
	Progress bool
}

type ImporterFactory func(env *Env, params []interface{}) (importer.Importer, error)
type FilterFactory func(env *Env, params []interface{}) (filter.Filter, error)
type ExporterFactory func(env *Env, params []interface{}) (exporter.Exporter, error)

// Registry maps class names of the configuration to step factories.
type Registry struct {
	importers map[string]ImporterFactory
	filters   map[string]FilterFactory
	exporters map[string]ExporterFactory
	patchers  map[string]patch.Patcher
}

func NewRegistry() *Registry {
	return &Registry{
		importers: make(map[string]ImporterFactory),
		filters:   make(map[string]FilterFactory),
		exporters: make(map[string]ExporterFactory),
		patchers:  make(map[string]patch.Patcher),
	}
}

// DefaultRegistry returns a registry with all built-in classes.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterImporter("AdiffImporter", func(env *Env, params []interface{}) (importer.Importer, error) {
		if err := checkParams(params, 0); err != nil {
			return nil, err
		}
		return importer.AdiffImporter{Progress: env.Progress}, nil
	})

	r.RegisterFilter("IgnoreUsers", func(env *Env, params []interface{}) (filter.Filter, error) {
		if err := checkParams(params, 1); err != nil {
			return nil, err
		}
		users, err := stringsParam(params[0])
		if err != nil {
			return nil, err
		}
		return filter.IgnoreUsers(users), nil
	})
	onCreate := patternFilter(filter.IgnoreElementsOnCreate)
	r.RegisterFilter("IgnoreElementsOnCreate", onCreate)
	r.RegisterFilter("IgnoreElementsCreation", onCreate)
	onModify := patternFilter(filter.IgnoreElementsOnModify)
	r.RegisterFilter("IgnoreElementsOnModify", onModify)
	r.RegisterFilter("IgnoreElementsModification", onModify)
	r.RegisterFilter("IgnoreKeys", func(env *Env, params []interface{}) (filter.Filter, error) {
		if err := checkParams(params, 1); err != nil {
			return nil, err
		}
		keys, err := stringsParam(params[0])
		if err != nil {
			return nil, err
		}
		return filter.IgnoreKeys(env.Reports, keys), nil
	})
	smallMoves := func(env *Env, params []interface{}) (filter.Filter, error) {
		if err := checkParams(params, 1); err != nil {
			return nil, err
		}
		dist, err := floatParam(params[0])
		if err != nil {
			return nil, err
		}
		if dist < 0 {
			return nil, config.Errorf("negative distance %v", dist)
		}
		return filter.IgnoreSmallMoves(dist), nil
	}
	r.RegisterFilter("IgnoreSmallMoves", smallMoves)
	r.RegisterFilter("IgnoreSmallNodeMoves", smallMoves)

	r.RegisterExporter("CSVExporter", func(env *Env, params []interface{}) (exporter.Exporter, error) {
		if err := checkParams(params, 0); err != nil {
			return nil, err
		}
		return exporter.CSVExporter{}, nil
	})
	r.RegisterExporter("AnalyzedCSVExporter", func(env *Env, params []interface{}) (exporter.Exporter, error) {
		if err := checkParams(params, 0); err != nil {
			return nil, err
		}
		return exporter.AnalyzedCSVExporter{Reports: env.Reports}, nil
	})
	r.RegisterExporter("AdiffExporter", func(env *Env, params []interface{}) (exporter.Exporter, error) {
		if err := checkParams(params, 0); err != nil {
			return nil, err
		}
		return exporter.AdiffExporter{}, nil
	})

	r.RegisterPatcher(patch.FixRemoveOperationMetadata{})
	return r
}

func (r *Registry) RegisterImporter(class string, f ImporterFactory) { r.importers[class] = f }
func (r *Registry) RegisterFilter(class string, f FilterFactory)     { r.filters[class] = f }
func (r *Registry) RegisterExporter(class string, f ExporterFactory) { r.exporters[class] = f }
func (r *Registry) RegisterPatcher(p patch.Patcher)                  { r.patchers[p.Name()] = p }

// Patcher returns the registered patcher called name.
func (r *Registry) Patcher(name string) (patch.Patcher, error) {
	p, ok := r.patchers[name]
	if !ok {
		return nil, config.Errorf("unknown patcher %q", name)
	}
	return p, nil
}

// PatcherNames returns the sorted names of all registered patchers.
func (r *Registry) PatcherNames() []string {
	names := make([]string, 0, len(r.patchers))
	for name := range r.patchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classes returns the sorted class names of all steps of kind.
func (r *Registry) Classes(kind string) []string {
	var names []string
	switch kind {
	case config.StepImport:
		for name := range r.importers {
			names = append(names, name)
		}
	case config.StepFilter:
		for name := range r.filters {
			names = append(names, name)
		}
	case config.StepExport:
		for name := range r.exporters {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func patternFilter(f func(pattern.Pattern) filter.Filter) FilterFactory {
	return func(env *Env, params []interface{}) (filter.Filter, error) {
		if err := checkParams(params, 1); err != nil {
			return nil, err
		}
		s, err := stringParam(params[0])
		if err != nil {
			return nil, err
		}
		p, err := pattern.Parse(s)
		if err != nil {
			return nil, &config.ConfigurationError{Reason: "invalid pattern parameter", Err: err}
		}
		return f(p), nil
	}
}

func checkParams(params []interface{}, n int) error {
	if len(params) != n {
		return config.Errorf("expected %d parameter(s), got %d", n, len(params))
	}
	return nil
}

func stringParam(p interface{}) (string, error) {
	switch v := p.(type) {
	case string:
		return v, nil
	case int, float64, bool:
		return fmt.Sprint(v), nil
	}
	return "", config.Errorf("expected a string, got %v", p)
}

func stringsParam(p interface{}) ([]string, error) {
	var list []interface{}
	switch v := p.(type) {
	case []interface{}:
		list = v
	case []string:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, config.Errorf("expected a list, got %v", p)
	}
	result := make([]string, 0, len(list))
	for _, item := range list {
		s, err := stringParam(item)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

func floatParam(p interface{}) (float64, error) {
	switch v := p.(type) {
	case int:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return 0, config.Errorf("expected a number, got %v", p)
}

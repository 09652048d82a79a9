// Package workflow runs named sequences of import, filter and export steps.
//
// A run keeps a selection of actions. Import steps replace the selection
// with all actions of the imported diff, after patching and analyzing them.
// Filter steps narrow the selection. Export steps write the selection to
// the next output path, or to stdout if no output paths are given.
package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/osmada/osmada/analysis"
	"github.com/osmada/osmada/config"
	"github.com/osmada/osmada/element"
	"github.com/osmada/osmada/exporter"
	"github.com/osmada/osmada/filter"
	"github.com/osmada/osmada/importer"
	"github.com/osmada/osmada/log"
	"github.com/osmada/osmada/patch"
	"github.com/osmada/osmada/pattern"
	"github.com/osmada/osmada/stats"
)

type Options struct {
	TagsImportance []pattern.Compound
	// Patchers names the patchers applied after each import. All
	// registered patchers are applied if nil.
	Patchers []string
	Progress bool
	// Stats is optional.
	Stats *stats.Stats
	// Stdout receives exports if Run is called without output paths.
	// Defaults to os.Stdout.
	Stdout io.Writer
}

type step struct {
	spec     config.StepSpec
	importer importer.Importer
	filter   filter.Filter
	exporter exporter.Exporter
}

type Workflow struct {
	Name string

	steps    []step
	patchers []patch.Patcher
	analyzer *analysis.Analyzer
	stats    *stats.Stats
	stdout   io.Writer

	selection []*element.Action
	diffs     []*element.Diff
}

// FromConfig builds the workflow called name from conf.
func FromConfig(conf *config.Config, name string, reg *Registry, opts Options) (*Workflow, error) {
	specs, ok := conf.Workflows[name]
	if !ok {
		return nil, config.Errorf("unknown workflow %q", name)
	}
	if opts.TagsImportance == nil {
		opts.TagsImportance = conf.Importance
	}
	if opts.Patchers == nil {
		opts.Patchers = conf.Patchers
	}
	return New(name, specs, reg, opts)
}

// New resolves all steps and patchers. Unknown classes and invalid
// parameters are returned as *config.ConfigurationError.
func New(name string, specs []config.StepSpec, reg *Registry, opts Options) (*Workflow, error) {
	w := &Workflow{
		Name:     name,
		analyzer: analysis.NewAnalyzer(opts.TagsImportance),
		stats:    opts.Stats,
		stdout:   opts.Stdout,
	}
	if w.stdout == nil {
		w.stdout = os.Stdout
	}
	env := &Env{Reports: w.analyzer, Progress: opts.Progress}

	for i, spec := range specs {
		s, err := newStep(reg, env, spec)
		if err != nil {
			return nil, &config.ConfigurationError{
				Reason: fmt.Sprintf("workflow %s step #%d (%s)", name, i+1, spec),
				Err:    err,
			}
		}
		w.steps = append(w.steps, s)
	}

	patcherNames := opts.Patchers
	if patcherNames == nil {
		patcherNames = reg.PatcherNames()
	}
	for _, pn := range patcherNames {
		p, err := reg.Patcher(pn)
		if err != nil {
			return nil, err
		}
		w.patchers = append(w.patchers, p)
	}
	return w, nil
}

func newStep(reg *Registry, env *Env, spec config.StepSpec) (step, error) {
	s := step{spec: spec}
	var err error
	switch spec.Type {
	case config.StepImport:
		f, ok := reg.importers[spec.Class]
		if !ok {
			return s, config.Errorf("unknown importer %q", spec.Class)
		}
		s.importer, err = f(env, spec.Params)
	case config.StepFilter:
		f, ok := reg.filters[spec.Class]
		if !ok {
			return s, config.Errorf("unknown filter %q", spec.Class)
		}
		s.filter, err = f(env, spec.Params)
	case config.StepExport:
		f, ok := reg.exporters[spec.Class]
		if !ok {
			return s, config.Errorf("unknown exporter %q", spec.Class)
		}
		s.exporter, err = f(env, spec.Params)
	default:
		return s, config.Errorf("unknown step type %q", spec.Type)
	}
	return s, err
}

// Paths returns the number of input and output paths Run expects.
func (w *Workflow) Paths() (inputs, outputs int) {
	for _, s := range w.steps {
		switch s.spec.Type {
		case config.StepImport:
			inputs++
		case config.StepExport:
			outputs++
		}
	}
	return inputs, outputs
}

// Selection returns the actions selected by the last run.
func (w *Workflow) Selection() []*element.Action {
	return w.selection
}

// Diffs returns all diffs imported by the last run.
func (w *Workflow) Diffs() []*element.Diff {
	return w.diffs
}

// Analyzer returns the analyzer holding the reports of all imported actions.
func (w *Workflow) Analyzer() *analysis.Analyzer {
	return w.analyzer
}

// Run executes all steps. The number of inputs must match the number of
// import steps, the number of outputs must match the number of export steps
// or be zero. ctx is checked before each step.
func (w *Workflow) Run(ctx context.Context, inputs, outputs []string) error {
	nInputs, nOutputs := w.Paths()
	if len(inputs) != nInputs {
		return config.Errorf("workflow %s expects %d input path(s), got %d", w.Name, nInputs, len(inputs))
	}
	if len(outputs) != 0 && len(outputs) != nOutputs {
		return config.Errorf("workflow %s expects %d output path(s), got %d", w.Name, nOutputs, len(outputs))
	}

	w.selection = nil
	w.diffs = nil
	for _, s := range w.steps {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "workflow %s aborted before %s", w.Name, s.spec)
		default:
		}

		start := time.Now()
		var err error
		switch s.spec.Type {
		case config.StepImport:
			err = w.runImport(s, inputs[0])
			inputs = inputs[1:]
		case config.StepFilter:
			err = w.runFilter(s)
		case config.StepExport:
			output := ""
			if len(outputs) > 0 {
				output = outputs[0]
				outputs = outputs[1:]
			}
			err = w.runExport(s, output)
		}
		if err != nil {
			return err
		}
		if w.stats != nil {
			w.stats.StepDone(w.Name, s.spec.Type, time.Since(start))
		}
	}
	return nil
}

func (w *Workflow) runImport(s step, path string) error {
	defer log.Step(fmt.Sprintf("Importing %s", path))()

	diff, err := s.importer.Import(path)
	if err != nil {
		return err
	}
	w.diffs = append(w.diffs, diff)
	w.selection = diff.Actions
	log.Printf("[info] %s actions in %s", humanize.Comma(int64(len(diff.Actions))), diff)
	if w.stats != nil {
		w.stats.Imported(w.Name, len(diff.Actions))
	}

	for _, p := range w.patchers {
		n, err := p.Patch(diff)
		if err != nil {
			return errors.Wrapf(err, "patching %s with %s", diff, p.Name())
		}
		log.Printf("[info] %s patched %s actions", p.Name(), humanize.Comma(int64(n)))
	}

	if err := w.analyzer.AnalyzeAll(diff.Actions); err != nil {
		return errors.Wrapf(err, "analyzing %s", path)
	}
	return nil
}

func (w *Workflow) runFilter(s step) error {
	before := len(w.selection)
	selection, err := s.filter.Filter(w.selection)
	if err != nil {
		return errors.Wrapf(err, "filter %s", s.spec.Class)
	}
	w.selection = selection
	log.Printf("[info] %s: %s of %s actions left", s.spec.Class,
		humanize.Comma(int64(len(selection))), humanize.Comma(int64(before)))
	if w.stats != nil {
		w.stats.Surviving(w.Name, s.spec.Class, len(selection))
	}
	return nil
}

func (w *Workflow) runExport(s step, path string) error {
	out, err := s.exporter.Export(w.selection)
	if err != nil {
		return errors.Wrapf(err, "export %s", s.spec.Class)
	}
	if path == "" {
		if _, err := io.WriteString(w.stdout, out); err != nil {
			return errors.Wrap(err, "writing export")
		}
	} else {
		if err := os.WriteFile(path, []byte(out), 0644); err != nil {
			return errors.Wrapf(err, "writing export to %s", path)
		}
		log.Printf("[info] %s: wrote %s actions to %s", s.spec.Class,
			humanize.Comma(int64(len(w.selection))), path)
	}
	if w.stats != nil {
		w.stats.Exported(w.Name, s.spec.Class, len(w.selection))
	}
	return nil
}

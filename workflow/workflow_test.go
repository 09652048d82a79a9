package workflow

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmada/osmada/config"
	"github.com/osmada/osmada/element"
	"github.com/osmada/osmada/importer"
	"github.com/osmada/osmada/pattern"
	"github.com/osmada/osmada/stats"
)

const gare = "testdata/gare.osm"

const csvHeader = "id,version,timestamp,changeset,user,uid,action_type,element_type"

func gareSteps() []config.StepSpec {
	return []config.StepSpec{
		{Type: config.StepImport, Class: "AdiffImporter"},
		{Type: config.StepFilter, Class: "IgnoreUsers", Params: []interface{}{[]interface{}{"jm"}}},
		{Type: config.StepFilter, Class: "IgnoreSmallMoves", Params: []interface{}{5}},
		{Type: config.StepExport, Class: "CSVExporter"},
		{Type: config.StepFilter, Class: "IgnoreKeys", Params: []interface{}{[]interface{}{"name"}}},
		{Type: config.StepExport, Class: "AnalyzedCSVExporter"},
	}
}

func gareOptions(stdout *bytes.Buffer) Options {
	return Options{
		TagsImportance: []pattern.Compound{
			{{Key: "public_transport", Value: "*"}},
			{{Key: "type", Value: "route"}},
		},
		Stdout: stdout,
	}
}

func TestRun(t *testing.T) {
	stdout := &bytes.Buffer{}
	opts := gareOptions(stdout)
	opts.Stats = stats.New()
	wf, err := New("gare", gareSteps(), DefaultRegistry(), opts)
	require.NoError(t, err)

	inputs, outputs := wf.Paths()
	assert.Equal(t, 1, inputs)
	assert.Equal(t, 2, outputs)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "gare.csv")
	analyzedPath := filepath.Join(dir, "gare_analyzed.csv")
	require.NoError(t, wf.Run(context.Background(), []string{gare}, []string{csvPath, analyzedPath}))
	assert.Empty(t, stdout.String())

	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, csvHeader+"\n"+
		"1,2,2017-11-22T11:53:29Z,53999449,johnparis,2553297,modify,node\n"+
		// patched metadata of the relation modification
		"100,3,2017-11-22T11:53:31Z,53999449,johnparis,1317446,remove,node\n"+
		"5,2,2017-11-22T11:53:31Z,53999449,johnparis,2553297,modify,relation\n",
		string(b))

	b, err = os.ReadFile(analyzedPath)
	require.NoError(t, err)
	assert.Equal(t, csvHeader+",main_tag,is_geometric_action,is_tag_action,added_tags,removed_tags,modified_tags\n"+
		`100,3,2017-11-22T11:53:31Z,53999449,johnparis,1317446,remove,node,public_transport=platform,True,False,[],[],"[[], []]"`+"\n"+
		`5,2,2017-11-22T11:53:31Z,53999449,johnparis,2553297,modify,relation,type=route,False,False,[],[],"[[], []]"`+"\n",
		string(b))

	require.Len(t, wf.Diffs(), 1)
	assert.Equal(t, gare, wf.Diffs()[0].Source)
	assert.Len(t, wf.Selection(), 2)
	// every imported action was analyzed
	assert.Equal(t, 5, wf.Analyzer().Len())

	expected := `
# HELP osmada_filter_surviving_actions Number of actions left after a filter step
# TYPE osmada_filter_surviving_actions gauge
osmada_filter_surviving_actions{step="IgnoreKeys",workflow="gare"} 2
osmada_filter_surviving_actions{step="IgnoreSmallMoves",workflow="gare"} 3
osmada_filter_surviving_actions{step="IgnoreUsers",workflow="gare"} 4
`
	require.NoError(t, testutil.GatherAndCompare(opts.Stats.Registry(), strings.NewReader(expected),
		"osmada_filter_surviving_actions"))
}

func TestRunStdout(t *testing.T) {
	stdout := &bytes.Buffer{}
	wf, err := New("gare", gareSteps(), DefaultRegistry(), gareOptions(stdout))
	require.NoError(t, err)

	require.NoError(t, wf.Run(context.Background(), []string{gare}, nil))
	out := stdout.String()
	assert.Equal(t, 2, strings.Count(out, csvHeader))
	assert.Equal(t, 2+3+2, strings.Count(out, "\n"))
}

func TestRunWithoutPatchers(t *testing.T) {
	stdout := &bytes.Buffer{}
	opts := gareOptions(stdout)
	opts.Patchers = []string{}
	wf, err := New("gare", gareSteps()[:4], DefaultRegistry(), opts)
	require.NoError(t, err)

	require.NoError(t, wf.Run(context.Background(), []string{gare}, nil))
	assert.Contains(t, stdout.String(), "100,3,2016-06-01T08:15:46Z,39705062,overflorian,1317446,remove,node\n")
}

func TestRunPathCountMismatch(t *testing.T) {
	stdout := &bytes.Buffer{}
	wf, err := New("gare", gareSteps(), DefaultRegistry(), gareOptions(stdout))
	require.NoError(t, err)

	dir := t.TempDir()
	tests := []struct {
		name    string
		inputs  []string
		outputs []string
	}{
		{"no inputs", nil, nil},
		{"too many inputs", []string{gare, gare}, nil},
		{"too few outputs", []string{gare}, []string{filepath.Join(dir, "a.csv")}},
		{"too many outputs", []string{"missing.osm"}, []string{"a", "b", "c"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := wf.Run(context.Background(), test.inputs, test.outputs)
			require.Error(t, err)
			var confErr *config.ConfigurationError
			assert.True(t, errors.As(err, &confErr), "%+v", err)
		})
	}
	// nothing ran
	assert.Empty(t, stdout.String())
	assert.Nil(t, wf.Diffs())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunImportError(t *testing.T) {
	wf, err := New("gare", gareSteps(), DefaultRegistry(), gareOptions(&bytes.Buffer{}))
	require.NoError(t, err)

	err = wf.Run(context.Background(), []string{"testdata/missing.osm"}, nil)
	require.Error(t, err)
	var importErr *importer.ImportError
	require.True(t, errors.As(err, &importErr))
	assert.Equal(t, importer.IO, importErr.Kind)
}

func TestRunCancelled(t *testing.T) {
	stdout := &bytes.Buffer{}
	wf, err := New("gare", gareSteps(), DefaultRegistry(), gareOptions(stdout))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = wf.Run(ctx, []string{gare}, nil)
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
	assert.Empty(t, stdout.String())
}

func TestRunAnalysisError(t *testing.T) {
	reg := DefaultRegistry()
	reg.RegisterImporter("Broken", func(env *Env, params []interface{}) (importer.Importer, error) {
		return brokenImporter{}, nil
	})
	wf, err := New("broken", []config.StepSpec{{Type: config.StepImport, Class: "Broken"}}, reg, Options{})
	require.NoError(t, err)

	err = wf.Run(context.Background(), []string{"whatever"}, nil)
	require.Error(t, err)
	assert.Equal(t, element.ErrUnresolvedType, errors.Cause(err))
}

type brokenImporter struct{}

func (brokenImporter) Import(path string) (*element.Diff, error) {
	return element.NewDiff(path, []*element.Action{
		{Type: element.Modify, Old: &element.Element{ID: 1}, New: &element.Element{ID: 1}},
	}), nil
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		spec config.StepSpec
	}{
		{"step type", config.StepSpec{Type: "transform", Class: "CSVExporter"}},
		{"importer", config.StepSpec{Type: config.StepImport, Class: "OscImporter"}},
		{"filter", config.StepSpec{Type: config.StepFilter, Class: "IgnoreEverything"}},
		{"exporter", config.StepSpec{Type: config.StepExport, Class: "AdiffImporter"}},
		{"missing param", config.StepSpec{Type: config.StepFilter, Class: "IgnoreUsers"}},
		{"extra param", config.StepSpec{Type: config.StepExport, Class: "CSVExporter", Params: []interface{}{1}}},
		{"list param", config.StepSpec{Type: config.StepFilter, Class: "IgnoreKeys", Params: []interface{}{"name"}}},
		{"number param", config.StepSpec{Type: config.StepFilter, Class: "IgnoreSmallMoves", Params: []interface{}{"far"}}},
		{"negative distance", config.StepSpec{Type: config.StepFilter, Class: "IgnoreSmallMoves", Params: []interface{}{-1}}},
		{"pattern param", config.StepSpec{Type: config.StepFilter, Class: "IgnoreElementsOnCreate", Params: []interface{}{"amenity"}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New("w", []config.StepSpec{test.spec}, DefaultRegistry(), Options{})
			require.Error(t, err)
			var confErr *config.ConfigurationError
			assert.True(t, errors.As(err, &confErr))
		})
	}

	_, err := New("w", nil, DefaultRegistry(), Options{Patchers: []string{"FixEverything"}})
	assert.Error(t, err)
}

func TestPatternParamCause(t *testing.T) {
	spec := config.StepSpec{Type: config.StepFilter, Class: "IgnoreElementsOnModify", Params: []interface{}{"amenity"}}
	_, err := New("w", []config.StepSpec{spec}, DefaultRegistry(), Options{})
	var patternErr *pattern.InvalidPatternError
	require.True(t, errors.As(err, &patternErr))
	assert.Equal(t, "amenity", patternErr.Pattern)
}

func TestFromConfig(t *testing.T) {
	conf, err := config.Parse([]byte(`
tags_importance: ["shop=*"]
patchers: []
workflows:
  raw:
    - {type: import, class: AdiffImporter}
    - {type: filter, class: IgnoreElementsCreation, params: ["amenity=bench"]}
    - {type: export, class: AdiffExporter}
`))
	require.NoError(t, err)

	_, err = FromConfig(conf, "missing", DefaultRegistry(), Options{})
	var confErr *config.ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.Contains(t, err.Error(), "missing")

	stdout := &bytes.Buffer{}
	wf, err := FromConfig(conf, "raw", DefaultRegistry(), Options{Stdout: stdout})
	require.NoError(t, err)
	assert.Empty(t, wf.patchers)

	require.NoError(t, wf.Run(context.Background(), []string{gare}, nil))
	assert.Len(t, wf.Selection(), 4)
	assert.Equal(t, 4, strings.Count(stdout.String(), "<action "))
	assert.NotContains(t, stdout.String(), "bench")

	r, err := wf.Analyzer().Report(wf.Selection()[0])
	require.NoError(t, err)
	assert.Equal(t, "shop=bakery", r.MainTag)
}

func TestRegistryClasses(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{"AdiffImporter"}, reg.Classes(config.StepImport))
	assert.Equal(t, []string{"AdiffExporter", "AnalyzedCSVExporter", "CSVExporter"}, reg.Classes(config.StepExport))
	assert.Contains(t, reg.Classes(config.StepFilter), "IgnoreSmallMoves")
	assert.Contains(t, reg.Classes(config.StepFilter), "IgnoreSmallNodeMoves")
	assert.Equal(t, []string{"FixRemoveOperationMetadata"}, reg.PatcherNames())
	assert.Empty(t, reg.Classes("transform"))
}

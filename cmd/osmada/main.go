package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/osmada/osmada"
	"github.com/osmada/osmada/config"
	"github.com/osmada/osmada/log"
	"github.com/osmada/osmada/stats"
	"github.com/osmada/osmada/workflow"
)

type options struct {
	configFile  string
	outputPaths []string
	quiet       bool
	progress    bool
	metricsFile string
	httpprofile string
	classes     bool
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "osmada",
		Short:         "Analyze, filter and export OpenStreetMap augmented diffs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "osmada.yml", "configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only log warnings and errors")

	runCmd := &cobra.Command{
		Use:   "run <workflow> <input-path>...",
		Short: "Run a configured workflow",
		Long: "Run a configured workflow. One input path is required for each import step.\n" +
			"Exports are written to --output-paths in the order of the export steps, or to stdout.\n" +
			"Output paths may be given comma separated or space separated after the flag:\n" +
			"  osmada run raw in.osm --output-paths a.csv b.osm",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, syscall.SIGTERM, syscall.SIGINT)
			defer signal.Stop(sigc)
			go func() {
				select {
				case <-sigc:
					log.Println("[info] Exiting. (SIGTERM/SIGINT)")
					cancel()
				case <-ctx.Done():
				}
			}()

			return run(ctx, opts, args[0], args[1:], stdout)
		},
	}
	runCmd.Flags().StringSliceVarP(&opts.outputPaths, "output-paths", "o", nil, "output paths, one per export step")
	runCmd.Flags().BoolVar(&opts.progress, "progress", false, "show a progress bar while reading inputs")
	runCmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write prometheus metrics to this file after the run")
	runCmd.Flags().StringVar(&opts.httpprofile, "httpprofile", "", "bind address for profile server")

	workflowsCmd := &cobra.Command{
		Use:   "workflows",
		Short: "List the configured workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.classes {
				printClasses(stdout, workflow.DefaultRegistry())
				return nil
			}
			conf, err := loadConfig(opts)
			if err != nil {
				return err
			}
			for _, name := range conf.WorkflowNames() {
				steps := []string{}
				for _, s := range conf.Workflows[name] {
					steps = append(steps, s.String())
				}
				fmt.Fprintf(stdout, "%s: %s\n", name, strings.Join(steps, " -> "))
			}
			return nil
		},
	}

	workflowsCmd.Flags().BoolVar(&opts.classes, "classes", false, "list the available step classes and patchers instead")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, osmada.Version)
		},
	}

	rootCmd.AddCommand(runCmd, workflowsCmd, versionCmd)
	return rootCmd
}

func loadConfig(opts *options) (*config.Config, error) {
	if opts.quiet {
		log.SetMinLevel(log.LWarn)
	}
	return config.Load(opts.configFile)
}

func printClasses(w io.Writer, reg *workflow.Registry) {
	for _, kind := range []string{config.StepImport, config.StepFilter, config.StepExport} {
		fmt.Fprintf(w, "%s: %s\n", kind, strings.Join(reg.Classes(kind), ", "))
	}
	fmt.Fprintf(w, "patchers: %s\n", strings.Join(reg.PatcherNames(), ", "))
}

// splitPaths takes the first nInputs positional args as inputs. If output
// paths are given, the remaining args are further output paths, as in
// --output-paths a.csv b.osm.
func splitPaths(args []string, nInputs int, outputs []string) ([]string, []string) {
	if len(outputs) == 0 || len(args) <= nInputs {
		return args, outputs
	}
	return args[:nInputs], append(append([]string{}, outputs...), args[nInputs:]...)
}

func run(ctx context.Context, opts *options, name string, args []string, stdout io.Writer) error {
	conf, err := loadConfig(opts)
	if err != nil {
		return err
	}

	st := stats.New()
	if opts.httpprofile != "" {
		stats.StartHttpPProf(opts.httpprofile, st)
	}

	wf, err := workflow.FromConfig(conf, name, workflow.DefaultRegistry(), workflow.Options{
		Progress: opts.progress,
		Stats:    st,
		Stdout:   stdout,
	})
	if err != nil {
		return err
	}
	nInputs, _ := wf.Paths()
	inputs, outputs := splitPaths(args, nInputs, opts.outputPaths)

	defer log.Step(fmt.Sprintf("Workflow %s", name))()
	if err := wf.Run(ctx, inputs, outputs); err != nil {
		return errors.Wrapf(err, "running workflow %s", name)
	}
	log.Printf("[info] workflow %s: %d diff(s) imported, %d actions analyzed, %d actions selected",
		name, len(wf.Diffs()), wf.Analyzer().Len(), len(wf.Selection()))

	if opts.metricsFile != "" {
		if err := st.WriteFile(opts.metricsFile); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.Fatal("[fatal] ", err)
	}
}

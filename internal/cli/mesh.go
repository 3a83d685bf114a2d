package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logant/DynamoExperiments/internal/batch"
	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/meshjoin"
	"github.com/logant/DynamoExperiments/internal/store"
)

// MeshOptions holds flags for the mesh command.
type MeshOptions struct {
	*RootOptions
	View       string // view name or id; implies ViewScoped
	ViewScoped bool
	Database   string
	Workers    int
	MaxDepth   int
	Watch      bool

	// RunIDGenerator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator batch.RunIDGenerator
}

// MeshRunOutput is the JSON payload of one batch run.
type MeshRunOutput struct {
	RunID       string          `json:"run_id"`
	Document    string          `json:"document"`
	ViewScoped  bool            `json:"view_scoped"`
	View        string          `json:"view,omitempty"`
	DetailLevel string          `json:"detail_level"`
	Elements    []ElementOutput `json:"elements"`
	Counts      map[string]int  `json:"counts"`
	Database    string          `json:"database,omitempty"` // set when the run was stored
}

// ElementOutput is one slot of a run. A null entry in Meshes is the
// "no geometry" placeholder.
type ElementOutput struct {
	Position int          `json:"position"`
	ID       int64        `json:"id"`
	Status   string       `json:"status"`
	Error    string       `json:"error,omitempty"`
	Meshes   []*geom.Mesh `json:"meshes"`
}

// NewMeshCommand creates the mesh command.
func NewMeshCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MeshOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mesh <document> [element-id...]",
		Short: "Convert element geometry to meshes",
		Long: `Convert the geometry of document elements into meshes.

Every element id yields exactly one output slot, in input order. Without
ids, every element of the document is converted in document order. Use -1
for a null element handle.

With --view (or --scoped for the document's active view) only elements
visible in the view are converted, at the view's detail level. Without a
view, geometry is taken at the finest detail level.

Exit codes:
  0 - All elements converted (or skipped as hidden, empty or null)
  1 - One or more elements failed to convert
  2 - Command error (missing document, bad arguments, database error)

Examples:
  dynamesh mesh model.yaml
  dynamesh mesh model.yaml 1 2 -1 --view "Level 1"
  dynamesh mesh model.cue --db runs.db --workers 4
  dynamesh mesh model.yaml --watch --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyConfig(cmd)
			return runMesh(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.View, "view", "", "restrict to a view (name or id)")
	cmd.Flags().BoolVar(&opts.ViewScoped, "scoped", false, "restrict to the document's active view")
	cmd.Flags().StringVar(&opts.Database, "db", "", "store the run in this SQLite database")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "number of elements converted concurrently")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "maximum instance nesting depth (0 = default)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-run when the document changes")

	return cmd
}

// applyConfig fills flags the user did not set from the config file.
func (o *MeshOptions) applyConfig(cmd *cobra.Command) {
	cfg := o.config()
	if !cmd.Flags().Changed("db") {
		o.Database = cfg.Database
	}
	if !cmd.Flags().Changed("workers") {
		o.Workers = cfg.Workers
	}
	if !cmd.Flags().Changed("max-depth") {
		o.MaxDepth = cfg.MaxDepth
	}
	if !cmd.Flags().Changed("scoped") {
		o.ViewScoped = cfg.ViewScoped
	}
}

func runMesh(opts *MeshOptions, docPath string, idArgs []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	ids, err := ParseElementIDs(idArgs)
	if err != nil {
		_ = formatter.Error(ErrCodeArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	if opts.Workers < 0 {
		_ = formatter.Error(ErrCodeArgs, "workers must be non-negative", nil)
		return NewExitError(ExitCommandError, "workers must be non-negative")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !opts.Watch {
		return meshOnce(ctx, opts, docPath, ids, formatter, logger)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping watch", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return watchMesh(ctx, opts, docPath, ids, formatter, logger)
}

// watchMesh runs once, then again after every change to the document.
// Failed runs are reported and do not stop the watch.
func watchMesh(ctx context.Context, opts *MeshOptions, docPath string, ids []geom.ElementID, formatter *OutputFormatter, logger *slog.Logger) error {
	w, err := newDocumentWatcher(docPath, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to watch document", err)
	}
	defer w.Close()

	run := func(ctx context.Context) {
		if err := meshOnce(ctx, opts, docPath, ids, formatter, logger); err != nil {
			logger.Warn("run failed", "document", docPath, "error", err)
		}
	}

	run(ctx)
	fmt.Fprintf(formatter.GetErrWriter(), "Watching %s for changes. Press Ctrl-C to stop.\n", docPath)

	w.Run(ctx, run)
	return nil
}

// meshOnce loads the document, runs one batch and reports it.
func meshOnce(ctx context.Context, opts *MeshOptions, docPath string, ids []geom.ElementID, formatter *OutputFormatter, logger *slog.Logger) error {
	doc, err := LoadDocument(docPath)
	if err != nil {
		return loadErrorExit(formatter, err)
	}
	formatter.VerboseLog("Loaded %s: %d elements, %d views", docPath, len(doc.Elements()), len(doc.Views()))

	if len(ids) == 0 {
		ids = doc.Elements()
	}

	batchOpts := []batch.Option{
		batch.WithLogger(logger),
		batch.WithWorkers(opts.Workers),
		batch.WithMaxDepth(opts.MaxDepth),
	}
	if opts.RunIDGenerator != nil {
		batchOpts = append(batchOpts, batch.WithRunIDGenerator(opts.RunIDGenerator))
	}

	viewScoped := opts.ViewScoped
	if opts.View != "" {
		v, err := findView(doc, opts.View)
		if err != nil {
			_ = formatter.Error(ErrCodeArgs, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid view", err)
		}
		batchOpts = append(batchOpts, batch.WithView(*v))
		viewScoped = true
	}

	res, err := batch.New(doc, doc, batchOpts...).Process(ctx, ids, viewScoped)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "batch failed", err)
	}

	out := newMeshRunOutput(docPath, res)

	if opts.Database != "" {
		if err := storeRun(ctx, opts.Database, docPath, res); err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to store run", err)
		}
		out.Database = opts.Database
	}

	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{Status: "ok", Data: out, RunID: res.RunID}); err != nil {
			return err
		}
	} else {
		writeMeshRunText(formatter.Writer, out, res)
	}

	if failed := res.Counts()[batch.StatusFailed]; failed > 0 {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d element(s) failed", failed), res.Errors())
	}
	return nil
}

func storeRun(ctx context.Context, path, docPath string, res *batch.Result) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.WriteRun(ctx, res, docPath)
}

func newMeshRunOutput(docPath string, res *batch.Result) MeshRunOutput {
	out := MeshRunOutput{
		RunID:       res.RunID,
		Document:    docPath,
		ViewScoped:  res.ViewScoped,
		DetailLevel: res.DetailLevel.String(),
		Elements:    make([]ElementOutput, len(res.Elements)),
		Counts:      make(map[string]int, len(batch.Statuses)),
	}
	if res.View != nil {
		out.View = res.View.Name
	}
	for i, e := range res.Elements {
		eo := ElementOutput{
			Position: e.Position,
			ID:       int64(e.ID),
			Status:   string(e.Status),
			Meshes:   e.Meshes,
		}
		if e.Err != nil {
			eo.Error = e.Err.Error()
		}
		out.Elements[i] = eo
	}
	for status, n := range res.Counts() {
		out.Counts[string(status)] = n
	}
	return out
}

func writeMeshRunText(w io.Writer, out MeshRunOutput, res *batch.Result) {
	scope := "no view"
	if out.ViewScoped {
		scope = fmt.Sprintf("view %q", out.View)
	}
	fmt.Fprintf(w, "Run %s: %d element(s), %s, detail %s\n", out.RunID, len(out.Elements), scope, out.DetailLevel)

	for _, e := range res.Elements {
		fmt.Fprintf(w, "  [%d] element %-6d %-10s", e.Position, e.ID, e.Status)
		switch {
		case e.Err != nil:
			fmt.Fprintf(w, " %v", e.Err)
		case e.Status == batch.StatusOK:
			v, f := meshjoin.Stats(e.Meshes)
			fmt.Fprintf(w, " %d mesh(es), %d vertices, %d faces", len(e.Meshes), v, f)
		}
		fmt.Fprintln(w)
	}

	counts := res.Counts()
	fmt.Fprint(w, "Summary:")
	for _, s := range batch.Statuses {
		fmt.Fprintf(w, " %s=%d", s, counts[s])
	}
	fmt.Fprintf(w, ", %d mesh(es)\n", res.MeshCount())
	if out.Database != "" {
		fmt.Fprintf(w, "Stored run %s in %s\n", out.RunID, out.Database)
	}
}

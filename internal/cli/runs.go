package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/meshjoin"
	"github.com/logant/DynamoExperiments/internal/store"
)

// RunsOptions holds flags for the runs commands.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunInfo is the JSON form of a stored run summary.
type RunInfo struct {
	Seq         int64  `json:"seq"`
	ID          string `json:"id"`
	Document    string `json:"document"`
	ViewScoped  bool   `json:"view_scoped"`
	View        string `json:"view,omitempty"`
	DetailLevel string `json:"detail_level"`
	Elements    int    `json:"elements"`
}

// StoredElement is the JSON form of one stored slot.
type StoredElement struct {
	Position int      `json:"position"`
	ID       int64    `json:"id"`
	Status   string   `json:"status"`
	Error    string   `json:"error,omitempty"`
	Meshes   []string `json:"meshes"` // content addresses, "" for the placeholder
	Vertices int      `json:"vertices"`
	Faces    int      `json:"faces"`
}

// RunDetail is the JSON form of a stored run.
type RunDetail struct {
	RunInfo
	Results []StoredElement `json:"results"`
}

// HistoryInfo is the JSON form of one element history entry.
type HistoryInfo struct {
	RunID    string `json:"run_id"`
	Position int    `json:"position"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// NewRunsCommand creates the runs command and its subcommands.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Long: `List the batch runs stored in a result database, oldest first.

Examples:
  dynamesh runs --db runs.db
  dynamesh runs show 0190b7c2-... --db runs.db
  dynamesh runs history 42 --db runs.db
  dynamesh runs mesh 3f2a... --db runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, f *OutputFormatter) error {
				return listRuns(ctx, st, f)
			})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	cmd.AddCommand(&cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show one stored run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, f *OutputFormatter) error {
				return showRun(ctx, st, f, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "history <element-id>",
		Short:         "Show an element's status across runs",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, f *OutputFormatter) error {
				return elementHistory(ctx, st, f, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "mesh <hash>",
		Short:         "Print a stored mesh",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st *store.Store, f *OutputFormatter) error {
				return showMesh(ctx, st, f, args[0])
			})
		},
	})

	return cmd
}

// withStore opens the configured database, which must already exist.
func withStore(opts *RunsOptions, cmd *cobra.Command, fn func(context.Context, *store.Store, *OutputFormatter) error) error {
	formatter := opts.formatter(cmd)

	path := opts.Database
	if !cmd.Flags().Changed("db") && path == "" {
		path = opts.config().Database
	}
	if path == "" {
		_ = formatter.Error(ErrCodeArgs, "no database given (use --db or set database in the config file)", nil)
		return NewExitError(ExitCommandError, "no database given")
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}

	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, st, formatter)
}

func runInfo(s store.RunSummary) RunInfo {
	info := RunInfo{
		Seq:         s.Seq,
		ID:          s.ID,
		Document:    s.Document,
		ViewScoped:  s.ViewScoped,
		DetailLevel: s.DetailLevel.String(),
		Elements:    s.Elements,
	}
	if s.View != nil {
		info.View = s.View.Name
	}
	return info
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	infos := make([]RunInfo, len(runs))
	for i, r := range runs {
		infos[i] = runInfo(r)
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	w := formatter.Writer
	if len(infos) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return nil
	}
	for _, r := range infos {
		scope := "no view"
		if r.ViewScoped {
			scope = fmt.Sprintf("view %q", r.View)
		}
		fmt.Fprintf(w, "%4d  %s  %s  %d element(s), %s, detail %s\n", r.Seq, r.ID, r.Document, r.Elements, scope, r.DetailLevel)
	}
	return nil
}

func showRun(ctx context.Context, st *store.Store, formatter *OutputFormatter, runID string) error {
	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", runID), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	detail := RunDetail{
		RunInfo: runInfo(run.RunSummary),
		Results: make([]StoredElement, len(run.Results)),
	}
	for i, rec := range run.Results {
		v, f := meshjoin.Stats(rec.Meshes)
		detail.Results[i] = StoredElement{
			Position: rec.Position,
			ID:       int64(rec.ID),
			Status:   string(rec.Status),
			Error:    rec.Error,
			Meshes:   rec.Hashes,
			Vertices: v,
			Faces:    f,
		}
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: detail, RunID: run.ID})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (%s, detail %s)\n", detail.ID, detail.Document, detail.DetailLevel)
	for _, e := range detail.Results {
		fmt.Fprintf(w, "  [%d] element %-6d %-10s", e.Position, e.ID, e.Status)
		if e.Error != "" {
			fmt.Fprintf(w, " %s", e.Error)
		} else if e.Vertices > 0 {
			fmt.Fprintf(w, " %d mesh(es), %d vertices, %d faces", len(e.Meshes), e.Vertices, e.Faces)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func elementHistory(ctx context.Context, st *store.Store, formatter *OutputFormatter, arg string) error {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		_ = formatter.Error(ErrCodeArgs, fmt.Sprintf("invalid element id %q", arg), nil)
		return WrapExitError(ExitCommandError, "invalid element id", err)
	}

	entries, err := st.ElementHistory(ctx, geom.ElementID(n))
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read element history", err)
	}

	infos := make([]HistoryInfo, len(entries))
	for i, h := range entries {
		infos[i] = HistoryInfo{RunID: h.RunID, Position: h.Position, Status: string(h.Status), Error: h.Error}
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	w := formatter.Writer
	if len(infos) == 0 {
		fmt.Fprintf(w, "No runs include element %d.\n", n)
		return nil
	}
	for _, h := range infos {
		fmt.Fprintf(w, "%s  [%d] %s", h.RunID, h.Position, h.Status)
		if h.Error != "" {
			fmt.Fprintf(w, "  %s", h.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func showMesh(ctx context.Context, st *store.Store, formatter *OutputFormatter, hash string) error {
	m, err := st.ReadMesh(ctx, hash)
	if errors.Is(err, store.ErrMeshNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("mesh not found: %s", hash), nil)
		return WrapExitError(ExitCommandError, "mesh not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read mesh", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(m)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Mesh %s: %d vertices, %d faces\n", hash, m.VertexCount(), m.FaceCount())
	for i, v := range m.Vertices() {
		fmt.Fprintf(w, "  v%d %g %g %g\n", i, v.X, v.Y, v.Z)
	}
	for i, f := range m.Faces() {
		fmt.Fprintf(w, "  f%d %v\n", i, []int(f))
	}
	return nil
}

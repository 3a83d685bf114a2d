package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/source"
	"github.com/logant/DynamoExperiments/internal/traverse"
)

// ValidationIssue is one geometry representation that does not convert.
type ValidationIssue struct {
	Element  int64  `json:"element"`
	Name     string `json:"name"`
	Geometry string `json:"geometry"` // detail level or "view <name>"
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Elements int               `json:"elements"`
	Views    int               `json:"views"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Check that a document loads and converts",
		Long: `Load a document and convert every geometry representation of every
element (each detail level and each view override) without storing anything.

Reports parse errors with their field path, and every representation whose
geometry fails to convert.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, docPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := LoadDocument(docPath)
	if err != nil {
		return loadErrorExit(formatter, err)
	}

	cfg := opts.config()
	tr := traverse.New(
		traverse.WithLogger(opts.logger(formatter.GetErrWriter())),
		traverse.WithMaxDepth(cfg.MaxDepth),
	)

	result := ValidationResult{
		Elements: len(doc.Elements()),
		Views:    len(doc.Views()),
		Errors:   ValidateDocument(doc, tr, formatter),
	}
	result.Valid = len(result.Errors) == 0

	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result)
}

// ValidateDocument converts every geometry representation of every
// element and returns the ones that fail, in element order.
func ValidateDocument(doc *source.Document, tr *traverse.Traverser, formatter *OutputFormatter) []ValidationIssue {
	if tr == nil {
		tr = traverse.New(traverse.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	}
	if formatter == nil {
		formatter = &OutputFormatter{Format: "text", Writer: io.Discard}
	}

	issues := []ValidationIssue{}
	for _, id := range doc.Elements() {
		e, _ := doc.Element(id)
		formatter.VerboseLog("Validating element %d (%s)", id, e.Name)

		for _, level := range sortedLevels(e.Geometry) {
			if issue, bad := checkNode(tr, e, level.String(), e.Geometry[level]); bad {
				issues = append(issues, issue)
			}
		}
		for _, vid := range sortedViews(e.ViewGeometry) {
			label := fmt.Sprintf("view %d", vid)
			if v, ok := doc.View(vid); ok {
				label = "view " + v.Name
			}
			if issue, bad := checkNode(tr, e, label, e.ViewGeometry[vid]); bad {
				issues = append(issues, issue)
			}
		}
	}
	return issues
}

func checkNode(tr *traverse.Traverser, e *source.Element, label string, root geom.Node) (ValidationIssue, bool) {
	_, err := tr.Element(e.ID, root, nil)
	if err == nil {
		return ValidationIssue{}, false
	}
	return ValidationIssue{
		Element:  int64(e.ID),
		Name:     e.Name,
		Geometry: label,
		Code:     ErrCodeGeometry,
		Message:  err.Error(),
	}, true
}

func sortedLevels(m map[source.DetailLevel]geom.Node) []source.DetailLevel {
	levels := make([]source.DetailLevel, 0, len(m))
	for l := range m {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

func sortedViews(m map[source.ViewID]geom.Node) []source.ViewID {
	ids := make([]source.ViewID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Document valid (%d elements, %d views)\n", result.Elements, result.Views)
	return nil
}

// outputValidationErrors outputs every failing representation.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range errs {
		fmt.Fprintf(formatter.Writer, "element %d (%s), %s\n", issue.Element, issue.Name, issue.Geometry)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

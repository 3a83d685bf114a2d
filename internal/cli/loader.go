package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/source"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeNotFound = "E002" // Path not found
	ErrCodeParse    = "E003" // Document or mesh file does not parse
	ErrCodeGeometry = "E004" // Geometry does not convert
	ErrCodeStore    = "E005" // Result store error
	ErrCodeArgs     = "E006" // Invalid arguments
)

// LoadError represents an error that occurred while loading an input file.
type LoadError struct {
	Code    string
	Message string
	Field   string // field path inside the file, if known
}

func (e *LoadError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDocument loads a document file and classifies failures.
func LoadDocument(path string) (*source.Document, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("document not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing document: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	doc, err := source.LoadDocument(path)
	if err != nil {
		var pe *source.ParseError
		if errors.As(err, &pe) {
			return nil, &LoadError{Code: ErrCodeParse, Message: pe.Message, Field: pe.Field}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	return doc, nil
}

// loadErrorExit maps a load failure to an exit error after reporting it.
// Missing files are command errors; unparsable files are failures.
func loadErrorExit(formatter *OutputFormatter, err error) error {
	var le *LoadError
	if !errors.As(err, &le) {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load document", err)
	}

	var details interface{}
	if le.Field != "" {
		details = map[string]string{"field": le.Field}
	}
	_ = formatter.Error(le.Code, le.Message, details)

	if le.Code == ErrCodeNotFound {
		return NewExitError(ExitCommandError, le.Error())
	}
	return NewExitError(ExitFailure, le.Error())
}

// ParseElementIDs parses element id arguments. "-1" is the null handle.
func ParseElementIDs(args []string) ([]geom.ElementID, error) {
	ids := make([]geom.ElementID, len(args))
	for i, arg := range args {
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid element id %q", arg)
		}
		ids[i] = geom.ElementID(n)
	}
	return ids, nil
}

// findView looks a view up by name, then by numeric id.
func findView(doc *source.Document, ref string) (*source.View, error) {
	for _, v := range doc.Views() {
		if v.Name == ref {
			v := v
			return &v, nil
		}
	}
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if v, ok := doc.View(source.ViewID(n)); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("view %q not found", ref)
}

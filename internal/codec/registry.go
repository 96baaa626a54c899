package codec

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paveg/datafilter/internal/dataset"
	dserrors "github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/validation"
)

// Format names of the built-in codecs.
const (
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatXML   = "xml"
	FormatYAML  = "yaml"
)

// Format binds a codec to the file extensions that select it.
type Format struct {
	Name       string
	Extensions []string
	NewReader  func(r io.Reader, opts Options) DataReader
	NewWriter  func(w io.Writer, opts Options) DataWriter
}

// BuiltinFormats returns the codecs every Registry starts with.
func BuiltinFormats() []Format {
	return []Format{
		{
			Name:       FormatCSV,
			Extensions: []string{".csv"},
			NewReader:  func(r io.Reader, o Options) DataReader { return NewCSVReader(r, o.CSV) },
			NewWriter:  func(w io.Writer, o Options) DataWriter { return NewCSVWriter(w, o.CSV) },
		},
		{
			Name:       FormatJSON,
			Extensions: []string{".json"},
			NewReader: func(r io.Reader, o Options) DataReader {
				opts := o.JSON
				opts.Format = JSONArray
				return NewJSONReader(r, opts)
			},
			NewWriter: func(w io.Writer, o Options) DataWriter {
				opts := o.JSON
				opts.Format = JSONArray
				return NewJSONWriter(w, opts)
			},
		},
		{
			Name:       FormatJSONL,
			Extensions: []string{".jsonl", ".ndjson"},
			NewReader: func(r io.Reader, o Options) DataReader {
				opts := o.JSON
				opts.Format = JSONLines
				return NewJSONReader(r, opts)
			},
			NewWriter: func(w io.Writer, o Options) DataWriter {
				opts := o.JSON
				opts.Format = JSONLines
				return NewJSONWriter(w, opts)
			},
		},
		{
			Name:       FormatXML,
			Extensions: []string{".fxml", ".xxml", ".xml"},
			NewReader:  func(r io.Reader, o Options) DataReader { return NewXMLReader(r, o.XML) },
			NewWriter:  func(w io.Writer, o Options) DataWriter { return NewXMLWriter(w, o.XML) },
		},
		{
			Name:       FormatYAML,
			Extensions: []string{".fyml", ".yyml", ".yaml", ".yml"},
			NewReader:  func(r io.Reader, o Options) DataReader { return NewYAMLReader(r, o.YAML) },
			NewWriter:  func(w io.Writer, o Options) DataWriter { return NewYAMLWriter(w, o.YAML) },
		},
	}
}

// Registry selects codecs by file extension and performs file-level load
// and save. Extensions are matched case-insensitively. A Registry is safe
// for concurrent Load and Save once configured.
type Registry struct {
	options    Options
	formats    map[string]Format
	extensions map[string]string
	disabled   map[string]bool
	logger     *slog.Logger
}

// NewRegistry creates a registry holding the built-in formats.
func NewRegistry(options Options, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		options:    options,
		formats:    make(map[string]Format),
		extensions: make(map[string]string),
		disabled:   make(map[string]bool),
		logger:     logger.With("component", "codec"),
	}
	for _, f := range BuiltinFormats() {
		r.Register(f)
	}
	return r
}

// Register adds or replaces a format and claims its extensions.
func (r *Registry) Register(f Format) {
	r.formats[f.Name] = f
	for _, ext := range f.Extensions {
		r.extensions[normalizeExt(ext)] = f.Name
	}
}

// Alias maps an extra extension to a known format.
func (r *Registry) Alias(ext, format string) error {
	if _, ok := r.formats[format]; !ok {
		return dserrors.NewInvalidArgumentError("Alias", ext, "unknown format "+format)
	}
	ext = normalizeExt(ext)
	if ext == "." {
		return dserrors.NewInvalidArgumentError("Alias", ext, "extension must not be empty")
	}
	r.extensions[ext] = format
	return nil
}

// Disable keeps the format's extensions recognised but makes them fail
// with a dependency-missing error.
func (r *Registry) Disable(format string) {
	r.disabled[format] = true
}

// Extensions returns every recognised extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.extensions))
	for ext := range r.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supported reports whether path has an extension that resolves to an
// enabled format.
func (r *Registry) Supported(path string) bool {
	_, err := r.Resolve(path)
	return err == nil
}

// Resolve returns the format selected by path's extension.
func (r *Registry) Resolve(path string) (Format, error) {
	return r.resolve("Resolve", path)
}

func (r *Registry) resolve(op, path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	name, ok := r.extensions[ext]
	if !ok {
		return Format{}, dserrors.NewUnsupportedFormatError(op, path, ext).
			WithHint("supported extensions: " + strings.Join(r.Extensions(), ", "))
	}
	if r.disabled[name] {
		return Format{}, dserrors.NewDependencyMissingError(op, path, name)
	}
	return r.formats[name], nil
}

// Load reads the dataset stored at path.
func (r *Registry) Load(path string) (dataset.Dataset, error) {
	const op = "Load"
	if err := validation.ValidatePath(path, op); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, dserrors.NewNotFoundError(op, path, err)
	case err != nil:
		return nil, pathError(op, path, "cannot access path", err)
	case info.IsDir():
		return nil, dserrors.NewPathError(op, path, "path is a directory")
	}

	format, err := r.resolve(op, path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, pathError(op, path, "cannot open file", err)
	}
	defer file.Close()

	d, err := r.Decode(file, format.Name)
	if err != nil {
		var de *dserrors.DatasetError
		if errors.As(err, &de) && de.Kind == dserrors.KindDecode {
			return nil, dserrors.NewDecodeError(op, path, de.Cause)
		}
		return nil, err
	}

	r.logger.Info("dataset loaded", "path", path, "format", format.Name, "records", len(d))
	return d, nil
}

// Save writes d to path atomically and returns the written path. The
// parent directory must already exist.
func (r *Registry) Save(d dataset.Dataset, path string) (string, error) {
	const op = "Save"
	v := validation.NewCompoundValidator(
		validation.NewPathValidator(path, op),
		validation.NewNonEmptyValidator(d, op),
	)
	if err := v.Validate(); err != nil {
		return "", err
	}

	format, err := r.resolve(op, path)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", dserrors.NewPathError(op, path, "parent directory does not exist")
	case err != nil:
		return "", pathError(op, path, "cannot access parent directory", err)
	case !info.IsDir():
		return "", dserrors.NewPathError(op, path, "parent is not a directory")
	}

	err = writeFileAtomic(path, func(w io.Writer) error {
		return format.NewWriter(w, r.options).Write(d)
	})
	if err != nil {
		var de *dserrors.DatasetError
		if errors.As(err, &de) {
			de.Path = path
			return "", de
		}
		return "", pathError(op, path, "cannot write file", err)
	}

	r.logger.Info("dataset saved", "path", path, "format", format.Name, "records", len(d))
	return path, nil
}

// Decode reads a dataset in the named format from reader. Failures that are
// not already classified are reported as decode errors.
func (r *Registry) Decode(reader io.Reader, format string) (dataset.Dataset, error) {
	f, err := r.enabled("Decode", format)
	if err != nil {
		return nil, err
	}
	d, err := f.NewReader(reader, r.options).Read()
	if err != nil {
		var de *dserrors.DatasetError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dserrors.NewDecodeError("Decode", "", err)
	}
	return d, nil
}

// Encode writes d in the named format to w.
func (r *Registry) Encode(w io.Writer, d dataset.Dataset, format string) error {
	f, err := r.enabled("Encode", format)
	if err != nil {
		return err
	}
	return f.NewWriter(w, r.options).Write(d)
}

func (r *Registry) enabled(op, format string) (Format, error) {
	f, ok := r.formats[format]
	if !ok {
		return Format{}, dserrors.NewUnsupportedFormatError(op, "", format)
	}
	if r.disabled[format] {
		return Format{}, dserrors.NewDependencyMissingError(op, "", format)
	}
	return f, nil
}

func pathError(op, path, message string, cause error) *dserrors.DatasetError {
	e := dserrors.NewPathError(op, path, message)
	e.Cause = cause
	return e
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/seitarof/gen-inspection/internal/inspector"
)

// Writer persists one inspection artifact.
type Writer interface {
	Write(model *inspector.TypeModel, dest string) error
}

// Encoder serializes a model.
type Encoder interface {
	Encode(model *inspector.TypeModel) ([]byte, error)
}

// FileWriter writes artifact bytes to disk.
type FileWriter interface {
	Write(filename string, data []byte) error
}

// SerializationError reports a model that could not be encoded.
type SerializationError struct {
	TypeName string
	Err      error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.TypeName, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// WriteError reports a filesystem failure.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

type writerImpl struct {
	encoder Encoder
	files   FileWriter
}

type jsonEncoder struct{}

type atomicFileWriter struct{}

// New creates an artifact writer.
func New(e Encoder, w FileWriter) Writer {
	return &writerImpl{encoder: e, files: w}
}

// NewJSONEncoder encodes models as indented JSON in declaration order.
func NewJSONEncoder() Encoder {
	return &jsonEncoder{}
}

// NewFileWriter writes through a temp file renamed into place, creating
// missing parent directories.
func NewFileWriter() FileWriter {
	return &atomicFileWriter{}
}

func (w *writerImpl) Write(model *inspector.TypeModel, dest string) error {
	if model == nil {
		return &SerializationError{TypeName: "<nil>", Err: fmt.Errorf("no model")}
	}
	data, err := w.encoder.Encode(model)
	if err != nil {
		return &SerializationError{TypeName: model.Name, Err: err}
	}
	if err := w.files.Write(dest, data); err != nil {
		return &WriteError{Path: dest, Err: err}
	}
	return nil
}

func (e *jsonEncoder) Encode(model *inspector.TypeModel) ([]byte, error) {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (w *atomicFileWriter) Write(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

// Destination picks the artifact path: outputFile when set, otherwise
// <outputDir>/<prefix>-<typeName>.json with path separators flattened.
func Destination(outputDir, outputFile, prefix, typeName string) string {
	if outputFile != "" {
		return outputFile
	}
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(typeName)
	if prefix != "" {
		name = prefix + "-" + name
	}
	return filepath.Join(outputDir, name+".json")
}

// Read parses an artifact written by Write.
func Read(path string) (*inspector.TypeModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m inspector.TypeModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &m, nil
}

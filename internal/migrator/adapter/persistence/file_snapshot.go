package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/logger"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// Snapshot file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const lockFileName = ".catalog-migrator.lock"

// FileSnapshotRepository writes each record to {dir}/{type}/{id}.{format}.
// The directory is locked for the lifetime of the repository so two runs
// cannot interleave their exports.
type FileSnapshotRepository struct {
	dir    string
	format string
	lock   *flock.Flock
	logger logger.Logger
}

// NewFileSnapshotRepository creates dir if needed and takes its lock.
func NewFileSnapshotRepository(dir, format string, log logger.Logger) (*FileSnapshotRepository, error) {
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatYAML {
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported snapshot format %q", format))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewPreconditionError("create snapshot directory").WithCause(err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.NewPreconditionError("lock snapshot directory").WithCause(err)
	}
	if !locked {
		return nil, errors.NewPreconditionError(fmt.Sprintf("snapshot directory %s is in use by another run", dir))
	}

	return &FileSnapshotRepository{
		dir:    dir,
		format: format,
		lock:   lock,
		logger: logger.NopIfNil(log).WithComponent("file-snapshot"),
	}, nil
}

// Save writes one record, replacing an earlier snapshot of the same id.
func (r *FileSnapshotRepository) Save(ctx context.Context, resource model.ResourceType, id int64, record json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := r.encode(record)
	if err != nil {
		return errors.NewInternalError("encode snapshot").WithCause(err)
	}

	typeDir := filepath.Join(r.dir, string(resource))
	if err := os.MkdirAll(typeDir, 0o755); err != nil {
		return errors.WrapError(err, "create snapshot type directory")
	}
	path := filepath.Join(typeDir, strconv.FormatInt(id, 10)+"."+r.format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapError(err, "write snapshot")
	}
	r.logger.Debugf("saved %s", path)
	return nil
}

func (r *FileSnapshotRepository) encode(record json.RawMessage) ([]byte, error) {
	if r.format == FormatYAML {
		dec := json.NewDecoder(bytes.NewReader(record))
		dec.UseNumber()
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		return yaml.Marshal(exactNumbers(v))
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, record, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// exactNumbers replaces json.Number leaves with int64 when the literal is an
// integer and float64 otherwise, so ids keep every digit in YAML.
func exactNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			t[k] = exactNumbers(child)
		}
		return t
	case []interface{}:
		for i, child := range t {
			t[i] = exactNumbers(child)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// Close releases the directory lock.
func (r *FileSnapshotRepository) Close(ctx context.Context) error {
	return r.lock.Unlock()
}

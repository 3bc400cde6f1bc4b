package packadapt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/packcore/pkg/object"
)

// DirObjectSource reads objects from a flat directory where each file is
// named "<40-hex-oid>.<kind>" and holds the object's raw payload. It is a
// minimal object.ObjectSource used by cmd/packcore to build a demo pack
// from a directory of files without a real loose-object store, which is
// explicitly out of this module's scope.
type DirObjectSource struct {
	dir string
}

// NewDirObjectSource returns a source rooted at dir.
func NewDirObjectSource(dir string) *DirObjectSource {
	return &DirObjectSource{dir: dir}
}

// Read implements object.ObjectSource.
func (s *DirObjectSource) Read(oid object.OID) (object.ObjectKind, []byte, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, oid.String()+".*"))
	if err != nil {
		return 0, nil, fmt.Errorf("glob object %s: %w", oid, err)
	}
	if len(matches) == 0 {
		return 0, nil, fmt.Errorf("%w: %s", object.ErrObjectNotFound, oid)
	}

	name := filepath.Base(matches[0])
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	kind, err := parseKind(ext)
	if err != nil {
		return 0, nil, fmt.Errorf("object %s: %w", oid, err)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return 0, nil, fmt.Errorf("read object %s: %w", oid, err)
	}
	return kind, data, nil
}

func parseKind(ext string) (object.ObjectKind, error) {
	switch ext {
	case "commit":
		return object.KindCommit, nil
	case "tree":
		return object.KindTree, nil
	case "blob":
		return object.KindBlob, nil
	case "tag":
		return object.KindTag, nil
	default:
		return 0, fmt.Errorf("unknown object kind suffix %q", ext)
	}
}

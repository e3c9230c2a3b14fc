package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// scratch is a file owned by exactly one operation. It is removed by release
// on every exit path; callers defer release right after creating it.
type scratch struct {
	path string
}

// newScratch reserves a unique path under dir named
// "<unix ms>-<uuid>-<hint>". The file itself is not created.
func newScratch(dir, hint string) (*scratch, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create temp dir: %v", ErrLocalIO, err)
	}
	name := strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.NewString()
	if hint = sanitizeHint(hint); hint != "" {
		name += "-" + hint
	}
	return &scratch{path: filepath.Join(dir, name)}, nil
}

// partialPath returns a hidden sibling of dst used while a download is
// in flight; it is renamed onto dst only after verification.
func partialPath(dst string) string {
	dir, base := filepath.Split(dst)
	return filepath.Join(dir, "."+base+"."+uuid.NewString()+".part")
}

// write creates the file with data.
func (s *scratch) write(data []byte) error {
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: write temp file: %v", ErrLocalIO, err)
	}
	return nil
}

// release removes the file. A missing file is not an error. Failures are
// logged and never replace the operation's own error.
func (s *scratch) release() {
	removeQuietly(s.path)
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("failed to remove temporary file", zap.String("path", path), zap.Error(err))
	}
}

// sanitizeHint keeps a file name hint safe to use as a path element.
func sanitizeHint(hint string) string {
	hint = filepath.Base(strings.TrimSpace(hint))
	if hint == "." || hint == string(filepath.Separator) {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == 0:
			return '_'
		default:
			return r
		}
	}, hint)
}

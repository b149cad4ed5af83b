package cache

import (
	"fmt"
	"os"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
)

// dirLock is a best-effort, cross-platform advisory lock implemented with
// O_EXCL file creation rather than flock(2), since the latter is not
// portable to every OS this tool targets. It prevents two
// concurrent figx processes from sharing a cache directory, per spec.md §5.
type dirLock struct {
	path string
}

func acquireDirLock(path string) (*dirLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, apperrors.New(apperrors.CategoryConfig, "cache.lock",
				fmt.Errorf("%w: %s", apperrors.ErrCacheLocked, path))
		}
		return nil, apperrors.Wrap(apperrors.CategoryWrite, "cache.lock", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return &dirLock{path: path}, nil
}

func (l *dirLock) release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.CategoryWrite, "cache.unlock", err)
	}
	return nil
}

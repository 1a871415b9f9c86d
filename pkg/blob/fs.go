package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore keeps objects as plain files under a root directory
type FSStore struct {
	root string
}

// NewFS returns a filesystem store rooted at root, creating it if needed
func NewFS(root string) (*FSStore, error) {
	if root == "" {
		root = "./backups"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) Driver() Driver { return DriverFilesystem }

// Root is the directory objects live in
func (s *FSStore) Root() string { return s.root }

// sanitizeKey forbids empty, absolute and escaping keys
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *FSStore) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

func (s *FSStore) info(key string, fi fs.FileInfo) Info {
	ct := ""
	if strings.HasSuffix(key, ".zip") {
		ct = "application/zip"
	}
	return Info{Key: key, Size: fi.Size(), ContentType: ct, LastModified: fi.ModTime().UTC()}
}

func (s *FSStore) Put(_ context.Context, key string, r io.Reader, _ string) (Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return Info{}, err
	}
	if _, err := os.Stat(path); err == nil {
		return Info{}, fmt.Errorf("%s: %w", key, ErrExists)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Info{}, err
	}

	// write to a temp file and rename so readers never see a partial archive
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return Info{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Info{}, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return s.info(key, fi), nil
}

func (s *FSStore) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return Info{}, nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return Info{}, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return Info{}, nil, err
	}
	return s.info(key, fi), f, nil
}

func (s *FSStore) Head(_ context.Context, key string) (Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return Info{}, err
	}
	return s.info(key, fi), nil
}

func (s *FSStore) Delete(_ context.Context, key string) (bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FSStore) List(_ context.Context, prefix string) ([]Info, error) {
	var infos []Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, s.info(key, fi))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

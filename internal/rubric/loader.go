package rubric

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

//go:embed rubrics/*.yaml
var builtin embed.FS

var roleFamilyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// FileLoader reads `<role_family>.yaml` rubrics from a directory, falling back to the
// rubrics compiled into the binary. Loaded rubrics are cached for the process lifetime.
type FileLoader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*Rubric
}

// NewFileLoader creates a loader. An empty dir uses only the built-in rubrics.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{
		dir:   strings.TrimSpace(dir),
		cache: make(map[string]*Rubric),
	}
}

// NormalizeRoleFamily converts "Software Engineer" or "software-engineer" to "software_engineer".
func NormalizeRoleFamily(roleFamily string) string {
	r := strings.ToLower(strings.TrimSpace(roleFamily))
	r = strings.NewReplacer("-", "_", " ", "_").Replace(r)
	return r
}

func (l *FileLoader) Load(ctx context.Context, roleFamily string) (*Rubric, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := NormalizeRoleFamily(roleFamily)
	if key == "" {
		return nil, fmt.Errorf("%w: empty role family", ErrNotFound)
	}
	if !roleFamilyPattern.MatchString(key) {
		return nil, fmt.Errorf("%w: invalid role family %q", ErrNotFound, roleFamily)
	}

	l.mu.RLock()
	cached, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := l.read(key)
	if err != nil {
		return nil, err
	}

	r, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode rubric %q: %w", key, err)
	}
	if r.RoleFamily == "" {
		r.RoleFamily = key
	}

	l.mu.Lock()
	l.cache[key] = r
	l.mu.Unlock()

	return r, nil
}

func (l *FileLoader) read(key string) ([]byte, error) {
	name := key + ".yaml"

	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read rubric %q: %w", key, err)
		}
	}

	data, err := builtin.ReadFile("rubrics/" + name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read built-in rubric %q: %w", key, err)
	}
	return data, nil
}

// Decode parses one YAML rubric document and validates its dimensions.
func Decode(data []byte) (*Rubric, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	var r Rubric
	if err := v.Unmarshal(&r); err != nil {
		return nil, err
	}

	if len(r.Dimensions) == 0 {
		return nil, errors.New("rubric has no dimensions")
	}

	seen := make(map[string]struct{}, len(r.Dimensions))
	for i, d := range r.Dimensions {
		slug := NormalizeSlug(d.Slug)
		if slug == "" {
			return nil, fmt.Errorf("dimension %d has no slug", i)
		}
		if _, dup := seen[slug]; dup {
			return nil, fmt.Errorf("duplicate dimension slug %q", slug)
		}
		seen[slug] = struct{}{}

		if strings.TrimSpace(d.Name) == "" {
			r.Dimensions[i].Name = d.Slug
		}
	}

	return &r, nil
}

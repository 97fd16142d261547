package themes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lista-crm/sites-platform/internal/infra/db"
	"github.com/lista-crm/sites-platform/pkg/env"
)

// Manifest declares the routes a theme renders. A path with a ":param"
// trailing segment is a detail route sharing one static page for all ids.
type Manifest struct {
	Routes []ManifestRoute `json:"routes"`
}

type ManifestRoute struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

func (r ManifestRoute) IsDetail() bool {
	return strings.Contains(r.Path, ":")
}

type Asset struct {
	RelPath string
	Data    []byte
}

// Provider is what the materializer needs from a theme: its route manifest,
// its base HTML template and its static asset bundle.
type Provider interface {
	Manifest(ctx context.Context, themeKey string) (*Manifest, error)
	BaseTemplate(themeKey string) (string, error)
	Assets(themeKey string) ([]Asset, error)
}

type Config struct {
	ThemesFolder string
}

func NewConfig() Config {
	return Config{
		ThemesFolder: env.GetEnv("THEMES_FOLDER", "./themes"),
	}
}

// Registry reads manifests and default payloads from the directory store and
// base templates plus assets from the theme bundle on disk.
type Registry struct {
	pool *pgxpool.Pool
	cfg  Config
}

var _ Provider = (*Registry)(nil)

func NewRegistry(pool *pgxpool.Pool, cfg Config) *Registry {
	return &Registry{pool: pool, cfg: cfg}
}

func (r *Registry) ThemeByKey(ctx context.Context, key string) (*db.Theme, error) {
	var theme db.Theme
	query := "SELECT id, key, name, is_active, default_payload_json FROM platform.themes WHERE key = $1 AND is_active"
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&theme.ID, &theme.Key, &theme.Name, &theme.IsActive, &theme.DefaultPayloadJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("theme %q: %w", key, err)
	}
	return &theme, nil
}

func (r *Registry) Manifest(ctx context.Context, themeKey string) (*Manifest, error) {
	var raw json.RawMessage
	query := `SELECT tm.manifest_json FROM platform.theme_manifests tm
		JOIN platform.themes t ON t.id = tm.theme_id
		WHERE t.key = $1`
	err := r.pool.QueryRow(ctx, query, themeKey).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("manifest of theme %q: %w", themeKey, err)
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest of theme %q: %w", themeKey, err)
	}
	return &manifest, nil
}

func (r *Registry) DefaultPayload(ctx context.Context, themeKey string) (json.RawMessage, error) {
	theme, err := r.ThemeByKey(ctx, themeKey)
	if err != nil {
		return nil, err
	}
	if theme == nil || len(theme.DefaultPayloadJSON) == 0 {
		return nil, fmt.Errorf("default payload not found for theme %q", themeKey)
	}
	return theme.DefaultPayloadJSON, nil
}

func (r *Registry) BaseTemplate(themeKey string) (string, error) {
	path := filepath.Join(r.cfg.ThemesFolder, themeKey, "base.html")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("base template of theme %q: %w", themeKey, err)
	}
	return string(data), nil
}

func (r *Registry) Assets(themeKey string) ([]Asset, error) {
	root := filepath.Join(r.cfg.ThemesFolder, themeKey, "assets")
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var assets []Asset
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		assets = append(assets, Asset{RelPath: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assets of theme %q: %w", themeKey, err)
	}
	return assets, nil
}

package preset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"lighterdash/internal/logger"
	"lighterdash/internal/market"
)

const presetSchemaTemplate = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "description": {"type": "string"},
    "search": {"type": "string"},
    "filter": {"enum": ["", "all", "gainers", "losers"]},
    "sort": {"enum": %s},
    "dir": {"enum": ["", "asc", "desc"]}
  }
}`

// presetSchema 的 sort 枚举取自 market.SortKeys。
func presetSchema() string {
	keys := []string{string(market.SortNone)}
	for _, k := range market.SortKeys() {
		keys = append(keys, string(k))
	}
	enum, _ := json.Marshal(keys)
	return fmt.Sprintf(presetSchemaTemplate, enum)
}

// Preset 是一个命名的行情视图查询。
type Preset struct {
	Name        string `yaml:"-" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Search      string `yaml:"search" json:"search"`
	Filter      string `yaml:"filter" json:"filter"`
	Sort        string `yaml:"sort" json:"sort"`
	Dir         string `yaml:"dir" json:"dir"`

	query market.Query
}

func (p Preset) Query() market.Query { return p.query }

type FileConfig struct {
	Presets map[string]Preset `yaml:"presets"`
}

type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Presets  map[string]Preset
}

type ChangeListener func(Snapshot)

// Registry 管理视图预设，文件变更时热加载；加载失败保留旧集合。
type Registry struct {
	path   string
	v      *viper.Viper
	schema *jsonschema.Schema

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("preset registry requires path")
	}
	schema, err := compileSchema(presetSchema())
	if err != nil {
		return nil, fmt.Errorf("compile preset schema failed: %w", err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read preset file failed: %w", err)
	}
	r := &Registry{path: path, v: v, schema: schema}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("preset reload failed (%s), keeping previous set: %v", evt.Name, err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.snapshot
	out.Presets = make(map[string]Preset, len(r.snapshot.Presets))
	for k, p := range r.snapshot.Presets {
		out.Presets[k] = p
	}
	return out
}

// Lookup finds a preset by case-insensitive name.
func (r *Registry) Lookup(name string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

func (r *Registry) List() []Preset {
	r.mu.RLock()
	out := make([]Preset, 0, len(r.snapshot.Presets))
	for _, p := range r.snapshot.Presets {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) reload() error {
	cfg, err := readPresetFile(r.path)
	if err != nil {
		return err
	}
	presets := make(map[string]Preset, len(cfg.Presets))
	for name, p := range cfg.Presets {
		norm, err := r.normalize(name, p)
		if err != nil {
			return err
		}
		presets[norm.Name] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Presets:  presets,
	}
	r.mu.Unlock()
	logger.Infof("preset registry loaded %d presets from %s", len(presets), filepath.Base(r.path))
	return nil
}

func (r *Registry) normalize(name string, p Preset) (Preset, error) {
	p.Name = strings.ToLower(strings.TrimSpace(name))
	if p.Name == "" {
		return Preset{}, fmt.Errorf("preset with empty name")
	}
	p.Filter = strings.ToLower(strings.TrimSpace(p.Filter))
	p.Sort = strings.ToLower(strings.TrimSpace(p.Sort))
	p.Dir = strings.ToLower(strings.TrimSpace(p.Dir))
	if err := r.schema.Validate(toDocument(p)); err != nil {
		return Preset{}, fmt.Errorf("preset %s invalid: %w", p.Name, err)
	}
	q, err := market.ParseQuery(p.Search, p.Filter, p.Sort, p.Dir, market.Query{Filter: market.FilterAll, SortDir: market.Asc})
	if err != nil {
		return Preset{}, fmt.Errorf("preset %s invalid: %w", p.Name, err)
	}
	p.query = q
	return p, nil
}

func (r *Registry) notifyListeners() {
	snap := r.Snapshot()
	r.mu.RLock()
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("preset listener")
			cb(snap)
		}(fn)
	}
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func toDocument(p Preset) map[string]any {
	return map[string]any{
		"description": p.Description,
		"search":      p.Search,
		"filter":      p.Filter,
		"sort":        p.Sort,
		"dir":         p.Dir,
	}
}

func compileSchema(src string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("preset.json", strings.NewReader(src)); err != nil {
		return nil, err
	}
	return compiler.Compile("preset.json")
}

func readPresetFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read preset file failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse preset file failed: %w", err)
	}
	return cfg, nil
}

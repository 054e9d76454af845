package scenecfg

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"studio/internal/domain"
)

//go:embed scenes.yaml
var builtinScenes []byte

type catalogFile struct {
	Scenes []domain.Scene `yaml:"scenes"`
}

// Catalog is the immutable, ordered set of scene directives.
type Catalog struct {
	order []domain.SceneID
	byID  map[domain.SceneID]domain.Scene
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(builtinScenes)
	if err != nil {
		panic(fmt.Sprintf("scenecfg: builtin catalog: %v", err))
	}
	return c
}

// Load reads the catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenecfg: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("scenecfg: decode: %w", err)
	}
	c := &Catalog{byID: make(map[domain.SceneID]domain.Scene, len(file.Scenes))}
	for i, sc := range file.Scenes {
		sc.ID = domain.SceneID(strings.TrimSpace(string(sc.ID)))
		sc.Prompt = strings.TrimSpace(sc.Prompt)
		if sc.ID == "" {
			return nil, fmt.Errorf("scenecfg: scene #%d has no id", i+1)
		}
		if sc.Prompt == "" {
			return nil, fmt.Errorf("scenecfg: scene %q has no prompt", sc.ID)
		}
		if _, dup := c.byID[sc.ID]; dup {
			return nil, fmt.Errorf("scenecfg: duplicate scene %q", sc.ID)
		}
		c.byID[sc.ID] = sc
		c.order = append(c.order, sc.ID)
	}
	if _, ok := c.byID[domain.SceneAuto]; !ok {
		return nil, fmt.Errorf("scenecfg: %q scene is required", domain.SceneAuto)
	}
	return c, nil
}

// All returns the scenes in declaration order.
func (c *Catalog) All() []domain.Scene {
	out := make([]domain.Scene, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Get looks a scene up by id.
func (c *Catalog) Get(id domain.SceneID) (domain.Scene, bool) {
	sc, ok := c.byID[id]
	return sc, ok
}

// Resolve maps a user supplied id onto a scene. An empty id selects auto.
func (c *Catalog) Resolve(id string) (domain.Scene, error) {
	key := domain.SceneID(strings.ToLower(strings.TrimSpace(id)))
	if key == "" {
		key = domain.SceneAuto
	}
	sc, ok := c.byID[key]
	if !ok {
		return domain.Scene{}, fmt.Errorf("%w: %q", domain.ErrUnknownScene, id)
	}
	return sc, nil
}

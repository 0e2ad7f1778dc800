package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrDuplicateName     = errors.New("duplicate name")
	ErrUnknownReference  = errors.New("unknown reference")
	ErrInvalidDefinition = errors.New("invalid definition")
	ErrSchema            = errors.New("schema violation")
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Catalogs is the immutable definition set shared by every component. Build
// it once with Load or Parse and pass it explicitly.
type Catalogs struct {
	Items      ItemCatalog
	Recipes    RecipeCatalog
	Structures StructureCatalog
}

type ItemCatalog struct {
	Names  []string
	Defs   map[string]ItemDef
	Digest string
}

type ItemDef struct {
	Name        string  `json:"name"`
	StackSize   int     `json:"stack_size,omitempty"`
	FuelSeconds float64 `json:"fuel_seconds,omitempty"`
}

func (d ItemDef) IsFuel() bool { return d.FuelSeconds > 0 }

type RecipeCatalog struct {
	Names  []string
	ByName map[string]RecipeDef
	Digest string
}

const (
	StationSmelter   = "smelter"
	StationAssembler = "assembler"
)

type RecipeDef struct {
	Name         string      `json:"name"`
	Station      string      `json:"station"`
	Ingredients  []ItemCount `json:"ingredients"`
	Products     []ItemCount `json:"products"`
	CraftingTime float64     `json:"crafting_time"` // seconds

	TimeMs int64 `json:"-"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type StructureCatalog struct {
	Names  []string
	ByName map[string]StructureDef
	Digest string

	// Reach is the largest distance, in whole cells, that any collider
	// extends past its footprint.
	Reach int
}

func Load(configDir string) (*Catalogs, error) {
	items, err := os.ReadFile(filepath.Join(configDir, "items.json"))
	if err != nil {
		return nil, err
	}
	recipes, err := os.ReadFile(filepath.Join(configDir, "recipes.json"))
	if err != nil {
		return nil, err
	}
	structures, err := os.ReadFile(filepath.Join(configDir, "structures.json"))
	if err != nil {
		return nil, err
	}
	return Parse(items, recipes, structures)
}

// Parse validates and decodes the three catalog documents. Any error is
// fatal: a simulation must not start from a partial catalog.
func Parse(itemsJSON, recipesJSON, structuresJSON []byte) (*Catalogs, error) {
	var c Catalogs
	if err := parseItems(itemsJSON, &c.Items); err != nil {
		return nil, err
	}
	if err := parseRecipes(recipesJSON, &c.Items, &c.Recipes); err != nil {
		return nil, err
	}
	if err := parseStructures(structuresJSON, &c.Items, &c.Structures); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return c.Compile(name)
}

func validateSchema(file, schemaName string, raw []byte) error {
	s, err := compileSchema(schemaName)
	if err != nil {
		return fmt.Errorf("%s: compile schema: %w", file, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w: %v", file, ErrSchema, err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func parseItems(raw []byte, out *ItemCatalog) error {
	if err := validateSchema("items.json", "items.schema.json", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = make(map[string]ItemDef, len(defs))
	for _, d := range defs {
		if _, dup := out.Defs[d.Name]; dup {
			return fmt.Errorf("items.json: %w: %q", ErrDuplicateName, d.Name)
		}
		out.Defs[d.Name] = d
	}
	out.Names = sortedKeys(out.Defs)
	return nil
}

func parseRecipes(raw []byte, items *ItemCatalog, out *RecipeCatalog) error {
	if err := validateSchema("recipes.json", "recipes.schema.json", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByName = make(map[string]RecipeDef, len(defs))
	for _, r := range defs {
		if _, dup := out.ByName[r.Name]; dup {
			return fmt.Errorf("recipes.json: %w: %q", ErrDuplicateName, r.Name)
		}
		for _, ic := range append(append([]ItemCount{}, r.Ingredients...), r.Products...) {
			if _, ok := items.Defs[ic.Item]; !ok {
				return fmt.Errorf("recipes.json: recipe %q: %w: item %q", r.Name, ErrUnknownReference, ic.Item)
			}
		}
		r.TimeMs = int64(r.CraftingTime*1000 + 0.5)
		if r.TimeMs <= 0 {
			return fmt.Errorf("recipes.json: recipe %q: %w: crafting_time too small", r.Name, ErrInvalidDefinition)
		}
		out.ByName[r.Name] = r
	}
	out.Names = sortedKeys(out.ByName)
	return nil
}

func parseStructures(raw []byte, items *ItemCatalog, out *StructureCatalog) error {
	if err := validateSchema("structures.json", "structures.schema.json", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []StructureDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("structures.json: %w", err)
	}
	out.ByName = make(map[string]StructureDef, len(defs))
	for _, d := range defs {
		if _, dup := out.ByName[d.Name]; dup {
			return fmt.Errorf("structures.json: %w: %q", ErrDuplicateName, d.Name)
		}
		if err := d.init(items); err != nil {
			return fmt.Errorf("structures.json: structure %q: %w", d.Name, err)
		}
		out.ByName[d.Name] = d
		if r := d.Overhang(); r > out.Reach {
			out.Reach = r
		}
	}
	out.Names = sortedKeys(out.ByName)
	return nil
}

// Digest covers all three documents; it is recorded in snapshots and logs.
func (c *Catalogs) Digest() string {
	return sha256Hex([]byte(c.Items.Digest + c.Recipes.Digest + c.Structures.Digest))
}

func (c *Catalogs) Item(name string) (ItemDef, bool) {
	d, ok := c.Items.Defs[name]
	return d, ok
}

func (c *Catalogs) Recipe(name string) (RecipeDef, bool) {
	r, ok := c.Recipes.ByName[name]
	return r, ok
}

func (c *Catalogs) Structure(name string) (StructureDef, bool) {
	d, ok := c.Structures.ByName[name]
	return d, ok
}

// StackSize returns the item's stack size, or fallback when the item does
// not set one.
func (c *Catalogs) StackSize(item string, fallback int) int {
	if d, ok := c.Items.Defs[item]; ok && d.StackSize > 0 {
		return d.StackSize
	}
	return fallback
}

// FuelMs is the burn time of one unit of item; zero for non-fuel.
func (c *Catalogs) FuelMs(item string) int64 {
	d, ok := c.Items.Defs[item]
	if !ok || d.FuelSeconds <= 0 {
		return 0
	}
	return int64(d.FuelSeconds*1000 + 0.5)
}

func (c *Catalogs) IsFuel(item string) bool { return c.FuelMs(item) > 0 }

// RecipesFor returns the recipes crafted at station, ordered by name.
func (c *Catalogs) RecipesFor(station string) []RecipeDef {
	var out []RecipeDef
	for _, name := range c.Recipes.Names {
		if r := c.Recipes.ByName[name]; r.Station == station {
			out = append(out, r)
		}
	}
	return out
}

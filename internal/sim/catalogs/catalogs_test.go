package catalogs

import (
	"errors"
	"testing"
)

const testItems = `[{"name":"Coal","fuel_seconds":10},{"name":"Iron ore"},{"name":"Iron plate","stack_size":100}]`

const testRecipes = `[{"name":"Iron plate","station":"smelter","ingredients":[{"item":"Iron ore","count":1}],"products":[{"item":"Iron plate","count":1}],"crafting_time":1.5}]`

const testStructures = `[{"name":"Stone furnace","size":[2,2],"collider":[1.8,1.8],"sides":1,"components":[
  {"type":"Smelter"},{"type":"Burner"},{"type":"CraftingQueue"},
  {"type":"Source","slots":1},{"type":"Output","slots":1},{"type":"Fuel","slots":1}]}]`

func TestLoadRepoCatalogs(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	furnace, ok := c.Structure("Stone furnace")
	if !ok {
		t.Fatalf("missing Stone furnace")
	}
	if !furnace.Caps().Has(CapSmelter | CapBurner | CapSource | CapOutput | CapFuel) {
		t.Fatalf("furnace caps=%b", furnace.Caps())
	}
	if !c.IsFuel("Coal") || c.FuelMs("Coal") != 10_000 {
		t.Fatalf("coal fuel=%d", c.FuelMs("Coal"))
	}
	if c.IsFuel("Iron ore") {
		t.Fatalf("iron ore is not fuel")
	}
	if c.Digest() == "" {
		t.Fatalf("empty digest")
	}
	smelts := c.RecipesFor(StationSmelter)
	for i := 1; i < len(smelts); i++ {
		if smelts[i-1].Name >= smelts[i].Name {
			t.Fatalf("smelter recipes not name ordered: %v", smelts)
		}
	}
}

func TestParseDerivesTimesAndStackSizes(t *testing.T) {
	c, err := Parse([]byte(testItems), []byte(testRecipes), []byte(testStructures))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r, _ := c.Recipe("Iron plate")
	if r.TimeMs != 1500 {
		t.Fatalf("TimeMs=%d", r.TimeMs)
	}
	if c.StackSize("Iron plate", 1000) != 100 || c.StackSize("Iron ore", 1000) != 1000 {
		t.Fatalf("stack sizes: %d %d", c.StackSize("Iron plate", 1000), c.StackSize("Iron ore", 1000))
	}
}

func TestStructureReach(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Structures.Reach != 0 {
		t.Fatalf("repo reach=%d", c.Structures.Reach)
	}
	wide := `[{"name":"Pole","size":[1,1],"collider":[3,1],"sides":4,"components":[]},
  {"name":"Chest","size":[1,1],"collider":[1,1],"sides":1,"components":[]}]`
	c, err = Parse([]byte(testItems), []byte(testRecipes), []byte(wide))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Structures.Reach != 1 {
		t.Fatalf("reach=%d", c.Structures.Reach)
	}
	if d, _ := c.Structure("Chest"); d.Overhang() != 0 {
		t.Fatalf("chest overhang=%d", d.Overhang())
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name       string
		items      string
		recipes    string
		structures string
		want       error
	}{
		{
			name:       "duplicate item",
			items:      `[{"name":"Coal"},{"name":"Coal"}]`,
			recipes:    `[]`,
			structures: `[]`,
			want:       ErrDuplicateName,
		},
		{
			name:       "duplicate structure",
			items:      testItems,
			recipes:    testRecipes,
			structures: `[{"name":"Chest","size":[1,1],"collider":[1,1],"sides":1,"components":[]},{"name":"Chest","size":[1,1],"collider":[1,1],"sides":1,"components":[]}]`,
			want:       ErrDuplicateName,
		},
		{
			name:       "recipe with unknown item",
			items:      testItems,
			recipes:    `[{"name":"X","station":"smelter","ingredients":[{"item":"Gold ore","count":1}],"products":[{"item":"Iron plate","count":1}],"crafting_time":1}]`,
			structures: `[]`,
			want:       ErrUnknownReference,
		},
		{
			name:       "unknown station",
			items:      testItems,
			recipes:    `[{"name":"X","station":"hand","ingredients":[{"item":"Iron ore","count":1}],"products":[{"item":"Iron plate","count":1}],"crafting_time":1}]`,
			structures: `[]`,
			want:       ErrSchema,
		},
		{
			name:       "bad sides",
			items:      testItems,
			recipes:    testRecipes,
			structures: `[{"name":"Chest","size":[1,1],"collider":[1,1],"sides":3,"components":[]}]`,
			want:       ErrSchema,
		},
		{
			name:       "unknown component tag",
			items:      testItems,
			recipes:    testRecipes,
			structures: `[{"name":"Chest","size":[1,1],"collider":[1,1],"sides":1,"components":[{"type":"Teleporter"}]}]`,
			want:       ErrSchema,
		},
		{
			name:       "smelter without output",
			items:      testItems,
			recipes:    testRecipes,
			structures: `[{"name":"F","size":[1,1],"collider":[1,1],"sides":1,"components":[{"type":"Smelter"},{"type":"CraftingQueue"},{"type":"Source","slots":1}]}]`,
			want:       ErrInvalidDefinition,
		},
		{
			name:       "burner without fuel",
			items:      testItems,
			recipes:    testRecipes,
			structures: `[{"name":"F","size":[1,1],"collider":[1,1],"sides":4,"components":[{"type":"Inserter","cycle_time":1,"stack_size":1},{"type":"Burner"}]}]`,
			want:       ErrInvalidDefinition,
		},
		{
			name:       "repeated tag",
			items:      testItems,
			recipes:    testRecipes,
			structures: `[{"name":"C","size":[1,1],"collider":[1,1],"sides":1,"components":[{"type":"Inventory","slots":1},{"type":"Inventory","slots":2}]}]`,
			want:       ErrInvalidDefinition,
		},
		{
			name:       "allow list with unknown item",
			items:      testItems,
			recipes:    testRecipes,
			structures: `[{"name":"F","size":[1,1],"collider":[1,1],"sides":1,"components":[{"type":"Smelter"},{"type":"CraftingQueue"},{"type":"Source","slots":1,"allow":["Gold ore"]},{"type":"Output","slots":1}]}]`,
			want:       ErrUnknownReference,
		},
	}
	for _, tc := range cases {
		_, err := Parse([]byte(tc.items), []byte(tc.recipes), []byte(tc.structures))
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err=%v want %v", tc.name, err, tc.want)
		}
	}
}

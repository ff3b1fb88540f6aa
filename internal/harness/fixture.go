package harness

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/ironclad/pkg/condition"
)

// Instance is one live guarded fixture instance under test.
type Instance interface {
	// Apply runs the named operation with the given arguments.
	Apply(ctx context.Context, op string, args map[string]any) (any, error)

	// Destroy tears the instance down.
	Destroy(ctx context.Context) error
}

// Fixture constructs guarded instances for scenarios.
type Fixture interface {
	// Name is the identifier scenarios reference.
	Name() string

	// New constructs a guarded instance. The observer receives every
	// condition evaluation; id is the deterministic instance identifier.
	//
	// When construction poisons the instance, New returns both the
	// (poisoned) instance and the violation, so later steps can
	// demonstrate fast-fail behavior.
	New(args map[string]any, obs condition.Observer, id string) (Instance, error)
}

var (
	fixturesMu sync.RWMutex
	fixtures   = make(map[string]Fixture)
)

// RegisterFixture adds a fixture to the registry. A duplicate name is
// a programming defect and panics.
func RegisterFixture(f Fixture) {
	fixturesMu.Lock()
	defer fixturesMu.Unlock()
	if _, dup := fixtures[f.Name()]; dup {
		panic(fmt.Sprintf("harness: fixture %q registered twice", f.Name()))
	}
	fixtures[f.Name()] = f
}

// LookupFixture returns the named fixture.
func LookupFixture(name string) (Fixture, error) {
	fixturesMu.RLock()
	defer fixturesMu.RUnlock()
	f, ok := fixtures[name]
	if !ok {
		return nil, fmt.Errorf("unknown fixture %q (registered: %v)", name, fixtureNamesLocked())
	}
	return f, nil
}

// FixtureNames returns the registered fixture names, sorted.
func FixtureNames() []string {
	fixturesMu.RLock()
	defer fixturesMu.RUnlock()
	return fixtureNamesLocked()
}

func fixtureNamesLocked() []string {
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// intArg extracts an integer argument, tolerating the numeric types
// YAML and JSON decoders produce.
func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("argument %q: expected integer, got %v", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("argument %q: expected integer, got %T", key, v)
	}
}

// optIntArg is intArg with a default for absent keys.
func optIntArg(args map[string]any, key string, def int) (int, error) {
	if args == nil {
		return def, nil
	}
	if _, ok := args[key]; !ok {
		return def, nil
	}
	return intArg(args, key)
}

// Package deck compiles declarative contract decks into engine specs.
//
// A deck is a CUE file (or directory of CUE files) declaring contracts
// for callables and invariants for stateful types:
//
//	deck: "bank"
//
//	contract: deposit: {
//		unit: "bank.account.deposit"
//		requires: [
//			{label: "amount is positive", expr: "args.amount > 0"},
//		]
//		ensures: [
//			{
//				label:       "balance is non-negative"
//				expr:        "result >= 0"
//				establishes: ["non-negative balance"]
//			},
//		]
//	}
//
//	invariant: account: {
//		unit: "bank.account"
//		conditions: [
//			{label: "non-negative balance", expr: "receiver.balance >= 0"},
//		]
//	}
//
//	invariant: savings: {
//		unit:     "bank.savings"
//		extends:  "account"
//		conditions: [
//			{label: "rate above floor", expr: "receiver.rate >= 0"},
//		]
//	}
//
// Invariant extension is append-only: "extends" prefixes the base
// deck entry's conditions, in declaration order, ahead of the entry's
// own. Deck defects (bad CUE, a requires expression referencing
// result, an unknown extends target) fail at load time.
package deck

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/ironclad/pkg/condition"
	"github.com/roach88/ironclad/pkg/contract"
	"github.com/roach88/ironclad/pkg/invariant"
)

// Deck is a compiled set of contract and invariant specs, keyed by
// their deck-local names.
type Deck struct {
	Name       string
	Contracts  map[string]*contract.Spec
	Invariants map[string]*invariant.Spec
}

// Contract returns the named contract spec, or nil.
func (d *Deck) Contract(name string) *contract.Spec {
	return d.Contracts[name]
}

// Invariant returns the named invariant spec, or nil.
func (d *Deck) Invariant(name string) *invariant.Spec {
	return d.Invariants[name]
}

// rawCondition mirrors one condition entry in CUE.
type rawCondition struct {
	Label       string   `json:"label"`
	Expr        string   `json:"expr"`
	Establishes []string `json:"establishes"`
}

// rawContract mirrors one contract entry in CUE.
type rawContract struct {
	Unit     string         `json:"unit"`
	Requires []rawCondition `json:"requires"`
	Ensures  []rawCondition `json:"ensures"`
}

// rawInvariant mirrors one invariant entry in CUE.
type rawInvariant struct {
	Unit       string         `json:"unit"`
	Extends    string         `json:"extends"`
	Conditions []rawCondition `json:"conditions"`
}

// Compile turns a built CUE value into a Deck.
// The value is the merged top level of the deck files.
func Compile(v cue.Value) (*Deck, error) {
	if err := v.Err(); err != nil {
		return nil, &CompileError{Field: "deck", Message: err.Error(), Pos: v.Pos()}
	}

	cc := cuecontext.New()
	d := &Deck{
		Contracts:  make(map[string]*contract.Spec),
		Invariants: make(map[string]*invariant.Spec),
	}

	if nameVal := v.LookupPath(cue.ParsePath("deck")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, &CompileError{Field: "deck", Message: "deck name must be a string", Pos: nameVal.Pos()}
		}
		d.Name = name
	}

	if err := compileContracts(cc, v, d); err != nil {
		return nil, err
	}
	if err := compileInvariants(cc, v, d); err != nil {
		return nil, err
	}

	if len(d.Contracts) == 0 && len(d.Invariants) == 0 {
		return nil, &CompileError{Field: "deck", Message: "no contracts or invariants declared"}
	}
	return d, nil
}

// compileContracts builds contract specs from the "contract" field.
func compileContracts(cc *cue.Context, v cue.Value, d *Deck) error {
	contractsVal := v.LookupPath(cue.ParsePath("contract"))
	if !contractsVal.Exists() {
		return nil
	}

	iter, err := contractsVal.Fields()
	if err != nil {
		return &CompileError{Field: "contract", Message: err.Error(), Pos: contractsVal.Pos()}
	}

	for iter.Next() {
		name := iter.Label()
		field := "contract." + name

		var raw rawContract
		if err := iter.Value().Decode(&raw); err != nil {
			return &CompileError{Field: field, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		if raw.Unit == "" {
			return &CompileError{Field: field, Message: "unit is required", Pos: iter.Value().Pos()}
		}

		var opts []contract.SpecOption
		for i, rc := range raw.Requires {
			c, err := compileCondition(cc, fmt.Sprintf("%s.requires[%d]", field, i), "requires", rc)
			if err != nil {
				return err
			}
			opts = append(opts, contract.Requires(c))
		}
		for i, rc := range raw.Ensures {
			c, err := compileCondition(cc, fmt.Sprintf("%s.ensures[%d]", field, i), "ensures", rc)
			if err != nil {
				return err
			}
			opts = append(opts, contract.Ensures(c))
		}

		spec, err := contract.NewSpec(raw.Unit, opts...)
		if err != nil {
			return &CompileError{Field: field, Message: err.Error()}
		}
		d.Contracts[name] = spec
	}
	return nil
}

// compileInvariants builds invariant specs from the "invariant" field,
// resolving extends chains. Entries are resolved base-first; a cycle or
// an unknown base is a deck defect.
func compileInvariants(cc *cue.Context, v cue.Value, d *Deck) error {
	invVal := v.LookupPath(cue.ParsePath("invariant"))
	if !invVal.Exists() {
		return nil
	}

	iter, err := invVal.Fields()
	if err != nil {
		return &CompileError{Field: "invariant", Message: err.Error(), Pos: invVal.Pos()}
	}

	raws := make(map[string]rawInvariant)
	var order []string
	for iter.Next() {
		name := iter.Label()
		var raw rawInvariant
		if err := iter.Value().Decode(&raw); err != nil {
			return &CompileError{Field: "invariant." + name, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		if raw.Unit == "" {
			return &CompileError{Field: "invariant." + name, Message: "unit is required", Pos: iter.Value().Pos()}
		}
		raws[name] = raw
		order = append(order, name)
	}
	sort.Strings(order) // deterministic compile order independent of file layout

	var resolve func(name string, trail map[string]bool) (*invariant.Spec, error)
	resolve = func(name string, trail map[string]bool) (*invariant.Spec, error) {
		if spec, ok := d.Invariants[name]; ok {
			return spec, nil
		}
		if trail[name] {
			return nil, &CompileError{Field: "invariant." + name, Message: "extends cycle"}
		}
		raw, ok := raws[name]
		if !ok {
			return nil, &CompileError{Field: "invariant." + name, Message: "unknown invariant"}
		}
		trail[name] = true

		var base *invariant.Spec
		if raw.Extends != "" {
			var err error
			base, err = resolve(raw.Extends, trail)
			if err != nil {
				return nil, err
			}
		}

		var own []condition.Condition
		for i, rc := range raw.Conditions {
			c, err := compileCondition(cc, fmt.Sprintf("invariant.%s.conditions[%d]", name, i), "conditions", rc)
			if err != nil {
				return nil, err
			}
			own = append(own, c)
		}

		spec, err := invariant.Extend(base, raw.Unit, own...)
		if err != nil {
			return nil, &CompileError{Field: "invariant." + name, Message: err.Error()}
		}
		d.Invariants[name] = spec
		return spec, nil
	}

	for _, name := range order {
		if _, err := resolve(name, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

// Load reads all .cue files under dir, builds them as one instance, and
// compiles the result. Mirrors fail-fast loading: the first defect is
// returned.
func Load(dir string) (*Deck, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &CompileError{Field: "deck", Message: fmt.Sprintf("deck directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &CompileError{Field: "deck", Message: fmt.Sprintf("error accessing deck directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &CompileError{Field: "deck", Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, &CompileError{Field: "deck", Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &CompileError{Field: "deck", Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, &CompileError{Field: "deck", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &CompileError{Field: "deck", Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &CompileError{Field: "deck", Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	return Compile(value)
}

// findCUEFiles returns the .cue files directly under dir. The scan is
// deliberately non-recursive: loading builds only the top-level
// package, so files in subdirectories would pass a recursive scan and
// then silently not compile.
func findCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

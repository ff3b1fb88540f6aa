package harness

import (
	"context"
	"fmt"

	"github.com/roach88/ironclad/pkg/condition"
	"github.com/roach88/ironclad/pkg/contract"
	"github.com/roach88/ironclad/pkg/invariant"
)

func init() {
	RegisterFixture(accountFixture{})
	RegisterFixture(triangleFixture{})
}

// Account is a minimal bank account fixture. The json tags match the
// field names deck expressions use.
type Account struct {
	Balance int `json:"balance"`
}

// accountInvariant holds one condition: the balance never goes
// negative.
func accountInvariant() *invariant.Spec {
	return invariant.MustSpec("bank.account",
		condition.New("non-negative balance", func(cctx condition.Context) (bool, error) {
			a, ok := cctx.Receiver.(Account)
			if !ok {
				return false, fmt.Errorf("receiver is %T, want Account", cctx.Receiver)
			}
			return a.Balance >= 0, nil
		}, condition.NeedsReceiver()),
	)
}

func amountPositive() condition.Condition {
	return condition.New("amount is positive", func(cctx condition.Context) (bool, error) {
		amt, err := intArg(cctx.Args, "amount")
		if err != nil {
			return false, err
		}
		return amt > 0, nil
	})
}

func balanceNonNegative() condition.Condition {
	return condition.New("balance is non-negative", func(cctx condition.Context) (bool, error) {
		bal, ok := cctx.Result.(int)
		if !ok {
			return false, fmt.Errorf("result is %T, want int", cctx.Result)
		}
		return bal >= 0, nil
	}, condition.NeedsResult(), condition.Establishes("non-negative balance"))
}

type accountFixture struct{}

func (accountFixture) Name() string { return "account" }

func (accountFixture) New(args map[string]any, obs condition.Observer, id string) (Instance, error) {
	initial, err := optIntArg(args, "balance", 0)
	if err != nil {
		return nil, err
	}

	deposit := contract.MustSpec("bank.account.deposit",
		contract.Requires(amountPositive()),
		contract.Ensures(balanceNonNegative()),
		contract.WithObserver(obs),
	)
	withdraw := contract.MustSpec("bank.account.withdraw",
		contract.Requires(
			amountPositive(),
			condition.New("sufficient balance", func(cctx condition.Context) (bool, error) {
				a, ok := cctx.Receiver.(Account)
				if !ok {
					return false, fmt.Errorf("receiver is %T, want Account", cctx.Receiver)
				}
				amt, err := intArg(cctx.Args, "amount")
				if err != nil {
					return false, err
				}
				return a.Balance >= amt, nil
			}, condition.NeedsReceiver()),
		),
		contract.Ensures(balanceNonNegative()),
		contract.WithObserver(obs),
	)

	g, err := invariant.New(accountInvariant(), func() (Account, error) {
		return Account{Balance: initial}, nil
	}, invariant.WithObserver(obs), invariant.WithInstanceID(id))
	if g == nil {
		return nil, err
	}
	return &accountInstance{guard: g, deposit: deposit, withdraw: withdraw}, err
}

type accountInstance struct {
	guard    *invariant.Guard[Account]
	deposit  *contract.Spec
	withdraw *contract.Spec
}

func (a *accountInstance) Apply(ctx context.Context, op string, args map[string]any) (any, error) {
	switch op {
	case "deposit":
		return a.guard.Do(ctx, "deposit", a.deposit, args, func(_ context.Context, obj *Account, args map[string]any) (any, error) {
			amt, err := intArg(args, "amount")
			if err != nil {
				return nil, err
			}
			obj.Balance += amt
			return obj.Balance, nil
		})
	case "withdraw":
		return a.guard.Do(ctx, "withdraw", a.withdraw, args, func(_ context.Context, obj *Account, args map[string]any) (any, error) {
			amt, err := intArg(args, "amount")
			if err != nil {
				return nil, err
			}
			obj.Balance -= amt
			return obj.Balance, nil
		})
	case "set_balance":
		// Direct attribute write, no contract: the post-operation sweep
		// alone decides whether the new value is acceptable.
		bal, err := intArg(args, "balance")
		if err != nil {
			return nil, err
		}
		return nil, a.guard.Update("set_balance", func(obj *Account) error {
			obj.Balance = bal
			return nil
		})
	case "flush":
		// Simulates a failing downstream dependency.
		_, err := a.guard.Do(ctx, "flush", nil, args, func(context.Context, *Account, map[string]any) (any, error) {
			return nil, fmt.Errorf("ledger sink unavailable")
		})
		return nil, err
	case "balance":
		obj, err := a.guard.Get()
		if err != nil {
			return nil, err
		}
		return obj.Balance, nil
	default:
		return nil, fmt.Errorf("account: unknown operation %q", op)
	}
}

func (a *accountInstance) Destroy(ctx context.Context) error {
	return a.guard.Destroy(ctx)
}

// Triangle is a fixture whose invariant spans multiple fields: all
// sides positive and every triangle inequality holding.
type Triangle struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
}

func triangleCond(label string, check func(t Triangle) bool) condition.Condition {
	return condition.New(label, func(cctx condition.Context) (bool, error) {
		tr, ok := cctx.Receiver.(Triangle)
		if !ok {
			return false, fmt.Errorf("receiver is %T, want Triangle", cctx.Receiver)
		}
		return check(tr), nil
	}, condition.NeedsReceiver())
}

func triangleInvariant() *invariant.Spec {
	return invariant.MustSpec("geometry.triangle",
		triangleCond("a positive", func(t Triangle) bool { return t.A > 0 }),
		triangleCond("b positive", func(t Triangle) bool { return t.B > 0 }),
		triangleCond("c positive", func(t Triangle) bool { return t.C > 0 }),
		triangleCond("a+b > c", func(t Triangle) bool { return t.A+t.B > t.C }),
		triangleCond("a+c > b", func(t Triangle) bool { return t.A+t.C > t.B }),
		triangleCond("b+c > a", func(t Triangle) bool { return t.B+t.C > t.A }),
	)
}

type triangleFixture struct{}

func (triangleFixture) Name() string { return "triangle" }

func (triangleFixture) New(args map[string]any, obs condition.Observer, id string) (Instance, error) {
	a, err := intArg(args, "a")
	if err != nil {
		return nil, err
	}
	b, err := intArg(args, "b")
	if err != nil {
		return nil, err
	}
	c, err := intArg(args, "c")
	if err != nil {
		return nil, err
	}

	scale := contract.MustSpec("geometry.triangle.scale",
		contract.Requires(
			condition.New("factor is positive", func(cctx condition.Context) (bool, error) {
				f, err := intArg(cctx.Args, "factor")
				if err != nil {
					return false, err
				}
				return f > 0, nil
			}),
		),
		contract.WithObserver(obs),
	)

	g, err := invariant.New(triangleInvariant(), func() (Triangle, error) {
		return Triangle{A: a, B: b, C: c}, nil
	}, invariant.WithObserver(obs), invariant.WithInstanceID(id))
	if g == nil {
		return nil, err
	}
	return &triangleInstance{guard: g, scale: scale}, err
}

type triangleInstance struct {
	guard *invariant.Guard[Triangle]
	scale *contract.Spec
}

func (t *triangleInstance) Apply(ctx context.Context, op string, args map[string]any) (any, error) {
	switch op {
	case "scale":
		return t.guard.Do(ctx, "scale", t.scale, args, func(_ context.Context, obj *Triangle, args map[string]any) (any, error) {
			f, err := intArg(args, "factor")
			if err != nil {
				return nil, err
			}
			obj.A *= f
			obj.B *= f
			obj.C *= f
			return obj.A + obj.B + obj.C, nil
		})
	case "set_side":
		side, ok := args["side"].(string)
		if !ok {
			return nil, fmt.Errorf("argument \"side\": expected string, got %T", args["side"])
		}
		value, err := intArg(args, "value")
		if err != nil {
			return nil, err
		}
		return nil, t.guard.Update("set_side", func(obj *Triangle) error {
			switch side {
			case "a":
				obj.A = value
			case "b":
				obj.B = value
			case "c":
				obj.C = value
			default:
				return fmt.Errorf("unknown side %q", side)
			}
			return nil
		})
	case "perimeter":
		obj, err := t.guard.Get()
		if err != nil {
			return nil, err
		}
		return obj.A + obj.B + obj.C, nil
	default:
		return nil, fmt.Errorf("triangle: unknown operation %q", op)
	}
}

func (t *triangleInstance) Destroy(ctx context.Context) error {
	return t.guard.Destroy(ctx)
}

package compiler

import (
	"context"
	"os"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/dynir/compiler/cache"
	"github.com/slowlang/dynir/compiler/config"
	"github.com/slowlang/dynir/compiler/ir"
	"github.com/slowlang/dynir/compiler/opt"
)

type (
	Compiler struct {
		Config *config.Config

		// Cache is optional.
		Cache *cache.Store
	}
)

func New(cfg *config.Config, c *cache.Store) *Compiler {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Compiler{Config: cfg, Cache: c}
}

func (c *Compiler) CompileFile(ctx context.Context, name string) (u *ir.Unit, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return c.Compile(ctx, name, text)
}

// Compile decodes an encoded unit and optimizes it.
// Results are looked up in and saved to the cache if there is one.
// A corrupt cache entry is dropped and the unit is recompiled.
func (c *Compiler) Compile(ctx context.Context, name string, text []byte) (u *ir.Unit, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name)
	defer tr.Finish("err", &err)

	key := cache.KeyOf(text, c.params()...)

	if c.Cache != nil {
		u, ok, err := c.Cache.Get(ctx, key)
		switch {
		case errors.Is(err, ir.ErrCorrupt):
			tr.Printw("corrupt cache entry, recompiling", "key", key, "err", err)
		case err != nil:
			return nil, errors.Wrap(err, "cache")
		case ok:
			tr.Printw("cached", "key", key)
			return u, nil
		}
	}

	u, err = ir.DecodeUnit(text)
	if err != nil {
		return nil, errors.Wrap(err, "decode unit")
	}

	err = c.Optimize(ctx, u)
	if err != nil {
		return nil, errors.Wrap(err, "optimize")
	}

	if c.Cache != nil {
		err = c.Cache.Put(ctx, key, u)
		if err != nil {
			return nil, errors.Wrap(err, "cache")
		}
	}

	return u, nil
}

// Optimize runs flags, inline and flags again.
func (c *Compiler) Optimize(ctx context.Context, u *ir.Unit) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "optimize", "unit", u.Name, "instrs", u.InstrCount())
	defer tr.Finish("err", &err)

	_, err = opt.ComputeFlags(ctx, u)
	if err != nil {
		return errors.Wrap(err, "flags")
	}

	in := &opt.Inliner{
		MaxInstrs: c.Config.Inline.MaxInstrs,
		MaxRounds: c.Config.Inline.MaxRounds,
	}

	n, err := in.Run(ctx, u)
	if err != nil {
		return errors.Wrap(err, "inline")
	}

	tr.Printw("optimized", "inlined", n, "instrs", u.InstrCount())

	return nil
}

func (c *Compiler) params() []string {
	return []string{
		"max-instrs=" + strconv.Itoa(c.Config.Inline.MaxInstrs),
		"max-rounds=" + strconv.Itoa(c.Config.Inline.MaxRounds),
	}
}

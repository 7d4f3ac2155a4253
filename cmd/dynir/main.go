package main

import (
	"context"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/dynir/compiler"
	"github.com/slowlang/dynir/compiler/cache"
	"github.com/slowlang/dynir/compiler/config"
	"github.com/slowlang/dynir/compiler/format"
	"github.com/slowlang/dynir/compiler/ir"
)

func main() {
	flags := []*cli.Flag{
		cli.NewFlag("config", "", "config file (default: dynir.toml found upwards from the working dir)"),
		cli.NewFlag("cache", "", "artifact cache path (overrides config)"),
		cli.NewFlag("v", "", "log verbosity topics"),
	}

	demoCmd := &cli.Command{
		Name:        "demo",
		Description: "build the demo unit, optimize it and print both versions",
		Action:      demoAct,
		Flags: []*cli.Flag{
			cli.NewFlag("out", "", "write the encoded demo unit to the file"),
		},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "optimize an encoded unit: compile <in> <out>",
		Action:      compileAct,
		Args:        cli.Args{},
	}

	dumpCmd := &cli.Command{
		Name:        "dump",
		Description: "print encoded units",
		Action:      dumpAct,
		Args:        cli.Args{},
	}

	cacheCmd := &cli.Command{
		Name:        "cache",
		Description: "artifact cache maintenance",
		Commands: []*cli.Command{{
			Name:   "clear",
			Action: cacheClearAct,
		}, {
			Name:   "stats",
			Action: cacheStatsAct,
		}},
	}

	app := &cli.Command{
		Name:        "dynir",
		Description: "dynir is a tool for inspecting and optimizing dynamic language ir",
		Flags:       flags,
		Commands: []*cli.Command{
			demoCmd,
			compileCmd,
			dumpCmd,
			cacheCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func setup(c *cli.Command) (ctx context.Context, cfg *config.Config, err error) {
	if q := c.String("config"); q != "" {
		cfg, err = config.Load(q)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "config")
	}

	if q := c.String("cache"); q != "" {
		cfg.Cache.Path = q
	}

	v := cfg.Log.Verbosity
	if q := c.String("v"); q != "" {
		v = q
	}

	tlog.SetVerbosity(v)

	ctx = context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	return ctx, cfg, nil
}

func openCache(ctx context.Context, cfg *config.Config) (*cache.Store, error) {
	l, compress, err := cfg.Cache.Level()
	if err != nil {
		return nil, errors.Wrap(err, "cache compression")
	}

	return cache.Open(ctx, cache.Options{
		Path:       cfg.Cache.Path,
		MemEntries: cfg.Cache.MemEntries,
		Compress:   compress,
		Level:      l,
	})
}

func demoAct(c *cli.Command) (err error) {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	u := compiler.DemoUnit()

	if q := c.String("out"); q != "" {
		err = os.WriteFile(q, ir.EncodeUnit(nil, u), 0o644)
		if err != nil {
			return errors.Wrap(err, "write demo")
		}
	}

	b, err := format.Format(ctx, nil, u)
	if err != nil {
		return errors.Wrap(err, "format")
	}

	b = append(b, "\n# optimized\n\n"...)

	err = compiler.New(cfg, nil).Optimize(ctx, u)
	if err != nil {
		return errors.Wrap(err, "optimize")
	}

	b, err = format.Format(ctx, b, u)
	if err != nil {
		return errors.Wrap(err, "format")
	}

	_, err = os.Stdout.Write(b)

	return err
}

func compileAct(c *cli.Command) (err error) {
	if len(c.Args) != 2 {
		return errors.New("usage: compile <in> <out>")
	}

	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	store, err := openCache(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open cache")
	}

	defer func() {
		e := store.Close()
		if err == nil && e != nil {
			err = errors.Wrap(e, "close cache")
		}
	}()

	u, err := compiler.New(cfg, store).CompileFile(ctx, c.Args[0])
	if err != nil {
		return errors.Wrap(err, "compile %v", c.Args[0])
	}

	err = os.WriteFile(c.Args[1], ir.EncodeUnit(nil, u), 0o644)
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}

func dumpAct(c *cli.Command) (err error) {
	ctx, _, err := setup(c)
	if err != nil {
		return err
	}

	var b []byte

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		u, err := ir.DecodeUnit(text)
		if err != nil {
			return errors.Wrap(err, "decode %v", a)
		}

		b, err = format.Format(ctx, b[:0], u)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return err
		}
	}

	return nil
}

func cacheClearAct(c *cli.Command) (err error) {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	store, err := openCache(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open cache")
	}

	defer func() {
		e := store.Close()
		if err == nil && e != nil {
			err = errors.Wrap(e, "close cache")
		}
	}()

	return store.Clear(ctx)
}

func cacheStatsAct(c *cli.Command) (err error) {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	store, err := openCache(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open cache")
	}

	defer func() {
		e := store.Close()
		if err == nil && e != nil {
			err = errors.Wrap(e, "close cache")
		}
	}()

	n, err := store.Len()
	if err != nil {
		return errors.Wrap(err, "count")
	}

	tlog.Printw("cache", "path", cfg.Cache.Path, "artifacts", n)

	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/FocuswithJustin/acbf/core/catalog"
	"github.com/FocuswithJustin/acbf/internal/validation"
)

// CatalogCmd groups catalog operations.
type CatalogCmd struct {
	Index  CatalogIndexCmd  `cmd:"" help:"Index books or directories"`
	Search CatalogSearchCmd `cmd:"" help:"Search indexed books by title, author or genre"`
}

// CatalogFlags locate the catalog database.
type CatalogFlags struct {
	DB string `name:"db" help:"Catalog database path" default:"acbf-catalog.db" env:"ACBF_CATALOG_DB" type:"path"`
}

func (f CatalogFlags) open() (*catalog.Catalog, error) {
	if err := validation.ValidatePath(f.DB); err != nil {
		return nil, fmt.Errorf("invalid catalog path: %w", err)
	}
	return catalog.Open(f.DB)
}

// CatalogIndexCmd indexes paths.
type CatalogIndexCmd struct {
	CatalogFlags
	Paths []string `arg:"" help:"Books or directories to index" type:"path"`
}

func (c *CatalogIndexCmd) Run(g *Globals) error {
	cat, err := c.open()
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx := context.Background()
	failed := 0
	for _, path := range c.Paths {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			r, err := cat.IndexDir(ctx, path)
			if err != nil {
				return err
			}
			g.printf("%s: %d indexed, %d unchanged, %d removed, %d failed\n",
				path, len(r.Indexed), len(r.Skipped), len(r.Removed), len(r.Failed))
			failedPaths := make([]string, 0, len(r.Failed))
			for p := range r.Failed {
				failedPaths = append(failedPaths, p)
			}
			slices.Sort(failedPaths)
			for _, p := range failedPaths {
				g.printf("  %s: %v\n", p, r.Failed[p])
			}
			failed += len(r.Failed)
			continue
		}
		e, err := cat.Index(ctx, path)
		if err != nil {
			g.printf("%s: %v\n", path, err)
			failed++
			continue
		}
		g.printf("%s: %q, %d pages\n", path, e.Title, e.Pages)
	}
	if failed > 0 {
		return fmt.Errorf("%d of the given books could not be indexed", failed)
	}
	return nil
}

// CatalogSearchCmd searches the catalog.
type CatalogSearchCmd struct {
	CatalogFlags
	Term string `arg:"" optional:"" help:"Text to match; lists every book when empty"`
}

func (c *CatalogSearchCmd) Run(g *Globals) error {
	cat, err := c.open()
	if err != nil {
		return err
	}
	defer cat.Close()

	entries, err := cat.Search(context.Background(), c.Term)
	if err != nil {
		return err
	}
	for _, e := range entries {
		g.printf("%s\n  %s | %s | %s | %d pages\n", e.Path, e.Title,
			strings.Join(e.Authors, ", "), strings.Join(e.Genres, ", "), e.Pages)
	}
	g.printf("%d books\n", len(entries))
	return nil
}

package hclcat

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/ctxlog"
	"github.com/vk/rosettago/internal/fsutil"
)

// fileRoot decodes the top-level blocks of one catalog file.
type fileRoot struct {
	Kinds     []*kindBlock     `hcl:"kind,block"`
	Operators []*operatorBlock `hcl:"operator,block"`
}

type kindBlock struct {
	Name string `hcl:"name,label"`
}

type operatorBlock struct {
	Name           string       `hcl:"name,label"`
	Handler        string       `hcl:"handler"`
	Inputs         []*typeBlock `hcl:"input,block"`
	Output         *typeBlock   `hcl:"output,block"`
	Differentiable bool         `hcl:"differentiable,optional"`
	Adapter        bool         `hcl:"adapter,optional"`

	// Invariance names the transformation families the operator's output is
	// insensitive to, e.g. "shift" or "permutation".
	Invariance []string `hcl:"invariance,optional"`

	// Stability is the declared Lipschitz bound; absent means unknown.
	Stability *float64 `hcl:"stability,optional"`

	Cost   cty.Value `hcl:"cost,optional"`
	Params cty.Value `hcl:"params,optional"`
}

// typeBlock spells one operator port type. Shape entries are either decimal
// sizes or symbol names.
type typeBlock struct {
	Kind   string   `hcl:"kind"`
	Shape  []string `hcl:"shape"`
	Metric string   `hcl:"metric,optional"`
	Group  []string `hcl:"group,optional"`
}

// Load parses every .hcl file under the given paths (files or directories)
// into a single catalog. Handlers are resolved against reg. The returned
// catalog is not frozen; the caller freezes it once all registration sources
// are merged. A non-nil error aggregates every entry that failed to load.
func Load(ctx context.Context, reg handlerResolver, paths ...string) (*catalog.Catalog, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("scanning catalog path %s: %w", path, err)
		}
		files = append(files, found...)
	}
	logger.Debug("Discovered catalog files.", "count", len(files))

	parser := hclparse.NewParser()
	cat := catalog.New()
	var errs []error
	var loaded int

	// Two passes: every kind must exist before any operator referencing it.
	var roots []*fileRoot
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			errs = append(errs, fmt.Errorf("parsing %s: %w", file, diags))
			continue
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			errs = append(errs, fmt.Errorf("decoding %s: %w", file, diags))
			continue
		}
		for _, k := range root.Kinds {
			cat.RegisterKind(k.Name)
		}
		roots = append(roots, &root)
	}

	for _, root := range roots {
		for _, block := range root.Operators {
			op, err := translateOperator(block, reg)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := cat.Register(op); err != nil {
				errs = append(errs, err)
				continue
			}
			loaded++
		}
	}

	logger.Info("Catalog loaded.", "operators", loaded, "failed", len(errs))
	return cat, errors.Join(errs...)
}

// handlerResolver is the piece of the handlers registry the loader needs.
type handlerResolver interface {
	Get(name string) (catalog.Handler, bool)
}

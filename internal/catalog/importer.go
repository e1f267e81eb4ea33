package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/roach88/offpos/internal/apperr"
	"github.com/roach88/offpos/internal/model"
)

//go:embed import_schema.cue
var importSchema string

// ReadDrafts loads product drafts from a .cue, .json, .yaml or .yml file.
// The document must match the embedded import schema; the first violation
// is returned as a VALIDATION error on field "file".
func ReadDrafts(path string) ([]model.ProductDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return ParseDrafts(filepath.Base(path), data)
}

// ParseDrafts is ReadDrafts for in-memory content. The format is chosen by
// the extension of name.
func ParseDrafts(name string, data []byte) ([]model.ProductDraft, error) {
	ctx := cuecontext.New()

	var doc cue.Value
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, apperr.Validation("file", fmt.Sprintf("%s: %v", name, err))
		}
		doc = ctx.Encode(raw)
	case ".cue", ".json":
		doc = ctx.CompileBytes(data, cue.Filename(name))
	default:
		return nil, apperr.Validation("file", fmt.Sprintf("unsupported import format %q", filepath.Ext(name)))
	}
	if err := doc.Err(); err != nil {
		return nil, importError(err)
	}

	schema := ctx.CompileString(importSchema, cue.Filename("import_schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile import schema: %w", err)
	}

	v := schema.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, importError(err)
	}

	iter, err := v.LookupPath(cue.ParsePath("products")).List()
	if err != nil {
		return nil, importError(err)
	}

	var drafts []model.ProductDraft
	for iter.Next() {
		d, err := decodeDraft(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", len(drafts)+1, err)
		}
		drafts = append(drafts, d.Normalize())
	}
	return drafts, nil
}

// decodeDraft reads one schema-checked product. Price goes through its JSON
// form so that decimal literals keep every digit.
func decodeDraft(v cue.Value) (model.ProductDraft, error) {
	var d model.ProductDraft

	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return d, importError(err)
	}
	d.Name = name

	if desc := v.LookupPath(cue.ParsePath("description")); desc.Exists() {
		if d.Description, err = desc.String(); err != nil {
			return d, importError(err)
		}
	}

	raw, err := v.LookupPath(cue.ParsePath("price")).MarshalJSON()
	if err != nil {
		return d, importError(err)
	}
	if d.Price, err = decimal.NewFromString(string(raw)); err != nil {
		return d, apperr.Validation("price", "enter a valid price")
	}

	stock, err := v.LookupPath(cue.ParsePath("stock")).Int64()
	if err != nil {
		return d, importError(err)
	}
	d.Stock = int(stock)

	return d, d.Validate()
}

// importError reports the first CUE error with its position.
func importError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return apperr.Validation("file", err.Error())
	}
	first := errs[0]
	msg := first.Error()
	if pos := cueerrors.Positions(first); len(pos) > 0 && pos[0].IsValid() {
		msg = fmt.Sprintf("%s:%d:%d: %s", pos[0].Filename(), pos[0].Line(), pos[0].Column(), msg)
	}
	return apperr.Validation("file", msg)
}

// Import validates every draft, then adds them in order and reloads once.
// Nothing is written if any draft is invalid. On a storage failure the
// products added so far remain.
func (c *Catalog) Import(ctx context.Context, drafts []model.ProductDraft) ([]model.Product, error) {
	for i := range drafts {
		drafts[i] = drafts[i].Normalize()
		if err := drafts[i].Validate(); err != nil {
			return nil, fmt.Errorf("product %d: %w", i+1, err)
		}
	}

	added := make([]model.Product, 0, len(drafts))
	for _, d := range drafts {
		p, err := c.insert(ctx, d)
		if err != nil {
			if loadErr := c.Load(ctx); loadErr != nil {
				c.log.Warn("reload after failed import", zap.Error(loadErr))
			}
			return added, err
		}
		added = append(added, p)
	}

	c.log.Info("products imported", zap.Int("count", len(added)))
	return added, c.Load(ctx)
}

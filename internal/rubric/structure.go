package rubric

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/evalmate/evalmate/internal/model"
)

// Engine turns a canonical rubric document into weighted rubric items. It
// is deterministic: table extraction first, then list heuristics, then a
// single-item fallback so every document yields a usable rubric.
type Engine struct {
	tolerance float64
}

type Option func(*Engine)

// WithTolerance sets the permitted deviation of the final weight sum
// from 1.0.
func WithTolerance(tol float64) Option {
	return func(e *Engine) {
		if tol > 0 {
			e.tolerance = tol
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{tolerance: model.WeightTolerance}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Structure builds a rubric from doc. Course, assignment and version are
// carried through as rubric metadata.
func (e *Engine) Structure(ctx context.Context, doc model.CanonicalDoc, course, assignment, version string) (model.Rubric, error) {
	if len(doc.Blocks) == 0 {
		return model.Rubric{}, fmt.Errorf("document %s has no blocks", doc.ID)
	}
	log := clog.FromContext(ctx).With("doc", doc.ID)

	items := e.fromTables(doc.Tables())
	path := "table"
	if len(items) == 0 {
		items = e.fromLists(doc.TextBlocks())
		path = "list"
	}
	if len(items) == 0 {
		items = e.fallbackItem(doc)
		path = "fallback"
	}
	log.Info("structured rubric", "path", path, "items", len(items))

	finalizeWeights(items, e.tolerance)
	backfillDescriptions(items)

	r := model.Rubric{
		ID:         model.NewRubricID(),
		Course:     course,
		Assignment: assignment,
		Version:    version,
		Items:      items,
		Canonical:  doc,
	}
	if err := model.ValidateWeights(r, e.tolerance); err != nil {
		return model.Rubric{}, err
	}
	return r, nil
}

// Header synonyms for table column detection, matched case-insensitively
// against trimmed header cells.
var headerSynonyms = map[string][]string{
	"title":       {"criterion", "criteria", "title", "name", "item"},
	"description": {"description", "desc", "details", "expectation", "requirement"},
	"weight":      {"weight", "points", "pts", "marks", "percentage", "%", "score"},
	"category":    {"category", "type", "kind"},
}

func matchHeader(cell string) string {
	c := strings.ToLower(strings.TrimSpace(cell))
	for field, names := range headerSynonyms {
		for _, n := range names {
			if c == n || strings.Contains(c, n) {
				return field
			}
		}
	}
	return ""
}

type tableRow struct {
	title, desc, category string
	weight                RawWeight
}

// fromTables extracts rubric rows from every structured table in the
// document. Weights normalize across all tables together so a rubric split
// over two tables still sums to 1.0.
func (e *Engine) fromTables(tables [][][]string) []model.RubricItem {
	var rows []tableRow
	for _, table := range tables {
		rows = append(rows, e.tableRows(table)...)
	}
	if len(rows) == 0 {
		return nil
	}
	raw := make([]RawWeight, len(rows))
	for i, r := range rows {
		raw[i] = r.weight
	}
	weights := NormalizeWeights(raw, e.tolerance)

	items := make([]model.RubricItem, 0, len(rows))
	for i, r := range rows {
		crit := ClassifyCriterion(r.title, r.desc)
		if r.category != "" {
			crit = ClassifyCriterion(r.category, "")
		}
		items = append(items, model.RubricItem{
			ID:          model.NewRubricItemID(),
			Title:       r.title,
			Description: r.desc,
			Weight:      weights[i],
			Criterion:   crit,
		})
	}
	return items
}

func (e *Engine) tableRows(table [][]string) []tableRow {
	if len(table) == 0 {
		return nil
	}
	cols := map[string]int{}
	for i, cell := range table[0] {
		if field := matchHeader(cell); field != "" {
			if _, seen := cols[field]; !seen {
				cols[field] = i
			}
		}
	}
	body := table
	if _, ok := cols["title"]; ok {
		body = table[1:]
	} else if len(table[0]) >= 2 {
		// Headerless table: assume title, description, optional weight.
		cols = map[string]int{"title": 0, "description": 1}
		if len(table[0]) >= 3 {
			cols["weight"] = 2
		}
	} else {
		return nil
	}

	cell := func(row []string, field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rows []tableRow
	for _, row := range body {
		title := cell(row, "title")
		if title == "" {
			continue
		}
		r := tableRow{
			title:    title,
			desc:     cell(row, "description"),
			category: cell(row, "category"),
			weight:   ParseWeightCell(cell(row, "weight")),
		}
		if r.weight.Kind == WeightAbsent {
			// A weight token may sit inline in the title or description.
			if w, cleaned := ParseInlineWeight(r.title); w.Kind != WeightAbsent {
				r.weight, r.title = w, cleaned
			} else if w, cleaned := ParseInlineWeight(r.desc); w.Kind != WeightAbsent {
				r.weight, r.desc = w, cleaned
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// fromLists extracts rubric items from bulleted or numbered text blocks.
// Numbered lists win when they are at least as long as the bullet list;
// either path requires more than one entry to count as a rubric.
func (e *Engine) fromLists(blocks []string) []model.RubricItem {
	text := strings.Join(blocks, "\n")
	bullets := DetectBulletItems(text)
	numbered := DetectNumberedItems(text)

	var entries []string
	switch {
	case len(numbered) > 1 && (len(numbered) >= len(bullets) || len(bullets) <= 1):
		entries = numbered
	case len(bullets) > 1:
		entries = bullets
	default:
		return nil
	}

	raw := make([]RawWeight, len(entries))
	type parsed struct{ title, desc string }
	parsedEntries := make([]parsed, len(entries))
	for i, entry := range entries {
		w, cleaned := ParseInlineWeight(entry)
		raw[i] = w
		title, desc := SplitHeadingBody(cleaned)
		parsedEntries[i] = parsed{title, desc}
	}
	weights := NormalizeWeights(raw, e.tolerance)

	items := make([]model.RubricItem, 0, len(entries))
	for i, p := range parsedEntries {
		items = append(items, model.RubricItem{
			ID:          model.NewRubricItemID(),
			Title:       p.title,
			Description: p.desc,
			Weight:      weights[i],
			Criterion:   ClassifyCriterion(p.title, p.desc),
		})
	}
	return items
}

// fallbackItem produces the single holistic criterion used when no table
// or list structure is present.
func (e *Engine) fallbackItem(doc model.CanonicalDoc) []model.RubricItem {
	desc := "Assess the overall quality of the submission."
	for _, t := range doc.TextBlocks() {
		if len(t) >= 40 {
			desc = CleanText(t)
			break
		}
	}
	return []model.RubricItem{{
		ID:          model.NewRubricItemID(),
		Title:       "Overall Quality",
		Description: desc,
		Weight:      1.0,
		Criterion:   model.CriterionContent,
	}}
}

// finalizeWeights re-normalizes in place so the stored rubric always sums
// to 1.0 regardless of extraction path.
func finalizeWeights(items []model.RubricItem, tol float64) {
	raw := make([]RawWeight, len(items))
	for i, it := range items {
		raw[i] = RawWeight{Kind: WeightDecimal, Value: it.Weight}
	}
	weights := NormalizeWeights(raw, tol)
	for i := range items {
		items[i].Weight = weights[i]
	}
}

func backfillDescriptions(items []model.RubricItem) {
	for i := range items {
		if items[i].Description == "" {
			items[i].Description = fmt.Sprintf("Assess the submission with respect to %s.", items[i].Title)
		}
	}
}

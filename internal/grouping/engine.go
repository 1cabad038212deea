// Package grouping clusters ungrouped entity name variants under canonical
// parent entities, proposing a strictly two-level hierarchy.
package grouping

import (
	"strings"
	"unicode/utf8"

	"github.com/tally-money/tally/internal/common"
	"github.com/tally-money/tally/internal/match"
	"github.com/tally-money/tally/internal/model"
)

// DefaultSimilarityThreshold is the LCP similarity required for two names
// to be considered variants of the same merchant. The upstream callers this
// engine replaces disagreed between 0.6 and 0.8; 0.6 is the single default
// here, overridable per call via Config.
const DefaultSimilarityThreshold = 0.6

// DefaultMinNameLength is the minimum normalized-name length (in runes) for
// an entity to participate in matching. Shorter names are too ambiguous.
const DefaultMinNameLength = 3

// Config tunes the grouping engine. Zero values fall back to the defaults.
// Debug enables trace logging with no behavioral effect.
type Config struct {
	SimilarityThreshold float64
	MinNameLength       int
	Debug               bool
}

func (c Config) withDefaults() Config {
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.MinNameLength <= 0 {
		c.MinNameLength = DefaultMinNameLength
	}
	return c
}

// Engine proposes grouping suggestions. It is pure: it reads the entity
// snapshot it is given and returns values, never touching storage.
type Engine struct {
	cfg Config
}

// NewEngine creates a grouping engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Suggest is a convenience for one-shot use without keeping an Engine.
func Suggest(entities, existingParents []model.Entity, parentsWithChildren []model.ParentWithChildren, cfg Config) []model.GroupingSuggestion {
	return NewEngine(cfg).Suggest(entities, existingParents, parentsWithChildren)
}

// candidate is an ungrouped entity under consideration, carrying its
// normalized form. Once matched it is consumed and skipped by later passes:
// every entity lands in at most one suggestion.
type candidate struct {
	entity model.Entity
	norm   string
	used   bool
}

// knownParent is a flattened two-level tree: the root's id and name plus the
// normalized names of the root itself and its direct children. Matches
// always resolve to the root id, so a suggestion can never nest under a
// child (no three-level trees).
type knownParent struct {
	name       string
	norm       string
	childNorms []string
	id         int64
}

// draft is a suggestion under construction.
type draft struct {
	parentID   *int64
	parentName string
	norm       string
	childIDs   []int64
	childNames []string
	merged     bool
}

func (d *draft) add(c *candidate) {
	d.childIDs = append(d.childIDs, c.entity.ID)
	d.childNames = append(d.childNames, c.entity.Name)
	c.used = true
}

// Suggest runs the six grouping passes over a snapshot of ungrouped
// entities. existingParents are roots with no children yet (candidates to
// become parents); parentsWithChildren are the established two-level trees
// used for sibling matching. Iteration follows input order throughout, so
// identical inputs always produce identical suggestions.
func (e *Engine) Suggest(entities, existingParents []model.Entity, parentsWithChildren []model.ParentWithChildren) []model.GroupingSuggestion {
	cands := e.candidates(entities)
	known := e.knownParents(parentsWithChildren)

	var drafts []*draft
	byParent := make(map[int64]*draft)

	// Pass 1: sibling matching against established trees. A hit places the
	// entity under the tree's root, never under one of its children.
	for _, c := range cands {
		for _, kp := range known {
			if c.entity.ID == kp.id {
				continue
			}
			if !e.matchesTree(c.norm, kp) {
				continue
			}
			d := byParent[kp.id]
			if d == nil {
				id := kp.id
				d = &draft{parentID: &id, parentName: kp.name, norm: kp.norm}
				byParent[kp.id] = d
				drafts = append(drafts, d)
			}
			d.add(c)
			e.trace("sibling match", common.Fields{"entity": c.entity.Name, "parent": kp.name})
			break
		}
	}

	// Pass 2: match remaining entities against childless root entities.
	// Parent names are normalized once, not per candidate.
	type rootParent struct {
		name string
		norm string
		id   int64
	}
	roots := make([]rootParent, 0, len(existingParents))
	for _, p := range existingParents {
		norm := match.Normalize(p.Name)
		if e.tooShort(norm) {
			continue
		}
		roots = append(roots, rootParent{name: p.Name, norm: norm, id: p.ID})
	}
	for _, c := range cands {
		if c.used {
			continue
		}
		for _, p := range roots {
			if c.entity.ID == p.id {
				continue
			}
			if match.LCPSimilarity(c.norm, p.norm) < e.cfg.SimilarityThreshold {
				continue
			}
			d := byParent[p.id]
			if d == nil {
				id := p.id
				d = &draft{parentID: &id, parentName: p.name, norm: p.norm}
				byParent[p.id] = d
				drafts = append(drafts, d)
			}
			d.add(c)
			e.trace("root parent match", common.Fields{"entity": c.entity.Name, "parent": p.name})
			break
		}
	}

	// Pass 3: identical normalized forms collapse into a new group.
	normOrder := make([]string, 0, len(cands))
	byNorm := make(map[string][]*candidate)
	for _, c := range cands {
		if c.used {
			continue
		}
		if _, seen := byNorm[c.norm]; !seen {
			normOrder = append(normOrder, c.norm)
		}
		byNorm[c.norm] = append(byNorm[c.norm], c)
	}
	for _, norm := range normOrder {
		group := byNorm[norm]
		if len(group) < 2 {
			continue
		}
		d := &draft{parentName: match.CanonicalName(norm), norm: norm}
		for _, c := range group {
			d.add(c)
		}
		drafts = append(drafts, d)
		e.trace("exact normalized group", common.Fields{"norm": norm, "size": len(group)})
	}

	// Pass 4: remaining entities cluster around a seed by LCP similarity;
	// the proposed parent name is the prefix shared by all members. Only
	// multi-member clusters become drafts: a lone entity must never be
	// grouped by anything weaker than a threshold-passing match. A cluster
	// whose shared prefix is too short to be a meaningful name is dropped.
	for i, c := range cands {
		if c.used {
			continue
		}
		members := []*candidate{c}
		c.used = true
		for _, o := range cands[i+1:] {
			if o.used {
				continue
			}
			if match.LCPSimilarity(c.norm, o.norm) >= e.cfg.SimilarityThreshold {
				members = append(members, o)
				o.used = true
			}
		}
		if len(members) < 2 {
			continue
		}

		prefix := members[0].norm
		for _, m := range members[1:] {
			prefix = match.CommonPrefix(prefix, m.norm)
		}
		prefix = strings.TrimSpace(prefix)
		if e.tooShort(prefix) {
			e.trace("ambiguous prefix", common.Fields{"prefix": prefix, "size": len(members)})
			continue
		}

		d := &draft{parentName: match.CanonicalName(prefix), norm: prefix}
		for _, m := range members {
			d.childIDs = append(d.childIDs, m.entity.ID)
			d.childNames = append(d.childNames, m.entity.Name)
		}
		drafts = append(drafts, d)
		e.trace("lcp group", common.Fields{"prefix": prefix, "size": len(members)})
	}

	// Pass 5: new-parent groups sharing a first word merge into one group
	// named after that word ("Amazon Reta" + "Amazon Mktpl" -> "Amazon").
	// Drafts targeting an existing parent never merge, and every merge input
	// is already a threshold-formed group of two or more entities.
	type bucket struct {
		firstWord string
		members   []*draft
	}
	var buckets []*bucket
	byWord := make(map[string]*bucket)
	for _, d := range drafts {
		if d.parentID != nil || len(d.childIDs) < 2 {
			continue
		}
		fw := match.FirstWord(d.norm)
		if e.tooShort(fw) {
			continue
		}
		b := byWord[fw]
		if b == nil {
			b = &bucket{firstWord: fw}
			byWord[fw] = b
			buckets = append(buckets, b)
		}
		b.members = append(b.members, d)
	}
	for _, b := range buckets {
		if len(b.members) < 2 {
			continue
		}
		head := b.members[0]
		head.parentName = match.CanonicalName(b.firstWord)
		head.norm = b.firstWord
		for _, m := range b.members[1:] {
			head.childIDs = append(head.childIDs, m.childIDs...)
			head.childNames = append(head.childNames, m.childNames...)
			m.merged = true
		}
		e.trace("first-word merge", common.Fields{"word": b.firstWord, "groups": len(b.members)})
	}

	// Pass 6: extending an existing parent is worthwhile for a single
	// child; a brand-new parent needs at least two.
	var out []model.GroupingSuggestion
	for _, d := range drafts {
		if d.merged || len(d.childIDs) == 0 {
			continue
		}
		if d.parentID == nil && len(d.childIDs) < 2 {
			continue
		}
		out = append(out, model.GroupingSuggestion{
			ParentID:       d.parentID,
			ParentName:     d.parentName,
			NormalizedForm: d.norm,
			ChildIDs:       d.childIDs,
			ChildNames:     d.childNames,
		})
	}
	return out
}

// candidates filters to ungrouped entities whose normalized name is long
// enough to match on, preserving input order.
func (e *Engine) candidates(entities []model.Entity) []*candidate {
	out := make([]*candidate, 0, len(entities))
	for _, ent := range entities {
		if !ent.IsRoot() {
			continue
		}
		norm := match.Normalize(ent.Name)
		if e.tooShort(norm) {
			e.trace("skipping short name", common.Fields{"entity": ent.Name, "norm": norm})
			continue
		}
		out = append(out, &candidate{entity: ent, norm: norm})
	}
	return out
}

func (e *Engine) knownParents(parents []model.ParentWithChildren) []knownParent {
	out := make([]knownParent, 0, len(parents))
	for _, p := range parents {
		kp := knownParent{
			id:   p.Parent.ID,
			name: p.Parent.Name,
			norm: match.Normalize(p.Parent.Name),
		}
		for _, child := range p.Children {
			if norm := match.Normalize(child.Name); !e.tooShort(norm) {
				kp.childNorms = append(kp.childNorms, norm)
			}
		}
		out = append(out, kp)
	}
	return out
}

// matchesTree reports whether a normalized name is similar to the tree's
// root name or to any of its children's names.
func (e *Engine) matchesTree(norm string, kp knownParent) bool {
	if !e.tooShort(kp.norm) && match.LCPSimilarity(norm, kp.norm) >= e.cfg.SimilarityThreshold {
		return true
	}
	for _, childNorm := range kp.childNorms {
		if match.LCPSimilarity(norm, childNorm) >= e.cfg.SimilarityThreshold {
			return true
		}
	}
	return false
}

func (e *Engine) tooShort(norm string) bool {
	return utf8.RuneCountInString(norm) < e.cfg.MinNameLength
}

func (e *Engine) trace(msg string, fields common.Fields) {
	if e.cfg.Debug {
		common.LogDebug(msg, fields)
	}
}

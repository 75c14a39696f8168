// Package reviewctx carries condensed review state across passes: tracked
// symbols, file digests, and accumulated findings, replayed into later
// prompts through a bounded preamble.
package reviewctx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reviewpass/internal/tokens"
	"github.com/reviewpass/pkg/models"
)

// maxSummaryRunes bounds each file digest kept between passes.
const maxSummaryRunes = 280

// Origin records where a tracked symbol was first seen.
type Origin struct {
	FilePath string
	Line     int
}

type itemKind int

const (
	kindSummary itemKind = iota
	kindSymbol
	kindFinding
)

// item is one candidate line for the context preamble. Value is scored from
// recency (the pass that last touched it) and how often later passes
// referenced it, with insertion order breaking ties.
type item struct {
	kind     itemKind
	key      string
	text     string
	seq      int
	lastPass int
	refs     int
}

func (it *item) value() int {
	return it.lastPass + it.refs
}

// Context is the mutable cross-pass review state. One Context belongs to
// exactly one run; it is not safe for concurrent use and is discarded when
// the run ends. Mutation happens only through Update, which commits
// atomically.
type Context struct {
	counter tokens.Counter

	trackedElements     map[string]Origin
	fileSummaries       map[string]string
	accumulatedFindings []models.Finding

	items  []*item
	byKey  map[string]*item
	seq    int
	passes int
}

// New returns an empty context that sizes preambles with the given counter.
func New(counter tokens.Counter) *Context {
	return &Context{
		counter:         counter,
		trackedElements: make(map[string]Origin),
		fileSummaries:   make(map[string]string),
		byKey:           make(map[string]*item),
	}
}

// TrackedElements returns a copy of the symbol table.
func (c *Context) TrackedElements() map[string]Origin {
	out := make(map[string]Origin, len(c.trackedElements))
	for k, v := range c.trackedElements {
		out[k] = v
	}
	return out
}

// FileSummaries returns a copy of the per-file digests.
func (c *Context) FileSummaries() map[string]string {
	out := make(map[string]string, len(c.fileSummaries))
	for k, v := range c.fileSummaries {
		out[k] = v
	}
	return out
}

// AccumulatedFindings returns a copy of every finding merged so far. The
// underlying list is append-only and never shrinks.
func (c *Context) AccumulatedFindings() []models.Finding {
	out := make([]models.Finding, len(c.accumulatedFindings))
	copy(out, c.accumulatedFindings)
	return out
}

// Update merges a pass result into the context. The merge is staged first
// and committed only if every finding is acceptable, so a bad result leaves
// prior state intact for the next attempt.
func (c *Context) Update(result models.PassResult) error {
	if result.PassIndex < 0 {
		return fmt.Errorf("invalid pass index %d", result.PassIndex)
	}
	for i, f := range result.Findings {
		if f.Title == "" && f.Summary == "" {
			return fmt.Errorf("finding %d of pass %d has neither title nor summary", i, result.PassIndex)
		}
		if f.Line < 0 {
			return fmt.Errorf("finding %d of pass %d has negative line %d", i, result.PassIndex, f.Line)
		}
	}

	pass := result.PassIndex + 1 // recency score, 1-based so pass 0 still counts

	type stagedItem struct {
		key  string
		text string
		kind itemKind
	}
	var staged []stagedItem
	stagedSymbols := make(map[string]Origin)
	stagedSummaries := make(map[string]string)

	for _, f := range result.Findings {
		if f.Symbol != "" {
			if _, known := c.trackedElements[f.Symbol]; !known {
				if _, seen := stagedSymbols[f.Symbol]; !seen {
					stagedSymbols[f.Symbol] = Origin{FilePath: f.FilePath, Line: f.Line}
					staged = append(staged, stagedItem{
						key:  "sym:" + f.Symbol,
						text: fmt.Sprintf("symbol %s defined at %s:%d", f.Symbol, f.FilePath, f.Line),
						kind: kindSymbol,
					})
				}
			}
		}
		if f.Summary != "" && f.FilePath != "" {
			stagedSummaries[f.FilePath] = truncateRunes(f.Summary, maxSummaryRunes)
		}
		if f.Title != "" {
			staged = append(staged, stagedItem{
				key:  fmt.Sprintf("finding:%s:%d:%s", f.FilePath, f.Line, f.Title),
				text: fmt.Sprintf("[%s] %s:%d %s", f.Severity, f.FilePath, f.Line, f.Title),
				kind: kindFinding,
			})
		}
	}

	// Commit point: nothing above mutated the context.
	c.passes = pass
	c.accumulatedFindings = append(c.accumulatedFindings, result.Findings...)

	for sym, origin := range stagedSymbols {
		c.trackedElements[sym] = origin
	}
	for _, f := range result.Findings {
		if f.Symbol == "" {
			continue
		}
		// Re-mentions of known symbols bump their preamble value.
		if it, ok := c.byKey["sym:"+f.Symbol]; ok {
			it.refs++
			it.lastPass = pass
		}
	}

	for path, digest := range stagedSummaries {
		c.fileSummaries[path] = digest
		key := "file:" + path
		if it, ok := c.byKey[key]; ok {
			it.text = fmt.Sprintf("%s: %s", path, digest)
			it.refs++
			it.lastPass = pass
		} else {
			c.insert(&item{kind: kindSummary, key: key, text: fmt.Sprintf("%s: %s", path, digest), lastPass: pass})
		}
	}

	for _, s := range staged {
		if _, ok := c.byKey[s.key]; ok {
			continue
		}
		c.insert(&item{kind: s.kind, key: s.key, text: s.text, lastPass: pass})
	}

	return nil
}

func (c *Context) insert(it *item) {
	it.seq = c.seq
	c.seq++
	c.items = append(c.items, it)
	c.byKey[it.key] = it
}

// BuildContextPreamble renders the highest-value prior state that fits in
// remainingBudgetTokens. Items are ranked by recency plus reference
// frequency, ties broken by insertion order; the least valuable items are
// dropped first when the budget is tight. Returns "" before the first
// update or when nothing fits.
func (c *Context) BuildContextPreamble(remainingBudgetTokens int) string {
	if len(c.items) == 0 || remainingBudgetTokens <= 0 {
		return ""
	}

	ranked := make([]*item, len(c.items))
	copy(ranked, c.items)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].value() != ranked[j].value() {
			return ranked[i].value() > ranked[j].value()
		}
		return ranked[i].seq < ranked[j].seq
	})

	header := "Context from earlier review passes:\n"
	used := c.counter.CountTokens(header)
	if used > remainingBudgetTokens {
		return ""
	}

	var selected []*item
	for _, it := range ranked {
		line := "- " + it.text + "\n"
		cost := c.counter.CountTokens(line)
		if used+cost > remainingBudgetTokens {
			continue
		}
		used += cost
		selected = append(selected, it)
	}
	if len(selected) == 0 {
		return ""
	}

	// Replay in insertion order so the prompt reads chronologically.
	sort.Slice(selected, func(i, j int) bool { return selected[i].seq < selected[j].seq })

	var b strings.Builder
	b.WriteString(header)
	for _, it := range selected {
		b.WriteString("- ")
		b.WriteString(it.text)
		b.WriteString("\n")
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

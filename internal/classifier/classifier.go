// Package classifier assigns (category, tags, domain) to a piece of text
// using lowercase substring probe tables, the same signal-table-then-top-1
// shape the teacher's perception scorers use.
package classifier

import (
	"sort"
	"strings"

	"cerno/internal/model"
)

// probeTable is an ordered list of (key, probes) pairs. Order is
// significant: it is the tie-break order when hit counts are equal.
type probeTable struct {
	key    string
	probes []string
}

// categoryProbes covers the seven Insight categories.
var categoryProbes = []probeTable{
	{string(model.CategoryWarning), []string{"never", "don't", "avoid", "forbidden", "must not", "do not"}},
	{string(model.CategoryConvention), []string{"always", "naming", "prefer", "convention", "style", "format"}},
	{string(model.CategoryTechnique), []string{"technique", "approach", "how to", "use", "implement", "pattern to use"}},
	{string(model.CategoryPreference), []string{"prefer", "rather than", "instead of", "favor", "favour"}},
	{string(model.CategoryPattern), []string{"pattern", "idiom", "structure", "design"}},
	{string(model.CategoryPrinciple), []string{"principle", "philosophy", "should", "must", "rule"}},
	{string(model.CategoryFact), []string{"is", "was", "fact", "note that", "version"}},
}

// tagProbes cover a small domain-neutral vocabulary.
var tagProbes = []probeTable{
	{"testing", []string{"test", "spec", "assert", "mock", "coverage"}},
	{"error-handling", []string{"error", "exception", "panic", "recover", "failure"}},
	{"performance", []string{"performance", "latency", "throughput", "benchmark", "optimi"}},
	{"security", []string{"security", "auth", "credential", "vulnerab", "encrypt"}},
	{"database", []string{"database", "sql", "query", "schema", "migration"}},
	{"api", []string{"api", "endpoint", "request", "response", "rest"}},
	{"concurrency", []string{"concurren", "goroutine", "thread", "mutex", "race"}},
	{"documentation", []string{"document", "comment", "readme", "doc"}},
	{"deployment", []string{"deploy", "release", "ci/cd", "pipeline", "rollout"}},
	{"refactoring", []string{"refactor", "cleanup", "simplify", "rewrite"}},
}

// domainProbes cover programming ecosystems and cross-cutting concerns.
var domainProbes = []probeTable{
	{"go", []string{"golang", "goroutine", "go.mod", " go "}},
	{"python", []string{"python", "pip", "django", "flask"}},
	{"javascript", []string{"javascript", "node.js", "npm", "react", "typescript"}},
	{"rust", []string{"rust", "cargo", "crate"}},
	{"java", []string{"java", "maven", "gradle", "spring"}},
	{"infrastructure", []string{"kubernetes", "docker", "terraform", "infra"}},
	{"frontend", []string{"frontend", "css", "html", "ui component"}},
	{"backend", []string{"backend", "server-side", "microservice"}},
	{"data", []string{"data pipeline", "etl", "analytics", "warehouse"}},
}

// Result is the output of Classify.
type Result struct {
	Category model.InsightCategory
	Tags     []string
	Domain   string
}

const maxTags = 5

// Classify assigns category, tags, and domain to a fragment's content and
// optional section heading.
func Classify(content, heading string) Result {
	lower := strings.ToLower(content + " " + heading)

	category := model.InsightCategory(topHit(categoryProbes, lower, string(model.CategoryFact)))
	domain := topHit(domainProbes, lower, "")

	tags := allHits(tagProbes, lower, maxTags-1)
	if heading != "" {
		tags = append(tags, strings.ToLower(heading))
	}
	tags = dedupCap(tags, maxTags)

	return Result{Category: category, Tags: tags, Domain: domain}
}

// topHit counts substring hits per probe-table entry, keeps entries with
// >=1 hit, and returns the key with the highest count (ties broken by
// probe-table order). Returns fallback if no entry has any hits.
func topHit(table []probeTable, lower string, fallback string) string {
	type scored struct {
		key   string
		count int
		order int
	}
	var hits []scored
	for i, entry := range table {
		count := 0
		for _, p := range entry.probes {
			count += strings.Count(lower, p)
		}
		if count > 0 {
			hits = append(hits, scored{key: entry.key, count: count, order: i})
		}
	}
	if len(hits) == 0 {
		return fallback
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].order < hits[j].order
	})
	return hits[0].key
}

// allHits returns every probe-table key with >=1 hit, ordered by hit count
// descending then table order, capped at max entries.
func allHits(table []probeTable, lower string, max int) []string {
	type scored struct {
		key   string
		count int
		order int
	}
	var hits []scored
	for i, entry := range table {
		count := 0
		for _, p := range entry.probes {
			count += strings.Count(lower, p)
		}
		if count > 0 {
			hits = append(hits, scored{key: entry.key, count: count, order: i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].order < hits[j].order
	})
	var out []string
	for i, h := range hits {
		if i >= max {
			break
		}
		out = append(out, h.key)
	}
	return out
}

func dedupCap(tags []string, max int) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) >= max {
			break
		}
	}
	return out
}

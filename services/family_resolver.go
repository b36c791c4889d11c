package services

import (
	"sort"
	"strings"

	"listing-service/models"

	"go.uber.org/zap"
)

// ParentSelector picks the representative member of a family. It must be a
// total order over SKU identifiers so repeated runs select the same parent.
type ParentSelector func(members []string) string

// LexicographicParent selects the ascending-lexicographic smallest SKU.
func LexicographicParent(members []string) string {
	parent := members[0]
	for _, m := range members[1:] {
		if m < parent {
			parent = m
		}
	}
	return parent
}

// ResolveResult is the full partition of one candidate set: every input SKU
// appears in exactly one family or one ambiguity entry.
type ResolveResult struct {
	Families    []*models.Family
	Ambiguities []models.SkippedSKU
}

// FamilyResolver partitions candidate SKUs into singleton products and
// multi-SKU variation families via shared-attribute graph traversal.
type FamilyResolver struct {
	normalizer   *AttributeNormalizer
	selectParent ParentSelector
	logger       *zap.Logger
}

// NewFamilyResolver creates a resolver. A nil selector falls back to
// LexicographicParent.
func NewFamilyResolver(normalizer *AttributeNormalizer, selector ParentSelector, logger *zap.Logger) *FamilyResolver {
	if selector == nil {
		selector = LexicographicParent
	}
	return &FamilyResolver{normalizer: normalizer, selectParent: selector, logger: logger}
}

// node is one candidate SKU with its normalized attribute split.
type node struct {
	sku       string
	category  string
	title     string
	variation map[string]string // variation attributes only
	signature string            // category + normalized non-variation attributes
}

// Resolve builds the similarity graph over the candidates and returns its
// connected components as families. Candidates are bucketed by
// (category, non-variation-attribute signature) first, so the quadratic
// edge scan stays local to each bucket.
func (r *FamilyResolver) Resolve(skus []*models.SKURecord, tpl *models.TemplateRuleSet) *ResolveResult {
	variationSet := make(map[string]bool, len(tpl.VariationAttributes))
	for _, a := range tpl.VariationAttributes {
		variationSet[strings.ToLower(a)] = true
	}

	nodes := make([]*node, 0, len(skus))
	buckets := make(map[string][]*node)
	for _, s := range skus {
		n := r.buildNode(s, variationSet)
		nodes = append(nodes, n)
		if n.signature != "" {
			buckets[n.signature] = append(buckets[n.signature], n)
		}
	}

	result := &ResolveResult{}

	// SKUs with no comparable non-variation attributes can only be placed
	// by their generalized title. Matching one bucket joins it; none is a
	// singleton; two or more is ambiguous and excluded.
	titleIndex := make(map[string][]string) // generalized title -> signatures
	for sig, members := range buckets {
		for _, m := range members {
			key := m.category + "\x00" + m.title
			if !containsString(titleIndex[key], sig) {
				titleIndex[key] = append(titleIndex[key], sig)
			}
		}
	}
	for _, n := range nodes {
		if n.signature != "" {
			continue
		}
		sigs := titleIndex[n.category+"\x00"+n.title]
		switch len(sigs) {
		case 0:
			result.Families = append(result.Families, singletonFamily(n.sku))
		case 1:
			buckets[sigs[0]] = append(buckets[sigs[0]], n)
		default:
			r.logger.Warn("grouping ambiguity, excluding sku",
				zap.String("sku", n.sku),
				zap.Int("matching_families", len(sigs)),
			)
			err := &GroupingAmbiguityError{SKU: n.sku, Matches: len(sigs)}
			result.Ambiguities = append(result.Ambiguities, models.SkippedSKU{SKU: n.sku, Reason: err.Error()})
		}
	}

	// Connected components per bucket.
	for _, members := range buckets {
		adj := buildAdjacency(members)
		visited := make(map[string]bool, len(members))
		// Deterministic traversal order.
		sort.Slice(members, func(i, j int) bool { return members[i].sku < members[j].sku })
		for _, m := range members {
			if visited[m.sku] {
				continue
			}
			component := dfs(m.sku, adj, visited)
			if len(component) == 1 {
				result.Families = append(result.Families, singletonFamily(component[0]))
				continue
			}
			result.Families = append(result.Families, r.buildFamily(component, members, tpl))
		}
	}

	sort.Slice(result.Families, func(i, j int) bool {
		return result.Families[i].ParentMember < result.Families[j].ParentMember
	})

	singles := 0
	for _, f := range result.Families {
		if f.Singleton() {
			singles++
		}
	}
	r.logger.Info("variation families resolved",
		zap.Int("candidates", len(skus)),
		zap.Int("singles", singles),
		zap.Int("families", len(result.Families)-singles),
		zap.Int("ambiguous", len(result.Ambiguities)),
	)
	return result
}

// buildNode normalizes a record's attributes and splits them into the
// variation set and the non-variation signature.
func (r *FamilyResolver) buildNode(s *models.SKURecord, variationSet map[string]bool) *node {
	attrs := r.normalizer.NormalizeAll(s.StringAttributes())

	variation := make(map[string]string)
	baseKeys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if variationSet[k] {
			if v != "" {
				variation[k] = v
			}
			continue
		}
		if v != "" {
			baseKeys = append(baseKeys, k)
		}
	}

	signature := ""
	if len(baseKeys) > 0 {
		sort.Strings(baseKeys)
		parts := make([]string, 0, len(baseKeys)+1)
		parts = append(parts, s.CategoryName)
		for _, k := range baseKeys {
			parts = append(parts, k+"="+attrs[k])
		}
		signature = strings.Join(parts, "\x00")
	}

	return &node{
		sku:       s.MeowSKU,
		category:  s.CategoryName,
		title:     canonicalize(GeneralizeTitle(s.ProductName)),
		variation: variation,
		signature: signature,
	}
}

// buildAdjacency adds an edge between two bucket members iff they differ in
// at least one variation attribute.
func buildAdjacency(members []*node) map[string][]string {
	adj := make(map[string][]string, len(members))
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if variesFrom(members[i], members[j]) {
				adj[members[i].sku] = append(adj[members[i].sku], members[j].sku)
				adj[members[j].sku] = append(adj[members[j].sku], members[i].sku)
			}
		}
	}
	return adj
}

// variesFrom reports whether two nodes differ in at least one variation
// attribute value.
func variesFrom(a, b *node) bool {
	for k, av := range a.variation {
		if bv, ok := b.variation[k]; ok && av != bv {
			return true
		}
	}
	for k, bv := range b.variation {
		if av, ok := a.variation[k]; ok && av != bv {
			return true
		}
	}
	return false
}

// dfs walks one connected component iteratively and returns its members.
func dfs(start string, adj map[string][]string, visited map[string]bool) []string {
	var component []string
	stack := []string{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		component = append(component, cur)
		neighbors := append([]string(nil), adj[cur]...)
		sort.Strings(neighbors)
		for i := len(neighbors) - 1; i >= 0; i-- {
			if !visited[neighbors[i]] {
				stack = append(stack, neighbors[i])
			}
		}
	}
	return component
}

// buildFamily assembles a multi-member family: deterministic parent, theme
// from the attributes that actually vary, per-member variation values.
func (r *FamilyResolver) buildFamily(component []string, members []*node, tpl *models.TemplateRuleSet) *models.Family {
	sort.Strings(component)
	parentMember := r.selectParent(component)

	byName := make(map[string]*node, len(members))
	for _, m := range members {
		byName[m.sku] = m
	}

	// Varying attributes: template variation attributes, in template order,
	// with at least two distinct values across the family.
	var varying []string
	for _, attr := range tpl.VariationAttributes {
		key := strings.ToLower(attr)
		seen := make(map[string]bool)
		for _, sku := range component {
			if v, ok := byName[sku].variation[key]; ok && v != "" {
				seen[v] = true
			}
		}
		if len(seen) > 1 {
			varying = append(varying, key)
		}
	}

	theme, themeAttrs := selectTheme(varying, tpl)

	values := make(map[string]map[string]string, len(component))
	for _, sku := range component {
		vals := make(map[string]string, len(themeAttrs))
		for _, attr := range themeAttrs {
			vals[attr] = byName[sku].variation[attr]
		}
		values[sku] = vals
	}

	return &models.Family{
		ParentSKU:       "PARENT-" + parentMember,
		ParentMember:    parentMember,
		Members:         component,
		Theme:           theme,
		ThemeAttributes: themeAttrs,
		VariationValues: values,
	}
}

// selectTheme picks the family's variation theme. The first configured
// priority theme whose attributes all vary in this family wins; otherwise
// every varying attribute joins the theme in template order.
func selectTheme(varying []string, tpl *models.TemplateRuleSet) (string, []string) {
	if len(varying) == 0 {
		return "", nil
	}

	wordToAttr := make(map[string]string, len(tpl.VariationAttributes))
	for _, attr := range tpl.VariationAttributes {
		key := strings.ToLower(attr)
		wordToAttr[strings.ToLower(themeWord(key))] = key
	}
	for attr, word := range tpl.VariationMapping {
		wordToAttr[strings.ToLower(word)] = strings.ToLower(attr)
	}
	varies := make(map[string]bool, len(varying))
	for _, a := range varying {
		varies[a] = true
	}

	for _, theme := range tpl.PriorityThemes {
		attrs := make([]string, 0, 2)
		matched := true
		for _, word := range strings.Split(theme, "-") {
			attr, known := wordToAttr[strings.ToLower(word)]
			if !known || !varies[attr] {
				matched = false
				break
			}
			attrs = append(attrs, attr)
		}
		if matched && len(attrs) > 0 {
			return theme, attrs
		}
	}

	return renderTheme(varying, tpl.VariationMapping), varying
}

// renderTheme joins theme attribute display names, e.g. "Color-Size".
func renderTheme(attrs []string, mapping map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	words := make([]string, len(attrs))
	for i, a := range attrs {
		if w, ok := mapping[a]; ok && w != "" {
			words[i] = w
			continue
		}
		words[i] = themeWord(a)
	}
	return strings.Join(words, "-")
}

// themeWord falls back to a display name derived from the attribute name,
// e.g. "color_name" -> "Color".
func themeWord(attr string) string {
	w := strings.TrimSuffix(strings.ToLower(attr), "_name")
	w = strings.ReplaceAll(w, "_", " ")
	if w == "" {
		return ""
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func singletonFamily(sku string) *models.Family {
	return &models.Family{
		ParentMember:    sku,
		Members:         []string{sku},
		VariationValues: map[string]map[string]string{sku: {}},
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

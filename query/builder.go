package query

import (
	"cmp"
	"slices"
	"strings"

	"storefront/models"
)

const selectProducts = `SELECT id, code, name, localized_name, price, rating, review_count, category_id, featured, in_stock FROM products`

// searchCollation compares code points, the way strings.Contains does. The
// server default (utf8mb4_0900_ai_ci) would fold accents and Arabic hamza
// forms, which Match does not.
const searchCollation = "utf8mb4_bin"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SQL renders the filter as a MySQL statement with bound parameters only.
// Results are newest first (id descending).
func (f ProductFilter) SQL() (string, []any) {
	f = f.Normalize()

	var conds []string
	var args []any

	if f.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Featured != nil {
		conds = append(conds, "featured = ?")
		args = append(args, *f.Featured)
	}
	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		like := "LIKE ? COLLATE " + searchCollation
		conds = append(conds, "(LOWER(name) "+like+" OR LOWER(localized_name) "+like+" OR LOWER(code) "+like+")")
		args = append(args, pattern, pattern, pattern)
	}

	var b strings.Builder
	b.WriteString(selectProducts)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY id DESC LIMIT ? OFFSET ?")
	args = append(args, f.Limit, f.Offset)

	return b.String(), args
}

// Match reports whether p satisfies every present filter, with the same
// semantics as the WHERE clause built by SQL.
func (f ProductFilter) Match(p models.Product) bool {
	if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		return strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.LocalizedName), term) ||
			strings.Contains(strings.ToLower(p.Code), term)
	}
	return true
}

// Apply filters products in process: match, order by id descending, then
// take the Offset/Limit window. The input slice is not modified.
func (f ProductFilter) Apply(products []models.Product) []models.Product {
	f = f.Normalize()

	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			matched = append(matched, p)
		}
	}
	slices.SortFunc(matched, func(a, b models.Product) int {
		return cmp.Compare(b.ID, a.ID)
	})

	if f.Offset >= len(matched) {
		return []models.Product{}
	}
	end := min(f.Offset+f.Limit, len(matched))
	return matched[f.Offset:end]
}

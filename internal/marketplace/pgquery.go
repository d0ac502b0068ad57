package marketplace

import (
	"fmt"
	"strings"
)

const requestColumns = `id, owner_id, owner_name, title, description, category, subcategory,
	budget_min, budget_max, deadline, location, latitude, longitude, images,
	show_best_bids, status, accepted_bid_id, created_at, updated_at`

// sqlBuilder accumulates WHERE clauses with numbered placeholders.
type sqlBuilder struct {
	where []string
	args  []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) add(clause string) {
	b.where = append(b.where, clause)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

var sortColumns = map[SortField]string{
	SortCreatedAt: "created_at",
	SortBudgetMin: "budget_min",
	SortBudgetMax: "budget_max",
	SortDeadline:  "deadline",
	SortTitle:     "lower(title)",
}

// buildRequestQuery compiles q into a SELECT over service_requests. Sort
// columns come from a fixed map, never from caller input.
func buildRequestQuery(q RequestQuery) (string, []any) {
	var b sqlBuilder

	if q.OwnerID != "" {
		b.add("owner_id = " + b.arg(q.OwnerID))
	}
	if q.Category != "" {
		b.add("category = " + b.arg(q.Category))
	}
	if q.Status != "" {
		b.add("status = " + b.arg(string(q.Status)))
	}
	if q.Location != "" {
		b.add("location ILIKE " + b.arg(likePattern(q.Location)))
	}
	if q.Search != "" {
		p := b.arg(likePattern(q.Search))
		b.add(fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if q.BudgetMin != nil {
		b.add(fmt.Sprintf("(budget_max IS NULL OR budget_max >= %s)", b.arg(*q.BudgetMin)))
	}
	if q.BudgetMax != nil {
		b.add(fmt.Sprintf("(budget_min IS NULL OR budget_min <= %s)", b.arg(*q.BudgetMax)))
	}
	switch q.Urgency {
	case UrgencyUrgent:
		b.add(fmt.Sprintf("(deadline IS NOT NULL AND deadline <= %s)", b.arg(q.Now.Add(urgentWindow))))
	case UrgencyFlexible:
		b.add(fmt.Sprintf("(deadline IS NULL OR deadline >= %s)", b.arg(q.Now.Add(flexibleWindow))))
	case UrgencyModerate:
		lo, hi := b.arg(q.Now.Add(urgentWindow)), b.arg(q.Now.Add(flexibleWindow))
		b.add(fmt.Sprintf("(deadline > %s AND deadline < %s)", lo, hi))
	}
	if q.HasImages != nil {
		if *q.HasImages {
			b.add("cardinality(images) > 0")
		} else {
			b.add("cardinality(images) = 0")
		}
	}
	if q.ShowBestBidsOnly {
		b.add("show_best_bids")
	}
	if q.Box != nil {
		b.add(fmt.Sprintf("(latitude BETWEEN %s AND %s AND longitude BETWEEN %s AND %s)",
			b.arg(q.Box.MinLat), b.arg(q.Box.MaxLat), b.arg(q.Box.MinLon), b.arg(q.Box.MaxLon)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + requestColumns + " FROM service_requests")
	if len(b.where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(b.where, " AND "))
	}

	col, ok := sortColumns[q.Sort]
	if !ok {
		col = sortColumns[SortCreatedAt]
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s NULLS LAST, id ASC", col, dir))

	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + b.arg(q.Limit))
	}
	if q.Offset > 0 {
		sb.WriteString(" OFFSET " + b.arg(q.Offset))
	}
	return sb.String(), b.args
}

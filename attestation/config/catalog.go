package config

import "github.com/samber/lo"

// Card is one attestation a user can request.
type Card struct {
	Title    string
	SchemaID string
}

// DefaultCatalog lists the cards offered out of the box. Two cards may share
// a schema; the schema, not the card, is what the attestor evaluates.
var DefaultCatalog = []Card{
	{Title: "Has Sportybet Account", SchemaID: "b7724d4fce7d480ca9658730fdc4b8cf"},
	{Title: "Sportybet balance > 1 GHs", SchemaID: "b7724d4fce7d480ca9658730fdc4b8cf"},
	{Title: "Credit Card added", SchemaID: "99f040afb92349a28991ffed8bd0c146"},
	{Title: "Transacted in the last 7 days", SchemaID: "8dc601044ea04ce9a8fed4cbc061b11b"},
}

// Schemas returns the distinct schema ids of cards in catalog order.
func Schemas(cards []Card) []string {
	return lo.Uniq(lo.Map(cards, func(c Card, _ int) string { return c.SchemaID }))
}

// CardsBySchema groups card titles by schema id.
func CardsBySchema(cards []Card) map[string][]string {
	return lo.MapValues(lo.GroupBy(cards, func(c Card) string { return c.SchemaID }),
		func(group []Card, _ string) []string {
			return lo.Map(group, func(c Card, _ int) string { return c.Title })
		})
}

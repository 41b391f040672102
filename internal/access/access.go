// Package access decides which chat identities may use the bot.
package access

import "slices"

// Gate is an immutable allow-list of user ids.
type Gate struct {
	allowed []int64
}

// NewGate copies ids; duplicates are dropped and order is kept.
func NewGate(ids []int64) *Gate {
	allowed := make([]int64, 0, len(ids))

	for _, id := range ids {
		if !slices.Contains(allowed, id) {
			allowed = append(allowed, id)
		}
	}

	return &Gate{allowed: allowed}
}

// IsAuthorized fails closed: an empty allow-list authorizes nobody.
func (g *Gate) IsAuthorized(userID int64) bool {
	if g == nil || len(g.allowed) == 0 {
		return false
	}

	return slices.Contains(g.allowed, userID)
}

// Recipients returns the allow-listed ids in configuration order.
func (g *Gate) Recipients() []int64 {
	if g == nil {
		return nil
	}

	return slices.Clone(g.allowed)
}

package cache

import (
	"strings"
	"time"
)

// TTL policy by data class
const (
	PlayerStatsTTL  = time.Hour
	GameOddsTTL     = 2 * time.Minute
	PlayerPropsTTL  = 5 * time.Minute
	RosterTTL       = 30 * time.Minute
	GameScheduleTTL = 5 * time.Minute
	PredictionsTTL  = 10 * time.Minute
	WeatherTTL      = 30 * time.Minute
)

// DefaultNamespace prefixes every key written by the engine
const DefaultNamespace = "linepointer"

// Key builds a namespaced key from a prefix and ordered parts.
// Identical inputs always produce identical keys.
func (c *Cache) Key(prefix string, parts ...string) string {
	ns := DefaultNamespace
	if c != nil && c.namespace != "" {
		ns = c.namespace
	}

	var b strings.Builder
	b.WriteString(ns)
	b.WriteByte(':')
	b.WriteString(prefix)
	for _, part := range parts {
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// OddsKey is the key for a sport's game odds in one market group
func (c *Cache) OddsKey(sport, market string) string {
	if market == "" {
		market = "all"
	}
	return c.Key("odds", sport, "games", market)
}

// PropsKey is the key for a sport's player props. An empty player means all props.
func (c *Cache) PropsKey(sport, player string) string {
	if player == "" {
		return c.Key("props", sport, "all")
	}
	return c.Key("props", sport, strings.ToLower(player))
}

// PredictionKey is the key for a prop prediction. parts usually carry the
// line and both prices.
func (c *Cache) PredictionKey(playerID, propType string, parts ...string) string {
	return c.Key("ml-prop", append([]string{playerID, propType}, parts...)...)
}

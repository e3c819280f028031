// Package rewards is the client for the optional gamification sink. When the
// sink is enabled, each newly synced participant gets a player profile there.
package rewards

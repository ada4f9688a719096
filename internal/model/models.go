// Package model defines the data models for the investigation store.
package model

import (
	"strconv"
	"strings"
)

// Investigation modes stored in guild configuration.
const (
	InvestigationDefault     = 1 // bullets surface when triggers appear in messages
	InvestigationCommandOnly = 2 // bullets surface only through an explicit command
)

// BestFinderToken is the placeholder inside a best-finder label that gets
// replaced with the singular finder label when displayed.
const BestFinderToken = "{{bullet_finder}}"

// Stock vocabulary used when a guild has not customized its naming profile.
// These match the column defaults in the uinames table.
const (
	DefaultSingularBullet = "Truth Bullet"
	DefaultPluralBullet   = "Truth Bullets"
	DefaultSingularFinder = "Truth Bullet Finder"
	DefaultPluralFinder   = "Truth Bullet Finders"
	DefaultBestFinder     = "Best " + BestFinderToken
)

// Length limits enforced by the uinewtruthbullets schema.
const (
	MaxTriggerLen = 100
	MaxAliasLen   = 40
)

// NamingProfile holds a guild's custom vocabulary for the investigation
// feature. Stored in the uinames table; owned exclusively by at most one
// GuildConfig.
type NamingProfile struct {
	ID             int    `db:"id"`
	SingularBullet string `db:"singular_bullet"`
	PluralBullet   string `db:"plural_bullet"`
	SingularFinder string `db:"singular_truth_bullet_finder"`
	PluralFinder   string `db:"plural_truth_bullet_finder"`
	BestFinder     string `db:"best_bullet_finder"`
}

// DefaultNamingProfile returns a profile with the stock vocabulary.
// The ID is zero until the profile is persisted.
func DefaultNamingProfile() NamingProfile {
	return NamingProfile{
		SingularBullet: DefaultSingularBullet,
		PluralBullet:   DefaultPluralBullet,
		SingularFinder: DefaultSingularFinder,
		PluralFinder:   DefaultPluralFinder,
		BestFinder:     DefaultBestFinder,
	}
}

// BulletName returns the singular or plural bullet label for a count.
func (n *NamingProfile) BulletName(count int) string {
	if count == 1 {
		return n.SingularBullet
	}
	return n.PluralBullet
}

// FinderName returns the singular or plural finder label for a count.
func (n *NamingProfile) FinderName(count int) string {
	if count == 1 {
		return n.SingularFinder
	}
	return n.PluralFinder
}

// RenderBestFinder substitutes the {{bullet_finder}} token in the best-finder
// label with the singular finder label.
func (n *NamingProfile) RenderBestFinder() string {
	return strings.ReplaceAll(n.BestFinder, BestFinderToken, n.SingularFinder)
}

// GuildConfig holds per-guild settings for the investigation feature.
// Stored in the uinewconfig table, one row per guild. The guild ID is a
// Discord snowflake issued externally, never generated by the store.
type GuildConfig struct {
	GuildID           int64  `db:"guild_id"`
	BulletChannelID   *int64 `db:"bullet_chan_id"`          // Nullable - channel found bullets are announced in
	BestFinderRoleID  *int64 `db:"best_bullet_finder_role"` // Nullable - role granted to the best finder
	PlayerRoleID      *int64 `db:"player_role"`             // Nullable - role marking investigation players
	BulletsEnabled    bool   `db:"bullets_enabled"`
	InvestigationType int    `db:"investigation_type"`
	NamesID           *int   `db:"names_id"` // Nullable, unique - owned NamingProfile
}

// TruthBullet is a single clue scoped to a channel within a guild.
// Stored in the uinewtruthbullets table.
type TruthBullet struct {
	ID          int      `db:"id"`
	Trigger     string   `db:"trigger"`
	Aliases     []string `db:"aliases"`
	Description string   `db:"description"`
	ChannelID   int64    `db:"channel_id"`
	GuildID     int64    `db:"guild_id"`
	Found       bool     `db:"found"`
	Finder      *int64   `db:"finder"` // Nullable - user who found it, nil until found
	Hidden      bool     `db:"hidden"`
}

// ChannelMention formats the bullet's channel as a Discord mention.
func (b *TruthBullet) ChannelMention() string {
	return "<#" + strconv.FormatInt(b.ChannelID, 10) + ">"
}

// FinderMention formats the finder as a Discord mention, or "N/A" when the
// bullet has not been found.
func (b *TruthBullet) FinderMention() string {
	if b.Finder == nil {
		return "N/A"
	}
	return "<@" + strconv.FormatInt(*b.Finder, 10) + ">"
}

package domain

import "errors"

var ErrGuildIDEmpty = errors.New("guild id empty")

// Portal binds a guild to the three channels that drive private rooms:
// the join-to-create trigger, the owning category and the settings text
// channel. At most one row exists per guild.
type Portal struct {
	GuildID           GuildID
	CategoryID        ChannelID
	TriggerChannelID  ChannelID
	SettingsChannelID ChannelID
}

// NewPortal avoids raw literals in adapters and keeps construction obvious.
func NewPortal(guild GuildID, category, trigger, settings ChannelID) (Portal, error) {
	if guild == "" {
		return Portal{}, ErrGuildIDEmpty
	}
	return Portal{
		GuildID:           guild,
		CategoryID:        category,
		TriggerChannelID:  trigger,
		SettingsChannelID: settings,
	}, nil
}

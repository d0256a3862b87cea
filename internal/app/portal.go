package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/portald/internal/core"
	"github.com/dkeye/portald/internal/domain"
	"github.com/dkeye/portald/internal/storage"
)

const (
	DefaultTriggerName  = "[➕] Create"
	DefaultSettingsName = "[⚙️] Settings"
	DefaultCategoryName = "Portal"

	settingsTopic = "manage private rooms"

	// portalReconcileAttempts bounds the purge-and-retry loop when the
	// stored row points at channels that no longer exist. One stale row
	// plus one flap is the worst case seen in practice.
	portalReconcileAttempts = 3
)

// PortalNames are the display names used for freshly created portal
// channels. Empty fields fall back to the defaults.
type PortalNames struct {
	Trigger  string
	Settings string
	Category string
}

func (n PortalNames) withDefaults() PortalNames {
	if n.Trigger == "" {
		n.Trigger = DefaultTriggerName
	}
	if n.Settings == "" {
		n.Settings = DefaultSettingsName
	}
	if n.Category == "" {
		n.Category = DefaultCategoryName
	}
	return n
}

// PortalManager creates and deletes portals and self-heals rows whose
// remote channels were removed out-of-band.
type PortalManager struct {
	Gateway core.Gateway
	Store   storage.PortalStore
	Locks   *GuildLocks

	// Control is posted to the settings channel of every new portal.
	Control domain.Message
}

// portalTemplate denies the default role connect and manage rights on
// portal channels: members join the trigger to spawn a room, not to
// linger there.
func portalTemplate(guild domain.GuildID) []domain.Overwrite {
	return []domain.Overwrite{{
		SubjectID:   domain.EveryoneRole(guild),
		SubjectKind: domain.SubjectRole,
		Deny:        domain.PermConnect | domain.PermManageChannel,
	}}
}

// Create builds a new portal for the guild. A portal whose three channels
// are all still live refuses with ErrPortalExists; a row pointing at any
// missing channel is purged and creation restarts, bounded so flapping
// remote state cannot loop forever.
func (m *PortalManager) Create(ctx context.Context, guild domain.GuildID, names PortalNames) (domain.Portal, error) {
	unlock := m.Locks.Lock(guild)
	defer unlock()
	return m.createLocked(ctx, guild, names.withDefaults())
}

func (m *PortalManager) createLocked(ctx context.Context, guild domain.GuildID, names PortalNames) (domain.Portal, error) {
	for attempt := 0; attempt < portalReconcileAttempts; attempt++ {
		saved, err := m.Store.Get(ctx, guild)
		if errors.Is(err, storage.ErrNotFound) {
			return m.build(ctx, guild, names)
		}
		if err != nil {
			return domain.Portal{}, fmt.Errorf("load portal: %w", err)
		}

		live, err := m.probe(ctx, saved)
		if err != nil {
			return domain.Portal{}, fmt.Errorf("probe portal channels: %w", err)
		}
		if live {
			return domain.Portal{}, ErrPortalExists
		}

		// Stale row: some channel was deleted behind our back. Purge and
		// start over.
		if err := m.Store.Delete(ctx, guild); err != nil {
			return domain.Portal{}, fmt.Errorf("purge stale portal: %w", err)
		}
		log.Warn().Str("module", "app.portal").Str("guild", string(guild)).Int("attempt", attempt+1).Msg("purged stale portal row")
	}
	return domain.Portal{}, ErrInconsistent
}

// probe reports whether all three portal channels still exist.
func (m *PortalManager) probe(ctx context.Context, portal domain.Portal) (bool, error) {
	for _, id := range []domain.ChannelID{portal.CategoryID, portal.TriggerChannelID, portal.SettingsChannelID} {
		ch, err := m.Gateway.GetChannel(ctx, id)
		if err != nil {
			return false, err
		}
		if ch == nil {
			return false, nil
		}
	}
	return true, nil
}

// build creates category, trigger and settings in order, posts the
// control message and persists the row last. Partial failure tears down
// whatever was created; no orphaned half-portals.
func (m *PortalManager) build(ctx context.Context, guild domain.GuildID, names PortalNames) (domain.Portal, error) {
	template := portalTemplate(guild)
	var created []domain.ChannelID

	teardown := func() {
		for i := len(created) - 1; i >= 0; i-- {
			if err := m.Gateway.DeleteChannel(ctx, created[i]); err != nil {
				log.Error().Err(err).Str("module", "app.portal").Str("guild", string(guild)).Str("channel", string(created[i])).Msg("teardown after failed portal build")
			}
		}
	}

	category, err := m.Gateway.CreateCategory(ctx, guild, names.Category, template)
	if err != nil {
		return domain.Portal{}, fmt.Errorf("create category: %w", err)
	}
	created = append(created, category)

	trigger, err := m.Gateway.CreateVoiceChannel(ctx, guild, names.Trigger, category, template)
	if err != nil {
		teardown()
		return domain.Portal{}, fmt.Errorf("create trigger channel: %w", err)
	}
	created = append(created, trigger)

	settings, err := m.Gateway.CreateTextChannel(ctx, guild, names.Settings, settingsTopic, category, template)
	if err != nil {
		teardown()
		return domain.Portal{}, fmt.Errorf("create settings channel: %w", err)
	}
	created = append(created, settings)

	if _, err := m.Gateway.SendMessage(ctx, settings, m.Control); err != nil {
		teardown()
		return domain.Portal{}, fmt.Errorf("post control message: %w", err)
	}

	portal, err := domain.NewPortal(guild, category, trigger, settings)
	if err != nil {
		teardown()
		return domain.Portal{}, err
	}
	if err := m.Store.Put(ctx, portal); err != nil {
		teardown()
		return domain.Portal{}, fmt.Errorf("persist portal: %w", err)
	}

	log.Info().Str("module", "app.portal").Str("guild", string(guild)).Str("category", string(category)).Str("trigger", string(trigger)).Str("settings", string(settings)).Msg("portal created")
	return portal, nil
}

// Delete removes the portal's channels and its row. Channels already
// gone are fine; the row is removed regardless.
func (m *PortalManager) Delete(ctx context.Context, guild domain.GuildID) error {
	unlock := m.Locks.Lock(guild)
	defer unlock()

	portal, err := m.Store.Get(ctx, guild)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNoPortal
	}
	if err != nil {
		return fmt.Errorf("load portal: %w", err)
	}

	for _, id := range []domain.ChannelID{portal.TriggerChannelID, portal.SettingsChannelID, portal.CategoryID} {
		if err := m.Gateway.DeleteChannel(ctx, id); err != nil {
			return fmt.Errorf("delete portal channel %s: %w", id, err)
		}
	}
	if err := m.Store.Delete(ctx, guild); err != nil {
		return fmt.Errorf("delete portal row: %w", err)
	}

	log.Info().Str("module", "app.portal").Str("guild", string(guild)).Msg("portal deleted")
	return nil
}

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

// Orchestrator consumes voice-state transitions and keeps the guild's
// dynamic rooms in step: spawn on trigger join, move an owner back on a
// reconnect bounce, reclaim empty rooms. All decisions for one guild run
// inside that guild's critical section.
type Orchestrator struct {
	Gateway core.Gateway
	Store   storage.PortalStore
	Locks   *GuildLocks
}

// HandleVoiceState processes one transition for one guild. Guilds
// without a portal ignore every event.
func (o *Orchestrator) HandleVoiceState(ctx context.Context, guild domain.GuildID, state domain.VoiceState) error {
	unlock := o.Locks.Lock(guild)
	defer unlock()

	portal, err := o.Store.Get(ctx, guild)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load portal: %w", err)
	}

	if state.NewChannelID != "" && state.NewChannelID == portal.TriggerChannelID {
		if state.OldChannelID != "" {
			moved, err := o.bounceBack(ctx, portal, state)
			if err != nil {
				return err
			}
			if moved {
				return nil
			}
		}
		return o.spawn(ctx, portal, state.MemberID)
	}

	if state.OldChannelID != "" && state.OldChannelID != portal.TriggerChannelID {
		return o.reclaim(ctx, portal, state.OldChannelID)
	}

	return nil
}

// bounceBack handles an owner routed back through the trigger by a
// client reconnect: if the channel they just left is a live room they
// own, they are moved back instead of spawning a duplicate.
func (o *Orchestrator) bounceBack(ctx context.Context, portal domain.Portal, state domain.VoiceState) (bool, error) {
	old, err := o.Gateway.GetChannel(ctx, state.OldChannelID)
	if err != nil {
		return false, fmt.Errorf("inspect old channel: %w", err)
	}
	if old == nil || old.ParentID != portal.CategoryID || old.ID == portal.TriggerChannelID {
		return false, nil
	}
	owner, ok := core.ResolveOwner(old.Overwrites)
	if !ok || owner != state.MemberID {
		return false, nil
	}

	if err := o.Gateway.MoveMember(ctx, portal.GuildID, state.MemberID, old.ID); err != nil {
		return false, fmt.Errorf("move owner back: %w", err)
	}
	log.Info().Str("module", "app.orchestrator").Str("guild", string(portal.GuildID)).Str("member", string(state.MemberID)).Str("room", string(old.ID)).Msg("owner bounced back to room")
	return true, nil
}

// spawn creates a fresh dynamic room for the member and moves them in.
// The occupancy of the trigger is re-read first so a replayed join for a
// member who already moved on is a no-op. A failed move deletes the
// half-built room before reporting.
func (o *Orchestrator) spawn(ctx context.Context, portal domain.Portal, member domain.MemberID) error {
	trigger, err := o.Gateway.GetChannel(ctx, portal.TriggerChannelID)
	if err != nil {
		return fmt.Errorf("inspect trigger channel: %w", err)
	}
	if trigger == nil || !occupies(trigger, member) {
		// Stale or replayed event; the member is not waiting in the
		// trigger anymore.
		return nil
	}

	guildMember, err := o.Gateway.GetMember(ctx, portal.GuildID, member)
	if err != nil {
		return fmt.Errorf("load member: %w", err)
	}

	ownerGrant := []domain.Overwrite{{
		SubjectID:   string(member),
		SubjectKind: domain.SubjectMember,
		Allow:       domain.OwnerGrant,
	}}
	name := fmt.Sprintf("%s's channel", guildMember.DisplayName())

	room, err := o.Gateway.CreateVoiceChannel(ctx, portal.GuildID, name, portal.CategoryID, ownerGrant)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	if err := o.Gateway.MoveMember(ctx, portal.GuildID, member, room); err != nil {
		if derr := o.Gateway.DeleteChannel(ctx, room); derr != nil {
			log.Error().Err(derr).Str("module", "app.orchestrator").Str("guild", string(portal.GuildID)).Str("room", string(room)).Msg("teardown after failed move")
		}
		return fmt.Errorf("move member into room: %w", err)
	}

	log.Info().Str("module", "app.orchestrator").Str("guild", string(portal.GuildID)).Str("member", string(member)).Str("room", string(room)).Msg("room spawned")
	return nil
}

// reclaim deletes a room in the portal category once its live occupancy
// reads zero. The read happens here, at execution time, because another
// member can join between decision and execution. A channel that
// vanished in the meantime counts as reclaimed.
func (o *Orchestrator) reclaim(ctx context.Context, portal domain.Portal, channel domain.ChannelID) error {
	ch, err := o.Gateway.GetChannel(ctx, channel)
	if err != nil {
		return fmt.Errorf("inspect room: %w", err)
	}
	if ch == nil {
		// Concurrent reclaim already removed it.
		return nil
	}
	if ch.ParentID != portal.CategoryID || len(ch.Occupants) > 0 {
		return nil
	}

	if err := o.Gateway.DeleteChannel(ctx, channel); err != nil {
		return fmt.Errorf("delete empty room: %w", err)
	}
	log.Info().Str("module", "app.orchestrator").Str("guild", string(portal.GuildID)).Str("room", string(channel)).Msg("empty room reclaimed")
	return nil
}

func occupies(ch *domain.Channel, member domain.MemberID) bool {
	for _, m := range ch.Occupants {
		if m == member {
			return true
		}
	}
	return false
}

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

// Command intents against a member's own dynamic room. Every intent must
// come from the portal's settings channel while the invoker sits in a
// room under the portal category; all of them except Kick's target
// checks additionally require the invoker to own that room.

// CommandContext identifies who issued a command and from which text
// channel.
type CommandContext struct {
	Guild   domain.GuildID
	Invoker domain.MemberID
	Origin  domain.ChannelID
}

func (o *Orchestrator) portalFor(ctx context.Context, guild domain.GuildID) (domain.Portal, error) {
	portal, err := o.Store.Get(ctx, guild)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Portal{}, ErrNoPortal
	}
	if err != nil {
		return domain.Portal{}, fmt.Errorf("load portal: %w", err)
	}
	return portal, nil
}

// ownedRoom resolves the invoker's current room and enforces the shared
// precondition: settings-channel origin, occupancy of a category room,
// and ownership of that room.
func (o *Orchestrator) ownedRoom(ctx context.Context, portal domain.Portal, cmd CommandContext) (*domain.Channel, error) {
	if cmd.Origin != portal.SettingsChannelID {
		return nil, ErrPermissionDenied
	}

	member, err := o.Gateway.GetMember(ctx, portal.GuildID, cmd.Invoker)
	if err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	if member.VoiceChannelID == "" {
		return nil, ErrPermissionDenied
	}

	room, err := o.Gateway.GetChannel(ctx, member.VoiceChannelID)
	if err != nil {
		return nil, fmt.Errorf("inspect room: %w", err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.ParentID != portal.CategoryID || room.ID == portal.TriggerChannelID {
		return nil, ErrPermissionDenied
	}

	overwrites, err := o.Gateway.ListOverwrites(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect room grants: %w", err)
	}
	owner, ok := core.ResolveOwner(overwrites)
	if !ok || owner != cmd.Invoker {
		return nil, ErrPermissionDenied
	}
	return room, nil
}

// Rename changes the display name of the invoker's room.
func (o *Orchestrator) Rename(ctx context.Context, cmd CommandContext, name string) error {
	unlock := o.Locks.Lock(cmd.Guild)
	defer unlock()

	portal, err := o.portalFor(ctx, cmd.Guild)
	if err != nil {
		return err
	}
	room, err := o.ownedRoom(ctx, portal, cmd)
	if err != nil {
		return err
	}

	if err := o.Gateway.ModifyChannel(ctx, room.ID, domain.ChannelPatch{Name: &name}); err != nil {
		return fmt.Errorf("rename room: %w", err)
	}
	log.Info().Str("module", "app.commands").Str("guild", string(cmd.Guild)).Str("room", string(room.ID)).Str("name", name).Msg("room renamed")
	return nil
}

// Hide toggles the room's visibility for the default role: hidden rooms
// deny view and connect, showing again removes the overwrite.
func (o *Orchestrator) Hide(ctx context.Context, cmd CommandContext) error {
	unlock := o.Locks.Lock(cmd.Guild)
	defer unlock()

	portal, err := o.portalFor(ctx, cmd.Guild)
	if err != nil {
		return err
	}
	room, err := o.ownedRoom(ctx, portal, cmd)
	if err != nil {
		return err
	}

	everyone := domain.EveryoneRole(cmd.Guild)
	for _, ow := range room.Overwrites {
		if ow.SubjectKind == domain.SubjectRole && ow.SubjectID == everyone && ow.Deny.Has(domain.PermViewChannel) {
			if err := o.Gateway.DeleteOverwrite(ctx, room.ID, everyone); err != nil {
				return fmt.Errorf("show room: %w", err)
			}
			log.Info().Str("module", "app.commands").Str("guild", string(cmd.Guild)).Str("room", string(room.ID)).Msg("room shown")
			return nil
		}
	}

	hide := domain.Overwrite{
		SubjectID:   everyone,
		SubjectKind: domain.SubjectRole,
		Deny:        domain.PermViewChannel | domain.PermConnect,
	}
	if err := o.Gateway.SetOverwrite(ctx, room.ID, hide); err != nil {
		return fmt.Errorf("hide room: %w", err)
	}
	log.Info().Str("module", "app.commands").Str("guild", string(cmd.Guild)).Str("room", string(room.ID)).Msg("room hidden")
	return nil
}

// SetLimit caps how many members can join the invoker's room. Zero
// removes the cap.
func (o *Orchestrator) SetLimit(ctx context.Context, cmd CommandContext, limit int) error {
	if limit < 0 {
		return fmt.Errorf("user limit must not be negative")
	}

	unlock := o.Locks.Lock(cmd.Guild)
	defer unlock()

	portal, err := o.portalFor(ctx, cmd.Guild)
	if err != nil {
		return err
	}
	room, err := o.ownedRoom(ctx, portal, cmd)
	if err != nil {
		return err
	}

	if err := o.Gateway.ModifyChannel(ctx, room.ID, domain.ChannelPatch{UserLimit: &limit}); err != nil {
		return fmt.Errorf("set room limit: %w", err)
	}
	log.Info().Str("module", "app.commands").Str("guild", string(cmd.Guild)).Str("room", string(room.ID)).Int("limit", limit).Msg("room limit set")
	return nil
}

// Kick disconnects another occupant from the invoker's room.
func (o *Orchestrator) Kick(ctx context.Context, cmd CommandContext, target domain.MemberID) error {
	if target == cmd.Invoker {
		return ErrPermissionDenied
	}

	unlock := o.Locks.Lock(cmd.Guild)
	defer unlock()

	portal, err := o.portalFor(ctx, cmd.Guild)
	if err != nil {
		return err
	}
	room, err := o.ownedRoom(ctx, portal, cmd)
	if err != nil {
		return err
	}
	if !occupies(room, target) {
		return ErrRoomNotFound
	}

	if err := o.Gateway.Disconnect(ctx, cmd.Guild, target); err != nil {
		return fmt.Errorf("kick member: %w", err)
	}
	log.Info().Str("module", "app.commands").Str("guild", string(cmd.Guild)).Str("room", string(room.ID)).Str("target", string(target)).Msg("member kicked")
	return nil
}

// TransferOwner moves the owner grant from the invoker to another
// member: the old grant is removed, then the new one applied.
func (o *Orchestrator) TransferOwner(ctx context.Context, cmd CommandContext, newOwner domain.MemberID) error {
	if newOwner == "" || newOwner == cmd.Invoker {
		return ErrPermissionDenied
	}

	unlock := o.Locks.Lock(cmd.Guild)
	defer unlock()

	portal, err := o.portalFor(ctx, cmd.Guild)
	if err != nil {
		return err
	}
	room, err := o.ownedRoom(ctx, portal, cmd)
	if err != nil {
		return err
	}

	if err := o.Gateway.DeleteOverwrite(ctx, room.ID, string(cmd.Invoker)); err != nil {
		return fmt.Errorf("revoke owner grant: %w", err)
	}
	grant := domain.Overwrite{
		SubjectID:   string(newOwner),
		SubjectKind: domain.SubjectMember,
		Allow:       domain.OwnerGrant,
	}
	if err := o.Gateway.SetOverwrite(ctx, room.ID, grant); err != nil {
		return fmt.Errorf("apply owner grant: %w", err)
	}

	log.Info().Str("module", "app.commands").Str("guild", string(cmd.Guild)).Str("room", string(room.ID)).Str("owner", string(newOwner)).Msg("room ownership transferred")
	return nil
}

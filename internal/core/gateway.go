// Package core defines the capability surfaces the orchestrator consumes.
// Adapters implement them; app code only sees these interfaces.
package core

import (
	"context"

	"github.com/dkeye/portald/internal/domain"
)

// Gateway is the remote resource surface: channel CRUD, permission
// overwrites, member movement and channel inspection. All mutating calls
// block until the remote system confirms or rejects them.
//
// DeleteChannel and DeleteOverwrite are idempotent: deleting something
// already absent is not an error. GetChannel returns (nil, nil) for an
// absent channel so callers can tell "gone" from "gateway broken".
type Gateway interface {
	CreateCategory(ctx context.Context, guild domain.GuildID, name string, overwrites []domain.Overwrite) (domain.ChannelID, error)
	CreateVoiceChannel(ctx context.Context, guild domain.GuildID, name string, parent domain.ChannelID, overwrites []domain.Overwrite) (domain.ChannelID, error)
	CreateTextChannel(ctx context.Context, guild domain.GuildID, name, topic string, parent domain.ChannelID, overwrites []domain.Overwrite) (domain.ChannelID, error)
	DeleteChannel(ctx context.Context, channel domain.ChannelID) error
	ModifyChannel(ctx context.Context, channel domain.ChannelID, patch domain.ChannelPatch) error

	SetOverwrite(ctx context.Context, channel domain.ChannelID, overwrite domain.Overwrite) error
	DeleteOverwrite(ctx context.Context, channel domain.ChannelID, subjectID string) error
	ListOverwrites(ctx context.Context, channel domain.ChannelID) ([]domain.Overwrite, error)

	GetChannel(ctx context.Context, channel domain.ChannelID) (*domain.Channel, error)
	GetMember(ctx context.Context, guild domain.GuildID, member domain.MemberID) (*domain.Member, error)

	MoveMember(ctx context.Context, guild domain.GuildID, member domain.MemberID, dest domain.ChannelID) error
	Disconnect(ctx context.Context, guild domain.GuildID, member domain.MemberID) error

	SendMessage(ctx context.Context, channel domain.ChannelID, msg domain.Message) (domain.MessageID, error)
}

// EventHandler receives voice-state transitions from the gateway's event
// stream, one call per observed transition.
type EventHandler interface {
	HandleVoiceState(ctx context.Context, guild domain.GuildID, state domain.VoiceState) error
}

// Package chat renders the outbound messages the bot posts.
package chat

import "github.com/dkeye/portald/internal/domain"

const (
	colorDefault = 0x2b2d31
	colorSuccess = 0x57f287
	colorFailure = 0xed4245
)

// Custom ids routed back by the interaction stream.
const (
	ActionRename = "portal:rename"
	ActionHide   = "portal:hide"
	ActionOwner  = "portal:owner"
	ActionLimit  = "portal:limit"
	ActionKick   = "portal:kick"
	ActionDelete = "portal:delete"
)

// ControlMessage is the management message posted to a fresh portal's
// settings channel.
func ControlMessage() domain.Message {
	return domain.Message{
		Embeds: []domain.Embed{{
			AuthorName: "Private room management",
			Description: "You can change the configuration of your room using interactions." +
				"\n" +
				"\n✏️ — change the name of the room" +
				"\n🔒 — hide/show the room" +
				"\n🫂 — change the user limit" +
				"\n🚫 — kick the participant out of the room" +
				"\n👤 — change the owner of the room",
			Color: colorDefault,
		}},
		Components: []domain.ActionRow{{
			Buttons: []domain.Button{
				{CustomID: ActionRename, Label: "✏️", Style: domain.ButtonSecondary},
				{CustomID: ActionHide, Label: "🔒", Style: domain.ButtonSecondary},
				{CustomID: ActionOwner, Label: "👤", Style: domain.ButtonSecondary},
				{CustomID: ActionLimit, Label: "🫂", Style: domain.ButtonSecondary},
				{CustomID: ActionKick, Label: "🚫", Style: domain.ButtonSecondary},
			},
		}},
	}
}

// PortalExists is the refusal shown when a live portal already exists,
// with a delete affordance.
func PortalExists(username string) domain.Message {
	return domain.Message{
		Content: username + ", private rooms already created",
		Components: []domain.ActionRow{{
			Buttons: []domain.Button{
				{CustomID: ActionDelete, Label: "Delete", Style: domain.ButtonDanger},
			},
		}},
	}
}

// PortalCreated confirms a successful portal build.
func PortalCreated() domain.Message {
	return domain.Message{
		Embeds: []domain.Embed{{
			Title: "✅ Created private rooms.",
			Color: colorSuccess,
		}},
	}
}

// CommandFailed is the generic failure reply for command intents.
func CommandFailed() domain.Message {
	return domain.Message{
		Embeds: []domain.Embed{{
			Title: "Something went wrong...",
			Description: "This could be due to the fact that you were not writing in the portal settings channel" +
				" or you are not in a private room",
			Color: colorFailure,
		}},
	}
}

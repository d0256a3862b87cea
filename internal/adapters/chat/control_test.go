package chat

import "testing"

func TestControlMessageButtons(t *testing.T) {
	msg := ControlMessage()

	if len(msg.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(msg.Embeds))
	}
	if len(msg.Components) != 1 {
		t.Fatalf("expected one button row, got %d", len(msg.Components))
	}

	seen := map[string]bool{}
	for _, b := range msg.Components[0].Buttons {
		if b.CustomID == "" || b.Label == "" {
			t.Fatalf("button missing id or label: %+v", b)
		}
		if seen[b.CustomID] {
			t.Fatalf("duplicate custom id %q", b.CustomID)
		}
		seen[b.CustomID] = true
	}
	for _, id := range []string{ActionRename, ActionHide, ActionOwner, ActionLimit, ActionKick} {
		if !seen[id] {
			t.Fatalf("missing button %q", id)
		}
	}
}

func TestPortalExistsOffersDelete(t *testing.T) {
	msg := PortalExists("wanderer")

	if len(msg.Components) != 1 || len(msg.Components[0].Buttons) != 1 {
		t.Fatalf("expected a single delete button, got %+v", msg.Components)
	}
	if msg.Components[0].Buttons[0].CustomID != ActionDelete {
		t.Fatalf("expected %q, got %q", ActionDelete, msg.Components[0].Buttons[0].CustomID)
	}
}

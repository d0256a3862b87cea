package domain

// VoiceState is one observed transition of a member between voice
// channels. Either side may be empty: a connect has no old channel, a
// disconnect has no new one. It is never persisted.
type VoiceState struct {
	MemberID     MemberID
	OldChannelID ChannelID
	NewChannelID ChannelID
}

func (v VoiceState) Connected() bool    { return v.OldChannelID == "" && v.NewChannelID != "" }
func (v VoiceState) Disconnected() bool { return v.OldChannelID != "" && v.NewChannelID == "" }

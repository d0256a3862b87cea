package domain

// Member represents a guild member's meta as reported by the remote
// gateway. No transport or lifecycle logic here.
type Member struct {
	ID             MemberID
	Username       string
	GlobalName     string
	Nickname       string
	VoiceChannelID ChannelID
}

// DisplayName prefers the guild nickname, then the account-wide display
// name, then the raw username.
func (m Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	if m.GlobalName != "" {
		return m.GlobalName
	}
	return m.Username
}

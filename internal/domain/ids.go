// Package domain contains entity without logic, just meta-data
package domain

type (
	GuildID   string
	ChannelID string
	MemberID  string
	MessageID string
)

type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelVoice
	ChannelCategory
)

// Channel is a read-only snapshot of a remote channel at query time.
type Channel struct {
	ID         ChannelID
	GuildID    GuildID
	ParentID   ChannelID
	Kind       ChannelKind
	Name       string
	Topic      string
	UserLimit  int
	Occupants  []MemberID
	Overwrites []Overwrite
}

// ChannelPatch carries the mutable subset of a channel; nil means unchanged.
type ChannelPatch struct {
	Name      *string
	UserLimit *int
}

package domain

// PermissionSet is a bitset of channel permissions, wire-compatible with
// the remote gateway's flag values.
type PermissionSet uint64

const (
	PermManageChannel PermissionSet = 1 << 4
	PermViewChannel   PermissionSet = 1 << 10
	PermConnect       PermissionSet = 1 << 20
	PermMuteMembers   PermissionSet = 1 << 22
	PermDeafenMembers PermissionSet = 1 << 23
)

// OwnerGrant is the permission set that marks a member as the controlling
// owner of a dynamic room.
const OwnerGrant = PermMuteMembers | PermDeafenMembers | PermManageChannel

func (p PermissionSet) Has(flag PermissionSet) bool {
	return p&flag == flag
}

type SubjectKind int

const (
	SubjectRole SubjectKind = iota
	SubjectMember
)

// Overwrite is a per-subject permission override on a channel.
type Overwrite struct {
	SubjectID   string
	SubjectKind SubjectKind
	Allow       PermissionSet
	Deny        PermissionSet
}

// EveryoneRole is the default role subject for a guild. The remote system
// reuses the guild identifier as the id of its default role.
func EveryoneRole(guild GuildID) string {
	return string(guild)
}

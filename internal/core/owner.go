package core

import "github.com/dkeye/portald/internal/domain"

// ResolveOwner picks the controlling member of a dynamic room out of its
// overwrite list: the unique member-scoped entry allowing manage-channel.
// Zero or several such entries mean the room is ownerless; it is never
// auto-assigned. Pure, no remote calls.
func ResolveOwner(overwrites []domain.Overwrite) (domain.MemberID, bool) {
	var owner domain.MemberID
	found := false
	for _, ow := range overwrites {
		if ow.SubjectKind != domain.SubjectMember {
			continue
		}
		if !ow.Allow.Has(domain.PermManageChannel) {
			continue
		}
		if found {
			return "", false
		}
		owner = domain.MemberID(ow.SubjectID)
		found = true
	}
	return owner, found
}

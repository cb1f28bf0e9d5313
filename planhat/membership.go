package planhat

// Snapshot is one populated view of the source, with the membership relation
// derived once from user OrgIds. Organizations do not embed member lists; the
// index below is the only representation of the relation.
type Snapshot struct {
	Organizations []*Organization
	Users         []*User

	orgMembers map[string][]*User
	userOrgs   map[string][]string
}

func BuildSnapshot(source RecordSource) (snapshot *Snapshot, err error) {
	if err = source.Populate(); err != nil {
		return
	}
	snapshot = new(Snapshot)
	source.Organizations(func(org *Organization) {
		snapshot.Organizations = append(snapshot.Organizations, org)
	})
	source.Users(func(user *User) {
		snapshot.Users = append(snapshot.Users, user)
	})
	snapshot.deriveMembership()
	return
}

// OrgMembers returns the end users belonging to the organization, in source
// order.
func (s *Snapshot) OrgMembers(orgId string) []*User {
	return s.orgMembers[orgId]
}

// UserOrgs returns the organization ids the user belongs to, duplicates
// removed, input order kept. Ids without a known organization are retained;
// referential integrity is the source's concern, not ours.
func (s *Snapshot) UserOrgs(userId string) []string {
	return s.userOrgs[userId]
}

func (s *Snapshot) deriveMembership() {
	var known = NewSet[string]()
	for _, org := range s.Organizations {
		known.Add(org.Id)
	}

	s.orgMembers = make(map[string][]*User)
	s.userOrgs = make(map[string][]string)
	for _, user := range s.Users {
		var seen = NewSet[string]()
		for _, orgId := range user.OrgIds {
			if seen.Has(orgId) {
				continue
			}
			seen.Add(orgId)
			s.userOrgs[user.Id] = append(s.userOrgs[user.Id], orgId)
			if known.Has(orgId) {
				s.orgMembers[orgId] = append(s.orgMembers[orgId], user)
			}
		}
	}
}

package planhat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"
)

type googleWorkspaceSource struct {
	orgs           map[string]*Organization
	users          map[string]*User
	jwtCredentials []byte
	subject        string
	orgGroups      []string
	endpoint       string // overrides the directory endpoint, tests only
}

// NewGoogleWorkspaceSource creates a RecordSource backed by Google Workspace.
// The named groups become organizations and their members, with nested groups
// expanded, become end users.
// credentials: GCP service account JWT credentials
// subject: Google Workspace admin account
// orgGroups: group names or emails to sync as organizations
func NewGoogleWorkspaceSource(credentials []byte, subject string, orgGroups []string) RecordSource {
	return &googleWorkspaceSource{
		jwtCredentials: credentials,
		subject:        subject,
		orgGroups:      orgGroups,
	}
}

func (gs *googleWorkspaceSource) Organizations(cb func(*Organization)) {
	if gs.orgs != nil {
		for _, v := range gs.orgs {
			cb(v)
		}
	}
}

func (gs *googleWorkspaceSource) Users(cb func(*User)) {
	if gs.users != nil {
		for _, v := range gs.users {
			cb(v)
		}
	}
}

func (gs *googleWorkspaceSource) Populate() (err error) {
	var ctx = context.Background()
	var opts []option.ClientOption
	if len(gs.endpoint) > 0 {
		opts = append(opts, option.WithEndpoint(gs.endpoint), option.WithoutAuthentication())
	} else {
		params := google.CredentialsParams{
			Scopes: []string{admin.AdminDirectoryUserReadonlyScope,
				admin.AdminDirectoryGroupReadonlyScope, admin.AdminDirectoryGroupMemberReadonlyScope},
			Subject: gs.subject,
		}
		var cred *google.Credentials
		if cred, err = google.CredentialsFromJSONWithParams(ctx, gs.jwtCredentials, params); err != nil {
			err = fmt.Errorf("parse Google credentials: %w", err)
			return
		}
		opts = append(opts, option.WithCredentials(cred))
	}
	var directory *admin.Service
	if directory, err = admin.NewService(ctx, opts...); err != nil {
		return
	}

	var orgGroups = resolveGroupFilter(gs.orgGroups)
	if len(orgGroups) == 0 {
		err = errors.New("could not resolve the configured group list to any group")
		return
	}

	var populatedAt = time.Now().UnixMilli()
	var titler = cases.Title(language.Und)

	var users *admin.Users
	if users, err = directory.Users.List().Customer("my_customer").Do(); err != nil {
		err = fmt.Errorf("google directory API: query users: %w", err)
		return
	}
	var userLookup = make(map[string]*User)
	for _, u := range users.Users {
		var record = directoryUser(u, titler, populatedAt)
		userLookup[record.Id] = record
	}

	var groups *admin.Groups
	if groups, err = directory.Groups.List().Customer("my_customer").Do(); err != nil {
		err = fmt.Errorf("google directory API: query groups: %w", err)
		return
	}
	gs.orgs = make(map[string]*Organization)
	var groupLookup = make(map[string]*admin.Group)
	for _, g := range groups.Groups {
		groupLookup[g.Id] = g
		if orgGroups.Has(strings.ToLower(g.Email)) || orgGroups.Has(strings.ToLower(g.Name)) {
			gs.orgs[g.Id] = &Organization{
				Id:          g.Id,
				Name:        g.Name,
				Company:     g.Name,
				CompanySize: int(g.DirectMembersCount),
				CreatedAt:   populatedAt,
			}
		}
	}

	if len(gs.orgs) == 0 {
		err = errors.New("no Google Workspace groups could be resolved")
		return
	}

	var ok bool
	// expand embedded groups
	gs.users = make(map[string]*User)
	var membershipCache = make(map[string][]string)
	for orgId := range gs.orgs {
		var groupIds = []string{orgId}
		var queuedIds = MakeSet[string](groupIds)
		var pos = 0
		for pos < len(groupIds) {
			var gId = groupIds[pos]
			pos++

			var memberIds []string
			if memberIds, ok = membershipCache[gId]; !ok {
				var members *admin.Members
				if members, err = directory.Members.List(gId).Do(); err != nil {
					err = fmt.Errorf("google directory API: query members of \"%s\": %w", gId, err)
					return
				}
				for _, m := range members.Members {
					memberIds = append(memberIds, m.Id)
				}
				membershipCache[gId] = memberIds
			}
			var u *User
			for _, mId := range memberIds {
				if u, ok = userLookup[mId]; ok {
					u.OrgIds = append(u.OrgIds, orgId)
					if _, ok = gs.users[u.Id]; !ok {
						gs.users[u.Id] = u
					}
				} else if g, found := groupLookup[mId]; found {
					if !queuedIds.Has(g.Id) {
						groupIds = append(groupIds, g.Id)
						queuedIds.Add(g.Id)
					}
				}
			}
		}
	}

	return
}

// resolveGroupFilter flattens the configured group entries (each possibly a
// newline or comma separated list) into a lowercase lookup set.
func resolveGroupFilter(entries []string) Set[string] {
	var groups = NewSet[string]()
	for _, x := range entries {
		x = strings.TrimSpace(x)
		if len(x) == 0 {
			continue
		}
		for _, y := range strings.Split(x, "\n") {
			y = strings.TrimSpace(y)
			if len(y) == 0 {
				continue
			}
			for _, z := range strings.Split(y, ",") {
				z = strings.TrimSpace(z)
				if len(z) == 0 {
					continue
				}
				groups.Add(strings.ToLower(z))
			}
		}
	}
	return groups
}

func directoryUser(u *admin.User, titler cases.Caser, populatedAt int64) *User {
	var record = &User{
		Id:        u.Id,
		Email:     u.PrimaryEmail,
		CreatedAt: millisFromRfc3339(u.CreationTime),
	}
	record.LastActiveAt = millisFromRfc3339(u.LastLoginTime)
	if record.LastActiveAt == 0 {
		record.LastActiveAt = record.CreatedAt
	}
	// the directory has no email-validation timestamp; account creation is
	// the closest signal
	record.EmailValidatedAt = record.CreatedAt
	if u.Suspended {
		record.DeletedAt = populatedAt
	}

	if u.Name != nil {
		record.FirstName = u.Name.GivenName
		record.LastName = u.Name.FamilyName
	}
	if len(record.FirstName) == 0 && len(record.LastName) == 0 {
		record.FirstName, record.LastName = namesFromEmail(u.PrimaryEmail, titler)
	}

	record.Position, _ = firstFieldValue(u.Organizations, "title")
	record.Phone, _ = firstFieldValue(u.Phones, "value")
	record.Country, _ = firstFieldValue(u.Addresses, "countryCode")
	record.BrowserLanguage, _ = firstFieldValue(u.Languages, "languageCode")
	return record
}

// namesFromEmail derives a displayable first/last name pair from the mailbox
// local part when the directory entry carries none.
func namesFromEmail(email string, titler cases.Caser) (firstName string, lastName string) {
	var local, _, _ = strings.Cut(email, "@")
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	var parts = strings.Fields(titler.String(local))
	if len(parts) == 0 {
		return
	}
	firstName = parts[0]
	lastName = strings.Join(parts[1:], " ")
	return
}

func millisFromRfc3339(value string) int64 {
	if len(value) == 0 {
		return 0
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UnixMilli()
	}
	return 0
}

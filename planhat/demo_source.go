package planhat

import (
	"fmt"

	"github.com/google/uuid"
)

const demoTimestamp = 1712676376086

// DemoSource generates a deterministic synthetic snapshot: every user is a
// member of every organization, ids follow a fixed convention so repeated
// runs upsert the same remote entities.
type DemoSource struct {
	SnapshotId string
	orgs       []*Organization
	users      []*User
}

func NewDemoSource(orgCount int, userCount int) *DemoSource {
	if orgCount < 1 {
		orgCount = 1
	}
	if userCount < 0 {
		userCount = 0
	}
	var ds = &DemoSource{SnapshotId: uuid.NewString()}

	var orgIds []string
	for i := 0; i < orgCount; i++ {
		orgIds = append(orgIds, fmt.Sprintf("%d-9876543210", i+1))
	}

	for i := 0; i < userCount; i++ {
		ds.users = append(ds.users, &User{
			Id:               fmt.Sprintf("0123456789-%d", i),
			Email:            fmt.Sprintf("test-email-%d@gmail.com", i),
			FirstName:        "firstName",
			LastName:         "lastName",
			Position:         "developer",
			Phone:            "+0123456789",
			Country:          "FR",
			BrowserLanguage:  "fr-FR",
			LastActiveAt:     demoTimestamp,
			EmailValidatedAt: demoTimestamp,
			CreatedAt:        demoTimestamp,
			OrgIds:           append([]string(nil), orgIds...),
		})
	}
	for i, orgId := range orgIds {
		ds.orgs = append(ds.orgs, &Organization{
			Id:          orgId,
			Name:        fmt.Sprintf("%d Super Org", i+1),
			Country:     "FR",
			City:        "Marseille",
			Zip:         "13000",
			Address:     "20 rue de Paris",
			Company:     "My Company",
			CompanySize: 100,
			CreatedAt:   demoTimestamp,
		})
	}
	return ds
}

func (ds *DemoSource) Populate() error {
	return nil
}

func (ds *DemoSource) Organizations(cb func(*Organization)) {
	for _, org := range ds.orgs {
		cb(org)
	}
}

func (ds *DemoSource) Users(cb func(*User)) {
	for _, user := range ds.users {
		cb(user)
	}
}

// TouchUsers varies every user's first name, modeling records changing
// between sync passes.
func (ds *DemoSource) TouchUsers() {
	for _, user := range ds.users {
		user.FirstName = "firstName-" + uuid.NewString()[:8]
	}
}

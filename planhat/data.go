package planhat

import "context"

// RecordSource supplies the organizations and end users to synchronize.
// Populate must be called before enumeration.
type RecordSource interface {
	Organizations(func(*Organization))
	Users(func(*User))
	Populate() error
}

// Submitter is the bulk upsert surface of the Planhat API. One call carries
// one batch; matching on externalId is delegated to the remote side.
type Submitter interface {
	BulkUpsertCompanies(ctx context.Context, payloads []CompanyPayload) error
	BulkUpsertEndUsers(ctx context.Context, payloads []EndUserPayload) error
}

// Organization timestamps are epoch milliseconds. DeletedAt is zero while the
// organization is live, otherwise at least CreatedAt.
type Organization struct {
	Id          string
	Name        string
	Country     string
	City        string
	Zip         string
	Address     string
	Company     string
	CompanySize int
	CreatedAt   int64
	DeletedAt   int64
}

// User timestamps are epoch milliseconds. OrgIds carries the membership
// relation; duplicates are discarded when a snapshot is built.
type User struct {
	Id               string
	Email            string
	FirstName        string
	LastName         string
	Position         string
	Phone            string
	Country          string
	BrowserLanguage  string
	LastActiveAt     int64
	EmailValidatedAt int64
	CreatedAt        int64
	DeletedAt        int64
	OrgIds           []string
}

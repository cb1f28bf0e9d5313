package planhat

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Sync drives upserts from a record source into a submitter. Per-entity
// failures are recorded in the report and logged, never propagated; one
// entity's failure must not abort the rest of the run.
type Sync struct {
	source    RecordSource
	submitter Submitter
	report    *SyncReport
}

func NewSync(source RecordSource, submitter Submitter) *Sync {
	return &Sync{
		source:    source,
		submitter: submitter,
		report:    newSyncReport(),
	}
}

// UpsertOrganization submits the organization as a singleton company batch.
func (s *Sync) UpsertOrganization(ctx context.Context, org *Organization) {
	var payload = MapOrganization(org)
	if err := s.submitter.BulkUpsertCompanies(ctx, []CompanyPayload{payload}); err != nil {
		log.Error().Err(err).Str("org", org.Id).Msg("upsert organization")
		s.report.companyFailure(org.Id, err)
		return
	}
	s.report.companySuccess(org.Id)
}

// UpsertUserAcrossOrganizations fans the user out over every given
// organization id and submits the result as one end-user batch, input order
// preserved. Deduplication of orgIds is the caller's guarantee.
func (s *Sync) UpsertUserAcrossOrganizations(ctx context.Context, user *User, orgIds []string) {
	var payloads = make([]EndUserPayload, 0, len(orgIds))
	for _, orgId := range orgIds {
		payloads = append(payloads, MapUser(user, orgId))
	}
	if err := s.submitter.BulkUpsertEndUsers(ctx, payloads); err != nil {
		log.Error().Err(err).Str("user", user.Id).Strs("orgs", orgIds).Msg("upsert user across orgs")
		s.report.endUserFailure(user.Id, err)
		return
	}
	s.report.endUserSuccess(user.Id)
}

// SyncOrganization submits the organization, then each of its members fanned
// out across the member's full org list. Submissions within the composite are
// sequential and ordered; a rejected company batch does not suppress the
// member upserts.
func (s *Sync) SyncOrganization(ctx context.Context, snapshot *Snapshot, org *Organization) {
	s.syncOrganization(ctx, snapshot, org, nil)
}

func (s *Sync) syncOrganization(ctx context.Context, snapshot *Snapshot, org *Organization, submitted *submittedSet) {
	s.UpsertOrganization(ctx, org)
	for _, user := range snapshot.OrgMembers(org.Id) {
		if submitted != nil && !submitted.add(user.Id) {
			continue
		}
		s.UpsertUserAcrossOrganizations(ctx, user, snapshot.UserOrgs(user.Id))
	}
}

// Report returns the run report accumulated so far.
func (s *Sync) Report() *SyncReport {
	return s.report
}

// Run populates the source and performs the given number of passes. Within a
// pass every organization is synced concurrently and joined before the pass
// ends; a user's fan-out batch is submitted once per pass, no matter how many
// of its organizations are visited. The returned error covers source
// population only; submission outcomes live in the report.
func (s *Sync) Run(ctx context.Context, passes int) (report *SyncReport, err error) {
	var snapshot *Snapshot
	if snapshot, err = BuildSnapshot(s.source); err != nil {
		return
	}
	if passes < 1 {
		passes = 1
	}
	for pass := 0; pass < passes; pass++ {
		var submitted = newSubmittedSet()
		var wg sync.WaitGroup
		for _, org := range snapshot.Organizations {
			wg.Add(1)
			go func(org *Organization) {
				defer wg.Done()
				s.syncOrganization(ctx, snapshot, org, submitted)
			}(org)
		}
		wg.Wait()
	}
	report = s.report
	return
}

// submittedSet tracks which users were already batched during one pass.
// Concurrent org syncs share one instance.
type submittedSet struct {
	mu  sync.Mutex
	ids Set[string]
}

func newSubmittedSet() *submittedSet {
	return &submittedSet{ids: NewSet[string]()}
}

// add reports whether the id was newly added.
func (ss *submittedSet) add(id string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.ids.Has(id) {
		return false
	}
	ss.ids.Add(id)
	return true
}

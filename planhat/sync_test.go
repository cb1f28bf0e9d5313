package planhat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubSource struct {
	orgs  []*Organization
	users []*User
	err   error
}

func (ss *stubSource) Populate() error {
	return ss.err
}

func (ss *stubSource) Organizations(cb func(*Organization)) {
	for _, org := range ss.orgs {
		cb(org)
	}
}

func (ss *stubSource) Users(cb func(*User)) {
	for _, user := range ss.users {
		cb(user)
	}
}

type mockSubmitter struct {
	mu             sync.Mutex
	calls          []string
	companyBatches [][]CompanyPayload
	endUserBatches [][]EndUserPayload
	companyErr     error
	endUserErr     error
}

func (m *mockSubmitter) BulkUpsertCompanies(_ context.Context, payloads []CompanyPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "companies")
	m.companyBatches = append(m.companyBatches, payloads)
	return m.companyErr
}

func (m *mockSubmitter) BulkUpsertEndUsers(_ context.Context, payloads []EndUserPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "endusers")
	m.endUserBatches = append(m.endUserBatches, payloads)
	return m.endUserErr
}

func TestUpsertOrganizationSingletonBatch(t *testing.T) {
	submitter := &mockSubmitter{}
	s := NewSync(&stubSource{}, submitter)

	s.UpsertOrganization(context.Background(), testOrganization())

	require.Len(t, submitter.companyBatches, 1)
	require.Len(t, submitter.companyBatches[0], 1)
	require.Equal(t, "1-9876543210", submitter.companyBatches[0][0].ExternalId)
	require.Equal(t, []string{"1-9876543210"}, s.Report().SuccessCompanies)
}

func TestUpsertUserAcrossOrganizationsFanOut(t *testing.T) {
	submitter := &mockSubmitter{}
	s := NewSync(&stubSource{}, submitter)

	orgIds := []string{"a", "b", "c"}
	s.UpsertUserAcrossOrganizations(context.Background(), testUser(), orgIds)

	require.Len(t, submitter.endUserBatches, 1)
	batch := submitter.endUserBatches[0]
	require.Len(t, batch, len(orgIds))
	for i, payload := range batch {
		require.Equal(t, "extid-"+orgIds[i], payload.CompanyId)
		require.Equal(t, "0123456789-0", payload.ExternalId)
	}
}

func TestSyncOrganizationEndToEnd(t *testing.T) {
	source := &stubSource{
		orgs:  []*Organization{testOrganization()},
		users: []*User{testUser()},
	}
	snapshot, err := BuildSnapshot(source)
	require.NoError(t, err)

	submitter := &mockSubmitter{}
	s := NewSync(source, submitter)
	s.SyncOrganization(context.Background(), snapshot, source.orgs[0])

	require.Equal(t, []string{"companies", "endusers"}, submitter.calls)

	require.Len(t, submitter.companyBatches, 1)
	require.Len(t, submitter.companyBatches[0], 1)
	require.Equal(t, "1-9876543210", submitter.companyBatches[0][0].ExternalId)

	require.Len(t, submitter.endUserBatches, 1)
	batch := submitter.endUserBatches[0]
	require.Len(t, batch, 2)
	require.Equal(t, "extid-1-9876543210", batch[0].CompanyId)
	require.Equal(t, "extid-2-9876543210", batch[1].CompanyId)
	require.Equal(t, "0123456789-0", batch[0].ExternalId)
	require.Equal(t, "0123456789-0", batch[1].ExternalId)
}

func TestSyncOrganizationFailureIsolation(t *testing.T) {
	source := &stubSource{
		orgs:  []*Organization{testOrganization()},
		users: []*User{testUser()},
	}
	snapshot, err := BuildSnapshot(source)
	require.NoError(t, err)

	submitter := &mockSubmitter{companyErr: errors.New("quota exceeded")}
	s := NewSync(source, submitter)
	s.SyncOrganization(context.Background(), snapshot, source.orgs[0])

	// the rejected company batch must not suppress the member upserts
	require.Len(t, submitter.endUserBatches, 1)

	report := s.Report()
	require.Len(t, report.FailedCompanies, 1)
	require.Equal(t, "1-9876543210", report.FailedCompanies[0].ExternalId)
	require.ErrorContains(t, report.FailedCompanies[0].Err, "quota exceeded")
	require.Equal(t, []string{"0123456789-0"}, report.SuccessEndUsers)
}

func TestEndUserFailureRecorded(t *testing.T) {
	source := &stubSource{
		orgs:  []*Organization{testOrganization()},
		users: []*User{testUser()},
	}
	submitter := &mockSubmitter{endUserErr: errors.New("rate limited")}
	s := NewSync(source, submitter)

	report, err := s.Run(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, []string{"1-9876543210"}, report.SuccessCompanies)
	require.Len(t, report.FailedEndUsers, 1)
	require.Equal(t, "0123456789-0", report.FailedEndUsers[0].ExternalId)
	require.ErrorContains(t, report.FailedEndUsers[0].Err, "rate limited")
}

func TestRepeatedSubmissionIsIdempotent(t *testing.T) {
	source := &stubSource{
		orgs:  []*Organization{testOrganization()},
		users: []*User{testUser()},
	}
	snapshot, err := BuildSnapshot(source)
	require.NoError(t, err)

	submitter := &mockSubmitter{}
	s := NewSync(source, submitter)
	s.SyncOrganization(context.Background(), snapshot, source.orgs[0])
	s.SyncOrganization(context.Background(), snapshot, source.orgs[0])

	// identical payloads each time; the remote side matches on externalId
	require.Len(t, submitter.companyBatches, 2)
	require.Equal(t, submitter.companyBatches[0], submitter.companyBatches[1])
	require.Len(t, submitter.endUserBatches, 2)
	require.Equal(t, submitter.endUserBatches[0], submitter.endUserBatches[1])
}

func TestRunDedupsUsersWithinPass(t *testing.T) {
	submitter := &mockSubmitter{}
	s := NewSync(NewDemoSource(4, 3), submitter)

	report, err := s.Run(context.Background(), 1)
	require.NoError(t, err)

	// every org upserted, every user batched exactly once despite being a
	// member of all four orgs
	require.Len(t, submitter.companyBatches, 4)
	require.Len(t, submitter.endUserBatches, 3)
	for _, batch := range submitter.endUserBatches {
		require.Len(t, batch, 4)
	}
	require.Len(t, report.SuccessCompanies, 4)
	require.Len(t, report.SuccessEndUsers, 3)
}

func TestRunMultiplePasses(t *testing.T) {
	submitter := &mockSubmitter{}
	s := NewSync(NewDemoSource(2, 2), submitter)

	_, err := s.Run(context.Background(), 3)
	require.NoError(t, err)

	require.Len(t, submitter.companyBatches, 6)
	require.Len(t, submitter.endUserBatches, 6)
}

func TestRunSourceFailure(t *testing.T) {
	submitter := &mockSubmitter{}
	s := NewSync(&stubSource{err: errors.New("directory unavailable")}, submitter)

	_, err := s.Run(context.Background(), 1)
	require.ErrorContains(t, err, "directory unavailable")
	require.Empty(t, submitter.calls)
}

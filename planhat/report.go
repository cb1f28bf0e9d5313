package planhat

import (
	"sync"

	"github.com/google/uuid"
)

type Failure struct {
	ExternalId string
	Err        error
}

// SyncReport collects per-entity outcomes of one run. Recording is safe for
// concurrent use; readers should wait for the run to finish.
type SyncReport struct {
	RunId string

	mu               sync.Mutex
	SuccessCompanies []string
	FailedCompanies  []Failure
	SuccessEndUsers  []string
	FailedEndUsers   []Failure
}

func newSyncReport() *SyncReport {
	return &SyncReport{RunId: uuid.NewString()}
}

func (r *SyncReport) companySuccess(externalId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SuccessCompanies = append(r.SuccessCompanies, externalId)
}

func (r *SyncReport) companyFailure(externalId string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FailedCompanies = append(r.FailedCompanies, Failure{ExternalId: externalId, Err: err})
}

func (r *SyncReport) endUserSuccess(externalId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SuccessEndUsers = append(r.SuccessEndUsers, externalId)
}

func (r *SyncReport) endUserFailure(externalId string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FailedEndUsers = append(r.FailedEndUsers, Failure{ExternalId: externalId, Err: err})
}

package escrow

import (
	"math/big"
	"sync"

	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
	"github.com/ethereum/go-ethereum/common"
)

// Store is the replica the escrow engine mutates. Only the engine writes
// jobs and disputes, read paths get clones.
type Store interface {
	PutJob(job *Job)
	GetJob(id string) (*Job, bool)
	Jobs() []*Job

	PutDispute(dispute *Dispute)
	GetDispute(id string) (*Dispute, bool)
	OpenDispute(jobID string, index uint64) (*Dispute, bool)
	Disputes() []*Dispute

	PutVerifier(verifier *Verifier)
	GetVerifier(addr common.Address) (*Verifier, bool)
	Verifiers() []*Verifier

	Credit(addr common.Address, amount *big.Int)
	Balance(addr common.Address) *big.Int
}

// MemoryStore keeps the replica in process memory. The replica is derived
// solely from ledger events, so it is rebuilt from the checkpoint on restart.
type MemoryStore struct {
	jobs      *lib.Collection[*Job]
	disputes  *lib.Collection[*Dispute]
	verifiers *lib.Collection[*Verifier]

	mu       sync.RWMutex
	balances map[common.Address]*big.Int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:      lib.NewCollection[*Job](),
		disputes:  lib.NewCollection[*Dispute](),
		verifiers: lib.NewCollection[*Verifier](),
		balances:  make(map[common.Address]*big.Int),
	}
}

func (s *MemoryStore) PutJob(job *Job) {
	s.jobs.Store(job.ID, job.Clone())
}

func (s *MemoryStore) GetJob(id string) (*Job, bool) {
	job, ok := s.jobs.Load(id)
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

func (s *MemoryStore) Jobs() []*Job {
	var jobs []*Job
	s.jobs.Range(func(job *Job) bool {
		jobs = append(jobs, job.Clone())
		return true
	})
	return jobs
}

func (s *MemoryStore) PutDispute(dispute *Dispute) {
	s.disputes.Store(dispute.ID, dispute.Clone())
}

func (s *MemoryStore) GetDispute(id string) (*Dispute, bool) {
	dispute, ok := s.disputes.Load(id)
	if !ok {
		return nil, false
	}
	return dispute.Clone(), true
}

// OpenDispute returns the unresolved dispute for the milestone, if any.
// At most one can exist, the engine enforces that on raise.
func (s *MemoryStore) OpenDispute(jobID string, index uint64) (*Dispute, bool) {
	var found *Dispute
	s.disputes.Range(func(d *Dispute) bool {
		if d.JobID == jobID && d.MilestoneIndex == index && d.Open() {
			found = d.Clone()
			return false
		}
		return true
	})
	return found, found != nil
}

func (s *MemoryStore) Disputes() []*Dispute {
	var disputes []*Dispute
	s.disputes.Range(func(d *Dispute) bool {
		disputes = append(disputes, d.Clone())
		return true
	})
	return disputes
}

func (s *MemoryStore) PutVerifier(verifier *Verifier) {
	s.verifiers.Store(verifier.Address.Hex(), verifier.Clone())
}

func (s *MemoryStore) GetVerifier(addr common.Address) (*Verifier, bool) {
	verifier, ok := s.verifiers.Load(addr.Hex())
	if !ok {
		return nil, false
	}
	return verifier.Clone(), true
}

func (s *MemoryStore) Verifiers() []*Verifier {
	var verifiers []*Verifier
	s.verifiers.Range(func(v *Verifier) bool {
		verifiers = append(verifiers, v.Clone())
		return true
	})
	return verifiers
}

// Credit adds to the payout ledger of an address. Refunds and payouts are
// accumulated here so read paths and tests can observe money movement.
func (s *MemoryStore) Credit(addr common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[addr]
	if !ok {
		balance = big.NewInt(0)
		s.balances[addr] = balance
	}
	balance.Add(balance, amount)
}

func (s *MemoryStore) Balance(addr common.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[addr]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(balance)
}

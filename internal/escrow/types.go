package escrow

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type JobStatus string

const (
	JobStatusCreated    JobStatus = "created"
	JobStatusFunded     JobStatus = "funded"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusDisputed   JobStatus = "disputed"
	JobStatusCancelled  JobStatus = "cancelled"
)

type MilestoneStatus string

const (
	MilestoneStatusCreated      MilestoneStatus = "created"
	MilestoneStatusStarted      MilestoneStatus = "started"
	MilestoneStatusSubmitted    MilestoneStatus = "submitted"
	MilestoneStatusDisputed     MilestoneStatus = "disputed"
	MilestoneStatusAutoVerified MilestoneStatus = "auto_verified"
	MilestoneStatusApproved     MilestoneStatus = "approved"
	MilestoneStatusCompleted    MilestoneStatus = "completed"
	MilestoneStatusCancelled    MilestoneStatus = "cancelled"
)

// Terminal reports whether no further transitions are legal for the milestone
func (s MilestoneStatus) Terminal() bool {
	return s == MilestoneStatusCompleted || s == MilestoneStatusCancelled
}

// VerificationMethod values match the uint8 encoding of the ledger contract
type VerificationMethod uint8

const (
	VerificationClientOnly VerificationMethod = iota
	VerificationOracleOnly
	VerificationHybrid
	VerificationOffChain
)

// AllowsAutomation reports whether the milestone may complete without an
// explicit client approval
func (m VerificationMethod) AllowsAutomation() bool {
	return m != VerificationClientOnly
}

type DisputeStatus string

const (
	DisputeStatusRaised      DisputeStatus = "raised"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
)

type DisputeWinner string

const (
	DisputeWinnerClient     DisputeWinner = "client"
	DisputeWinnerFreelancer DisputeWinner = "freelancer"
)

// Quality score recorded on milestone completion. Human approvals get the
// full score, timer-based approvals a fixed automation default, verifier
// approvals the verifier's reputation.
const (
	qualityScoreFull       uint8 = 100
	qualityScoreAutomation uint8 = 80
)

type Job struct {
	ID             string
	Client         common.Address
	Freelancer     common.Address
	PaymentToken   common.Address
	TotalAmount    *big.Int
	FeeBps         uint32
	FundsDeposited bool
	Status         JobStatus
	CreatedAt      time.Time
	Milestones     []*Milestone
}

// Milestone returns the milestone with the given index, nil if out of range
func (j *Job) Milestone(index uint64) *Milestone {
	if j == nil || index >= uint64(len(j.Milestones)) {
		return nil
	}
	return j.Milestones[index]
}

// Clone returns a deep copy so read paths cannot mutate stored state
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j
	if j.TotalAmount != nil {
		clone.TotalAmount = new(big.Int).Set(j.TotalAmount)
	}
	clone.Milestones = make([]*Milestone, len(j.Milestones))
	for i, m := range j.Milestones {
		clone.Milestones[i] = m.Clone()
	}
	return &clone
}

type Milestone struct {
	JobID             string
	Index             uint64
	Amount            *big.Int
	Deadline          time.Time
	Method            VerificationMethod
	AutoApprovalDelay time.Duration
	Status            MilestoneStatus
	DeliverableRef    string
	SubmittedAt       *time.Time
	QualityScore      uint8
}

func (m *Milestone) Clone() *Milestone {
	if m == nil {
		return nil
	}
	clone := *m
	if m.Amount != nil {
		clone.Amount = new(big.Int).Set(m.Amount)
	}
	if m.SubmittedAt != nil {
		submittedAt := *m.SubmittedAt
		clone.SubmittedAt = &submittedAt
	}
	return &clone
}

// MilestoneSpec is the immutable definition a job is created with
type MilestoneSpec struct {
	Amount            *big.Int
	Deadline          time.Time
	Method            VerificationMethod
	AutoApprovalDelay time.Duration
}

type Dispute struct {
	ID             string
	JobID          string
	MilestoneIndex uint64
	Initiator      common.Address
	Reason         string
	EvidenceRef    string
	Status         DisputeStatus
	Resolution     string
	Winner         DisputeWinner
	RaisedAt       time.Time
	ResolvedAt     *time.Time
}

// Open reports whether the dispute still blocks its milestone
func (d *Dispute) Open() bool {
	return d != nil && d.Status != DisputeStatusResolved
}

func (d *Dispute) Clone() *Dispute {
	if d == nil {
		return nil
	}
	clone := *d
	if d.ResolvedAt != nil {
		resolvedAt := *d.ResolvedAt
		clone.ResolvedAt = &resolvedAt
	}
	return &clone
}

type Verifier struct {
	Address     common.Address
	DisplayName string
	Reputation  uint8
	Active      bool
}

func (v *Verifier) Clone() *Verifier {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

// MilestoneKey addresses a single milestone across jobs
type MilestoneKey struct {
	JobID string
	Index uint64
}

package ledger

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Event names as emitted by the escrow ledger contract
const (
	EventJobCreated         = "JobCreated"
	EventFundsDeposited     = "FundsDeposited"
	EventMilestoneStarted   = "MilestoneStarted"
	EventMilestoneSubmitted = "MilestoneSubmitted"
	EventMilestoneApproved  = "MilestoneApproved"
	EventDisputeRaised      = "DisputeRaised"
	EventDisputeResolved    = "DisputeResolved"
	EventFundsReleased      = "FundsReleased"
	EventJobCancelled       = "JobCancelled"
)

// escrowABIJSON is the event surface of the escrow ledger contract. The job
// identifier is always the first indexed topic so logs can be partitioned per
// job without decoding the data section.
const escrowABIJSON = `[
	{"type":"event","name":"JobCreated","inputs":[
		{"name":"jobId","type":"uint256","indexed":true},
		{"name":"client","type":"address","indexed":false},
		{"name":"freelancer","type":"address","indexed":false},
		{"name":"token","type":"address","indexed":false},
		{"name":"totalAmount","type":"uint256","indexed":false},
		{"name":"feeBps","type":"uint256","indexed":false},
		{"name":"amounts","type":"uint256[]","indexed":false},
		{"name":"deadlines","type":"uint64[]","indexed":false},
		{"name":"methods","type":"uint8[]","indexed":false},
		{"name":"autoDelays","type":"uint64[]","indexed":false}]},
	{"type":"event","name":"FundsDeposited","inputs":[
		{"name":"jobId","type":"uint256","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"MilestoneStarted","inputs":[
		{"name":"jobId","type":"uint256","indexed":true},
		{"name":"index","type":"uint64","indexed":false}]},
	{"type":"event","name":"MilestoneSubmitted","inputs":[
		{"name":"jobId","type":"uint256","indexed":true},
		{"name":"index","type":"uint64","indexed":false},
		{"name":"deliverable","type":"string","indexed":false}]},
	{"type":"event","name":"MilestoneApproved","inputs":[
		{"name":"jobId","type":"uint256","indexed":true},
		{"name":"index","type":"uint64","indexed":false},
		{"name":"auto","type":"bool","indexed":false}]},
	{"type":"event","name":"DisputeRaised","inputs":[
		{"name":"jobId","type":"uint256","indexed":true},
		{"name":"index","type":"uint64","indexed":false},
		{"name":"initiator","type":"address","indexed":false},
		{"name":"reason","type":"string","indexed":false},
		{"name":"evidence","type":"string","indexed":false}]},
	{"type":"event","name":"DisputeResolved","inputs":[
		{"name":"jobId","type":"uint256","indexed":true},
		{"name":"index","type":"uint64","indexed":false},
		{"name":"favorClient","type":"bool","indexed":false},
		{"name":"resolution","type":"string","indexed":false}]},
	{"type":"event","name":"FundsReleased","inputs":[
		{"name":"jobId","type":"uint256","indexed":true},
		{"name":"index","type":"uint64","indexed":false},
		{"name":"recipient","type":"address","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"JobCancelled","inputs":[
		{"name":"jobId","type":"uint256","indexed":true},
		{"name":"index","type":"uint64","indexed":false}]}
]`

// EscrowABI is exported so tests and fixtures can pack event payloads
var EscrowABI = mustParseABI(escrowABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// DomainEvent is a decoded escrow ledger log. Block/LogIdx define the total
// order of events within a job, TxID anchors de-duplication.
type DomainEvent interface {
	Name() string
	Job() string
	Block() uint64
	LogIdx() uint
	TxID() common.Hash
}

// EventBase carries the log coordinates shared by all decoded events
type EventBase struct {
	EventName   string
	JobID       string
	BlockNumber uint64
	LogIndex    uint
	TxHash      common.Hash
}

func (e EventBase) Name() string      { return e.EventName }
func (e EventBase) Job() string       { return e.JobID }
func (e EventBase) Block() uint64     { return e.BlockNumber }
func (e EventBase) LogIdx() uint      { return e.LogIndex }
func (e EventBase) TxID() common.Hash { return e.TxHash }

// MilestoneSpec mirrors the per-milestone arrays of the JobCreated event
type MilestoneSpec struct {
	Amount            *big.Int
	Deadline          int64
	Method            uint8
	AutoApprovalDelay int64
}

type JobCreatedEvent struct {
	EventBase
	Client      common.Address
	Freelancer  common.Address
	Token       common.Address
	TotalAmount *big.Int
	FeeBps      uint32
	Milestones  []MilestoneSpec
}

type FundsDepositedEvent struct {
	EventBase
	Amount *big.Int
}

type MilestoneStartedEvent struct {
	EventBase
	Index uint64
}

type MilestoneSubmittedEvent struct {
	EventBase
	Index       uint64
	Deliverable string
}

type MilestoneApprovedEvent struct {
	EventBase
	Index uint64
	Auto  bool
}

type DisputeRaisedEvent struct {
	EventBase
	Index     uint64
	Initiator common.Address
	Reason    string
	Evidence  string
}

type DisputeResolvedEvent struct {
	EventBase
	Index       uint64
	FavorClient bool
	Resolution  string
}

type FundsReleasedEvent struct {
	EventBase
	Index     uint64
	Recipient common.Address
	Amount    *big.Int
}

type JobCancelledEvent struct {
	EventBase
	Index uint64
}

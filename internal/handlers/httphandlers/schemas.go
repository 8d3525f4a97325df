package httphandlers

import (
	"time"

	"github.com/FireFistisDead/SmartPay-sub004/internal/escrow"
)

// Amounts are serialized as decimal strings, token units do not fit in
// JSON-safe numbers.

type Job struct {
	ID             string      `json:"id"`
	Client         string      `json:"client"`
	Freelancer     string      `json:"freelancer"`
	PaymentToken   string      `json:"paymentToken"`
	TotalAmount    string      `json:"totalAmount"`
	FeeBps         uint32      `json:"feeBps"`
	FundsDeposited bool        `json:"fundsDeposited"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	Milestones     []Milestone `json:"milestones"`
}

type Milestone struct {
	Index             uint64     `json:"index"`
	Amount            string     `json:"amount"`
	Deadline          time.Time  `json:"deadline"`
	Method            uint8      `json:"method"`
	AutoApprovalDelay string     `json:"autoApprovalDelay"`
	Status            string     `json:"status"`
	DeliverableRef    string     `json:"deliverableRef,omitempty"`
	SubmittedAt       *time.Time `json:"submittedAt,omitempty"`
	QualityScore      uint8      `json:"qualityScore,omitempty"`
}

type Dispute struct {
	ID             string     `json:"id"`
	JobID          string     `json:"jobId"`
	MilestoneIndex uint64     `json:"milestoneIndex"`
	Initiator      string     `json:"initiator"`
	Reason         string     `json:"reason"`
	EvidenceRef    string     `json:"evidenceRef,omitempty"`
	Status         string     `json:"status"`
	Resolution     string     `json:"resolution,omitempty"`
	Winner         string     `json:"winner,omitempty"`
	RaisedAt       time.Time  `json:"raisedAt"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
}

type Verifier struct {
	Address     string `json:"address"`
	DisplayName string `json:"displayName"`
	Reputation  uint8  `json:"reputation"`
	Active      bool   `json:"active"`
}

func mapJob(job *escrow.Job) Job {
	out := Job{
		ID:             job.ID,
		Client:         job.Client.Hex(),
		Freelancer:     job.Freelancer.Hex(),
		PaymentToken:   job.PaymentToken.Hex(),
		TotalAmount:    job.TotalAmount.String(),
		FeeBps:         job.FeeBps,
		FundsDeposited: job.FundsDeposited,
		Status:         string(job.Status),
		CreatedAt:      job.CreatedAt,
		Milestones:     make([]Milestone, len(job.Milestones)),
	}
	for i, ms := range job.Milestones {
		out.Milestones[i] = mapMilestone(ms)
	}
	return out
}

func mapMilestone(ms *escrow.Milestone) Milestone {
	return Milestone{
		Index:             ms.Index,
		Amount:            ms.Amount.String(),
		Deadline:          ms.Deadline,
		Method:            uint8(ms.Method),
		AutoApprovalDelay: ms.AutoApprovalDelay.String(),
		Status:            string(ms.Status),
		DeliverableRef:    ms.DeliverableRef,
		SubmittedAt:       ms.SubmittedAt,
		QualityScore:      ms.QualityScore,
	}
}

func mapDispute(d *escrow.Dispute) Dispute {
	return Dispute{
		ID:             d.ID,
		JobID:          d.JobID,
		MilestoneIndex: d.MilestoneIndex,
		Initiator:      d.Initiator.Hex(),
		Reason:         d.Reason,
		EvidenceRef:    d.EvidenceRef,
		Status:         string(d.Status),
		Resolution:     d.Resolution,
		Winner:         string(d.Winner),
		RaisedAt:       d.RaisedAt,
		ResolvedAt:     d.ResolvedAt,
	}
}

func mapVerifier(v *escrow.Verifier) Verifier {
	return Verifier{
		Address:     v.Address.Hex(),
		DisplayName: v.DisplayName,
		Reputation:  v.Reputation,
		Active:      v.Active,
	}
}

package escrow

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/FireFistisDead/SmartPay-sub004/internal/repositories/ledger"
	"github.com/stretchr/testify/require"
)

func jobCreatedEvent(jobID string) *ledger.JobCreatedEvent {
	return &ledger.JobCreatedEvent{
		EventBase:   ledger.EventBase{EventName: ledger.EventJobCreated, JobID: jobID},
		Client:      testClient,
		Freelancer:  testFreelancer,
		Token:       testToken,
		TotalAmount: big.NewInt(500),
		FeeBps:      500,
		Milestones: []ledger.MilestoneSpec{{
			Amount:            big.NewInt(500),
			Deadline:          time.Now().Add(24 * time.Hour).Unix(),
			Method:            uint8(VerificationHybrid),
			AutoApprovalDelay: 3600,
		}},
	}
}

func base(jobID string) ledger.EventBase {
	return ledger.EventBase{JobID: jobID}
}

func TestApplyFullLifecycle(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, jobCreatedEvent("7")))
	require.NoError(t, engine.Apply(ctx, &ledger.FundsDepositedEvent{EventBase: base("7"), Amount: big.NewInt(525)}))
	require.NoError(t, engine.Apply(ctx, &ledger.MilestoneStartedEvent{EventBase: base("7"), Index: 0}))
	require.NoError(t, engine.Apply(ctx, &ledger.MilestoneSubmittedEvent{EventBase: base("7"), Index: 0, Deliverable: "bafyref"}))
	require.NoError(t, engine.Apply(ctx, &ledger.MilestoneApprovedEvent{EventBase: base("7"), Index: 0, Auto: false}))

	job, ok := store.GetJob("7")
	require.True(t, ok)
	require.Equal(t, JobStatusCompleted, job.Status)
	require.Equal(t, "bafyref", job.Milestones[0].DeliverableRef)
	require.Equal(t, time.Duration(3600)*time.Second, job.Milestones[0].AutoApprovalDelay)

	require.Equal(t, int64(475), store.Balance(testFreelancer).Int64())
	require.Equal(t, int64(25), store.Balance(testFeeRecipient).Int64())
}

func TestApplyAutoApproved(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, jobCreatedEvent("7")))
	require.NoError(t, engine.Apply(ctx, &ledger.FundsDepositedEvent{EventBase: base("7"), Amount: big.NewInt(525)}))
	require.NoError(t, engine.Apply(ctx, &ledger.MilestoneStartedEvent{EventBase: base("7"), Index: 0}))
	require.NoError(t, engine.Apply(ctx, &ledger.MilestoneSubmittedEvent{EventBase: base("7"), Index: 0, Deliverable: "r"}))
	require.NoError(t, engine.Apply(ctx, &ledger.MilestoneApprovedEvent{EventBase: base("7"), Index: 0, Auto: true}))

	job, _ := store.GetJob("7")
	require.Equal(t, uint8(80), job.Milestones[0].QualityScore, "ledger-confirmed auto approval uses the automation score")
}

func TestApplyDisputeFlow(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Apply(ctx, jobCreatedEvent("7")))
	require.NoError(t, engine.Apply(ctx, &ledger.FundsDepositedEvent{EventBase: base("7"), Amount: big.NewInt(525)}))
	require.NoError(t, engine.Apply(ctx, &ledger.MilestoneStartedEvent{EventBase: base("7"), Index: 0}))
	require.NoError(t, engine.Apply(ctx, &ledger.MilestoneSubmittedEvent{EventBase: base("7"), Index: 0, Deliverable: "r"}))
	require.NoError(t, engine.Apply(ctx, &ledger.DisputeRaisedEvent{EventBase: base("7"), Index: 0, Initiator: testClient, Reason: "bad work", Evidence: "bafyevidence"}))

	_, open := store.OpenDispute("7", 0)
	require.True(t, open)

	require.NoError(t, engine.Apply(ctx, &ledger.DisputeResolvedEvent{EventBase: base("7"), Index: 0, FavorClient: true, Resolution: "refund"}))

	require.Equal(t, int64(500), store.Balance(testClient).Int64())

	// resolving again finds no open dispute
	err := engine.Apply(ctx, &ledger.DisputeResolvedEvent{EventBase: base("7"), Index: 0, FavorClient: true, Resolution: "refund"})
	require.ErrorIs(t, err, ErrDisputeNotFound)
	require.True(t, IsValidationError(err))
}

func TestApplyValidationErrorsAreClassified(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	err := engine.Apply(ctx, &ledger.FundsDepositedEvent{EventBase: base("404"), Amount: big.NewInt(1)})
	require.ErrorIs(t, err, ErrJobNotFound)
	require.True(t, IsValidationError(err))

	err = engine.Apply(ctx, jobCreatedEvent("7"))
	require.NoError(t, err)
	err = engine.Apply(ctx, jobCreatedEvent("7"))
	require.ErrorIs(t, err, ErrJobExists)
	require.True(t, IsValidationError(err))
}

func TestApplyCancelledContext(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := engine.Apply(ctx, jobCreatedEvent("7"))
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, IsValidationError(err))
}

package escrow

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func autoApprovalJob(t *testing.T, engine *Engine, jobID string, method VerificationMethod, delay time.Duration) {
	t.Helper()
	specs := []MilestoneSpec{{
		Amount:            big.NewInt(500),
		Deadline:          time.Now().Add(30 * 24 * time.Hour),
		Method:            method,
		AutoApprovalDelay: delay,
	}}
	_, err := engine.CreateJob(jobID, testClient, testFreelancer, testToken, big.NewInt(500), 500, specs, time.Now())
	require.NoError(t, err)
	require.NoError(t, engine.DepositFunds(jobID, big.NewInt(525)))
	require.NoError(t, engine.StartMilestone(jobID, 0))
	require.NoError(t, engine.SubmitMilestone(jobID, 0, "ref"))
}

func TestAutoApprovalEligibilityWindow(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	submittedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine.SetNowFunc(func() time.Time { return submittedAt })

	autoApprovalJob(t, engine, "1", VerificationHybrid, time.Hour)

	deadline := submittedAt.Add(time.Hour)
	require.False(t, engine.IsEligibleForAutoApproval("1", 0, deadline.Add(-time.Nanosecond)), "not eligible the instant before")
	require.True(t, engine.IsEligibleForAutoApproval("1", 0, deadline), "eligible exactly at the deadline")
	require.True(t, engine.IsEligibleForAutoApproval("1", 0, deadline.Add(time.Minute)))
}

func TestAutoApprovalGating(t *testing.T) {
	t.Run("zero delay never eligible", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		autoApprovalJob(t, engine, "1", VerificationHybrid, 0)
		require.False(t, engine.IsEligibleForAutoApproval("1", 0, time.Now().Add(365*24*time.Hour)))
	})

	t.Run("client-only method never eligible", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		autoApprovalJob(t, engine, "1", VerificationClientOnly, time.Hour)
		require.False(t, engine.IsEligibleForAutoApproval("1", 0, time.Now().Add(2*time.Hour)))
	})

	t.Run("open dispute blocks eligibility permanently", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		autoApprovalJob(t, engine, "1", VerificationHybrid, time.Hour)

		_, err := engine.RaiseDispute("1", 0, testClient, "not acceptable", "")
		require.NoError(t, err)

		require.False(t, engine.IsEligibleForAutoApproval("1", 0, time.Now().Add(2*time.Hour)))
	})
}

func TestAutoApprove(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	submittedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine.SetNowFunc(func() time.Time { return submittedAt })
	autoApprovalJob(t, engine, "1", VerificationHybrid, time.Hour)

	t.Run("too early", func(t *testing.T) {
		err := engine.AutoApprove("1", 0, submittedAt.Add(30*time.Minute))
		require.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("pays out with automation quality score", func(t *testing.T) {
		require.NoError(t, engine.AutoApprove("1", 0, submittedAt.Add(2*time.Hour)))

		require.Equal(t, int64(475), store.Balance(testFreelancer).Int64())
		require.Equal(t, int64(25), store.Balance(testFeeRecipient).Int64())

		job, _ := store.GetJob("1")
		require.Equal(t, MilestoneStatusCompleted, job.Milestones[0].Status)
		require.Equal(t, uint8(80), job.Milestones[0].QualityScore)
	})

	t.Run("second approve is not eligible", func(t *testing.T) {
		err := engine.AutoApprove("1", 0, submittedAt.Add(3*time.Hour))
		require.ErrorIs(t, err, ErrNotEligible)
		require.Equal(t, int64(475), store.Balance(testFreelancer).Int64(), "no double payout")
	})
}

func TestAutoApproveBatchPartialFailure(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	submittedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine.SetNowFunc(func() time.Time { return submittedAt })

	autoApprovalJob(t, engine, "1", VerificationHybrid, time.Hour)
	autoApprovalJob(t, engine, "2", VerificationHybrid, time.Hour)
	// job 3 is client-only, never auto-approvable
	autoApprovalJob(t, engine, "3", VerificationClientOnly, time.Hour)

	keys := []MilestoneKey{
		{JobID: "1", Index: 0},
		{JobID: "2", Index: 0},
		{JobID: "3", Index: 0},
		{JobID: "missing", Index: 0},
	}
	outcomes := engine.AutoApproveBatch(context.Background(), keys, submittedAt.Add(2*time.Hour), 2)
	require.Len(t, outcomes, 4)

	require.NoError(t, outcomes[0].Err)
	require.NoError(t, outcomes[1].Err)
	require.ErrorIs(t, outcomes[2].Err, ErrNotEligible)
	require.ErrorIs(t, outcomes[3].Err, ErrJobNotFound)

	// both eligible milestones paid out despite failures in the same batch
	require.Equal(t, int64(950), store.Balance(testFreelancer).Int64())
}

func TestAutoApprovalCandidates(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	submittedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine.SetNowFunc(func() time.Time { return submittedAt })

	autoApprovalJob(t, engine, "1", VerificationHybrid, time.Hour)
	autoApprovalJob(t, engine, "2", VerificationClientOnly, time.Hour)

	keys := engine.AutoApprovalCandidates(submittedAt.Add(2 * time.Hour))
	require.Equal(t, []MilestoneKey{{JobID: "1", Index: 0}}, keys)

	require.Empty(t, engine.AutoApprovalCandidates(submittedAt.Add(time.Minute)))
}

func TestOffChainVerifierApprove(t *testing.T) {
	verifierAddr := testToken // any distinct address

	t.Run("active verifier completes milestone with its reputation", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		autoApprovalJob(t, engine, "1", VerificationOffChain, time.Hour)

		_, err := engine.AddVerifier(verifierAddr, "Acme QA", 92)
		require.NoError(t, err)

		require.NoError(t, engine.OffChainVerifierApprove("1", 0, verifierAddr))

		job, _ := store.GetJob("1")
		require.Equal(t, MilestoneStatusCompleted, job.Milestones[0].Status)
		require.Equal(t, uint8(92), job.Milestones[0].QualityScore)
		require.Equal(t, int64(475), store.Balance(testFreelancer).Int64())
	})

	t.Run("unknown verifier", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		autoApprovalJob(t, engine, "1", VerificationOffChain, time.Hour)

		err := engine.OffChainVerifierApprove("1", 0, verifierAddr)
		require.ErrorIs(t, err, ErrUnknownVerifier)
	})

	t.Run("deactivated verifier", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		autoApprovalJob(t, engine, "1", VerificationOffChain, time.Hour)

		_, err := engine.AddVerifier(verifierAddr, "Acme QA", 92)
		require.NoError(t, err)
		_, err = engine.UpdateVerifier(verifierAddr, false, 92)
		require.NoError(t, err)

		err = engine.OffChainVerifierApprove("1", 0, verifierAddr)
		require.ErrorIs(t, err, ErrVerifierInactive)
	})

	t.Run("client-only milestone rejects verifier path", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		autoApprovalJob(t, engine, "1", VerificationClientOnly, time.Hour)

		_, err := engine.AddVerifier(verifierAddr, "Acme QA", 92)
		require.NoError(t, err)

		err = engine.OffChainVerifierApprove("1", 0, verifierAddr)
		require.ErrorIs(t, err, ErrVerificationMethod)
	})
}

func TestVerifierRegistry(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	verifier, err := engine.AddVerifier(testToken, "Acme QA", 50)
	require.NoError(t, err)
	require.True(t, verifier.Active)

	_, err = engine.AddVerifier(testToken, "Acme QA", 50)
	require.ErrorIs(t, err, ErrInvalidSpec, "re-registration rejected")

	_, err = engine.AddVerifier(testClient, "Shady QA", 101)
	require.ErrorIs(t, err, ErrInvalidSpec, "reputation out of range")

	updated, err := engine.UpdateVerifier(testToken, false, 75)
	require.NoError(t, err)
	require.False(t, updated.Active)
	require.Equal(t, uint8(75), updated.Reputation)

	_, err = engine.UpdateVerifier(testFreelancer, true, 10)
	require.ErrorIs(t, err, ErrUnknownVerifier)

	require.Len(t, engine.Verifiers(), 1)
}

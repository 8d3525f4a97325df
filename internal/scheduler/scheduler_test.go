package scheduler

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/FireFistisDead/SmartPay-sub004/internal/escrow"
	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
)

var (
	schedClient       = common.HexToAddress("0x0000000000000000000000000000000000000011")
	schedFreelancer   = common.HexToAddress("0x0000000000000000000000000000000000000022")
	schedToken        = common.HexToAddress("0x0000000000000000000000000000000000000033")
	schedFeeRecipient = common.HexToAddress("0x0000000000000000000000000000000000000044")
)

func submittedJob(t *testing.T, engine *escrow.Engine, jobID string, method escrow.VerificationMethod, delay time.Duration) {
	t.Helper()
	specs := []escrow.MilestoneSpec{{
		Amount:            big.NewInt(500),
		Deadline:          time.Now().Add(30 * 24 * time.Hour),
		Method:            method,
		AutoApprovalDelay: delay,
	}}
	_, err := engine.CreateJob(jobID, schedClient, schedFreelancer, schedToken, big.NewInt(500), 500, specs, time.Now())
	require.NoError(t, err)
	require.NoError(t, engine.DepositFunds(jobID, big.NewInt(525)))
	require.NoError(t, engine.StartMilestone(jobID, 0))
	require.NoError(t, engine.SubmitMilestone(jobID, 0, "ref"))
}

func TestSweep(t *testing.T) {
	store := escrow.NewMemoryStore()
	log := lib.NewTestLogger()
	engine := escrow.NewEngine(store, escrow.NewLogSink(log), schedFeeRecipient, log)

	submittedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine.SetNowFunc(func() time.Time { return submittedAt })

	submittedJob(t, engine, "1", escrow.VerificationHybrid, time.Hour)
	submittedJob(t, engine, "2", escrow.VerificationHybrid, time.Hour)
	submittedJob(t, engine, "3", escrow.VerificationClientOnly, time.Hour)

	scheduler := NewAutoApprovalScheduler(engine, time.Minute, 2, log)

	t.Run("before the window nothing approves", func(t *testing.T) {
		scheduler.SetNowFunc(func() time.Time { return submittedAt.Add(time.Minute) })
		require.Equal(t, 0, scheduler.Sweep(context.Background()))
	})

	t.Run("after the window eligible milestones approve", func(t *testing.T) {
		scheduler.SetNowFunc(func() time.Time { return submittedAt.Add(2 * time.Hour) })
		require.Equal(t, 2, scheduler.Sweep(context.Background()))

		require.Equal(t, int64(950), store.Balance(schedFreelancer).Int64())

		job, _ := store.GetJob("3")
		require.Equal(t, escrow.MilestoneStatusSubmitted, job.Milestones[0].Status,
			"client-only milestones stay untouched")
	})

	t.Run("a second sweep finds nothing", func(t *testing.T) {
		require.Equal(t, 0, scheduler.Sweep(context.Background()))
		require.Equal(t, int64(950), store.Balance(schedFreelancer).Int64())
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	store := escrow.NewMemoryStore()
	log := lib.NewTestLogger()
	engine := escrow.NewEngine(store, escrow.NewLogSink(log), schedFeeRecipient, log)
	scheduler := NewAutoApprovalScheduler(engine, time.Millisecond, 1, log)

	task := lib.NewTask(scheduler, "auto-approval")
	task.Start(context.Background())
	time.Sleep(20 * time.Millisecond)

	select {
	case <-task.Stop():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

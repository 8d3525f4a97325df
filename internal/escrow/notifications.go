package escrow

import (
	"time"

	"github.com/FireFistisDead/SmartPay-sub004/internal/interfaces"
	"github.com/google/uuid"
)

// Notification is the side-effect record emitted per applied state transition
type Notification struct {
	ID             string    `json:"id"`
	JobID          string    `json:"jobId"`
	MilestoneIndex *uint64   `json:"milestoneIndex,omitempty"`
	EventName      string    `json:"eventName"`
	Timestamp      time.Time `json:"timestamp"`
}

// NotificationSink consumes transition notifications. Delivery is
// fire-and-forget: implementations must not block and their failures
// never roll back the state mutation that produced the notification.
type NotificationSink interface {
	Notify(n Notification)
}

func newNotification(jobID string, milestoneIndex *uint64, eventName string, ts time.Time) Notification {
	return Notification{
		ID:             uuid.NewString(),
		JobID:          jobID,
		MilestoneIndex: milestoneIndex,
		EventName:      eventName,
		Timestamp:      ts,
	}
}

// LogSink writes notifications to the log, used when no external
// notification transport is configured
type LogSink struct {
	log interfaces.ILogger
}

func NewLogSink(log interfaces.ILogger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(n Notification) {
	s.log.Infow("notification", "event", n.EventName, "job", n.JobID, "milestone", n.MilestoneIndex)
}

package syncer

import (
	"sort"

	"github.com/gammazero/deque"

	"github.com/FireFistisDead/SmartPay-sub004/internal/repositories/ledger"
)

// stage buffers one batch of decoded events grouped per job. Events within a
// job drain strictly by (block, logIndex), jobs drain in first-seen order so
// replays of the same batch visit events identically.
type stage struct {
	order  []string
	queues map[string]*deque.Deque[ledger.DomainEvent]
}

func newStage(events []ledger.DomainEvent) *stage {
	sorted := make([]ledger.DomainEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Block() != sorted[j].Block() {
			return sorted[i].Block() < sorted[j].Block()
		}
		return sorted[i].LogIdx() < sorted[j].LogIdx()
	})

	s := &stage{queues: make(map[string]*deque.Deque[ledger.DomainEvent])}
	for _, ev := range sorted {
		q, ok := s.queues[ev.Job()]
		if !ok {
			q = &deque.Deque[ledger.DomainEvent]{}
			s.queues[ev.Job()] = q
			s.order = append(s.order, ev.Job())
		}
		q.PushBack(ev)
	}
	return s
}

// jobs returns the staged job ids in first-seen order
func (s *stage) jobs() []string {
	return s.order
}

// next pops the oldest staged event for the job, nil when drained
func (s *stage) next(jobID string) ledger.DomainEvent {
	q, ok := s.queues[jobID]
	if !ok || q.Len() == 0 {
		return nil
	}
	return q.PopFront()
}

// pending counts staged events across all jobs
func (s *stage) pending() int {
	n := 0
	for _, q := range s.queues {
		n += q.Len()
	}
	return n
}

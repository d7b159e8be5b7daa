// Package msgq implements System V message queues: msgget/msgsnd/msgrcv
// with the type-filter semantics spec.md §4.5 describes. Grounded on the
// same wait-queue/table shapes as internal/ipc/sem and internal/ipc/shm;
// the type-filter scan itself is spec-original.
package msgq

import (
	"sync"
	"time"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/ipc"
	"github.com/mentos-team/mentos-kernel/internal/sched"
)

// MsgNoError lets msgrcv truncate an over-long message instead of
// failing.
const MsgNoError = 1

// Message is one queued message: a non-zero type tag plus its payload.
type Message struct {
	Type    int64
	Payload []byte
}

// Queue is one message queue: a FIFO of pending messages bounded by byte
// and message-count caps, plus sender/receiver bookkeeping.
type Queue struct {
	mu   sync.Mutex
	perm ipc.Perm

	messages []Message
	bytes    int

	maxBytes int
	maxMsgs  int

	lastSendPid defs.Pid_t
	lastSendAt  time.Time
	lastRecvPid defs.Pid_t
	lastRecvAt  time.Time

	sendQ *sched.WaitQueue
	recvQ *sched.WaitQueue
}

// IpcPerm implements ipc.Object.
func (q *Queue) IpcPerm() *ipc.Perm { return &q.perm }

const (
	defaultMaxBytes = 16 * 1024
	defaultMaxMsgs  = 64
)

// New constructs an empty queue with the default byte/message caps.
func New(perm ipc.Perm) *Queue {
	return &Queue{
		perm:     perm,
		maxBytes: defaultMaxBytes,
		maxMsgs:  defaultMaxMsgs,
		sendQ:    sched.NewWaitQueue(),
		recvQ:    sched.NewWaitQueue(),
	}
}

// Send implements msgsnd (spec.md §4.5): append msg to the FIFO, blocking
// while the queue is at its byte or message-count cap unless NoWait is
// set.
func (q *Queue) Send(task *sched.Task, sender defs.Pid_t, msg Message, noWait bool) defs.Err_t {
	for {
		q.mu.Lock()
		if len(q.messages) < q.maxMsgs && q.bytes+len(msg.Payload) <= q.maxBytes {
			q.messages = append(q.messages, msg)
			q.bytes += len(msg.Payload)
			q.lastSendPid = sender
			q.lastSendAt = time.Now()
			q.mu.Unlock()
			q.recvQ.WakeAll()
			return 0
		}
		if noWait {
			q.mu.Unlock()
			return -defs.EAGAIN
		}
		// Park while still holding q.mu: the task is on q.sendQ before a
		// concurrent Recv can unlock and WakeOne, so a slot freed between
		// here and the actual block can never be missed.
		wait := task.Park(q.sendQ, sched.Interruptible)
		q.mu.Unlock()
		if interrupted := wait(); interrupted {
			return -defs.EINTR
		}
	}
}

// match reports whether m satisfies the msgrcv type filter spec.md §4.5
// describes: 0 = first message, >0 = exact type, <0 = smallest type
// among those ≤ |typ|.
func match(typ int64, m Message) bool {
	switch {
	case typ == 0:
		return true
	case typ > 0:
		return m.Type == typ
	default:
		return m.Type <= -typ
	}
}

// selectMessage finds the index of the first message matching typ's
// filter, preferring (for typ < 0) the smallest type among candidates,
// breaking ties by FIFO position — matching spec.md §4.5's "breaking ties
// by smallest type first".
func selectMessage(messages []Message, typ int64) int {
	best := -1
	for i, m := range messages {
		if !match(typ, m) {
			continue
		}
		if typ >= 0 {
			return i
		}
		if best < 0 || m.Type < messages[best].Type {
			best = i
		}
	}
	return best
}

// Recv implements msgrcv (spec.md §4.5). size bounds the caller's buffer;
// an over-long match is truncated if noError is set, else fails without
// consuming the message.
func (q *Queue) Recv(task *sched.Task, receiver defs.Pid_t, typ int64, size int, noWait, noError bool) (Message, defs.Err_t) {
	for {
		q.mu.Lock()
		idx := selectMessage(q.messages, typ)
		if idx >= 0 {
			m := q.messages[idx]
			n := len(m.Payload)
			if n > size {
				if !noError {
					q.mu.Unlock()
					return Message{}, -defs.E2BIG
				}
				m.Payload = m.Payload[:size]
			}
			q.messages = append(q.messages[:idx], q.messages[idx+1:]...)
			q.bytes -= n
			q.lastRecvPid = receiver
			q.lastRecvAt = time.Now()
			q.mu.Unlock()
			q.sendQ.WakeOne()
			return m, 0
		}
		if noWait {
			q.mu.Unlock()
			return Message{}, -defs.EAGAIN
		}
		// Park while still holding q.mu: see Send's comment.
		wait := task.Park(q.recvQ, sched.Interruptible)
		q.mu.Unlock()
		if interrupted := wait(); interrupted {
			return Message{}, -defs.EINTR
		}
	}
}

package job

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWaiterRequired indicates a notifier cannot be constructed without a waiter.
var ErrWaiterRequired = errors.New("notifier waiter is required")

// Topic names a notification stream bridged from the store.
type Topic string

const (
	// TopicEvaluateJobs signals that an evaluate job became claimable.
	TopicEvaluateJobs Topic = "evaluate_jobs"
	// TopicSubmissions signals that a submission changed status.
	TopicSubmissions Topic = "submissions"
)

// Waiter blocks until one notification arrives on a topic.
type Waiter interface {
	WaitForNotification(ctx context.Context, topic Topic) error
}

// Notifier manages subscriptions for store notifications.
type Notifier interface {
	Subscribe(topic Topic) (func(), <-chan struct{})
	StopAll()
}

// NotifierOptions configure the behaviour of the default notifier implementation.
type NotifierOptions struct {
	Waiter     Waiter
	WaitWindow time.Duration
	Backoff    time.Duration
}

// DefaultNotifier is the default implementation of Notifier.
type DefaultNotifier struct {
	waiter     Waiter
	waitWindow time.Duration
	backoff    time.Duration

	mu        sync.Mutex
	subs      map[Topic]map[chan struct{}]struct{}
	listeners map[Topic]context.CancelFunc
}

// NewNotifier constructs the default notifier implementation.
func NewNotifier(opts NotifierOptions) (*DefaultNotifier, error) {
	if opts.Waiter == nil {
		return nil, ErrWaiterRequired
	}

	waitWindow := opts.WaitWindow
	if waitWindow <= 0 {
		waitWindow = time.Minute
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	notifier := &DefaultNotifier{
		waiter:     opts.Waiter,
		waitWindow: waitWindow,
		backoff:    backoff,
		subs:       make(map[Topic]map[chan struct{}]struct{}),
		listeners:  make(map[Topic]context.CancelFunc),
	}
	return notifier, nil
}

func (n *DefaultNotifier) Subscribe(topic Topic) (func(), <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.listeners[topic]; !ok {
		ctx, cancel := context.WithCancel(context.Background())
		n.listeners[topic] = cancel
		go n.listenLoop(ctx, topic)
	}

	ch := make(chan struct{}, 1)
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[chan struct{}]struct{})
	}
	n.subs[topic][ch] = struct{}{}

	unsub := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subscribers := n.subs[topic]
		if subscribers == nil {
			return
		}

		if _, ok := subscribers[ch]; !ok {
			return
		}
		delete(subscribers, ch)
		drainAndClose(ch)
		if len(subscribers) == 0 {
			n.stopListener(topic)
			delete(n.subs, topic)
		}
	}

	return unsub, ch
}

func (n *DefaultNotifier) StopAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for topic, cancel := range n.listeners {
		cancel()
		delete(n.listeners, topic)
	}
	for topic, subscribers := range n.subs {
		for ch := range subscribers {
			drainAndClose(ch)
		}
		delete(n.subs, topic)
	}
}

func (n *DefaultNotifier) stopListener(topic Topic) {
	cancel, ok := n.listeners[topic]
	if !ok {
		return
	}
	cancel()
	delete(n.listeners, topic)
}

func (n *DefaultNotifier) listenLoop(ctx context.Context, topic Topic) {
	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, n.waitWindow)
		err := n.waiter.WaitForNotification(waitCtx, topic)
		cancel()

		n.broadcast(topic)

		if err != nil && ctx.Err() == nil {
			timer := time.NewTimer(n.backoff)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return
			case <-timer.C:
			}
		}
	}
}

func (n *DefaultNotifier) broadcast(topic Topic) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subscribers := n.subs[topic]
	for ch := range subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// drainAndClose removes any buffered notifications before closing the channel so
// receivers observe a closed channel immediately.
func drainAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ Notifier = (*DefaultNotifier)(nil)

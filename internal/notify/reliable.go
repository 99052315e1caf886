package notify

import (
	"fmt"
	"sort"

	"github.com/capatazlib/go-daemoncheck/internal/probe"
)

// reliableSettings contains the callbacks of a Reliable notifier
type reliableSettings struct {
	onNotifierFailure func(name string, err error)
}

// ReliableOpt allows clients to tweak the behavior of a Reliable notifier
type ReliableOpt func(*reliableSettings)

// WithOnNotifierFailure sets a callback that gets executed when one of the
// notifiers panics while handling an event
func WithOnNotifierFailure(cb func(name string, err error)) ReliableOpt {
	return func(settings *reliableSettings) {
		settings.onNotifierFailure = cb
	}
}

// Reliable is an EventNotifier that guarantees it will never panic the
// evaluation calling it, and that it keeps sending events to the remaining
// notifiers after one of them panics. Notifiers are called in name order.
func Reliable(notifierFns map[string]probe.EventNotifier, opts ...ReliableOpt) probe.EventNotifier {
	settings := reliableSettings{
		onNotifierFailure: func(string, error) {},
	}
	for _, optFn := range opts {
		optFn(&settings)
	}

	names := make([]string, 0, len(notifierFns))
	for name := range notifierFns {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(ev probe.Event) {
		for _, name := range names {
			callNotifier(settings, name, notifierFns[name], ev)
		}
	}
}

func callNotifier(settings reliableSettings, name string, notifierFn probe.EventNotifier, ev probe.Event) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			err, ok := panicVal.(error)
			if !ok {
				err = fmt.Errorf("panic error: %v", panicVal)
			}
			settings.onNotifierFailure(name, err)
		}
	}()
	notifierFn(ev)
}

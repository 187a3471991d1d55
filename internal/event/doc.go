// Package event provides the message queue that feeds the activation engine.
//
// The activation engine is single-threaded. Anything that wants an
// extension activated (the CLI, the file watcher, a setup callback asking
// for another trigger) posts a Message instead of calling the engine
// directly. One goroutine owns the engine and drains the queue:
//
//	q := event.NewQueue()
//	q.Fire(trigger.Command("find"))
//	err := q.Drain(ctx, func(ctx context.Context, msg event.Message) error {
//	    switch msg.Kind {
//	    case event.KindFire:
//	        return engine.Fire(ctx, msg.Trigger)
//	    case event.KindBind:
//	        return engine.Bind(msg.Trigger, msg.Extension)
//	    }
//	    return nil
//	})
//
// Messages posted while a handler runs are appended to the queue and
// handled by the same Drain call, after the message being handled, so a
// setup callback that fires a trigger never re-enters the engine.
//
// # Delivery
//
//   - Post, Fire and Bind are safe for concurrent use
//   - Drain and Run must only be called from the owning goroutine
//   - Messages are handled one at a time, in the order they were posted
//   - A handler error or panic never stops the queue; errors are collected
//
// Every message carries a UUID, used to correlate log lines of one
// activation with the trigger that caused it.
package event

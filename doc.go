// Package silex is a small framework for background worker processes that
// consume messages from a shared, persistent queue.
//
// The core package provides the worker-engine lifecycle: an engine moves
// from ready to running to stopped, runs one (SingleEngine) or N
// (MultiEngine) copies of a user supplied WorkerLoop and exposes a latching
// cancellation signal that every worker checks between iterations.
//
// Queue backends live under brokers:
//   - Redis lists (LPUSH / BRPOP), with TCP keep-alive tuning
//   - RabbitMQ durable queues
//   - an in-memory broker for tests
//
// The pollers package supplies the canonical worker loop, which pops one
// message with a bounded timeout and hands it to a Handler. The engines
// package bundles a broker, a poller and an engine behind a single type.
//
// # Example
//
//	package main
//
//	import (
//		"context"
//		"log/slog"
//
//		"github.com/BranchIntl/silex/engines"
//	)
//
//	func main() {
//		options := engines.DefaultRedisOptions()
//		options.Queue.Name = "test"
//		options.Queue.Workers = 4
//
//		engine, err := engines.NewRedisEngine(options, func(ctx context.Context, message string) error {
//			slog.Info("Got message", "message", message)
//			return nil
//		})
//		if err != nil {
//			panic(err)
//		}
//
//		if err := engine.Run(context.Background()); err != nil {
//			panic(err)
//		}
//	}
//
// # Custom loops
//
// Any WorkerLoop can drive an engine directly:
//
//	loop := core.WorkerLoopFunc(func(w *core.Worker) (core.LoopResult, error) {
//		select {
//		case <-w.Signal().Done():
//		case <-time.After(time.Second):
//			w.Logger().Info("tick")
//		}
//		return core.Continue, nil
//	})
//
//	engine := core.NewMultiEngine(loop, core.WithPoolSize(3))
//	if err := silex.Run(ctx, engine); err != nil {
//		log.Fatal(err)
//	}
//
// Run starts the engine, blocks until the context is cancelled, the process
// receives SIGINT, SIGTERM or SIGQUIT, or every worker has returned, and then
// stops the engine gracefully.
package silex

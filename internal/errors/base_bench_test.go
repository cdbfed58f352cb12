package errors

import (
	"errors"
	"fmt"
	"testing"
)

var errCycle = errors.New("quote: connection reset")

func BenchmarkWrap(b *testing.B) {
	b.Run("nil", func(b *testing.B) {
		for b.Loop() {
			_ = Wrap(nil, "trading cycle 7")
		}
	})

	b.Run("error", func(b *testing.B) {
		for b.Loop() {
			_ = Wrap(errCycle, "trading cycle 7").Error()
		}
	})
}

func BenchmarkChain(b *testing.B) {
	linear := Wrap(Wrap(fmt.Errorf("place order: %w", errCycle), "trading cycle 7"), "run")
	joined := Wrap(errors.Join(linear, fmt.Errorf("close broker: %w", errCycle)), "shutdown")

	b.Run("linear", func(b *testing.B) {
		for b.Loop() {
			_ = Chain(linear)
		}
	})

	b.Run("joined", func(b *testing.B) {
		for b.Loop() {
			_ = Chain(joined)
		}
	})

	b.Run("root", func(b *testing.B) {
		for b.Loop() {
			_ = Root(linear)
		}
	})
}

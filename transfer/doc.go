// Package transfer publishes a fixed set of float32 parameters from control
// goroutines to a real-time consumer without locks, blocking or allocation.
//
// # Quick Start
//
//	params := transfer.New(100)
//
//	// Control side (UI, MIDI, host automation), any goroutine:
//	params.Set(5, 0.75)
//
//	// Real-time side, once per audio block:
//	it := params.Drain(true)
//	for {
//		index, value, ok := it.Next()
//		if !ok {
//			break
//		}
//		smoothers[index].SetTarget(value)
//	}
//
// Or with range-over-func where the closure cost is acceptable:
//
//	for index, value := range params.All(true) {
//		smoothers[index].SetTarget(value)
//	}
//
// # How It Works
//
// Each parameter has an atomic 32-bit cell holding the float's bit pattern and
// one dirty bit in a bitmap packed into native words. Set stores the value and
// then ORs the bit. Drain walks the bitmap word by word, clears each bit it
// reports and then reads the value, so what the consumer sees is at least as
// new as the write that raised the bit.
//
// # Guarantees
//
//   - The latest value written to a parameter is always eventually reported.
//   - Intermediate values between two drains may be skipped (coalescing).
//   - A parameter may occasionally be reported twice with the same value.
//   - Order across different parameters is not preserved; a drain reports in
//     increasing index order.
//   - Values are never torn and never normalised (NaN payloads survive).
//
// # Performance Characteristics
//
//	Set:    one atomic store + one atomic OR, 0 allocs
//	Get:    one atomic load, 0 allocs
//	Drain:  one atomic load per bitmap word (64 parameters on 64-bit), plus
//	        one AND and one load per reported parameter, 0 allocs
//
// # Examples
//
//   - [Example] - Set and drain
//   - [Example_coalescing] - Several writes between drains
//   - [Example_rangeFunc] - Draining with range-over-func
package transfer

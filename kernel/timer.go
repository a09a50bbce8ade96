package kernel

import "pulsar/cpu"

// timerInterrupt services IRQ 0. It runs on the interrupted process with
// interrupts masked.
func (k *Kernel) timerInterrupt() {
	k.ticks++
	k.m.Ack(cpu.IRQTimer)
	if k.current != NoPID && k.ticks%uint64(k.quantum) == 0 {
		k.resched()
	}
}

// Tick raises the timer interrupt once. It is safe to call from any goroutine.
func (k *Kernel) Tick() { k.m.Raise(cpu.IRQTimer) }

// Ticks returns the number of timer interrupts serviced so far.
func (k *Kernel) Ticks() uint64 {
	mask := k.m.Disable()
	defer k.m.Restore(mask)
	return k.ticks
}

// SetQuantum sets the number of ticks per time slice. Zero is treated as one.
func (k *Kernel) SetQuantum(n uint32) {
	if n == 0 {
		n = 1
	}
	mask := k.m.Disable()
	defer k.m.Restore(mask)
	k.quantum = n
}

// Quantum returns the number of ticks per time slice.
func (k *Kernel) Quantum() uint32 {
	mask := k.m.Disable()
	defer k.m.Restore(mask)
	return k.quantum
}

// Package critical provides the minimal producer-side critical section used
// by interrupt-safe queues and state machines.
//
// On bare-metal targets a Section masks interrupts for its duration. On host
// targets, where "interrupts" are goroutines, it is a short spin on an atomic
// flag. Either way the holder must only update a few words and leave.
package critical

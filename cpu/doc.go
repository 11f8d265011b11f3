// Package cpu implements the Intel 8080 processor and assembler.
//
// The processor consists of the accumulator and six general registers
// addressable singly or as the BC, DE, and HL pairs, a memory-resident
// stack through SP, and four condition bits (carry, sign, zero, parity).
// Instructions execute against a flat 64 KiB memory; IN and OUT are
// dispatched to attached port devices.
//
// The assembler provides the standard 8080 mnemonics with labels,
// equates, macros, data directives, and compile-time expression
// evaluation.
package cpu

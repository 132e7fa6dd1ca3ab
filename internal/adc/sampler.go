// Package adc samples the volume potentiometer and maps readings onto the
// 5-bit volume scale.
package adc

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Converter is a single-conversion analog front end.
type Converter interface {
	// Select routes channel to the sample-and-hold.
	Select(channel int) error

	// Start begins one conversion.
	Start() error

	// Done reports whether the conversion started by Start has completed.
	Done() (bool, error)

	// Result returns the completed conversion, right-justified.
	Result() (uint16, error)
}

const (
	// Channel is the analog input the potentiometer wiper is connected to.
	Channel = 7

	// SettleDelay lets the sampling capacitor charge after a channel change.
	SettleDelay = 5 * time.Millisecond

	// Resolution is the converter width in bits.
	Resolution = 10

	sampleMask = 1<<Resolution - 1
)

// ErrConversionTimeout is returned when a bounded conversion wait expires.
var ErrConversionTimeout = errors.New("adc: conversion timed out")

// Sampler runs single conversions on a Converter.
type Sampler struct {
	conv    Converter
	settle  time.Duration
	timeout time.Duration
	sleep   func(time.Duration)
	now     func() time.Time
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithSettle overrides the settle delay.
func WithSettle(d time.Duration) Option {
	return func(s *Sampler) { s.settle = d }
}

// WithTimeout bounds the conversion-complete wait. Zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(s *Sampler) { s.timeout = d }
}

// WithSleep replaces time.Sleep, for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Sampler) { s.sleep = fn }
}

// NewSampler creates a sampler with a 5 ms settle delay and no conversion
// timeout.
func NewSampler(conv Converter, opts ...Option) *Sampler {
	s := &Sampler{
		conv:   conv,
		settle: SettleDelay,
		sleep:  time.Sleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample selects channel, waits for the input to settle, converts once and
// returns the 10-bit result.
//
// The completion wait spins on Done. Without a timeout a converter that never
// finishes blocks until ctx is cancelled.
func (s *Sampler) Sample(ctx context.Context, channel int) (uint16, error) {
	if err := s.conv.Select(channel); err != nil {
		return 0, fmt.Errorf("adc: select channel %d: %w", channel, err)
	}
	s.sleep(s.settle)
	if err := s.conv.Start(); err != nil {
		return 0, fmt.Errorf("adc: start conversion: %w", err)
	}

	var deadline time.Time
	if s.timeout > 0 {
		deadline = s.now().Add(s.timeout)
	}
	for {
		done, err := s.conv.Done()
		if err != nil {
			return 0, fmt.Errorf("adc: poll conversion: %w", err)
		}
		if done {
			break
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if !deadline.IsZero() && s.now().After(deadline) {
			return 0, ErrConversionTimeout
		}
	}

	v, err := s.conv.Result()
	if err != nil {
		return 0, fmt.Errorf("adc: read result: %w", err)
	}
	return v & sampleMask, nil
}

// Quantize maps a 10-bit sample to a volume level by dropping the low 5 bits.
func Quantize(sample uint16) int {
	return int(sample&sampleMask) >> 5
}

// Package errs provides a small error-aggregation helper used across the
// extraction pipeline wherever multiple independent problems can occur in a
// single pass and all of them are worth reporting, rather than aborting on
// the first one.
package errs

import (
	"errors"
	"fmt"
)

// Collector is a wrapper around []error that simplifies code paths where
// multiple errors can happen and need to be aggregated for collective
// reporting. Zero value is ready to use.
type Collector struct {
	Errors []error
}

// Add appends err to the collector. Nil errors are ignored, so callers can
// write
//
//	c.Add(mightFail())
//
// instead of
//
//	if err := mightFail(); err != nil {
//		c.Add(err)
//	}
func (c *Collector) Add(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// Addf appends an error built from fmt.Errorf. If no args are given, format
// is used verbatim as the error string.
func (c *Collector) Addf(format string, args ...interface{}) {
	if len(args) > 0 {
		c.Errors = append(c.Errors, fmt.Errorf(format, args...))
	} else {
		c.Errors = append(c.Errors, errors.New(format))
	}
}

// HasErrors reports whether any error has been collected.
func (c *Collector) HasErrors() bool {
	return len(c.Errors) > 0
}

// Err joins all collected errors into one, or returns nil if none were
// collected.
func (c *Collector) Err() error {
	if len(c.Errors) == 0 {
		return nil
	}
	return errors.Join(c.Errors...)
}

// Last returns the most recently added error, or nil if empty. This backs
// the last_error()/get_last_error() getters spec'd across several
// components.
func (c *Collector) Last() error {
	if len(c.Errors) == 0 {
		return nil
	}
	return c.Errors[len(c.Errors)-1]
}

// LastString returns Last().Error(), or "" if no error is recorded.
func (c *Collector) LastString() string {
	if e := c.Last(); e != nil {
		return e.Error()
	}
	return ""
}

// Clear resets the collector to empty, matching clear_error() semantics.
func (c *Collector) Clear() {
	c.Errors = nil
}

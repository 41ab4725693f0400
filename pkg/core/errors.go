package core

import (
	"errors"
	"fmt"
)

// ErrNoResults is returned when a run loaded its dataset but every rule was
// excluded, so no verdict can be computed. It is a different signal from a
// CRITICAL verdict.
var ErrNoResults = errors.New("no data quality checks could run")

// ConfigurationError reports invalid engine configuration: an unknown rule
// kind, malformed thresholds or rule parameters. It is fatal at startup.
type ConfigurationError struct {
	Key     string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Key == "" {
		return "configuration error: " + msg
	}
	return fmt.Sprintf("configuration error at %s: %s", e.Key, msg)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// UnknownRuleError is the ConfigurationError cause for an unregistered kind.
type UnknownRuleError struct {
	Kind      string
	Available []string
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown rule type %q\nAvailable rule types: %v\nHint: Check data_quality_rules in leapdq.yaml", e.Kind, e.Available)
}

// DataLoadError reports that the dataset for a run could not be loaded. The
// run produces no verdict.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load dataset %q: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// RuleExecutionError reports that a single rule could not evaluate. The
// validator records it and continues with the remaining rules.
type RuleExecutionError struct {
	Rule string
	Err  error
}

func (e *RuleExecutionError) Error() string {
	return fmt.Sprintf("rule %s failed to execute: %v", e.Rule, e.Err)
}

func (e *RuleExecutionError) Unwrap() error { return e.Err }

// ObserverError reports that an alert observer failed. The dispatcher
// records it and still notifies the remaining observers.
type ObserverError struct {
	Observer string
	Err      error
}

func (e *ObserverError) Error() string {
	return fmt.Sprintf("alert observer %s failed: %v", e.Observer, e.Err)
}

func (e *ObserverError) Unwrap() error { return e.Err }

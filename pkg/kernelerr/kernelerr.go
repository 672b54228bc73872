// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kernelerr defines the kernel's stable error taxonomy. Every public
// boundary (scanner, kernel, vector store, router, memory, homeostasis)
// returns a *kernelerr.Error instead of a raw error or a panic, so callers
// can branch on Kind without parsing strings.
package kernelerr

import "fmt"

// Kind is a stable, serializable error identifier. Values never change once
// shipped — callers (CLI exit codes, the Immune System, acceptance scenarios)
// match on them directly.
type Kind string

const (
	KindManifestInvalid      Kind = "MANIFEST_INVALID"
	KindSkillLoadFailed      Kind = "SKILL_LOAD_FAILED"
	KindSkillNotFound        Kind = "SKILL_NOT_FOUND"
	KindToolNotFound         Kind = "TOOL_NOT_FOUND"
	KindToolExecutionFailed  Kind = "TOOL_EXECUTION_FAILED"
	KindSchemaRejected       Kind = "SCHEMA_REJECTED"
	KindVectorStoreUnavail   Kind = "VECTOR_STORE_UNAVAILABLE"
	KindRouterLowConfidence  Kind = "ROUTER_LOW_CONFIDENCE"
	KindContextBudgetExceed  Kind = "CONTEXT_BUDGET_EXCEEDED"
	KindAgentLoopAborted     Kind = "AGENT_LOOP_ABORTED"
	KindMemoryUnavailable    Kind = "MEMORY_UNAVAILABLE"
	KindCrystallizeRejected  Kind = "CRYSTALLIZE_REJECTED"
	KindImmuneSystemBlocked  Kind = "IMMUNE_SYSTEM_BLOCKED"
	KindHomeostasisConflict  Kind = "HOMEOSTASIS_CONFLICT"
	KindTransactionAborted   Kind = "TRANSACTION_ABORTED"
	KindPersistenceCorrupt   Kind = "PERSISTENCE_CORRUPT"
	KindConfigInvalid        Kind = "CONFIG_INVALID"
	KindWorkflowStateMissing Kind = "WORKFLOW_STATE_MISSING"
	KindMissionBriefRejected Kind = "MISSION_BRIEF_REJECTED"
)

// Error is the kernel's single structured error type. Component names the
// owning package ("scanner", "router", ...), Op names the failing operation,
// Message is human-readable context, and Err is the wrapped cause if any.
type Error struct {
	Kind      Kind
	Component string
	Op        string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a *Error without a wrapped cause.
func New(kind Kind, component, op, message string) *Error {
	return &Error{Kind: kind, Component: component, Op: op, Message: message}
}

// Wrap constructs a *Error around an existing error.
func Wrap(kind Kind, component, op, message string, err error) *Error {
	return &Error{Kind: kind, Component: component, Op: op, Message: message, Err: err}
}

// Is reports whether err is a *Error of the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	for err != nil {
		if kerr, ok := err.(*Error); ok {
			return kerr.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

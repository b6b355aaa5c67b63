package graph

import (
	"fmt"
	"slices"
)

// State is the per-question record the workflow accumulates. Stages never touch it
// directly; they return an Update and the workflow merges it, so each field has a
// single owner and is written at most once.
type State struct {
	question string

	route     Route
	rationale string
	routed    bool

	vectorContext string
	vectorDone    bool

	graphContext string
	graphDone    bool

	answer   string
	answered bool

	trace []Stage
}

func NewState(question string) State {
	return State{question: question, route: RouteNone}
}

func (s State) Question() string { return s.question }

// Route is RouteNone until the router stage has run.
func (s State) Route() Route { return s.route }

func (s State) Rationale() string { return s.rationale }

// VectorContext is empty when the vector branch did not run.
func (s State) VectorContext() string { return s.vectorContext }

// GraphContext is empty when the graph branch did not run.
func (s State) GraphContext() string { return s.graphContext }

func (s State) Answer() string { return s.answer }

// Trace lists the stages visited, in order.
func (s State) Trace() []Stage { return slices.Clone(s.trace) }

// Update is a partial result produced by exactly one stage.
type Update interface {
	apply(s *State) error
}

// Merge returns a copy of s with u applied. A nil update leaves s unchanged.
func (s State) Merge(u Update) (State, error) {
	if u == nil {
		return s, nil
	}
	next := s
	if err := u.apply(&next); err != nil {
		return s, err
	}
	return next, nil
}

func (s State) visit(stage Stage) State {
	s.trace = append(slices.Clone(s.trace), stage)
	return s
}

// FieldSetError reports a second write to a field owned by another stage.
type FieldSetError struct {
	Field string
}

func (e *FieldSetError) Error() string {
	return fmt.Sprintf("state field %q already set", e.Field)
}

// RouteUpdate is the router's output.
type RouteUpdate struct {
	Route     Route
	Rationale string
}

func (u RouteUpdate) apply(s *State) error {
	if s.routed {
		return &FieldSetError{Field: "route"}
	}
	s.route, s.rationale, s.routed = u.Route, u.Rationale, true
	return nil
}

// VectorUpdate carries the vector branch context.
type VectorUpdate struct {
	Context string
}

func (u VectorUpdate) apply(s *State) error {
	if s.vectorDone {
		return &FieldSetError{Field: "vector_context"}
	}
	s.vectorContext, s.vectorDone = u.Context, true
	return nil
}

// GraphUpdate carries the graph branch context.
type GraphUpdate struct {
	Context string
}

func (u GraphUpdate) apply(s *State) error {
	if s.graphDone {
		return &FieldSetError{Field: "graph_context"}
	}
	s.graphContext, s.graphDone = u.Context, true
	return nil
}

// AnswerUpdate is the terminal write.
type AnswerUpdate struct {
	Answer string
}

func (u AnswerUpdate) apply(s *State) error {
	if s.answered {
		return &FieldSetError{Field: "answer"}
	}
	s.answer, s.answered = u.Answer, true
	return nil
}

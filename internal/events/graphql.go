package events

import "time"

// GraphQLStart is published once a document has parsed and validated, right
// before the executor runs it.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
	// RootFields names the selected root fields in document order, such as
	// "books" or "authors". Aliases are reported by field name.
	RootFields []string
}

// GraphQLFinish is published after execution. DataNull is set when a
// non-null root field failed and the whole data object became null.
type GraphQLFinish struct {
	OperationName string
	OperationType string
	RootFields    []string
	Errors        []error
	DataNull      bool
	Duration      time.Duration
}

// GraphQLRejected is published for a document that failed to parse or
// validate. Such a document never reaches the resolvers.
type GraphQLRejected struct {
	Query  string
	Errors []error
}

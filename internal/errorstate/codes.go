package errorstate

import (
	"slices"
	"strconv"
)

// Code is a SCORM 2004 run-time error code.
type Code int

// SCORM 2004 4th Edition error codes.
const (
	NoError Code = 0

	GeneralException             Code = 101
	GeneralInitializationFailure Code = 102
	AlreadyInitialized           Code = 103
	ContentInstanceTerminated    Code = 104
	GeneralTerminationFailure    Code = 111
	TerminationBeforeInit        Code = 112
	TerminationAfterTermination  Code = 113
	RetrieveDataBeforeInit       Code = 122
	RetrieveDataAfterTermination Code = 123
	StoreDataBeforeInit          Code = 132
	StoreDataAfterTermination    Code = 133
	CommitBeforeInit             Code = 142
	CommitAfterTermination       Code = 143

	GeneralArgumentError Code = 201

	GeneralGetFailure    Code = 301
	GeneralSetFailure    Code = 351
	GeneralCommitFailure Code = 391

	UndefinedElement         Code = 401
	UnimplementedElement     Code = 402
	ValueNotInitialized      Code = 403
	ReadOnlyElement          Code = 404
	WriteOnlyElement         Code = 405
	TypeMismatch             Code = 406
	ValueOutOfRange          Code = 407
	DependencyNotEstablished Code = 408
)

// Category groups codes for default diagnostics.
type Category string

const (
	CategoryGeneral        Category = "general"
	CategoryInitialization Category = "initialization"
	CategoryTermination    Category = "termination"
	CategoryDataModel      Category = "data_model"
)

// Definition describes one entry of the error taxonomy.
type Definition struct {
	Code     Code
	Name     string
	Message  string
	Category Category
}

var definitions = map[Code]Definition{
	NoError:                      {NoError, "NO_ERROR", "No Error", CategoryGeneral},
	GeneralException:             {GeneralException, "GENERAL_EXCEPTION", "General Exception", CategoryGeneral},
	GeneralInitializationFailure: {GeneralInitializationFailure, "GENERAL_INITIALIZATION_FAILURE", "General Initialization Failure", CategoryInitialization},
	AlreadyInitialized:           {AlreadyInitialized, "ALREADY_INITIALIZED", "Already Initialized", CategoryInitialization},
	ContentInstanceTerminated:    {ContentInstanceTerminated, "CONTENT_INSTANCE_TERMINATED", "Content Instance Terminated", CategoryInitialization},
	GeneralTerminationFailure:    {GeneralTerminationFailure, "GENERAL_TERMINATION_FAILURE", "General Termination Failure", CategoryTermination},
	TerminationBeforeInit:        {TerminationBeforeInit, "TERMINATION_BEFORE_INITIALIZATION", "Termination Before Initialization", CategoryTermination},
	TerminationAfterTermination:  {TerminationAfterTermination, "TERMINATION_AFTER_TERMINATION", "Termination After Termination", CategoryTermination},
	RetrieveDataBeforeInit:       {RetrieveDataBeforeInit, "RETRIEVE_DATA_BEFORE_INITIALIZATION", "Retrieve Data Before Initialization", CategoryGeneral},
	RetrieveDataAfterTermination: {RetrieveDataAfterTermination, "RETRIEVE_DATA_AFTER_TERMINATION", "Retrieve Data After Termination", CategoryGeneral},
	StoreDataBeforeInit:          {StoreDataBeforeInit, "STORE_DATA_BEFORE_INITIALIZATION", "Store Data Before Initialization", CategoryGeneral},
	StoreDataAfterTermination:    {StoreDataAfterTermination, "STORE_DATA_AFTER_TERMINATION", "Store Data After Termination", CategoryGeneral},
	CommitBeforeInit:             {CommitBeforeInit, "COMMIT_BEFORE_INITIALIZATION", "Commit Before Initialization", CategoryGeneral},
	CommitAfterTermination:       {CommitAfterTermination, "COMMIT_AFTER_TERMINATION", "Commit After Termination", CategoryGeneral},
	GeneralArgumentError:         {GeneralArgumentError, "GENERAL_ARGUMENT_ERROR", "General Argument Error", CategoryGeneral},
	GeneralGetFailure:            {GeneralGetFailure, "GENERAL_GET_FAILURE", "General Get Failure", CategoryGeneral},
	GeneralSetFailure:            {GeneralSetFailure, "GENERAL_SET_FAILURE", "General Set Failure", CategoryGeneral},
	GeneralCommitFailure:         {GeneralCommitFailure, "GENERAL_COMMIT_FAILURE", "General Commit Failure", CategoryGeneral},
	UndefinedElement:             {UndefinedElement, "UNDEFINED_DATA_MODEL_ELEMENT", "Undefined Data Model Element", CategoryDataModel},
	UnimplementedElement:         {UnimplementedElement, "UNIMPLEMENTED_DATA_MODEL_ELEMENT", "Unimplemented Data Model Element", CategoryDataModel},
	ValueNotInitialized:          {ValueNotInitialized, "DATA_MODEL_ELEMENT_VALUE_NOT_INITIALIZED", "Data Model Element Value Not Initialized", CategoryDataModel},
	ReadOnlyElement:              {ReadOnlyElement, "DATA_MODEL_ELEMENT_IS_READ_ONLY", "Data Model Element Is Read Only", CategoryDataModel},
	WriteOnlyElement:             {WriteOnlyElement, "DATA_MODEL_ELEMENT_IS_WRITE_ONLY", "Data Model Element Is Write Only", CategoryDataModel},
	TypeMismatch:                 {TypeMismatch, "DATA_MODEL_ELEMENT_TYPE_MISMATCH", "Data Model Element Type Mismatch", CategoryDataModel},
	ValueOutOfRange:              {ValueOutOfRange, "DATA_MODEL_ELEMENT_VALUE_OUT_OF_RANGE", "Data Model Element Value Out Of Range", CategoryDataModel},
	DependencyNotEstablished:     {DependencyNotEstablished, "DATA_MODEL_DEPENDENCY_NOT_ESTABLISHED", "Data Model Dependency Not Established", CategoryDataModel},
}

// categoryDiagnostics are returned by Diagnostic when nothing more specific
// was recorded for a code.
var categoryDiagnostics = map[Category]string{
	CategoryGeneral:        "An unexpected condition prevented the LMS from completing the request.",
	CategoryInitialization: "The API instance could not be initialized in its current state.",
	CategoryTermination:    "The API instance could not be terminated in its current state.",
	CategoryDataModel:      "The data model element or value supplied by the SCO was rejected.",
}

// String returns the numeric code as SCORM transports it ("0", "404", ...).
func (c Code) String() string {
	return strconv.Itoa(int(c))
}

// Known reports whether c is part of the taxonomy.
func (c Code) Known() bool {
	_, ok := definitions[c]
	return ok
}

// Lookup returns the taxonomy entry for c.
func Lookup(c Code) (Definition, bool) {
	d, ok := definitions[c]
	return d, ok
}

// ParseCode converts a SCORM code string into a Code.
// Returns false for non-numeric input or codes outside the taxonomy.
func ParseCode(s string) (Code, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	c := Code(n)
	if !c.Known() {
		return 0, false
	}
	return c, true
}

// Definitions returns the taxonomy ordered by code.
func Definitions() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Definition) int {
		return int(a.Code) - int(b.Code)
	})
	return out
}

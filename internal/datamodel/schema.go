package datamodel

import (
	"slices"
	"strings"
)

// Access is the external access mode of an element.
type Access int

const (
	ReadWrite Access = iota
	ReadOnly
	WriteOnly
)

// String returns the SCORM notation (RW, RO, WO).
func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "RO"
	case WriteOnly:
		return "WO"
	default:
		return "RW"
	}
}

// ValueType is the data type an element accepts.
type ValueType int

const (
	TypeString ValueType = iota
	TypeBoolean
	TypeInteger
	TypeDecimal
	TypeTimeInterval
	TypeTime
	TypeVocabulary
)

// String returns a lower-case type name.
func (t ValueType) String() string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeTimeInterval:
		return "timeinterval"
	case TypeTime:
		return "time"
	case TypeVocabulary:
		return "vocabulary"
	default:
		return "string"
	}
}

// Range bounds a numeric element. A nil bound is open.
type Range struct {
	Min *float64
	Max *float64
}

// Contains reports whether v is inside the range.
func (r *Range) Contains(v float64) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// ElementSpec is the static schema of one element or collection property.
type ElementSpec struct {
	Access     Access
	Type       ValueType
	Vocabulary []string
	MaxLength  int // characters, 0 means unbounded
	Range      *Range

	// Default is the value returned while unset. Nil means no default.
	Default *string

	// Nullable lets an unset element without a default read as "" with no error.
	Nullable bool

	// Identifier marks long identifier properties (.id): non-empty and bounded.
	Identifier bool

	// AllowDecimal accepts a real number in addition to the vocabulary
	// (interaction result).
	AllowDecimal bool
}

// Readable reports whether content may read the element.
func (s ElementSpec) Readable() bool { return s.Access != WriteOnly }

// Writable reports whether content may write the element.
func (s ElementSpec) Writable() bool { return s.Access != ReadOnly }

func str(s string) *string { return &s }

func bound(v float64) *float64 { return &v }

// Limits shared by several elements.
const (
	MaxIdentifierLength  = 4000
	MaxLocationLength    = 1000
	MaxSuspendDataLength = 64000
	MaxDescriptionLength = 250
	MaxCommentLength     = 4000
	MaxResponseLength    = 4000
	MaxLaunchDataLength  = 4000
	MaxLearnerNameLength = 250
	MaxLanguageLength    = 250
)

// Vocabularies.
var (
	CompletionStatusVocabulary = []string{"completed", "incomplete", "not attempted", "unknown"}
	SuccessStatusVocabulary    = []string{"passed", "failed", "unknown"}
	CreditVocabulary           = []string{"credit", "no-credit"}
	EntryVocabulary            = []string{"ab-initio", "resume", ""}
	ExitVocabulary             = []string{"time-out", "suspend", "logout", "normal", ""}
	ModeVocabulary             = []string{"browse", "normal", "review"}
	TimeLimitActionVocabulary  = []string{"exit,message", "exit,no message", "continue,message", "continue,no message"}
	AudioCaptioningVocabulary  = []string{"-1", "0", "1"}
	NavRequestVocabulary       = []string{"continue", "previous", "exit", "exitAll", "abandon", "abandonAll", "suspendAll", "_none_"}

	InteractionTypeVocabulary = []string{
		"true-false", "choice", "fill-in", "long-fill-in", "likert", "matching",
		"performance", "sequencing", "numeric", "other",
	}
	InteractionResultVocabulary = []string{"correct", "incorrect", "unanticipated", "neutral"}
)

var (
	unitRange   = &Range{Min: bound(0), Max: bound(1)}
	scaledRange = &Range{Min: bound(-1), Max: bound(1)}
	nonNegative = &Range{Min: bound(0)}
)

// scalarSchema holds every non-collection element.
var scalarSchema = map[string]ElementSpec{
	"cmi._version": {Access: ReadOnly, Default: str("1.0")},

	"cmi.comments_from_learner._children": {Access: ReadOnly, Default: str("comment,location,timestamp")},
	"cmi.comments_from_lms._children":     {Access: ReadOnly, Default: str("comment,location,timestamp")},
	"cmi.interactions._children": {Access: ReadOnly,
		Default: str("id,type,objectives,timestamp,correct_responses,weighting,learner_response,result,latency,description")},
	"cmi.objectives._children": {Access: ReadOnly,
		Default: str("id,score,success_status,completion_status,progress_measure,description")},
	"cmi.learner_preference._children": {Access: ReadOnly,
		Default: str("audio_level,language,delivery_speed,audio_captioning")},
	"cmi.score._children": {Access: ReadOnly, Default: str("scaled,raw,min,max")},

	"cmi.completion_status":    {Access: ReadWrite, Type: TypeVocabulary, Vocabulary: CompletionStatusVocabulary, Default: str("unknown")},
	"cmi.completion_threshold": {Access: ReadOnly, Type: TypeDecimal, Range: unitRange, Nullable: true},
	"cmi.credit":               {Access: ReadOnly, Type: TypeVocabulary, Vocabulary: CreditVocabulary, Default: str("credit")},
	"cmi.entry":                {Access: ReadOnly, Type: TypeVocabulary, Vocabulary: EntryVocabulary, Default: str("ab-initio")},
	"cmi.exit":                 {Access: WriteOnly, Type: TypeVocabulary, Vocabulary: ExitVocabulary, Default: str("")},
	"cmi.launch_data":          {Access: ReadOnly, MaxLength: MaxLaunchDataLength, Default: str("")},
	"cmi.learner_id":           {Access: ReadOnly, MaxLength: MaxIdentifierLength, Default: str("")},
	"cmi.learner_name":         {Access: ReadOnly, MaxLength: MaxLearnerNameLength, Default: str("")},

	"cmi.learner_preference.audio_level":      {Access: ReadWrite, Type: TypeDecimal, Range: nonNegative, Default: str("1")},
	"cmi.learner_preference.language":         {Access: ReadWrite, MaxLength: MaxLanguageLength, Default: str("")},
	"cmi.learner_preference.delivery_speed":   {Access: ReadWrite, Type: TypeDecimal, Range: nonNegative, Default: str("1")},
	"cmi.learner_preference.audio_captioning": {Access: ReadWrite, Type: TypeVocabulary, Vocabulary: AudioCaptioningVocabulary, Default: str("0")},

	"cmi.location":             {Access: ReadWrite, MaxLength: MaxLocationLength, Default: str("")},
	"cmi.max_time_allowed":     {Access: ReadOnly, Type: TypeTimeInterval, Nullable: true},
	"cmi.mode":                 {Access: ReadOnly, Type: TypeVocabulary, Vocabulary: ModeVocabulary, Default: str("normal")},
	"cmi.progress_measure":     {Access: ReadWrite, Type: TypeDecimal, Range: unitRange, Nullable: true},
	"cmi.scaled_passing_score": {Access: ReadOnly, Type: TypeDecimal, Range: scaledRange, Nullable: true},

	"cmi.score.scaled": {Access: ReadWrite, Type: TypeDecimal, Range: scaledRange, Default: str("")},
	"cmi.score.raw":    {Access: ReadWrite, Type: TypeDecimal, Default: str("")},
	"cmi.score.min":    {Access: ReadWrite, Type: TypeDecimal, Default: str("")},
	"cmi.score.max":    {Access: ReadWrite, Type: TypeDecimal, Default: str("")},

	"cmi.session_time":      {Access: WriteOnly, Type: TypeTimeInterval, Default: str("PT0H0M0S")},
	"cmi.success_status":    {Access: ReadWrite, Type: TypeVocabulary, Vocabulary: SuccessStatusVocabulary, Default: str("unknown")},
	"cmi.suspend_data":      {Access: ReadWrite, MaxLength: MaxSuspendDataLength, Default: str("")},
	"cmi.time_limit_action": {Access: ReadOnly, Type: TypeVocabulary, Vocabulary: TimeLimitActionVocabulary, Default: str("continue,no message")},
	"cmi.total_time":        {Access: ReadOnly, Type: TypeTimeInterval, Default: str("PT0H0M0S")},

	"adl.nav.request": {Access: ReadWrite, Type: TypeVocabulary, Vocabulary: NavRequestVocabulary, Default: str("_none_")},
}

// collectionSchema holds per-record property schemas. Nested list
// properties are keyed "<list>.<property>" and their counts "<list>._count".
var collectionSchema = map[Collection]map[string]ElementSpec{
	Interactions: {
		"id":                        {Access: ReadWrite, MaxLength: MaxIdentifierLength, Identifier: true},
		"type":                      {Access: ReadWrite, Type: TypeVocabulary, Vocabulary: InteractionTypeVocabulary},
		"objectives._count":         {Access: ReadOnly, Type: TypeInteger},
		"objectives.id":             {Access: ReadWrite, MaxLength: MaxIdentifierLength, Identifier: true},
		"timestamp":                 {Access: ReadWrite, Type: TypeTime},
		"correct_responses._count":  {Access: ReadOnly, Type: TypeInteger},
		"correct_responses.pattern": {Access: ReadWrite, MaxLength: MaxResponseLength},
		"weighting":                 {Access: ReadWrite, Type: TypeDecimal},
		"learner_response":          {Access: ReadWrite, MaxLength: MaxResponseLength},
		"result":                    {Access: ReadWrite, Type: TypeVocabulary, Vocabulary: InteractionResultVocabulary, AllowDecimal: true},
		"latency":                   {Access: ReadWrite, Type: TypeTimeInterval},
		"description":               {Access: ReadWrite, MaxLength: MaxDescriptionLength},
	},
	Objectives: {
		"id":                {Access: ReadWrite, MaxLength: MaxIdentifierLength, Identifier: true},
		"score._children":   {Access: ReadOnly, Default: str("scaled,raw,min,max")},
		"score.scaled":      {Access: ReadWrite, Type: TypeDecimal, Range: scaledRange},
		"score.raw":         {Access: ReadWrite, Type: TypeDecimal},
		"score.min":         {Access: ReadWrite, Type: TypeDecimal},
		"score.max":         {Access: ReadWrite, Type: TypeDecimal},
		"success_status":    {Access: ReadWrite, Type: TypeVocabulary, Vocabulary: SuccessStatusVocabulary, Default: str("unknown")},
		"completion_status": {Access: ReadWrite, Type: TypeVocabulary, Vocabulary: CompletionStatusVocabulary, Default: str("unknown")},
		"progress_measure":  {Access: ReadWrite, Type: TypeDecimal, Range: unitRange},
		"description":       {Access: ReadWrite, MaxLength: MaxDescriptionLength},
	},
	CommentsFromLearner: {
		"comment":   {Access: ReadWrite, MaxLength: MaxCommentLength},
		"location":  {Access: ReadWrite, MaxLength: MaxLocationLength},
		"timestamp": {Access: ReadWrite, Type: TypeTime},
	},
	CommentsFromLMS: {
		"comment":   {Access: ReadOnly, MaxLength: MaxCommentLength},
		"location":  {Access: ReadOnly, MaxLength: MaxLocationLength},
		"timestamp": {Access: ReadOnly, Type: TypeTime},
	},
}

// nestedLists names the sub-lists a collection record can carry.
var nestedLists = map[Collection][]string{
	Interactions: {"objectives", "correct_responses"},
}

// countSpec is the schema shared by every _count element.
var countSpec = ElementSpec{Access: ReadOnly, Type: TypeInteger}

// navValidSpec is the schema of adl.nav.request_valid.* elements.
var navValidSpec = ElementSpec{Access: ReadOnly, Type: TypeVocabulary, Vocabulary: []string{"true", "false", "unknown"}, Default: str("unknown")}

// LookupScalar returns the schema of a scalar element.
func LookupScalar(name string) (ElementSpec, bool) {
	s, ok := scalarSchema[name]
	return s, ok
}

// LookupProperty returns the schema of a collection property key.
func LookupProperty(c Collection, property string) (ElementSpec, bool) {
	props, ok := collectionSchema[c]
	if !ok {
		return ElementSpec{}, false
	}
	s, ok := props[property]
	return s, ok
}

// SchemaEntry is one row of the flattened element table.
type SchemaEntry struct {
	Element string
	Spec    ElementSpec
}

// Elements returns the full element table with collection indexes written
// as "n" (and "m" for nested lists), sorted by element name.
func Elements() []SchemaEntry {
	out := make([]SchemaEntry, 0, len(scalarSchema)+64)
	for name, spec := range scalarSchema {
		out = append(out, SchemaEntry{Element: name, Spec: spec})
	}
	for _, c := range AllCollections {
		out = append(out, SchemaEntry{Element: c.Prefix() + "._count", Spec: countSpec})
		for prop, spec := range collectionSchema[c] {
			element := c.Prefix() + ".n." + prop
			if list, sub, ok := strings.Cut(prop, "."); ok && sub != "_count" && slices.Contains(nestedLists[c], list) {
				element = c.Prefix() + ".n." + list + ".m." + sub
			}
			out = append(out, SchemaEntry{Element: element, Spec: spec})
		}
	}
	for _, req := range []string{"continue", "previous", "choice.{target=}", "jump.{target=}"} {
		out = append(out, SchemaEntry{Element: navValidPrefix + req, Spec: navValidSpec})
	}
	slices.SortFunc(out, func(a, b SchemaEntry) int {
		return strings.Compare(a.Element, b.Element)
	})
	return out
}

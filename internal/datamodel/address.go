package datamodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Collection identifies one of the four indexed collections.
type Collection int

const (
	Interactions Collection = iota + 1
	Objectives
	CommentsFromLearner
	CommentsFromLMS
)

// AllCollections lists the collections in snapshot order.
var AllCollections = []Collection{Interactions, Objectives, CommentsFromLearner, CommentsFromLMS}

// Name returns the element segment ("interactions", "comments_from_lms", ...).
func (c Collection) Name() string {
	switch c {
	case Interactions:
		return "interactions"
	case Objectives:
		return "objectives"
	case CommentsFromLearner:
		return "comments_from_learner"
	case CommentsFromLMS:
		return "comments_from_lms"
	default:
		return fmt.Sprintf("collection(%d)", int(c))
	}
}

// Prefix returns the element prefix ("cmi.interactions").
func (c Collection) Prefix() string {
	return "cmi." + c.Name()
}

// Kind tags the Address variant.
type Kind int

const (
	KindScalar Kind = iota + 1
	KindField
	KindCount
	KindSubCount
	KindNavValid
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindField:
		return "field"
	case KindCount:
		return "count"
	case KindSubCount:
		return "sub_count"
	case KindNavValid:
		return "nav_valid"
	default:
		return "invalid"
	}
}

// Address is a resolved element name.
//
// Fields used per Kind:
//
//	KindScalar    Name
//	KindField     Collection, Index, Property; SubList and SubIndex when nested
//	KindCount     Collection
//	KindSubCount  Collection, Index, SubList
//	KindNavValid  NavRequest, NavTarget
//
// Element always holds the original element string.
type Address struct {
	Kind    Kind
	Element string

	Name string

	Collection Collection
	Index      int
	Property   string // schema key, e.g. "score.raw" or "objectives.id"
	SubList    string
	SubIndex   int

	NavRequest string
	NavTarget  string
}

// Nested reports whether a field address points into a sub-list.
func (a Address) Nested() bool {
	return a.SubList != ""
}

// leaf returns the property name inside the record or sub-record.
func (a Address) leaf() string {
	if a.SubList == "" {
		return a.Property
	}
	return strings.TrimPrefix(a.Property, a.SubList+".")
}

// Spec returns the schema governing the address.
func (a Address) Spec() ElementSpec {
	switch a.Kind {
	case KindScalar:
		return scalarSchema[a.Name]
	case KindField:
		s, _ := LookupProperty(a.Collection, a.Property)
		return s
	case KindNavValid:
		return navValidSpec
	default:
		return countSpec
	}
}

const navValidPrefix = "adl.nav.request_valid."

// ParseError explains why an element string did not resolve.
type ParseError struct {
	Element string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("undefined data model element %q: %s", e.Element, e.Reason)
}

// Parse resolves an element string into an Address.
func Parse(element string) (Address, error) {
	if _, ok := scalarSchema[element]; ok {
		return Address{Kind: KindScalar, Element: element, Name: element}, nil
	}

	if rest, ok := strings.CutPrefix(element, navValidPrefix); ok {
		return parseNavValid(element, rest)
	}

	for _, c := range AllCollections {
		rest, ok := strings.CutPrefix(element, c.Prefix()+".")
		if !ok {
			continue
		}
		return parseCollection(element, c, rest)
	}

	return Address{}, &ParseError{Element: element, Reason: "not a recognised element"}
}

func parseCollection(element string, c Collection, rest string) (Address, error) {
	if rest == "_count" {
		return Address{Kind: KindCount, Element: element, Collection: c}, nil
	}

	idxStr, prop, ok := strings.Cut(rest, ".")
	if !ok || prop == "" {
		return Address{}, &ParseError{Element: element, Reason: "missing property after index"}
	}
	idx, err := parseIndex(idxStr)
	if err != nil {
		return Address{}, &ParseError{Element: element, Reason: err.Error()}
	}

	addr := Address{Kind: KindField, Element: element, Collection: c, Index: idx, SubIndex: -1}

	for _, list := range nestedLists[c] {
		sub, ok := strings.CutPrefix(prop, list+".")
		if !ok {
			continue
		}
		if sub == "_count" {
			return Address{Kind: KindSubCount, Element: element, Collection: c, Index: idx, SubList: list, SubIndex: -1}, nil
		}
		subIdxStr, subProp, ok := strings.Cut(sub, ".")
		if !ok || subProp == "" {
			return Address{}, &ParseError{Element: element, Reason: "missing property after " + list + " index"}
		}
		subIdx, err := parseIndex(subIdxStr)
		if err != nil {
			return Address{}, &ParseError{Element: element, Reason: err.Error()}
		}
		key := list + "." + subProp
		if _, ok := LookupProperty(c, key); !ok {
			return Address{}, &ParseError{Element: element, Reason: fmt.Sprintf("unknown %s property %q", list, subProp)}
		}
		addr.Property = key
		addr.SubList = list
		addr.SubIndex = subIdx
		return addr, nil
	}

	if _, ok := LookupProperty(c, prop); !ok {
		return Address{}, &ParseError{Element: element, Reason: fmt.Sprintf("unknown %s property %q", c.Name(), prop)}
	}
	addr.Property = prop
	return addr, nil
}

func parseNavValid(element, rest string) (Address, error) {
	switch rest {
	case "continue", "previous":
		return Address{Kind: KindNavValid, Element: element, NavRequest: rest}, nil
	}
	for _, req := range []string{"choice", "jump"} {
		target, ok := strings.CutPrefix(rest, req+".{target=")
		if !ok {
			continue
		}
		target, ok = strings.CutSuffix(target, "}")
		if !ok || target == "" {
			break
		}
		return Address{Kind: KindNavValid, Element: element, NavRequest: req, NavTarget: target}, nil
	}
	return Address{}, &ParseError{Element: element, Reason: "unknown navigation request"}
}

// parseIndex accepts a non-negative decimal index without sign or leading zeros.
func parseIndex(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty index")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("index %q is not a non-negative integer", s)
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("index %q has leading zeros", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("index %q: %w", s, err)
	}
	return n, nil
}

package datamodel

import (
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/roach88/scormrte/internal/clock"
	"github.com/roach88/scormrte/internal/errorstate"
)

// LearnerInfo identifies the learner of the attempt.
type LearnerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DataModel owns the element store for one attempt.
type DataModel struct {
	values      map[string]string
	collections map[Collection][]Record

	sink           ChangeSink
	contexts       []ChangeContext
	suppressEvents bool

	clock      clock.Clock
	logger     *slog.Logger
	memoryOnly bool

	browseMu    sync.Mutex
	browse      *BrowseSession
	browseTimer clock.Timer
}

// Option configures a DataModel.
type Option func(*DataModel)

// WithChangeSink sets the receiver of change events.
func WithChangeSink(sink ChangeSink) Option {
	return func(m *DataModel) { m.sink = sink }
}

// WithClock sets the time source for events and the browse timer.
func WithClock(c clock.Clock) Option {
	return func(m *DataModel) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *DataModel) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMemoryOnly marks the attempt as never persisted, regardless of mode.
func WithMemoryOnly(memoryOnly bool) Option {
	return func(m *DataModel) { m.memoryOnly = memoryOnly }
}

// New creates a DataModel seeded from schema defaults.
func New(opts ...Option) *DataModel {
	m := &DataModel{
		clock:  clock.Real{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.seed()
	return m
}

func (m *DataModel) seed() {
	m.values = make(map[string]string, len(scalarSchema))
	for name, spec := range scalarSchema {
		if spec.Default != nil {
			m.values[name] = *spec.Default
		}
	}
	m.collections = make(map[Collection][]Record, len(AllCollections))
	for _, c := range AllCollections {
		m.collections[c] = []Record{}
	}
}

// GetValue reads element with the external access rules applied.
func (m *DataModel) GetValue(element string) (string, error) {
	addr, err := Parse(element)
	if err != nil {
		m.touchBrowse("GetValue", element)
		return "", &ElementError{Code: errorstate.UndefinedElement, Element: element, Diagnostic: err.Error()}
	}
	return m.Get(addr)
}

// Get reads a resolved address with the external access rules applied.
func (m *DataModel) Get(addr Address) (string, error) {
	m.touchBrowse("GetValue", addr.Element)
	if !addr.Spec().Readable() {
		return "", newElementError(errorstate.WriteOnlyElement, addr.Element, "%s is write-only", addr.Element)
	}
	return m.read(addr)
}

// InternalValue reads element bypassing the write-only gate.
// Engine bookkeeping uses it for cmi.exit and cmi.session_time.
func (m *DataModel) InternalValue(element string) (string, error) {
	addr, err := Parse(element)
	if err != nil {
		return "", &ElementError{Code: errorstate.UndefinedElement, Element: element, Diagnostic: err.Error()}
	}
	return m.read(addr)
}

func (m *DataModel) read(addr Address) (string, error) {
	switch addr.Kind {
	case KindScalar:
		if v, ok := m.values[addr.Name]; ok {
			return v, nil
		}
		spec := scalarSchema[addr.Name]
		if spec.Default != nil {
			return *spec.Default, nil
		}
		if spec.Nullable {
			return "", nil
		}
		return "", newElementError(errorstate.UndefinedElement, addr.Element, "%s has no value and no default", addr.Element)

	case KindCount:
		return strconv.Itoa(len(m.collections[addr.Collection])), nil

	case KindSubCount:
		rec, err := m.record(addr)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(rec.ListLen(addr.SubList)), nil

	case KindField:
		rec, err := m.record(addr)
		if err != nil {
			return "", err
		}
		fields := rec.Fields
		if addr.Nested() {
			items := rec.Lists[addr.SubList]
			if addr.SubIndex >= len(items) {
				return "", newElementError(errorstate.UndefinedElement, addr.Element,
					"%s index %d is out of range (count %d)", addr.SubList, addr.SubIndex, len(items))
			}
			fields = items[addr.SubIndex]
		}
		if v, ok := fields[addr.leaf()]; ok {
			return v, nil
		}
		spec := addr.Spec()
		if spec.Default != nil {
			return *spec.Default, nil
		}
		return "", newElementError(errorstate.ValueNotInitialized, addr.Element, "%s has not been set", addr.Element)

	case KindNavValid:
		return *navValidSpec.Default, nil
	}
	return "", newElementError(errorstate.UndefinedElement, addr.Element, "unsupported address kind %s", addr.Kind)
}

func (m *DataModel) record(addr Address) (Record, error) {
	records := m.collections[addr.Collection]
	if addr.Index >= len(records) {
		return Record{}, newElementError(errorstate.UndefinedElement, addr.Element,
			"%s index %d is out of range (count %d)", addr.Collection.Name(), addr.Index, len(records))
	}
	return records[addr.Index], nil
}

// SetValue writes element with the external access rules applied.
func (m *DataModel) SetValue(element, value string) error {
	addr, err := Parse(element)
	if err != nil {
		m.touchBrowse("SetValue", element)
		return &ElementError{Code: errorstate.UndefinedElement, Element: element, Diagnostic: err.Error()}
	}
	return m.Set(addr, value)
}

// Set writes a resolved address with the external access rules applied.
func (m *DataModel) Set(addr Address, value string) error {
	m.touchBrowse("SetValue", addr.Element)
	if derived(addr) || !addr.Spec().Writable() {
		return newElementError(errorstate.ReadOnlyElement, addr.Element, "%s is read-only", addr.Element)
	}
	return m.write(addr, value)
}

// SetInternalValue writes element bypassing the read-only gate. Values are
// still validated. Derived elements (_count, request_valid) stay unwritable.
func (m *DataModel) SetInternalValue(element, value string) error {
	addr, err := Parse(element)
	if err != nil {
		return &ElementError{Code: errorstate.UndefinedElement, Element: element, Diagnostic: err.Error()}
	}
	if derived(addr) {
		return newElementError(errorstate.ReadOnlyElement, addr.Element, "%s is derived and cannot be set", addr.Element)
	}
	return m.write(addr, value)
}

func derived(addr Address) bool {
	switch addr.Kind {
	case KindCount, KindSubCount, KindNavValid:
		return true
	}
	return false
}

func (m *DataModel) write(addr Address, value string) error {
	spec := addr.Spec()
	if code, diag := validateValue(addr.Element, spec, value); code != errorstate.NoError {
		return &ElementError{Code: code, Element: addr.Element, Diagnostic: diag}
	}

	var previous string
	switch addr.Kind {
	case KindScalar:
		previous, _ = m.read(addr)
		m.values[addr.Name] = value

	case KindField:
		if err := m.checkUnique(addr, value); err != nil {
			return err
		}
		fields := m.ensureFields(addr)
		previous = fields[addr.leaf()]
		fields[addr.leaf()] = value
	}

	m.recordBrowseWrite(addr.Element, value)
	m.emitChange(addr, previous, value)
	return nil
}

// ensureFields grows the backing sequences up to the addressed index and
// returns the property map to write into.
func (m *DataModel) ensureFields(addr Address) map[string]string {
	records := m.collections[addr.Collection]
	for len(records) <= addr.Index {
		records = append(records, NewRecord())
	}
	m.collections[addr.Collection] = records

	rec := &records[addr.Index]
	if rec.Fields == nil {
		rec.Fields = map[string]string{}
	}
	if !addr.Nested() {
		return rec.Fields
	}

	if rec.Lists == nil {
		rec.Lists = map[string][]map[string]string{}
	}
	items := rec.Lists[addr.SubList]
	for len(items) <= addr.SubIndex {
		items = append(items, map[string]string{})
	}
	rec.Lists[addr.SubList] = items
	return items[addr.SubIndex]
}

// checkUnique rejects an objective identifier already used by another objective.
func (m *DataModel) checkUnique(addr Address, value string) error {
	if addr.Collection != Objectives || addr.Property != "id" {
		return nil
	}
	for i, rec := range m.collections[Objectives] {
		if i != addr.Index && rec.Fields["id"] == value {
			return newElementError(errorstate.GeneralSetFailure, addr.Element,
				"objective identifier %q is already used by cmi.objectives.%d", value, i)
		}
	}
	return nil
}

// SetLearnerInfo seeds cmi.learner_id and cmi.learner_name.
func (m *DataModel) SetLearnerInfo(info LearnerInfo) error {
	var err error
	m.WithChangeContext(ChangeContext{Source: SourceLearnerInfo}, func() {
		if err = m.SetInternalValue("cmi.learner_id", info.ID); err != nil {
			return
		}
		err = m.SetInternalValue("cmi.learner_name", info.Name)
	})
	return err
}

// AllData returns a deep copy of every stored value, including write-only elements.
func (m *DataModel) AllData() Data {
	return Data{
		CoreData:            maps.Clone(m.values),
		Interactions:        cloneRecords(m.collections[Interactions]),
		Objectives:          cloneRecords(m.collections[Objectives]),
		CommentsFromLearner: cloneRecords(m.collections[CommentsFromLearner]),
		CommentsFromLMS:     cloneRecords(m.collections[CommentsFromLMS]),
	}
}

// Restore replaces the store with d without emitting change events.
// Unknown scalar names are skipped with a warning.
func (m *DataModel) Restore(d Data) {
	wasSuppressed := m.suppressEvents
	m.suppressEvents = true
	defer func() { m.suppressEvents = wasSuppressed }()

	m.seed()
	for _, name := range slices.Sorted(maps.Keys(d.CoreData)) {
		if _, ok := scalarSchema[name]; !ok {
			m.logger.Warn("skipping unknown element during restore", "element", name)
			continue
		}
		m.values[name] = d.CoreData[name]
	}
	for _, c := range AllCollections {
		m.collections[c] = cloneRecords(d.Records(c))
	}
}

// Reset clears and re-seeds the store and tears down any browse session.
func (m *DataModel) Reset() {
	m.DestroyBrowseSessionData()
	m.contexts = nil
	m.suppressEvents = false
	m.seed()
}

// Count returns the length of collection c.
func (m *DataModel) Count(c Collection) int {
	return len(m.collections[c])
}

// Now exposes the model's clock for callers sharing its time source.
func (m *DataModel) Now() time.Time {
	return m.clock.Now()
}

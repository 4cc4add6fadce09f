package core

// session.go implements the ingestion session: the per-visit aggregate of the
// operational and base slots plus the single current error.
//
// Session is a value. Every operation returns the updated session and leaves
// the receiver untouched, so the caller owns the state and decides when to
// store it. Tables and uploads referenced by a session are never mutated
// after they are attached.
//
// Slot lifecycle:
//
//	Empty -> Selected -> Parsed | Failed
//	Parsed | Failed -> (upload) -> Selected -> ...
//	any -> (clear) -> Empty
//
// Each slot carries a token that increases on every upload, read start and
// clear. A read that completes with an older token is discarded.

import (
	"context"
	"errors"
)

type slotData struct {
	upload  *RawUpload
	table   *Table
	token   uint64
	pending bool // a read was started and has not completed
	failed  bool // the last completed attempt failed
}

// Session tracks both slots and the most recent error.
type Session struct {
	schemas SchemaSet
	parser  Parser
	slots   [2]slotData
	err     *IngestionError
}

// ReadTicket identifies one in-flight read on a slot.
type ReadTicket struct {
	Slot     Slot
	Token    uint64
	FileName string
}

// NewSession returns an empty session validating against schemas.
func NewSession(schemas SchemaSet) Session {
	return Session{schemas: schemas, parser: DefaultParser}
}

// WithParser returns a copy of s that parses uploads with p.
func (s Session) WithParser(p Parser) Session {
	s.parser = p
	return s
}

// Schemas returns the schemas the session validates against.
func (s Session) Schemas() SchemaSet {
	return s.schemas
}

// Upload stores raw in slot, parses and validates it. On failure the upload
// stays recorded, the slot has no table and the session error is set.
func (s Session) Upload(slot Slot, raw RawUpload) (Session, *Table, error) {
	i := slot.index()
	if i < 0 {
		return s, nil, ErrUnknownSlot
	}
	s.slots[i] = slotData{token: s.slots[i].token + 1}
	return s.apply(slot, raw)
}

// BeginRead marks slot as selected for fileName and returns a ticket for the
// read that will deliver its content. Any earlier pending read becomes stale.
func (s Session) BeginRead(slot Slot, fileName string) (Session, ReadTicket, error) {
	i := slot.index()
	if i < 0 {
		return s, ReadTicket{}, ErrUnknownSlot
	}

	selected := NewRawUpload(fileName, nil)
	s.slots[i] = slotData{
		upload:  &selected,
		token:   s.slots[i].token + 1,
		pending: true,
	}
	return s, ReadTicket{Slot: slot, Token: s.slots[i].token, FileName: fileName}, nil
}

// CompleteRead applies the result of the read identified by t. If a newer
// upload, read or clear happened on the slot since t was issued, the result
// is discarded and ErrStaleRead is returned with s unchanged.
func (s Session) CompleteRead(t ReadTicket, content []byte, readErr error) (Session, *Table, error) {
	i := t.Slot.index()
	if i < 0 {
		return s, nil, ErrUnknownSlot
	}
	sd := s.slots[i]
	if !sd.pending || sd.token != t.Token {
		return s, nil, ErrStaleRead
	}

	if readErr != nil {
		s.slots[i].pending = false
		s.slots[i].failed = true
		ie := withSlot(readErr, KindReadFailure, t.Slot)
		s.err = ie
		return s, nil, ie
	}

	s.slots[i] = slotData{token: sd.token}
	return s.apply(t.Slot, NewRawUpload(t.FileName, content))
}

func (s Session) apply(slot Slot, raw RawUpload) (Session, *Table, error) {
	i := slot.index()
	s.slots[i].upload = &raw

	table, err := s.parser.Parse(string(raw.Content), raw.Extension)
	if err == nil {
		err = ValidateHeaders(slot, table.Headers, s.schemas.For(slot))
	}
	if err != nil {
		ie := withSlot(err, KindReadFailure, slot)
		s.slots[i].failed = true
		s.err = ie
		return s, nil, ie
	}

	s.slots[i].table = table
	if s.err != nil && (s.err.Slot == slot || s.err.Slot == "") {
		s.err = nil
	}
	return s, table, nil
}

// Clear empties slot and drops the current error if slot caused it.
func (s Session) Clear(slot Slot) (Session, error) {
	i := slot.index()
	if i < 0 {
		return s, ErrUnknownSlot
	}
	s.slots[i] = slotData{token: s.slots[i].token + 1}
	if s.err != nil && s.err.Slot == slot {
		s.err = nil
	}
	return s, nil
}

// Reset returns an empty session with the same schemas and parser. Slot
// tokens keep increasing, so reads started before the reset stay stale.
func (s Session) Reset() Session {
	next := Session{schemas: s.schemas, parser: s.parser}
	for i, sd := range s.slots {
		next.slots[i] = slotData{token: sd.token + 1}
	}
	return next
}

// Ready reports whether both slots hold a validated table and there is no
// current error. Report generation must not be attempted otherwise.
func (s Session) Ready() bool {
	return s.slots[0].table != nil && s.slots[1].table != nil && s.err == nil
}

// Err returns the most recent error, or nil.
func (s Session) Err() error {
	if s.err == nil {
		return nil
	}
	return s.err
}

// State returns the lifecycle state of slot.
func (s Session) State(slot Slot) SlotState {
	i := slot.index()
	if i < 0 {
		return SlotEmpty
	}
	sd := s.slots[i]
	switch {
	case sd.pending:
		return SlotSelected
	case sd.table != nil:
		return SlotParsed
	case sd.failed:
		return SlotFailed
	case sd.upload != nil:
		return SlotSelected
	default:
		return SlotEmpty
	}
}

// File returns the upload recorded in slot.
func (s Session) File(slot Slot) (RawUpload, bool) {
	i := slot.index()
	if i < 0 || s.slots[i].upload == nil {
		return RawUpload{}, false
	}
	return *s.slots[i].upload, true
}

// Table returns the validated table in slot.
func (s Session) Table(slot Slot) (*Table, bool) {
	i := slot.index()
	if i < 0 || s.slots[i].table == nil {
		return nil, false
	}
	return s.slots[i].table, true
}

// Generate hands both validated uploads to g. If the session is not ready it
// records and returns a KindNotReady error without calling g. Failures
// reported by g are returned as KindGenerateFailed and not recorded, since
// both tables remain valid and the request can be retried.
func (s Session) Generate(ctx context.Context, g Generator) (Session, ReportHandle, error) {
	s, b, err := s.Prepare()
	if err != nil {
		return s, "", err
	}
	handle, err := GenerateReport(ctx, g, b)
	return s, handle, err
}

// Prepare is the admission step of Generate: it returns the bundle to hand
// to a report collaborator, or records and returns a KindNotReady error.
// Callers that must not hold the session while the collaborator runs call
// Prepare and then GenerateReport.
func (s Session) Prepare() (Session, Bundle, error) {
	b, ie := s.bundle()
	if ie != nil {
		s.err = ie
		return s, Bundle{}, ie
	}
	return s, b, nil
}

// Bundle packages both slots for a report collaborator.
func (s Session) Bundle() (Bundle, error) {
	b, ie := s.bundle()
	if ie != nil {
		return Bundle{}, ie
	}
	return b, nil
}

func (s Session) bundle() (Bundle, *IngestionError) {
	if !s.Ready() {
		return Bundle{}, newError(KindNotReady, "", nil)
	}
	return Bundle{
		Operational: SlotBundle{Upload: *s.slots[0].upload, Table: s.slots[0].table},
		Base:        SlotBundle{Upload: *s.slots[1].upload, Table: s.slots[1].table},
	}, nil
}

// withSlot converts err to an *IngestionError attributed to slot.
// Errors that are not IngestionErrors are wrapped as fallback kind.
func withSlot(err error, fallback ErrorKind, slot Slot) *IngestionError {
	var ie *IngestionError
	if errors.As(err, &ie) {
		cp := *ie
		cp.Slot = slot
		return &cp
	}
	return newError(fallback, slot, err)
}

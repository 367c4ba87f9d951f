package edit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/liveedit/locator"
)

// Kind is the type of edit an Instruction carries.
type Kind string

const (
	KindText       Kind = "text"       // replace text content wholesale
	KindColor      Kind = "color"      // style color
	KindBackground Kind = "background" // style background-color
	KindFontSize   Kind = "fontSize"   // style font-size
	KindStyle      Kind = "style"      // every pair of Styles
	KindAttribute  Kind = "attribute"  // set Attribute to Value
	KindDelete     Kind = "delete"     // RemoveText from text, or detach the node
	KindReplace    Kind = "replace"    // replace inner markup with sanitized Markup
	KindInsert     Kind = "insert"     // append sanitized Markup as last children
	KindUndo       Kind = "undo"       // routed to UndoLast
)

// Kinds lists every kind Apply accepts, undo included.
var Kinds = []Kind{
	KindText, KindColor, KindBackground, KindFontSize, KindStyle,
	KindAttribute, KindDelete, KindReplace, KindInsert, KindUndo,
}

func (k Kind) valid() bool {
	for _, v := range Kinds {
		if k == v {
			return true
		}
	}
	return false
}

// Instruction is one edit request. Which payload fields matter depends on Kind.
type Instruction struct {
	Kind       Kind              `json:"kind"`
	Locator    locator.Locator   `json:"locator"`
	Value      string            `json:"value,omitempty"`
	Styles     map[string]string `json:"styles,omitempty"`
	Attribute  string            `json:"attribute,omitempty"`
	RemoveText string            `json:"remove_text,omitempty"`
	Markup     string            `json:"markup,omitempty"`
}

// UnmarshalJSON also accepts the preview script's field spellings
// ("selector", "newValue", "content", "removeText").
func (in *Instruction) UnmarshalJSON(data []byte) error {
	type plain Instruction
	var aux struct {
		plain
		Selector      locator.Locator `json:"selector"`
		NewValue      *string         `json:"newValue"`
		NewValueSnake *string         `json:"new_value"`
		Content       *string         `json:"content"`
		RemoveTextJS  *string         `json:"removeText"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*in = Instruction(aux.plain)
	if in.Locator == "" {
		in.Locator = aux.Selector
	}
	if in.Value == "" {
		switch {
		case aux.NewValue != nil:
			in.Value = *aux.NewValue
		case aux.NewValueSnake != nil:
			in.Value = *aux.NewValueSnake
		}
	}
	if in.Markup == "" && aux.Content != nil {
		in.Markup = *aux.Content
	}
	if in.RemoveText == "" && aux.RemoveTextJS != nil {
		in.RemoveText = *aux.RemoveTextJS
	}
	return nil
}

// Status of a Record.
type Status string

const (
	StatusApplied Status = "applied"
	// StatusPending marks edits queued for out-of-band processing. The engine
	// never produces it; hosts that record deferred requests do.
	StatusPending Status = "pending"
)

// Tombstone is the SnapshotAfter of a record whose node was detached.
const Tombstone = "<!-- removed -->"

// Record is one history entry. Records are never mutated once appended.
type Record struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	Kind        Kind            `json:"kind"`
	Target      locator.Locator `json:"target_locator"`
	Before      string          `json:"snapshot_before"`
	After       string          `json:"snapshot_after"`
	Parent      locator.Locator `json:"parent_locator,omitempty"`
	NextSibling locator.Locator `json:"next_sibling_locator,omitempty"`
	Index       int             `json:"index_in_parent"`
	Status      Status          `json:"status"`
	Description string          `json:"description"`
	Payload     Instruction     `json:"payload"`
}

// Removed reports whether the record detached its node.
func (r Record) Removed() bool {
	return r.After == Tombstone
}

// Code classifies a failed Result.
type Code string

const (
	CodeUnavailable    Code = "unavailable"
	CodeNotFound       Code = "not_found"
	CodeUnsupported    Code = "unsupported"
	CodeEmptyHistory   Code = "empty_history"
	CodeRestoreFailed  Code = "restore_failed"
	CodeMutationFailed Code = "mutation_failed"
)

// Sentinel errors matching each Code, for errors.Is on Result.Err.
var (
	ErrUnavailable    = errors.New("edit: target document unavailable")
	ErrNotFound       = errors.New("edit: not found")
	ErrUnsupported    = errors.New("edit: unsupported edit kind")
	ErrEmptyHistory   = errors.New("edit: nothing to undo")
	ErrRestoreFailed  = errors.New("edit: restore failed")
	ErrMutationFailed = errors.New("edit: mutation failed")
)

var codeErrors = map[Code]error{
	CodeUnavailable:    ErrUnavailable,
	CodeNotFound:       ErrNotFound,
	CodeUnsupported:    ErrUnsupported,
	CodeEmptyHistory:   ErrEmptyHistory,
	CodeRestoreFailed:  ErrRestoreFailed,
	CodeMutationFailed: ErrMutationFailed,
}

// Result is the outcome of Apply or UndoLast.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	RecordID string `json:"record_id,omitempty"`
	Code     Code   `json:"code,omitempty"`
}

// Err returns nil for a successful result, otherwise the Code's sentinel
// wrapped with the message.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	sentinel, ok := codeErrors[r.Code]
	if !ok {
		sentinel = ErrMutationFailed
	}
	return fmt.Errorf("%w: %s", sentinel, r.Message)
}

func ok(msg, recordID string) Result {
	return Result{Success: true, Message: msg, RecordID: recordID}
}

func fail(code Code, format string, args ...any) Result {
	return Result{Code: code, Message: fmt.Sprintf(format, args...)}
}

// failure carries a Code through the internal helpers.
type failure struct {
	code Code
	msg  string
}

func (f *failure) Error() string { return f.msg }

func failf(code Code, format string, args ...any) error {
	return &failure{code: code, msg: fmt.Sprintf(format, args...)}
}

// resultFrom converts an internal error into a failed Result.
func resultFrom(err error) Result {
	var f *failure
	if errors.As(err, &f) {
		return Result{Code: f.code, Message: f.msg}
	}
	return Result{Code: CodeMutationFailed, Message: err.Error()}
}

// Package workflow holds the scanner-side state machines that guide an
// operator through putaway and receiving.
package workflow

import (
	"context"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/barcode"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
)

// ErrInvalidTransition is returned for an action the current state does not accept.
var ErrInvalidTransition = errors.New(errors.CodeConflict, "action not allowed in the current step", 409)

// PutawayBackend is the part of the warehouse API the putaway flow needs.
// *client.Client satisfies it.
type PutawayBackend interface {
	ScanCase(ctx context.Context, barcode string) (*service.CaseInfo, error)
	ScanLocation(ctx context.Context, barcode string) (*service.LocationContents, error)
	Putaway(ctx context.Context, req service.PutawayRequest) (*service.MoveResult, error)
}

// PutawayState is one step of the putaway flow.
type PutawayState interface {
	Step() string
}

// ScanCaseStep waits for a case or product barcode.
type ScanCaseStep struct{}

// ScanLocationStep holds the scanned case and waits for a destination.
type ScanLocationStep struct {
	Case *service.CaseInfo
}

// ConfirmStep holds the case and destination until the operator confirms.
type ConfirmStep struct {
	Case     *service.CaseInfo
	Location *repository.Location
}

// SuccessStep holds the result of the committed putaway.
type SuccessStep struct {
	Result *service.MoveResult
}

func (ScanCaseStep) Step() string     { return "scan_case" }
func (ScanLocationStep) Step() string { return "scan_location" }
func (ConfirmStep) Step() string      { return "confirm" }
func (SuccessStep) Step() string      { return "success" }

// Putaway moves one received case lot into storage: scan the case, scan the
// destination, confirm. A failed step leaves the state unchanged and sets Err.
type Putaway struct {
	backend PutawayBackend
	state   PutawayState
	err     error
}

// NewPutaway starts a flow at the case scan.
func NewPutaway(backend PutawayBackend) *Putaway {
	return &Putaway{backend: backend, state: ScanCaseStep{}}
}

// State returns the current step.
func (p *Putaway) State() PutawayState {
	return p.state
}

// Err returns the error of the last action, if it failed.
func (p *Putaway) Err() error {
	return p.err
}

func (p *Putaway) fail(err error) error {
	p.err = err
	return err
}

func (p *Putaway) advance(next PutawayState) {
	p.state = next
	p.err = nil
}

// ScanCase resolves a case label or LWIN18 and moves to the location scan.
func (p *Putaway) ScanCase(ctx context.Context, scanned string) error {
	if _, ok := p.state.(ScanCaseStep); !ok {
		return p.fail(ErrInvalidTransition)
	}
	switch barcode.Detect(scanned) {
	case barcode.KindCase, barcode.KindLWIN:
	default:
		return p.fail(errors.Invalid("barcode", "must be a case label or an LWIN18"))
	}

	info, err := p.backend.ScanCase(ctx, scanned)
	if err != nil {
		return p.fail(err)
	}
	if info.Primary == nil {
		return p.fail(errors.Conflict("no available stock for " + info.Dashed))
	}
	p.advance(ScanLocationStep{Case: info})
	return nil
}

// ScanLocation resolves the destination. Only storage locations are accepted.
func (p *Putaway) ScanLocation(ctx context.Context, scanned string) error {
	current, ok := p.state.(ScanLocationStep)
	if !ok {
		return p.fail(ErrInvalidTransition)
	}
	if _, err := barcode.ParseLocation(scanned); err != nil {
		return p.fail(err)
	}

	contents, err := p.backend.ScanLocation(ctx, scanned)
	if err != nil {
		return p.fail(err)
	}
	loc := contents.Location
	if !repository.IsStorageType(loc.Type) {
		return p.fail(errors.Invalid("location", loc.Code+" is a "+loc.Type+" location, scan a rack or floor location"))
	}
	if loc.ID == current.Case.Primary.LocationID {
		return p.fail(errors.Invalid("location", "stock is already at "+loc.Code))
	}
	p.advance(ConfirmStep{Case: current.Case, Location: loc})
	return nil
}

// Confirm commits the putaway of the whole available quantity.
func (p *Putaway) Confirm(ctx context.Context) error {
	current, ok := p.state.(ConfirmStep)
	if !ok {
		return p.fail(ErrInvalidTransition)
	}
	result, err := p.backend.Putaway(ctx, service.PutawayRequest{
		StockID:      current.Case.Primary.ID,
		ToLocationID: current.Location.ID,
	})
	if err != nil {
		return p.fail(err)
	}
	p.advance(SuccessStep{Result: result})
	return nil
}

// Back returns to the previous scan. It is not available at the first step
// or after the putaway was committed.
func (p *Putaway) Back() error {
	switch s := p.state.(type) {
	case ScanLocationStep:
		p.advance(ScanCaseStep{})
	case ConfirmStep:
		p.advance(ScanLocationStep{Case: s.Case})
	default:
		return p.fail(ErrInvalidTransition)
	}
	return nil
}

// Reset starts over from the case scan.
func (p *Putaway) Reset() {
	p.advance(ScanCaseStep{})
}

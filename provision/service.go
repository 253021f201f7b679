// Package provision authorizes discovered terminals on their OLT and
// maintains their customer metadata.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nanoncore/nano-inventory/logger"
	"github.com/nanoncore/nano-inventory/model"
	"github.com/nanoncore/nano-inventory/store"
	"github.com/nanoncore/nano-inventory/types"
	"github.com/nanoncore/nano-inventory/vendors/common"
)

var (
	// ErrAlreadyAuthorized is returned when the terminal is already registered.
	ErrAlreadyAuthorized = errors.New("provision: terminal already authorized")

	// ErrSyntheticSerial is returned for terminals whose serial was never
	// reported by the device; the OLT cannot register them by serial.
	ErrSyntheticSerial = errors.New("provision: terminal has no device-reported serial")

	errNilStore             = errors.New("provision: store is required")
	errNilSessionFactory    = errors.New("provision: session factory is required")
	errNilAuthorizerFactory = errors.New("provision: authorizer factory is required")
	errEmptyPatch           = errors.New("provision: empty customer patch")
	errInvalidVLAN          = errors.New("provision: vlan must be 1-4094")
)

// Session is an open management CLI session.
type Session interface {
	types.CLIExecutor
	Disconnect(ctx context.Context) error
}

// SessionFactory opens a connected CLI session to a device.
type SessionFactory func(ctx context.Context, device *model.Device) (Session, error)

// AuthorizerFactory returns the command builder of a vendor.
type AuthorizerFactory func(vendor string) (types.TerminalAuthorizer, error)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards output.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service runs provisioning operations against the inventory.
type Service struct {
	store         store.Store
	newSession    SessionFactory
	newAuthorizer AuthorizerFactory
	log           logger.Logger
	now           func() time.Time
}

// New creates a provisioning service.
func New(st store.Store, newSession SessionFactory, newAuthorizer AuthorizerFactory, opts ...Option) (*Service, error) {
	switch {
	case st == nil:
		return nil, errNilStore
	case newSession == nil:
		return nil, errNilSessionFactory
	case newAuthorizer == nil:
		return nil, errNilAuthorizerFactory
	}

	s := &Service{
		store:         st,
		newSession:    newSession,
		newAuthorizer: newAuthorizer,
		log:           logger.NewTestLogger(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("provision")
	return s, nil
}

// position is the physical location of a terminal.
type position struct {
	device *model.Device
	slot   *model.Slot
	port   *model.Port
}

func (s *Service) locate(ctx context.Context, t *model.Terminal) (*position, error) {
	port, err := s.store.GetPort(ctx, t.PortID)
	if err != nil {
		return nil, fmt.Errorf("port %d: %w", t.PortID, err)
	}
	slot, err := s.store.GetSlot(ctx, port.SlotID)
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", port.SlotID, err)
	}
	device, err := s.store.GetDevice(ctx, slot.DeviceID)
	if err != nil {
		return nil, err
	}
	return &position{device: device, slot: slot, port: port}, nil
}

// Authorize registers a discovered terminal on its PON port and records it
// as authorized. The ONU profile comes from the device "onu.type" annotation.
func (s *Service) Authorize(ctx context.Context, terminalID int64) (*model.Terminal, error) {
	t, err := s.store.GetTerminal(ctx, terminalID)
	if err != nil {
		return nil, fmt.Errorf("terminal %d: %w", terminalID, err)
	}
	if t.AuthStatus == model.AuthAuthorized {
		return nil, ErrAlreadyAuthorized
	}
	if t.Synthetic {
		return nil, ErrSyntheticSerial
	}

	pos, err := s.locate(ctx, t)
	if err != nil {
		return nil, err
	}

	authorizer, err := s.newAuthorizer(pos.device.Vendor)
	if err != nil {
		return nil, err
	}

	commands, err := authorizer.AuthorizeCommands(types.AuthorizeRequest{
		Slot:       pos.slot.SlotNumber,
		Port:       pos.port.PortNumber,
		TerminalID: t.TerminalID,
		Serial:     t.Serial,
		ONUType:    common.Annotations(pos.device.Annotations).StringOr("", common.AnnotationONUType),
	})
	if err != nil {
		return nil, err
	}

	log := s.log.With().
		Int64("device_id", pos.device.ID).
		Int("slot", pos.slot.SlotNumber).
		Int("port", pos.port.PortNumber).
		Int("onu_id", t.TerminalID).
		Str("serial", t.Serial).
		Logger()

	if err := s.run(ctx, pos.device, commands); err != nil {
		log.Error().Err(err).Msg("Terminal authorization failed")
		return nil, err
	}

	authorized := model.AuthAuthorized
	updated, err := s.store.PatchTerminal(ctx, t.ID, model.TerminalPatch{
		AuthStatus: &authorized,
		ObservedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("record authorization: %w", err)
	}

	log.Info().Msg("Terminal authorized")
	return updated, nil
}

func (s *Service) run(ctx context.Context, device *model.Device, commands []string) error {
	session, err := s.newSession(ctx, device)
	if err != nil {
		return fmt.Errorf("open session to %s: %w", device.Name, err)
	}
	defer func() {
		_ = session.Disconnect(ctx)
	}()

	outputs, err := session.ExecCommands(ctx, commands)
	if err != nil {
		return err
	}
	for i, output := range outputs {
		if err := common.CheckCLIOutput(commands[i], output); err != nil {
			return err
		}
	}
	return nil
}

// UpdateCustomer patches the customer metadata of a terminal.
func (s *Service) UpdateCustomer(ctx context.Context, terminalID int64, patch model.SubscriberPatch) (*model.Terminal, error) {
	if patch == (model.SubscriberPatch{}) {
		return nil, errEmptyPatch
	}
	if patch.VLAN != nil && (*patch.VLAN < 1 || *patch.VLAN > 4094) {
		return nil, fmt.Errorf("%w: %d", errInvalidVLAN, *patch.VLAN)
	}

	t, err := s.store.PatchTerminal(ctx, terminalID, model.TerminalPatch{Subscriber: &patch})
	if err != nil {
		return nil, fmt.Errorf("terminal %d: %w", terminalID, err)
	}

	s.log.Debug().Int64("terminal_id", terminalID).Msg("Customer metadata updated")
	return t, nil
}

package wchlink

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	vendorID  = 0x1a86
	productID = 0x8010

	commandTimeout = 5 * time.Second
)

// bulkTransport is the USB plumbing a Device drives: one pair of endpoints
// for command/reply framing (0x01 out, 0x81 in), one pair for raw bulk data
// (0x02 out, 0x82 in). Splitting this out of Device keeps the command byte
// sequences in device.go testable against a fake, the way
// network/tap_device.go separates the tun/tap file descriptor from the
// packet-shaping code above it.
type bulkTransport interface {
	command(cmd []byte, reply []byte) (int, error)
	bulkOut(data []byte) (int, error)
	bulkIn(buf []byte) (int, error)
	close() error
}

// usbTransport is the real gousb-backed implementation.
type usbTransport struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	intf    *gousb.Interface
	release func()

	cmdOut  *gousb.OutEndpoint
	cmdIn   *gousb.InEndpoint
	dataOut *gousb.OutEndpoint
	dataIn  *gousb.InEndpoint
}

// openUSBTransport finds the first WCH-LinkE (1a86:8010), claims its
// default interface, and flushes any reply left over from a previous
// session, mirroring wch_link_base_setup's best-effort, non-blocking
// libusb_bulk_transfer drain.
func openUSBTransport() (*usbTransport, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vendorID), gousb.ID(productID))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("wchlink: open device %04x:%04x: %w", vendorID, productID, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("wchlink: no WCH-LinkE found (%04x:%04x)", vendorID, productID)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: set auto detach: %w", err)
	}

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: claim config: %w", err)
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: claim interface 0: %w", err)
	}

	cmdOut, err := intf.OutEndpoint(0x01)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: open command OUT endpoint: %w", err)
	}
	cmdIn, err := intf.InEndpoint(0x81)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: open command IN endpoint: %w", err)
	}
	dataOut, err := intf.OutEndpoint(0x02)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: open data OUT endpoint: %w", err)
	}
	dataIn, err := intf.InEndpoint(0x82)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("wchlink: open data IN endpoint: %w", err)
	}

	t := &usbTransport{
		ctx:  ctx,
		dev:  dev,
		intf: intf,
		release: func() {
			intf.Close()
			cfg.Close()
			dev.Close()
			ctx.Close()
		},
		cmdOut:  cmdOut,
		cmdIn:   cmdIn,
		dataOut: dataOut,
		dataIn:  dataIn,
	}

	// Clear out any pending transfer left behind by a prior run. Best
	// effort, short timeout, errors ignored, exactly as the 1ms drain in
	// wch_link_base_setup.
	drainCtx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	drain := make([]byte, 1024)
	_, _ = t.cmdIn.ReadContext(drainCtx, drain)
	cancel()

	return t, nil
}

// command sends cmd on the command OUT endpoint and reads a reply on the
// command IN endpoint, returning the number of reply bytes actually
// transferred. reply may be nil, in which case a scratch 1024-byte buffer
// absorbs the response, matching wch_link_command's local `buffer[1024]`
// fallback.
func (t *usbTransport) command(cmd []byte, reply []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if _, err := t.cmdOut.WriteContext(ctx, cmd); err != nil {
		return 0, fmt.Errorf("wchlink: send command % x: %w", cmd, err)
	}
	if reply == nil {
		reply = make([]byte, 1024)
	}
	n, err := t.cmdIn.ReadContext(ctx, reply)
	if err != nil {
		return 0, fmt.Errorf("wchlink: recv reply to % x: %w", cmd, err)
	}
	return n, nil
}

func (t *usbTransport) bulkOut(data []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	n, err := t.dataOut.WriteContext(ctx, data)
	if err != nil {
		return n, fmt.Errorf("wchlink: bulk out: %w", err)
	}
	return n, nil
}

func (t *usbTransport) bulkIn(buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	n, err := t.dataIn.ReadContext(ctx, buf)
	if err != nil {
		return n, fmt.Errorf("wchlink: bulk in: %w", err)
	}
	return n, nil
}

func (t *usbTransport) close() error {
	t.release()
	return nil
}

package rig

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/radio-control/rigcore/internal/cat"
	"github.com/radio-control/rigcore/internal/registry"
)

// icomManufacturer is the manufacturer family addressed by a CI-V address.
const icomManufacturer = "Icom"

func (c *Controller) connect() error {
	name := c.rigCfg.Name
	if c.conn != nil {
		return &ConnectionError{Reason: ReasonAlreadyConnected, Rig: name}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timing.ConnectTimeout())
	defer cancel()

	desc, err := c.registry.Lookup(ctx, name)
	if err != nil {
		if errors.Is(err, registry.ErrRigNotFound) {
			return &ConnectionError{Reason: ReasonRigNotFound, Rig: name}
		}
		return &ConnectionError{Reason: ReasonOpenFailed, Rig: name, Err: err}
	}

	cfg, err := c.openConfig(desc)
	if err != nil {
		return &ConnectionError{Reason: ReasonOpenFailed, Rig: name, Err: err}
	}

	c.logger.Infof("Opening %s (model %d) on %q", desc.Name(), desc.ID, cfg.PortPath)
	handle, err := c.backend.Open(ctx, desc, cfg)
	if err != nil {
		return &ConnectionError{Reason: ReasonOpenFailed, Rig: name, Err: err}
	}

	c.conn = &connection{
		handle:       handle,
		rig:          desc,
		multipleVFOs: c.probeMultipleVFOs(handle),
	}
	c.metrics.SetConnected(true)
	c.logger.Infof("Connected to %s (multiple VFOs: %t)", desc.Name(), c.conn.multipleVFOs)

	c.emitConnected()
	c.enqueueRefresh()
	return nil
}

// openConfig builds the backend configuration for desc from the rig settings.
func (c *Controller) openConfig(desc cat.RigDescriptor) (cat.OpenConfig, error) {
	ptt, err := cat.ParsePttType(c.rigCfg.PttType)
	if err != nil {
		return cat.OpenConfig{}, fmt.Errorf("failed to parse PTT type: %w", err)
	}
	cfg := cat.OpenConfig{
		PortPath:    c.rigCfg.SerialPort,
		BaudRate:    c.rigCfg.BaudRate,
		PttType:     ptt,
		PttPortPath: c.rigCfg.PttSerialPort,
	}
	if strings.HasPrefix(desc.Manufacturer, icomManufacturer) && c.rigCfg.CIVAddress > 0 {
		cfg.CIVAddress = fmt.Sprintf("0x%0X", c.rigCfg.CIVAddress)
	}
	return cfg, nil
}

// probeMultipleVFOs reports whether the rig answers a VFO query and
// advertises a second VFO.
func (c *Controller) probeMultipleVFOs(h cat.Handle) bool {
	ctx, cancel := c.deviceContext()
	defer cancel()

	if _, err := h.VFO(ctx); err != nil {
		c.logger.Debugf("VFO query failed, assuming a single VFO: %v", err)
		return false
	}
	vfos, err := h.VFOList(ctx)
	if err != nil {
		c.logger.Debugf("VFO list query failed, assuming a single VFO: %v", err)
		return false
	}
	return slices.Contains(vfos, cat.VFOB)
}

func (c *Controller) disconnect() error {
	if c.conn == nil {
		return nil
	}
	conn := c.conn

	var errs []error
	if conn.ptt {
		ctx, cancel := c.deviceContext()
		err := conn.handle.SetPTT(ctx, cat.VFOCurrent, false)
		cancel()
		if err != nil {
			errs = append(errs, &OperationError{Op: "release PTT", Err: err})
		} else {
			c.setTracked(false)
		}
	}

	if err := conn.handle.Close(); err != nil {
		errs = append(errs, &OperationError{Op: "close rig", Err: err})
	}
	c.conn = nil
	c.metrics.SetConnected(false)
	c.metrics.SetTransmitting(false)
	c.logger.Infof("Disconnected from %s", conn.rig.Name())

	return errors.Join(errs...)
}

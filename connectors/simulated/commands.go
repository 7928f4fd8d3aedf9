package simulated

import (
	"fmt"

	"github.com/kilianp07/carbridge/core/observable"
)

func (s *vehicle) wakeSleep(arg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch arg {
	case "wake":
		s.awake = true
	case "sleep":
		s.awake = false
		s.driving = false
	default:
		return fmt.Errorf("%w %q", observable.ErrUnknownCommand, arg)
	}
	s.publish()
	return nil
}

func (s *vehicle) lockUnlock(arg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch arg {
	case "lock":
		s.locked = true
	case "unlock":
		s.locked = false
	default:
		return fmt.Errorf("%w %q", observable.ErrUnknownCommand, arg)
	}
	s.publish()
	return nil
}

func startStop(arg string) (bool, error) {
	switch arg {
	case "start":
		return true, nil
	case "stop":
		return false, nil
	}
	return false, fmt.Errorf("%w %q", observable.ErrUnknownCommand, arg)
}

func (s *vehicle) climatization(arg string) error {
	on, err := startStop(arg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.climate = on
	s.publish()
	return nil
}

func (s *vehicle) windowHeatings(arg string) error {
	on, err := startStop(arg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowHeating = on
	s.publish()
	return nil
}

func (s *vehicle) chargingCommand(arg string) error {
	on, err := startStop(arg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chargeRequest = on
	if !on {
		s.chargePowerKW = 0
	}
	s.publish()
	return nil
}

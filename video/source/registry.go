package source

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// DeviceOptions carries the session parameters a driver may honor.
type DeviceOptions struct {
	FPS int
}

type Factory func(opts DeviceOptions) (Device, error)

var (
	gLock    sync.RWMutex
	gDrivers = make(map[string]Factory)
)

// Register makes a device driver available by name. It panics if the name is
// taken, matching the database/sql driver convention.
func Register(name string, f Factory) {
	gLock.Lock()
	defer gLock.Unlock()
	if _, ok := gDrivers[name]; ok {
		panic("source: Register called twice for driver " + name)
	}
	gDrivers[name] = f
}

func NewDevice(name string, opts DeviceOptions) (Device, error) {
	gLock.RLock()
	f, ok := gDrivers[name]
	gLock.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "unknown device driver %q (have %v)", name, Devices())
	}
	return f(opts)
}

// Devices lists registered driver names, sorted.
func Devices() []string {
	gLock.RLock()
	defer gLock.RUnlock()
	var names []string
	for n := range gDrivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("synthetic", func(opts DeviceOptions) (Device, error) {
		o := DefaultSyntheticOptions()
		if opts.FPS > 0 {
			o.FPS = opts.FPS
		}
		return NewSynthetic(o), nil
	})
}

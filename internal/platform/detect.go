package platform

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Host is a descriptive snapshot of the machine, used only for logging.
type Host struct {
	OS            string // runtime OS
	Arch          string // runtime architecture
	Platform      string // distro or product name, e.g. "ubuntu"
	Family        string // distro family, e.g. "debian"
	KernelVersion string
	KernelArch    string // raw kernel architecture, e.g. "x86_64"
}

// Describe gathers host details through gopsutil. Detection failures fall back
// to the runtime values; a cancelled context is returned as an error.
func Describe(ctx context.Context) (Host, error) {
	h := Host{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return h, ctx.Err()
		}

		return h, nil
	}

	h.Platform = info.Platform
	h.Family = info.PlatformFamily
	h.KernelVersion = info.KernelVersion
	h.KernelArch = info.KernelArch

	return h, nil
}

package process

import (
	"github.com/mitchellh/go-ps"
)

// Info is a running process as seen by the process table.
type Info struct {
	PID  int
	PPID int
	Name string
}

// Find looks up pid in the process table and returns it with a boolean
// indicating whether it was found.
func Find(pid int) (Info, bool, error) {
	p, err := ps.FindProcess(pid)
	if err != nil {
		return Info{}, false, err
	}
	if p == nil {
		return Info{}, false, nil
	}
	return Info{PID: p.Pid(), PPID: p.PPid(), Name: p.Executable()}, true, nil
}

// Executable returns the name the kernel reports for the child's binary,
// falling back to the command it was started with.
func (c *Child) Executable() string {
	if info, ok, err := Find(c.pid); err == nil && ok && info.Name != "" {
		return info.Name
	}
	return c.cmd.Path
}

package cancel

import (
	"github.com/shirou/gopsutil/v4/process"
)

// KillTree kills rootPID and every descendant process, computed by
// fixed-point iteration over the OS process table: starting from
// {rootPID}, each pass adds any process whose parent is already in the
// set, until the set stops growing. Kernel threads (processes with no
// executable path of their own, surfaced by gopsutil as a lookup error on
// Name) are skipped — they are not real descendants and cannot be killed
// independently of their owning process.
//
// KillTree is best-effort: a failure to kill one descendant does not abort
// the traversal, and an unknown rootPID is a silent no-op. It is the only
// function in this package permitted to enumerate the OS process table;
// every supervisor in this repo calls through here rather than doing its
// own enumeration.
func KillTree(rootPID int32) {
	procs, err := process.Processes()
	if err != nil {
		return
	}

	byPID := make(map[int32]*process.Process, len(procs))
	for _, p := range procs {
		byPID[p.Pid] = p
	}

	root, ok := byPID[rootPID]
	if !ok {
		return
	}

	killed := make(map[int32]bool)
	kill(root)
	killed[rootPID] = true

	for {
		grew := false
		for pid, p := range byPID {
			if killed[pid] {
				continue
			}
			ppid, err := p.Ppid()
			if err != nil || !killed[ppid] {
				continue
			}
			if !isRealProcess(p) {
				continue
			}
			kill(p)
			killed[pid] = true
			grew = true
		}
		if !grew {
			break
		}
	}
}

func isRealProcess(p *process.Process) bool {
	_, err := p.Name()
	return err == nil
}

func kill(p *process.Process) {
	_ = p.Kill()
}

//go:build !linux
// +build !linux

package action

// processTree has no portable process-tree enumeration off Linux, so
// kill_tree degrades to signaling the named pid only; no descendant is
// signaled and no unsupported-operation result is reported.
func processTree(pid int) []int {
	return []int{pid}
}

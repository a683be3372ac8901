// Package reactor provides platform-specific api.PlatformAdapter
// implementations: epoll on Linux, kqueue on BSD/Darwin, IOCP on Windows,
// and a stub returning an unsupported-platform error elsewhere. NewAdapter
// selects the right one for the running GOOS via build tags.
package reactor

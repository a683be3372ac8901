// Package api defines the contracts the taskloop scheduler core consumes but
// does not implement itself: the platform poller, the error vocabulary, and
// the task/event callback shapes. Concrete implementations live in sibling
// packages (reactor, adapters, fake); the core package reaches the platform
// poller only through the PlatformAdapter interface defined here.
package api

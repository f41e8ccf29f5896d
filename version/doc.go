// Package version reports the build of the dataflow engine.
//
// Version and Commit are normally set with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/dataflow/version.Version=1.2.0"
//
// Unset values fall back to the module build info.
package version

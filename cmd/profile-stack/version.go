package main

import "runtime/debug"

// version is stamped at release time:
//
//	go build -ldflags "-X main.version=v0.3.0" ./cmd/profile-stack
var version = ""

// getVersion prefers the ldflags stamp, then the module version recorded by
// "go install ...@version", then "dev".
func getVersion() string {
	if version != "" {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}

	return "dev"
}

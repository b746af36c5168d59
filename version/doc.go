// Package version exposes build metadata set with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/mywebapi/version.Version=1.2.0 \
//	    -X github.com/kbukum/mywebapi/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Missing values fall back to the module's embedded VCS information.
package version

// Package common holds process-wide helpers shared by the commands.
package common

import "github.com/google/uuid"

// PackageName is used as the default service name in logs.
const PackageName = "entropy-vault"

// Version is set at build time with -ldflags "-X .../common.Version=...".
var Version = "dev"

// InstanceUID returns a random id distinguishing this process in logs.
func InstanceUID() string {
	return uuid.Must(uuid.NewRandom()).String()
}

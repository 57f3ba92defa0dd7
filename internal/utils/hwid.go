package utils

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

// HWID identifies this machine to sync servers. It is an app-scoped hash of the OS machine id,
// or a random id for this process when the OS does not expose one.
var HWID = hwid()

func hwid() string {
	id, err := machineid.ProtectedID("stsync")
	if err != nil || id == "" {
		return uuid.NewString()
	}
	return id
}

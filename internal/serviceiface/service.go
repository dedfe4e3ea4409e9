// Package serviceiface defines the contract every managed service (logger,
// resourcemanager, cruce, gateway) implements so the app manager can sequence
// startup and shutdown.
package serviceiface

type Service interface {
	Name() string
	Start() error
	Stop() error
}

// Package exitcodes defines the process exit codes the scheduler CLI can return.
package exitcodes

// ExitCode is a process exit status used by errors that carry HasExitCode.
type ExitCode uint8

// Standard exit codes returned by schedulerd on various failure kinds.
const (
	// GenericError is used for errors that don't carry a more specific code.
	GenericError ExitCode = 1
	// InvalidConfig marks a configuration error (spec §7, "Configuration error").
	InvalidConfig ExitCode = 10
	// InvalidTaskDefinition marks malformed task/resource snapshot input.
	InvalidTaskDefinition ExitCode = 11
	// UnknownAlgorithm is returned when the registry has no constructor for a name.
	UnknownAlgorithm ExitCode = 12
	// ExternalSolverError marks a missing or unusable MILP solver binary.
	ExternalSolverError ExitCode = 20
)
